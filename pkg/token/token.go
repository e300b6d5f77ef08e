// Package token, JWT tabanlı bearer token imzalama/doğrulama codec'ini sağlar.
//
// Codec iki tip token basar:
//   - access: kısa ömürlü (varsayılan 60dk) — API çağrılarını yetkilendirir
//   - refresh: uzun ömürlü (varsayılan 7 gün) — SADECE yeni çift basmak için
//
// Tip ayrımı claim içinde taşınır ve doğrulamada caller tarafından
// kontrol edilir — refresh akışına access token sunulursa reddedilir.
//
// Revocation YOK: basılan token kendi expiry'sine kadar geçerlidir.
// Bu bilinçli bir tasarım boşluğudur; kısa access TTL mitigasyondur
// (logout server-side blacklist tutmaz).
package token

import (
	"fmt"
	"time"

	"github.com/akinalp/masa/models"
	"github.com/golang-jwt/jwt/v5"
)

// Codec, tek bir server-side secret ile HS256 token imzalar ve doğrular.
// Stateless ve thread-safe'dir — her request handler'ı aynı instance'ı paylaşabilir.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewCodec, yeni bir Codec oluşturur.
//
// accessExpMinutes: access token ömrü (dakika).
// refreshExpDays: refresh token ömrü (gün).
func NewCodec(secret string, accessExpMinutes, refreshExpDays int) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessExpMinutes) * time.Minute,
		refreshTTL: time.Duration(refreshExpDays) * 24 * time.Hour,
		issuer:     "masa",
	}
}

// Sign, verilen kullanıcı için tek bir token imzalar.
// tokenType models.TokenTypeAccess veya models.TokenTypeRefresh olmalıdır.
func (c *Codec) Sign(userID, tokenType string) (string, error) {
	ttl := c.accessTTL
	if tokenType == models.TokenTypeRefresh {
		ttl = c.refreshTTL
	}

	now := time.Now()
	claims := &models.TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// IssuePair, kullanıcı için access + refresh token çifti basar.
func (c *Codec) IssuePair(userID string) (*models.TokenPair, error) {
	access, err := c.Sign(userID, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := c.Sign(userID, models.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Verify, token'ı doğrular ve claim'lerini döner.
//
// FAIL-CLOSED sözleşme: bu fonksiyon ASLA error dönmez.
// Her başarısızlık sınıfı (malformed, süresi dolmuş, imza bozuk,
// beklenmeyen algoritma) (nil, false) ile sonuçlanır. Caller'lar
// false'u "unauthenticated" olarak ele almak ZORUNDADIR — bu sözleşme
// güvenlik garantisinin parçasıdır, exception'a çevrilmemelidir.
func (c *Codec) Verify(tokenString string) (*models.TokenClaims, bool) {
	parsed, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(t *jwt.Token) (any, error) {
		// Algorithm confusion saldırısına karşı: sadece HMAC kabul et.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})

	if err != nil {
		return nil, false
	}

	claims, ok := parsed.Claims.(*models.TokenClaims)
	if !ok || !parsed.Valid {
		return nil, false
	}
	if claims.UserID == "" || (claims.TokenType != models.TokenTypeAccess && claims.TokenType != models.TokenTypeRefresh) {
		return nil, false
	}

	return claims, true
}
