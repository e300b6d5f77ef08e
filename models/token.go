// Package models — JWT token claim'leri ve token çifti.
//
// JWT (JSON Web Token) nedir?
// Kullanıcı kimliğini doğrulamak için kullanılan, imzalanmış bir token.
// 3 parçadan oluşur: header.payload.signature
//
// Payload'da kullanıcı ID'si, token tipi ve expire süresi bulunur.
// Server her çağrıda bu token'ı doğrular — DB'ye gitmeden
// kullanıcının kim olduğunu bilir.
//
// Bu struct models paketinde tanımlanır çünkü birden fazla katman
// (services, pkg/token) tarafından kullanılır — circular dependency'yi önler.
package models

import "github.com/golang-jwt/jwt/v5"

// Token tipleri. Access kısa ömürlü API yetkisidir; refresh sadece
// yeni token çifti basmak için kullanılır. Tip ayrımı claim'de taşınır —
// refresh endpoint'ine access token sunulursa REDDEDİLİR.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims, JWT token'ın içindeki veriler (payload).
type TokenClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair, login/register/refresh sonrası dönen token çifti.
// Persiste EDİLMEZ — transient value object.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
