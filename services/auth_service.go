// Package services — AuthService: kayıt, giriş, token yaşam döngüsü,
// profil ve şifre işlemleri.
//
// Hata sözleşmesi (bkz. pkg/errors.go):
// - Domain hataları (validation/conflict/auth) spesifik mesajla propagate olur
// - Altyapı hataları (hasher/storage) SERVICE SINIRINDA yakalanır:
//   orijinal hata log'lanır, caller'a generic mesaj döner — iç detay sızmaz
// - VerifyToken istisnadır: fail-closed, hiç error dönmez (bkz. pkg/token)
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg"
	"github.com/akinalp/masa/pkg/email"
	"github.com/akinalp/masa/pkg/password"
	"github.com/akinalp/masa/pkg/ratelimit"
	"github.com/akinalp/masa/pkg/token"
	"github.com/akinalp/masa/repository"
)

// Reset token parametreleri.
const (
	resetTokenTTL      = 20 * time.Minute
	resetTokenCooldown = 60 * time.Second
)

// AuthService interface'i — dışarıya açık API.
// Route katmanı bu interface'e bağımlıdır, concrete struct'a değil.
type AuthService interface {
	// Register, yeni oyuncu kaydı oluşturur ve token çifti basar.
	Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error)

	// Login, kullanıcı girişi yapar. Ban kontrolü şifre doğrulamasından
	// ÖNCE gelir; banlı hesabın hatası ban sebebini içerir.
	Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error)

	// VerifyToken, token'ı doğrular. FAIL-CLOSED: her başarısızlık
	// (nil, false) döner, asla error üretmez.
	VerifyToken(tokenString string) (*models.TokenClaims, bool)

	// RefreshToken, geçerli bir refresh token karşılığında YENİ bir
	// access+refresh çifti basar. Access token sunulursa reddedilir.
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)

	// GetUserProfile, zenginleştirilmiş profili döner.
	// Kullanıcı yoksa (nil, nil) — miss bir error DEĞİLDİR.
	GetUserProfile(ctx context.Context, userID string) (*models.Profile, error)

	// UpdateProfile, sadece verilen alanları günceller (partial update).
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.Profile, error)

	// ChangePassword, eski şifreyi doğruladıktan sonra yenisini kaydeder.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// Logout, best-effort bookkeeping: last_active_at güncellenir.
	// Server-side blacklist yoktur — token kendi expiry'sine kadar geçerli kalır.
	Logout(ctx context.Context, userID string) error

	// ForgotPassword, kayıtlı email'e tek kullanımlık reset linki gönderir.
	// Email kayıtlı değilse de nil döner — hesap varlığını sızdırmaz.
	ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error

	// ResetPassword, reset token karşılığında yeni şifre kaydeder.
	// Token tek kullanımlıktır — başarılı reset sonrası silinir.
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
}

// AuthResult, register/login sonrası dönen profil + token çifti.
type AuthResult struct {
	Profile *models.Profile   `json:"profile"`
	Tokens  *models.TokenPair `json:"tokens"`
}

// authService, AuthService interface'inin implementasyonu.
type authService struct {
	userRepo    repository.UserRepository
	resetRepo   repository.PasswordResetRepository
	roleRepo    repository.RoleRepository
	txRunner    repository.TxRunner
	roleService RoleService
	hasher      password.Hasher
	codec       *token.Codec
	sender      email.EmailSender // nil olabilir — email akışı devre dışı
	limiter     *ratelimit.LoginRateLimiter
}

// NewAuthService, constructor.
//
// sender nil verilebilir: bu durumda ForgotPassword devre dışı hata döner,
// diğer tüm operasyonlar normal çalışır.
func NewAuthService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	roleRepo repository.RoleRepository,
	txRunner repository.TxRunner,
	roleService RoleService,
	hasher password.Hasher,
	codec *token.Codec,
	sender email.EmailSender,
	limiter *ratelimit.LoginRateLimiter,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		resetRepo:   resetRepo,
		roleRepo:    roleRepo,
		txRunner:    txRunner,
		roleService: roleService,
		hasher:      hasher,
		codec:       codec,
		sender:      sender,
		limiter:     limiter,
	}
}

// Register, yeni kullanıcı kaydı oluşturur.
//
// Akış:
//  1. Normalize + validation (sıra sabit: username → email → password)
//  2. Username/email çakışma ön kontrolü — hangi alanın çakıştığını söyler
//  3. Bcrypt hash
//  4. Varsayılan rol ("player") yüklenir — yoksa FATAL config hatası
//  5. User oluşturulur: chips=10000, avatar deterministik türetilir
//  6. Token çifti basılır
//
// lastLoginAt SET EDİLMEZ — onu sadece Login set eder.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error) {
	// 1. Normalize + validation
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// DisplayName verilmemişse username kullanılır
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	// 2. Çakışma ön kontrolü — dostane mesaj için.
	// Otoriter guard DB'deki UNIQUE constraint'tir (bkz. aşağıda Create):
	// iki eşzamanlı kayıt ön kontrolü aynı anda geçebilir.
	existing, err := s.userRepo.GetByUsernameOrEmail(ctx, req.Username, req.Email)
	if err == nil {
		if existing.Username == req.Username {
			return nil, fmt.Errorf("%w: username is already taken", pkg.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%w: email is already registered", pkg.ErrAlreadyExists)
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		log.Printf("[auth] register pre-check failed: %v", err)
		return nil, fmt.Errorf("%w: registration failed", pkg.ErrInternal)
	}

	// 3. Bcrypt hash
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		log.Printf("[auth] password hashing failed: %v", err)
		return nil, fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}

	// 4. Varsayılan rol — yoksa bootstrap çalışmamış demektir (config hatası)
	role, err := s.roleRepo.GetRoleByName(ctx, models.RolePlayer)
	if err != nil {
		log.Printf("[auth] default role %q unavailable: %v", models.RolePlayer, err)
		return nil, fmt.Errorf("%w: registration failed", pkg.ErrInternal)
	}

	// 5. User oluştur
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Avatar:       models.DeriveAvatar(req.Username),
		Chips:        models.StartingChips,
		RoleID:       role.ID,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, pkg.ErrAlreadyExists) {
			return nil, err // constraint yarışı kaybedildi — conflict olarak surface et
		}
		log.Printf("[auth] user create failed: %v", err)
		return nil, fmt.Errorf("%w: registration failed", pkg.ErrInternal)
	}

	// 6. Token çifti
	tokens, err := s.codec.IssuePair(user.ID)
	if err != nil {
		log.Printf("[auth] token issue failed: %v", err)
		return nil, fmt.Errorf("%w: registration failed", pkg.ErrInternal)
	}

	return &AuthResult{
		Profile: s.buildProfile(ctx, user),
		Tokens:  tokens,
	}, nil
}

// Login, kullanıcı girişi yapar.
//
// Kontrol sırası güvenlik açısından önemli:
//  1. Kullanıcı bul — yoksa generic "invalid username or password"
//  2. Ban kontrolü — şifre DOĞRULANMADAN önce; hata ban sebebini içerir
//  3. Aktiflik kontrolü — banlıdan FARKLI bir hata ("inactive")
//  4. Şifre doğrula — yanlışsa 1 ile AYNI generic mesaj
//
// "User yok" ve "şifre yanlış" aynı mesajı döner — username enumeration engeli.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Brute-force koruması: hesap adı bazlı sliding window
	if s.limiter != nil && !s.limiter.Allow(req.Username) {
		retry := ratelimit.FormatRetryMessage(s.limiter.RetryAfterSeconds(req.Username))
		return nil, fmt.Errorf("%w: too many login attempts, try again in %s", pkg.ErrBadRequest, retry)
	}

	// 1. Kullanıcıyı bul (TAM username eşleşmesi, case-sensitive)
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
		}
		log.Printf("[auth] login lookup failed: %v", err)
		return nil, fmt.Errorf("%w: login failed", pkg.ErrInternal)
	}

	// 2. Ban kontrolü — şifreden ÖNCE (banlı hesaba şifre oracle'ı verilmez)
	if user.IsBanned {
		if user.BanReason != nil && *user.BanReason != "" {
			return nil, fmt.Errorf("%w: account is banned: %s", pkg.ErrForbidden, *user.BanReason)
		}
		return nil, fmt.Errorf("%w: account is banned", pkg.ErrForbidden)
	}

	// 3. Aktiflik kontrolü
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", pkg.ErrForbidden)
	}

	// 4. Bcrypt şifre karşılaştırması
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
	}

	// Başarılı giriş — rate limit sayacı sıfırlanır
	if s.limiter != nil {
		s.limiter.Reset(req.Username)
	}

	// Login damgaları
	now := time.Now()
	if err := s.userRepo.UpdateLoginStamps(ctx, user.ID, now); err != nil {
		log.Printf("[auth] login stamp update failed: %v", err)
		return nil, fmt.Errorf("%w: login failed", pkg.ErrInternal)
	}
	user.LastLoginAt = &now
	user.LastActiveAt = &now

	tokens, err := s.codec.IssuePair(user.ID)
	if err != nil {
		log.Printf("[auth] token issue failed: %v", err)
		return nil, fmt.Errorf("%w: login failed", pkg.ErrInternal)
	}

	return &AuthResult{
		Profile: s.buildProfile(ctx, user),
		Tokens:  tokens,
	}, nil
}

// VerifyToken, codec'in fail-closed doğrulamasını aynen dışa açar.
func (s *authService) VerifyToken(tokenString string) (*models.TokenClaims, bool) {
	return s.codec.Verify(tokenString)
}

// RefreshToken, refresh token karşılığında yeni çift basar.
//
// Tip kontrolü katı: claim'deki tip TAM OLARAK "refresh" olmalı.
// Access token sunulursa reddedilir — access'in uzun ömürlü yetkiye
// yükselmesini engeller.
//
// Eski refresh token explicit olarak geçersiz kılınmaz (revocation yok);
// kendi expiry'sine kadar kullanılabilir kalır. Bilinçli tasarım boşluğu.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, ok := s.codec.Verify(refreshToken)
	if !ok || claims.TokenType != models.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
	}

	// Kullanıcı hala var mı ve giriş yapabilir durumda mı?
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", pkg.ErrNotFound)
		}
		log.Printf("[auth] refresh lookup failed: %v", err)
		return nil, fmt.Errorf("%w: login failed", pkg.ErrInternal)
	}

	if user.IsBanned {
		if user.BanReason != nil && *user.BanReason != "" {
			return nil, fmt.Errorf("%w: account is banned: %s", pkg.ErrForbidden, *user.BanReason)
		}
		return nil, fmt.Errorf("%w: account is banned", pkg.ErrForbidden)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", pkg.ErrForbidden)
	}

	tokens, err := s.codec.IssuePair(user.ID)
	if err != nil {
		log.Printf("[auth] token issue failed: %v", err)
		return nil, fmt.Errorf("%w: login failed", pkg.ErrInternal)
	}
	return tokens, nil
}

// GetUserProfile, zenginleştirilmiş profili döner.
// Kullanıcı yoksa (nil, nil) — caller miss'i kendisi ele alır.
func (s *authService) GetUserProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, nil
		}
		log.Printf("[auth] profile lookup failed: %v", err)
		return nil, fmt.Errorf("%w: failed to load profile", pkg.ErrInternal)
	}

	return s.buildProfile(ctx, user), nil
}

// UpdateProfile, sadece non-nil alanları uygular (partial update).
// Email değişikliğinde uniqueness yine DB constraint'i ile korunur.
func (s *authService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, err
		}
		log.Printf("[auth] profile lookup failed: %v", err)
		return nil, fmt.Errorf("%w: failed to load profile", pkg.ErrInternal)
	}

	// Partial update
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, pkg.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email is already registered", pkg.ErrAlreadyExists)
		}
		log.Printf("[auth] profile update failed: %v", err)
		return nil, fmt.Errorf("%w: failed to update profile", pkg.ErrInternal)
	}

	return s.buildProfile(ctx, user), nil
}

// ChangePassword, eski şifre doğrulandıktan sonra yenisini kaydeder.
// Yeni şifre kayıt ile aynı minimum uzunluk kuralına tabidir.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", pkg.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return err
		}
		log.Printf("[auth] change password lookup failed: %v", err)
		return fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return fmt.Errorf("%w: current password is incorrect", pkg.ErrUnauthorized)
	}

	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must be different from current password", pkg.ErrBadRequest)
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		log.Printf("[auth] password hashing failed: %v", err)
		return fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
		log.Printf("[auth] password update failed: %v", err)
		return fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}
	return nil
}

// Logout, best-effort bookkeeping.
//
// Server-side blacklist olmadığı için token geçersiz kılınMAZ —
// sadece last_active_at güncellenir. Bu yüzden hatalar yutulur:
// logout'un başarısız olması caller için anlamlı bir durum değildir.
func (s *authService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateLastActive(ctx, userID, time.Now()); err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			log.Printf("[auth] logout bookkeeping failed for %s: %v", userID, err)
		}
	}
	return nil
}

// ─── Şifre sıfırlama ───

// ForgotPassword, reset token üretir ve email'ler.
//
// Güvenlik özellikleri:
// - Email kayıtlı değilse de nil döner (hesap varlığı sızdırılmaz)
// - Token DB'de SHA256 hash olarak saklanır — plaintext sadece email'de
// - 60 saniyelik cooldown — email bombing engeli
// - Yeni token eskilerini geçersiz kılar (kullanıcı başına tek aktif token)
func (s *authService) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if s.sender == nil {
		return fmt.Errorf("%w: password reset is not available", pkg.ErrInternal)
	}

	// Fırsat temizliği — süresi dolmuş token'lar her istekte süpürülür
	if err := s.resetRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[auth] expired reset token sweep failed: %v", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil // email kayıtlı değil — sessizce başarı
		}
		log.Printf("[auth] forgot password lookup failed: %v", err)
		return fmt.Errorf("%w: password reset failed", pkg.ErrInternal)
	}

	// Cooldown kontrolü
	latest, err := s.resetRepo.GetLatestByUserID(ctx, user.ID)
	if err == nil && time.Since(latest.CreatedAt) < resetTokenCooldown {
		return fmt.Errorf("%w: please wait before requesting another reset email", pkg.ErrBadRequest)
	}
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		log.Printf("[auth] reset cooldown check failed: %v", err)
		return fmt.Errorf("%w: password reset failed", pkg.ErrInternal)
	}

	// 32 byte random token — plaintext email'e, SHA256 hash DB'ye
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		log.Printf("[auth] reset token generation failed: %v", err)
		return fmt.Errorf("%w: password reset failed", pkg.ErrInternal)
	}
	plaintext := hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(plaintext))

	record := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	// Eski token'ların silinmesi + yenisinin yazılması atomik:
	// create başarısız olursa kullanıcı eski (hâlâ geçerli) token'ıyla
	// kalır, tokensız bir ara durumda değil.
	err = s.txRunner.InTx(ctx, func(r *repository.TxRepos) error {
		if err := r.Resets.DeleteByUserID(ctx, user.ID); err != nil {
			return err
		}
		return r.Resets.Create(ctx, record)
	})
	if err != nil {
		log.Printf("[auth] reset token rotation failed: %v", err)
		return fmt.Errorf("%w: password reset failed", pkg.ErrInternal)
	}

	if err := s.sender.SendPasswordReset(ctx, user.Email, plaintext); err != nil {
		log.Printf("[auth] reset email send failed: %v", err)
		return fmt.Errorf("%w: failed to send reset email", pkg.ErrInternal)
	}

	return nil
}

// ResetPassword, reset token karşılığında yeni şifre kaydeder.
// Token tek kullanımlıktır: başarılı reset sonrası kayıt silinir.
func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	digest := sha256.Sum256([]byte(req.Token))
	record, err := s.resetRepo.GetByTokenHash(ctx, hex.EncodeToString(digest[:]))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrUnauthorized)
		}
		log.Printf("[auth] reset token lookup failed: %v", err)
		return fmt.Errorf("%w: password reset failed", pkg.ErrInternal)
	}

	if time.Now().After(record.ExpiresAt) {
		if delErr := s.resetRepo.DeleteByID(ctx, record.ID); delErr != nil {
			log.Printf("[auth] expired reset token delete failed: %v", delErr)
		}
		return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrUnauthorized)
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		log.Printf("[auth] password hashing failed: %v", err)
		return fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}

	if err := s.userRepo.UpdatePassword(ctx, record.UserID, newHash); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: user not found", pkg.ErrNotFound)
		}
		log.Printf("[auth] password update failed: %v", err)
		return fmt.Errorf("%w: password processing failed", pkg.ErrInternal)
	}

	// Tek kullanım: token yakıldı
	if err := s.resetRepo.DeleteByID(ctx, record.ID); err != nil {
		log.Printf("[auth] used reset token delete failed: %v", err)
	}

	return nil
}

// ─── Private Helpers ───

// buildProfile, User'ı rol/permission bilgisiyle zenginleştirir
// ve hash'i response'tan temizler.
// Rol bilgisi yüklenemezse profil rolsüz döner — profil okuma,
// rol lookup'ı yüzünden başarısız olmaz.
func (s *authService) buildProfile(ctx context.Context, user *models.User) *models.Profile {
	u := *user
	u.PasswordHash = ""

	return &models.Profile{
		User: u,
		Role: s.roleService.GetUserRoleInfo(ctx, user.ID),
	}
}
