package services

import (
	"context"
	"testing"
	"time"

	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg"
	"github.com/akinalp/masa/pkg/ratelimit"
	"github.com/akinalp/masa/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Register ───

func TestRegisterStoresNormalizedInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, &models.RegisterRequest{
		Username: "  Alice  ",
		Email:    "  A@B.COM  ",
		Password: "password1",
	})
	require.NoError(t, err)

	stored, err := env.userRepo.GetByID(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Username, "username trim edilir ama case korunur")
	assert.Equal(t, "a@b.com", stored.Email, "email trim + lowercase")
	assert.Equal(t, "Alice", stored.DisplayName, "display name verilmedi → username kullanılır")
	assert.Equal(t, int64(models.StartingChips), stored.Chips)
	assert.Equal(t, models.DeriveAvatar("Alice"), stored.Avatar)
	assert.Nil(t, stored.LastLoginAt, "register lastLoginAt SET ETMEZ — onu login eder")
	assert.True(t, stored.IsActive)

	// Profil rol bilgisiyle zenginleştirilmiş, hash temizlenmiş
	require.NotNil(t, res.Profile.Role)
	assert.Equal(t, models.RolePlayer, res.Profile.Role.Name)
	assert.Empty(t, res.Profile.PasswordHash)

	// Token çifti geçerli
	require.NotNil(t, res.Tokens)
	claims, ok := env.auth.VerifyToken(res.Tokens.AccessToken)
	require.True(t, ok)
	assert.Equal(t, res.Profile.ID, claims.UserID)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
}

func TestRegisterValidationNoWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &models.RegisterRequest{
		Username: "ab", // < 3 karakter
		Email:    "a@b.com",
		Password: "password1",
	})
	require.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Contains(t, err.Error(), "username")

	// Validation hatası store'a HİÇ dokunmaz
	assert.Equal(t, 0, env.countRows(t, "users"))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	_, err := env.auth.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "other@masa.app",
		Password: "password1",
	})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "username")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	// Farklı username, aynı email → conflict email'i işaret eder
	_, err := env.auth.Register(ctx, &models.RegisterRequest{
		Username: "bob",
		Email:    "alice@masa.app",
		Password: "password1",
	})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email")
	assert.Equal(t, 1, env.countRows(t, "users"))
}

func TestRegisterCustomDisplayName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, &models.RegisterRequest{
		Username:    "alice",
		Email:       "alice@masa.app",
		Password:    "password1",
		DisplayName: "  The Shark  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "The Shark", res.Profile.DisplayName)
}

// ─── Login ───

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	res, err := env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	require.NotNil(t, res.Profile.LastLoginAt, "başarılı login damgaları set eder")
	assert.NotNil(t, res.Profile.LastActiveAt)

	claims, ok := env.auth.VerifyToken(res.Tokens.RefreshToken)
	require.True(t, ok)
	assert.Equal(t, models.TokenTypeRefresh, claims.TokenType)
}

func TestLoginIdenticalErrorForBothFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	// Yanlış şifre
	_, errWrongPw := env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong-pw"})
	require.ErrorIs(t, errWrongPw, pkg.ErrUnauthorized)

	// Olmayan kullanıcı
	_, errNoUser := env.auth.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "password1"})
	require.ErrorIs(t, errNoUser, pkg.ErrUnauthorized)

	// İki hata mesajı BİREBİR aynı — username enumeration engeli
	assert.Equal(t, errWrongPw.Error(), errNoUser.Error())
}

func TestLoginBannedBeforePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "alice", "alice@masa.app")
	admin := env.register(t, "root", "root@masa.app")
	env.promote(t, admin.Profile.ID, models.RoleAdministrator)

	reason := "spam"
	_, err := env.roles.ExecuteModeration(ctx, &models.ModerationRequest{
		Type:         models.ModerationBan,
		TargetUserID: user.Profile.ID,
		ModeratorID:  admin.Profile.ID,
		Reason:       &reason,
	})
	require.NoError(t, err)

	// DOĞRU şifreyle bile ban hatası döner — ban kontrolü şifreden önce
	_, err = env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password1"})
	require.ErrorIs(t, err, pkg.ErrForbidden)
	assert.Contains(t, err.Error(), "spam", "ban hatası sebebi içerir")

	// Yanlış şifreyle de aynı ban hatası — şifre oracle'ı yok
	_, err2 := env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err2, pkg.ErrForbidden)
	assert.Equal(t, err.Error(), err2.Error())
}

func TestLoginInactiveDistinctFromBanned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	_, err := env.db.Conn.Exec(`UPDATE users SET is_active = 0 WHERE username = 'alice'`)
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password1"})
	require.ErrorIs(t, err, pkg.ErrForbidden)
	assert.Contains(t, err.Error(), "inactive")
	assert.NotContains(t, err.Error(), "banned")
}

func TestLoginRateLimiter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	// Dar limitli ayrı bir auth service — aynı DB, aynı repolar
	limiter := ratelimit.NewLoginRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	auth := NewAuthService(
		env.userRepo, env.resetRepo, env.roleRepo, env.txRunner, env.roles,
		env.hasher, token.NewCodec("service-test-secret-0123456789abcdef", 60, 7),
		env.sender, limiter,
	)

	bad := &models.LoginRequest{Username: "alice", Password: "wrong"}
	_, err := auth.Login(ctx, bad)
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
	_, err = auth.Login(ctx, bad)
	require.ErrorIs(t, err, pkg.ErrUnauthorized)

	// 3. deneme pencere içinde → rate limit; doğru şifre bile işe yaramaz
	_, err = auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password1"})
	require.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Contains(t, err.Error(), "too many login attempts")
}

// ─── Token lifecycle ───

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	pair, err := env.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, pair)

	claims, ok := env.auth.VerifyToken(pair.AccessToken)
	require.True(t, ok)
	assert.Equal(t, res.Profile.ID, claims.UserID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	// Access token refresh akışında REDDEDİLİR — tip tam "refresh" olmalı
	_, err := env.auth.RefreshToken(ctx, res.Tokens.AccessToken)
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid refresh token")

	_, err = env.auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestRefreshDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	_, err := env.db.Conn.Exec(`DELETE FROM users WHERE id = ?`, res.Profile.ID)
	require.NoError(t, err)

	_, err = env.auth.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestRefreshBannedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "alice", "alice@masa.app")
	admin := env.register(t, "root", "root@masa.app")
	env.promote(t, admin.Profile.ID, models.RoleAdministrator)

	reason := "bot"
	_, err := env.roles.ExecuteModeration(ctx, &models.ModerationRequest{
		Type:         models.ModerationBan,
		TargetUserID: user.Profile.ID,
		ModeratorID:  admin.Profile.ID,
		Reason:       &reason,
	})
	require.NoError(t, err)

	// Banlı kullanıcı elindeki refresh token ile yeni çift alamaz
	_, err = env.auth.RefreshToken(ctx, user.Tokens.RefreshToken)
	require.ErrorIs(t, err, pkg.ErrForbidden)
	assert.Contains(t, err.Error(), "bot")
}

// ─── Profile ───

func TestGetUserProfileMissIsNotError(t *testing.T) {
	env := newTestEnv(t)

	profile, err := env.auth.GetUserProfile(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	newName := "The Shark"
	profile, err := env.auth.UpdateProfile(ctx, res.Profile.ID, &models.UpdateProfileRequest{
		DisplayName: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, "The Shark", profile.DisplayName)
	assert.Equal(t, res.Profile.Email, profile.Email, "verilmeyen alanlar DEĞİŞMEZ")
	assert.Equal(t, res.Profile.Avatar, profile.Avatar)
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")
	bob := env.register(t, "bob", "bob@masa.app")

	taken := "alice@masa.app"
	_, err := env.auth.UpdateProfile(ctx, bob.Profile.ID, &models.UpdateProfileRequest{
		Email: &taken,
	})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email")
}

// ─── Password change ───

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	// Yanlış eski şifre
	err := env.auth.ChangePassword(ctx, res.Profile.ID, "wrong", "newpassword")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Yeni şifre çok kısa
	err = env.auth.ChangePassword(ctx, res.Profile.ID, "password1", "short")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	// Yeni = eski
	err = env.auth.ChangePassword(ctx, res.Profile.ID, "password1", "password1")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	// Başarılı değişim — eski şifre artık çalışmaz, yeni çalışır
	require.NoError(t, env.auth.ChangePassword(ctx, res.Profile.ID, "password1", "newpassword"))

	_, err = env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password1"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "newpassword"})
	assert.NoError(t, err)
}

// ─── Logout ───

func TestLogoutBestEffort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@masa.app")

	require.NoError(t, env.auth.Logout(ctx, res.Profile.ID))

	user, err := env.userRepo.GetByID(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.NotNil(t, user.LastActiveAt)

	// Olmayan kullanıcı için de nil — best-effort, hata yutar
	assert.NoError(t, env.auth.Logout(ctx, "ghost"))

	// Logout token'ı GEÇERSİZ KILMAZ — blacklist yok
	_, ok := env.auth.VerifyToken(res.Tokens.AccessToken)
	assert.True(t, ok)
}

// ─── Password reset ───

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	require.NoError(t, env.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "ALICE@masa.app"}))
	require.Equal(t, 1, env.sender.calls)
	assert.Equal(t, "alice@masa.app", env.sender.to)
	require.NotEmpty(t, env.sender.token, "plaintext token email'e gider")

	// DB'de plaintext DEĞİL hash saklanır
	var hash string
	require.NoError(t, env.db.Conn.QueryRow(`SELECT token_hash FROM password_reset_tokens`).Scan(&hash))
	assert.NotEqual(t, env.sender.token, hash)

	// Token ile şifre sıfırlanır
	require.NoError(t, env.auth.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:       env.sender.token,
		NewPassword: "brand-new-pw",
	}))

	_, err := env.auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "brand-new-pw"})
	assert.NoError(t, err)

	// Token tek kullanımlık — ikinci deneme reddedilir
	err = env.auth.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:       env.sender.token,
		NewPassword: "another-pw",
	})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestForgotPasswordUnknownEmailSilent(t *testing.T) {
	env := newTestEnv(t)

	// Kayıtlı olmayan email → nil döner, email GÖNDERİLMEZ
	err := env.auth.ForgotPassword(context.Background(), &models.ForgotPasswordRequest{Email: "ghost@masa.app"})
	assert.NoError(t, err)
	assert.Equal(t, 0, env.sender.calls)
}

func TestForgotPasswordCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")

	require.NoError(t, env.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "alice@masa.app"}))

	// Hemen ikinci istek → cooldown
	err := env.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "alice@masa.app"})
	require.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Contains(t, err.Error(), "wait")
	assert.Equal(t, 1, env.sender.calls)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.ResetPassword(context.Background(), &models.ResetPasswordRequest{
		Token:       "never-issued",
		NewPassword: "whatever9",
	})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@masa.app")
	require.NoError(t, env.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "alice@masa.app"}))

	// Token'ı geçmişe taşı
	_, err := env.db.Conn.Exec(`UPDATE password_reset_tokens SET expires_at = ?`, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	err = env.auth.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:       env.sender.token,
		NewPassword: "whatever9",
	})
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired")

	// Süresi dolmuş token silindi
	assert.Equal(t, 0, env.countRows(t, "password_reset_tokens"))
}
