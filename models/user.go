// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda service katmanına gelen/giden verilerin şeklini de belirler.
//
// `json:"username"` tag'leri, struct field'larının JSON'a nasıl
// serialize/deserialize edileceğini belirler — route katmanı (bu modülün
// dışında) response üretirken bunları kullanır.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// StartingChips, yeni kayıt olan her oyuncunun başlangıç bakiyesi.
const StartingChips = 10000

// User, bir oyuncu hesabını temsil eder.
// JSON tag'leri API response'larında kullanılır.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // json:"-" → API response'a DAHİL ETME (güvenlik!)
	DisplayName  string     `json:"display_name"`
	Avatar       string     `json:"avatar"` // Deterministik türetilen avatar descriptor (bkz. avatar.go)
	Chips        int64      `json:"chips"`
	GamesPlayed  int        `json:"games_played"`
	GamesWon     int        `json:"games_won"`
	RoleID       string     `json:"role_id"`
	IsActive     bool       `json:"is_active"`
	IsBanned     bool       `json:"is_banned"`
	BannedBy     *string    `json:"banned_by,omitempty"`  // *string = nullable — ban metadata üçlüsü
	BannedAt     *time.Time `json:"banned_at,omitempty"`  // ya hepsi dolu ya hepsi boş
	BanReason    *string    `json:"ban_reason,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RegisterRequest, kayıt olurken gelen veri.
// PasswordHash yerine Password alırız — hash'leme service katmanında yapılır.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Normalize, input'u validation ve storage ÖNCESİNDE kanonik hale getirir.
// Username ve DisplayName trim edilir; Email trim + lowercase.
// Username KÜÇÜK HARFE ÇEVRİLMEZ — storage'ta case-sensitive saklanır.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

// Validate, RegisterRequest'in geçerli olup olmadığını kontrol eder.
// Kontrol sırası sabittir (fail fast — ilk başarısız kural kazanır):
//  1. Username: zorunlu, minimum 3 karakter
//  2. Email: zorunlu, '@' içermeli
//  3. Password: zorunlu, minimum 6 karakter
//
// Normalize() çağrıldıktan sonra çalıştırılmalıdır.
func (r *RegisterRequest) Validate() error {
	if utf8.RuneCountInString(r.Username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if utf8.RuneCountInString(r.Password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

// LoginRequest, giriş yaparken gelen veri.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// UpdateProfileRequest, profil güncellemesi için.
// Sadece non-nil field'lar uygulanır (partial update).
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
	Email       *string `json:"email"`
}

// Validate, UpdateProfileRequest kontrolü.
func (r *UpdateProfileRequest) Validate() error {
	if r.DisplayName != nil {
		*r.DisplayName = strings.TrimSpace(*r.DisplayName)
		if utf8.RuneCountInString(*r.DisplayName) > 32 {
			return fmt.Errorf("display name must be at most 32 characters")
		}
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
		if *r.Email == "" || !strings.Contains(*r.Email, "@") {
			return fmt.Errorf("a valid email is required")
		}
	}
	return nil
}

// Profile, role/permission bilgisiyle zenginleştirilmiş kullanıcı görünümü.
// AuthService dönüşlerinde kullanılır — RoleService'ten gelen RoleInfo eklenir.
type Profile struct {
	User
	Role *RoleInfo `json:"role,omitempty"`
}

// UserWithRole, kullanıcı + rolü + rolün permission isimleri.
// Tek sorguda (JOIN ile) yüklenir — permission kontrolünün okuma yolu.
type UserWithRole struct {
	User
	RoleName        string   `json:"role_name"`
	RoleDisplayName string   `json:"role_display_name"`
	RoleLevel       int      `json:"role_level"`
	Permissions     []string `json:"permissions"`
}
