// Package repository, veritabanı erişim katmanını barındırır.
//
// Her repository bir interface + SQLite implementasyonu çiftidir.
// Service katmanı interface'e bağımlıdır, concrete struct'a değil —
// testlerde veya farklı bir storage'a geçişte implementasyon değişir,
// service kodu değişmez.
package repository

import (
	"context"
	"time"

	"github.com/akinalp/masa/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
//
// Uniqueness notu: Create ve Update'teki unique alan çakışmaları
// pkg.ErrAlreadyExists ile döner — constraint DB'de enforce edilir,
// service'teki ön kontroller sadece dostane mesaj optimizasyonudur.
type UserRepository interface {
	// Create, yeni kullanıcı oluşturur. ID ve CreatedAt DB tarafından atanır.
	Create(ctx context.Context, user *models.User) error

	// GetByID, ID'ye göre kullanıcı döner. Bulunamazsa pkg.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByUsername, TAM (case-sensitive) kullanıcı adı eşleşmesi arar.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail, lowercase-normalize edilmiş email ile arar.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByUsernameOrEmail, kayıt öncesi çakışma ön kontrolü için.
	// İki alan da eşleşebiliyorsa username eşleşmesi öncelikli döner.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	// Update, profil alt kümesini günceller (display_name, avatar, email).
	Update(ctx context.Context, user *models.User) error

	// UpdatePassword, şifre hash'ini günceller.
	UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error

	// UpdateLoginStamps, başarılı login sonrası last_login_at ve
	// last_active_at'i aynı ana ayarlar.
	UpdateLoginStamps(ctx context.Context, userID string, at time.Time) error

	// UpdateLastActive, sadece last_active_at'i günceller (logout bookkeeping).
	UpdateLastActive(ctx context.Context, userID string, at time.Time) error

	// ApplyBan, ban side effect'ini uygular:
	// is_banned=1, is_active=0, ban metadata üçlüsü set edilir.
	ApplyBan(ctx context.Context, userID, bannedBy string, reason *string, at time.Time) error

	// ClearBan, unban side effect'ini uygular:
	// is_banned=0, is_active=1, ban metadata üçlüsü NULL'lanır.
	ClearBan(ctx context.Context, userID string) error

	// GetWithRoleAndPermissions, kullanıcıyı rolü ve rolün permission
	// isimleriyle birlikte tek seferde yükler. Bulunamazsa pkg.ErrNotFound.
	GetWithRoleAndPermissions(ctx context.Context, userID string) (*models.UserWithRole, error)

	// Count, toplam kullanıcı sayısını döner.
	Count(ctx context.Context) (int, error)
}
