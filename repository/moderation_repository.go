package repository

import (
	"context"

	"github.com/akinalp/masa/models"
)

// ModerationRepository, moderasyon denetim kayıtlarına erişim sözleşmesi.
// Her uygulanan aksiyon (warn, kick, mute, ban, unban) burada kalıcı
// bir denetim satırı olarak saklanır.
type ModerationRepository interface {
	// CreateAction yeni bir moderasyon kaydı ekler.
	// ID boşsa otomatik atanır; CreatedAt veritabanından doldurulur.
	CreateAction(ctx context.Context, action *models.ModerationAction) error

	// GetByTargetUserID bir kullanıcıya uygulanmış aksiyonları
	// en yeniden eskiye doğru döndürür.
	GetByTargetUserID(ctx context.Context, targetUserID string, limit int) ([]models.ModerationAction, error)
}
