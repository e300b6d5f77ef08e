// Package models — Moderation action domain modeli.
//
// Moderation sistemi nasıl çalışır?
// 1. Moderator bir aksiyon çalıştırır (warn/kick/mute/ban/unban)
// 2. Aksiyon tipine karşılık gelen permission kontrol edilir
// 3. Permission geçerse moderation_actions tablosuna AUDIT kaydı yazılır
// 4. Sadece ban/unban kullanıcı kaydını değiştirir —
//    warn/kick/mute kayıt altına alınır ama User alanlarına dokunmaz,
//    bunların uygulanması canlı masa katmanının (modül dışı) işidir
// 5. Kayıt immutable'dır — oluşturulduktan sonra asla güncellenmez
package models

import (
	"fmt"
	"time"
)

// ModerationType, aksiyon tipini temsil eder.
type ModerationType string

// İzin verilen aksiyon tipleri.
const (
	ModerationWarn  ModerationType = "warn"
	ModerationKick  ModerationType = "kick"
	ModerationMute  ModerationType = "mute"
	ModerationBan   ModerationType = "ban"
	ModerationUnban ModerationType = "unban"
)

// RequiredPermission, aksiyon tipini onu çalıştırmak için gereken
// permission ismine map'ler. Bilinmeyen tip için hata döner.
func (t ModerationType) RequiredPermission() (string, error) {
	switch t {
	case ModerationWarn:
		return PermWarnPlayer, nil
	case ModerationKick, ModerationMute:
		return PermKickPlayer, nil
	case ModerationBan, ModerationUnban:
		return PermBanUser, nil
	default:
		return "", fmt.Errorf("unknown moderation type: %q", t)
	}
}

// ModerationAction, tek bir moderasyon aksiyonunun audit kaydı.
// Kendi kendine expire OLMAZ — ExpiresAt bilgi amaçlıdır; süre dolumu
// sweep'i bu çekirdeğin kapsamı dışındadır.
type ModerationAction struct {
	ID           string         `json:"id"`
	Type         ModerationType `json:"type"`
	Reason       *string        `json:"reason,omitempty"`
	Duration     *int           `json:"duration,omitempty"` // Dakika; sadece süreli aksiyonlarda anlamlı
	ModeratorID  string         `json:"moderator_id"`
	TargetUserID string         `json:"target_user_id"`
	TableID      *string        `json:"table_id,omitempty"` // Opsiyonel masa bağlamı
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ModerationRequest, ExecuteModeration girdisi.
type ModerationRequest struct {
	Type         ModerationType `json:"type"`
	TargetUserID string         `json:"target_user_id"`
	ModeratorID  string         `json:"moderator_id"`
	Reason       *string        `json:"reason,omitempty"`
	Duration     *int           `json:"duration,omitempty"` // Dakika
	TableID      *string        `json:"table_id,omitempty"`
}

// Validate, ModerationRequest kontrolü.
func (r *ModerationRequest) Validate() error {
	if _, err := r.Type.RequiredPermission(); err != nil {
		return err
	}
	if r.TargetUserID == "" {
		return fmt.Errorf("target user id is required")
	}
	if r.ModeratorID == "" {
		return fmt.Errorf("moderator id is required")
	}
	if r.Duration != nil && *r.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}
