// Package models — Role, Permission ve RBAC domain modelleri.
//
// RBAC nasıl çalışır?
// Her kullanıcının TEK bir rolü vardır (users.role_id).
// Permission'lar rollere verilir (role_permissions tablosu),
// kullanıcıya asla doğrudan verilmez.
// Yetki kontrolü: kullanıcı → rol → rolün permission isimleri.
//
// Role.Level sadece gösterim/sıralama içindir — yetki kararları
// HER ZAMAN permission bazlıdır, level karşılaştırması ile DEĞİL.
package models

import "time"

// Varsayılan rol isimleri. Seed, RoleService.InitializeDefaultRoles
// tarafından idempotent olarak yapılır (bkz. services/role_service.go).
const (
	RolePlayer        = "player"
	RoleModerator     = "moderator"
	RoleAdministrator = "administrator"
)

// Permission katalog isimleri.
// String sabitler — bitfield DEĞİL: permission'lar DB'de satır olarak
// yaşar, isimle kontrol edilir. Yeni permission eklemek DB migration
// gerektirmez, sadece katalog + grant tablosuna satır eklenir.
const (
	PermJoinGame    = "join_game"
	PermPlaceBet    = "place_bet"
	PermChatMessage = "chat_message"
	PermWarnPlayer  = "warn_player"
	PermKickPlayer  = "kick_player"
	PermBanUser     = "ban_user"
)

// Permission kategorileri.
const (
	PermCategoryGame       = "game"
	PermCategoryModeration = "moderation"
	PermCategoryAdmin      = "admin"
)

// Role, bir yetki grubunu temsil eder.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // unique: "player", "moderator", "administrator"
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Level       int       `json:"level"` // Yüksek = daha yetkili görünür; authorization'da KULLANILMAZ
	CreatedAt   time.Time `json:"created_at"`
}

// Permission, isimlendirilmiş bir yeteneği temsil eder (ör: "ban_user").
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // unique
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// RolePermission, rol → permission grant satırı.
// (RoleID, PermissionID) çifti üzerinde uniqueness constraint vardır.
type RolePermission struct {
	ID           string    `json:"id"`
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// BanDetails, banlı kullanıcının ban metadata'sı.
// Üç alan da doluysa RoleInfo içinde döner, herhangi biri eksikse dönmez.
type BanDetails struct {
	BannedBy string    `json:"banned_by"`
	BannedAt time.Time `json:"banned_at"`
	Reason   string    `json:"reason"`
}

// RoleInfo, bir kullanıcının rol + permission görünümü.
// RoleService.GetUserRoleInfo döner; AuthService profilleri bununla zenginleştirir.
type RoleInfo struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Level       int         `json:"level"`
	Permissions []string    `json:"permissions"` // Permission isimleri
	IsActive    bool        `json:"is_active"`
	IsBanned    bool        `json:"is_banned"`
	Ban         *BanDetails `json:"ban,omitempty"`
}

// HasPermission, RoleInfo'daki permission listesinde isim arar.
// Route katmanının profil üzerinden hızlı kontrol yapabilmesi için.
func (ri *RoleInfo) HasPermission(name string) bool {
	for _, p := range ri.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
