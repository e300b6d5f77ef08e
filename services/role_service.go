// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern nedir?
// Caller (route katmanı, bu modülün dışında) ile Repository (DB) arasında
// oturan katmandır. Tüm iş kuralları burada yaşar:
//   - Şifre hash'leme
//   - JWT token oluşturma
//   - Yetki kontrolleri
//   - Moderasyon state machine
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg"
	"github.com/akinalp/masa/repository"
)

// RoleService, RBAC ve moderasyon iş mantığı interface'i.
type RoleService interface {
	// InitializeDefaultRoles, varsayılan permission/rol/grant kataloğunu
	// idempotent olarak seed'ler. İki kez çağrılması duplicate yaratmaz.
	InitializeDefaultRoles(ctx context.Context) error

	// HasPermission, kullanıcının verilen permission'a sahip olup olmadığını döner.
	// FAIL-CLOSED: kullanıcı yok, pasif, banlı veya storage hatası → false.
	// Bu fonksiyon ASLA error dönmez — güvenlik garantisinin parçası.
	HasPermission(ctx context.Context, userID, permissionName string) bool

	// GetUserRoleInfo, kullanıcının rol + permission görünümünü döner.
	// Kullanıcı bulunamazsa veya storage hatası olursa nil döner.
	GetUserRoleInfo(ctx context.Context, userID string) *models.RoleInfo

	// AssignRole, kullanıcının rolünü isimle değiştirir.
	// Error yerine bool döner — başarısızlık detayı log'a yazılır.
	// Administrative tooling'in bloke olmaması için bilinçli sadeleştirme.
	AssignRole(ctx context.Context, userID, roleName, assignedBy string) bool

	// ExecuteModeration, bir moderasyon aksiyonunu çalıştırır:
	// permission kontrolü → audit kaydı → (sadece ban/unban için) side effect.
	// Yetki yoksa pkg.ErrForbidden ile döner, kayıt OLUŞTURULMAZ.
	ExecuteModeration(ctx context.Context, req *models.ModerationRequest) (*models.ModerationAction, error)

	// GetModerationHistory, bir kullanıcıya uygulanmış aksiyonları döner
	// (en yeni önce). limit <= 0 ise varsayılan limit kullanılır.
	GetModerationHistory(ctx context.Context, targetUserID string, limit int) ([]models.ModerationAction, error)
}

type roleService struct {
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
	modRepo  repository.ModerationRepository
	txRunner repository.TxRunner
}

// NewRoleService, RoleService implementasyonunu oluşturur.
func NewRoleService(
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	modRepo repository.ModerationRepository,
	txRunner repository.TxRunner,
) RoleService {
	return &roleService{
		roleRepo: roleRepo,
		userRepo: userRepo,
		modRepo:  modRepo,
		txRunner: txRunner,
	}
}

// ─── Varsayılan katalog ───

// permissionSeed / roleSeed, bootstrap kataloğunun satırları.
// Katalog koddadır, migration'da değil — bootstrap testlenebilir kalır
// ve yeni permission eklemek migration gerektirmez.
type permissionSeed struct {
	name, displayName, description, category string
}

type roleSeed struct {
	name, displayName, description string
	level                          int
}

var defaultPermissions = []permissionSeed{
	{models.PermJoinGame, "Join Game", "Join a poker table and be dealt in", models.PermCategoryGame},
	{models.PermPlaceBet, "Place Bet", "Place bets during a hand", models.PermCategoryGame},
	{models.PermChatMessage, "Chat", "Send messages in table chat", models.PermCategoryGame},
	{models.PermWarnPlayer, "Warn Player", "Issue a formal warning to a player", models.PermCategoryModeration},
	{models.PermKickPlayer, "Kick Player", "Remove a player from a table", models.PermCategoryModeration},
	{models.PermBanUser, "Ban User", "Ban or unban a user account", models.PermCategoryAdmin},
}

var defaultRoles = []roleSeed{
	{models.RolePlayer, "Player", "Regular player account", 0},
	{models.RoleModerator, "Moderator", "Keeps tables civil", 50},
	{models.RoleAdministrator, "Administrator", "Full platform control", 100},
}

// defaultGrants, rol adı → permission adları.
var defaultGrants = map[string][]string{
	models.RolePlayer: {
		models.PermJoinGame, models.PermPlaceBet, models.PermChatMessage,
	},
	models.RoleModerator: {
		models.PermJoinGame, models.PermPlaceBet, models.PermChatMessage,
		models.PermWarnPlayer, models.PermKickPlayer,
	},
	models.RoleAdministrator: {
		models.PermJoinGame, models.PermPlaceBet, models.PermChatMessage,
		models.PermWarnPlayer, models.PermKickPlayer, models.PermBanUser,
	},
}

// InitializeDefaultRoles, varsayılan katalogları seed'ler.
//
// Idempotency iki katmanlı:
// 1. İsimle varlık ön kontrolü (dostane akış — ikinci çalıştırma no-op)
// 2. UNIQUE constraint + ErrAlreadyExists yutma (eşzamanlı bootstrap'a karşı
//    otoriter guard — iki instance aynı anda seed'lese bile duplicate oluşmaz)
func (s *roleService) InitializeDefaultRoles(ctx context.Context) error {
	// 1. Permission'lar
	for _, p := range defaultPermissions {
		_, err := s.roleRepo.GetPermissionByName(ctx, p.name)
		if err == nil {
			continue // zaten var
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("failed to check permission %q: %w", p.name, err)
		}

		perm := &models.Permission{
			Name:        p.name,
			DisplayName: p.displayName,
			Description: p.description,
			Category:    p.category,
		}
		if err := s.roleRepo.CreatePermission(ctx, perm); err != nil {
			if errors.Is(err, pkg.ErrAlreadyExists) {
				continue // eşzamanlı seed — kaybeden taraf sessizce devam eder
			}
			return fmt.Errorf("failed to create permission %q: %w", p.name, err)
		}
	}

	// 2. Roller
	for _, r := range defaultRoles {
		_, err := s.roleRepo.GetRoleByName(ctx, r.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("failed to check role %q: %w", r.name, err)
		}

		role := &models.Role{
			Name:        r.name,
			DisplayName: r.displayName,
			Description: r.description,
			Level:       r.level,
		}
		if err := s.roleRepo.CreateRole(ctx, role); err != nil {
			if errors.Is(err, pkg.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("failed to create role %q: %w", r.name, err)
		}
	}

	// 3. Grant'lar — (rol, permission) çifti bazında
	for roleName, permNames := range defaultGrants {
		role, err := s.roleRepo.GetRoleByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("failed to load role %q for grants: %w", roleName, err)
		}

		for _, permName := range permNames {
			perm, err := s.roleRepo.GetPermissionByName(ctx, permName)
			if err != nil {
				return fmt.Errorf("failed to load permission %q for grants: %w", permName, err)
			}

			_, err = s.roleRepo.GetRolePermission(ctx, role.ID, perm.ID)
			if err == nil {
				continue // grant zaten var
			}
			if !errors.Is(err, pkg.ErrNotFound) {
				return fmt.Errorf("failed to check grant (%s, %s): %w", roleName, permName, err)
			}

			grant := &models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
			if err := s.roleRepo.CreateRolePermission(ctx, grant); err != nil {
				if errors.Is(err, pkg.ErrAlreadyExists) {
					continue
				}
				return fmt.Errorf("failed to create grant (%s, %s): %w", roleName, permName, err)
			}
		}
	}

	log.Printf("[roles] default catalog seeded (%d permissions, %d roles)", len(defaultPermissions), len(defaultRoles))
	return nil
}

// ─── Permission kontrolü ───

// HasPermission, fail-closed yetki kontrolü.
//
// false dönen durumlar:
// - Kullanıcı bulunamadı
// - Kullanıcı pasif veya banlı
// - Permission rolün grant listesinde yok
// - HERHANGİ bir storage hatası (propagate edilmez, log'lanır)
func (s *roleService) HasPermission(ctx context.Context, userID, permissionName string) bool {
	u, err := s.userRepo.GetWithRoleAndPermissions(ctx, userID)
	if err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			log.Printf("[roles] permission check failed for user %s: %v", userID, err)
		}
		return false
	}

	if !u.IsActive || u.IsBanned {
		return false
	}

	for _, p := range u.Permissions {
		if p == permissionName {
			return true
		}
	}
	return false
}

// GetUserRoleInfo, kullanıcının rol görünümünü döner; bulunamazsa nil.
//
// Ban detayı sadece üç metadata alanı da doluysa eklenir —
// kısmi ban metadata'sı (tutarsız satır) detaysız "banned" olarak görünür.
func (s *roleService) GetUserRoleInfo(ctx context.Context, userID string) *models.RoleInfo {
	u, err := s.userRepo.GetWithRoleAndPermissions(ctx, userID)
	if err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			log.Printf("[roles] role info lookup failed for user %s: %v", userID, err)
		}
		return nil
	}

	info := &models.RoleInfo{
		Name:        u.RoleName,
		DisplayName: u.RoleDisplayName,
		Level:       u.RoleLevel,
		Permissions: u.Permissions,
		IsActive:    u.IsActive,
		IsBanned:    u.IsBanned,
	}

	if u.IsBanned && u.BannedBy != nil && u.BannedAt != nil && u.BanReason != nil {
		info.Ban = &models.BanDetails{
			BannedBy: *u.BannedBy,
			BannedAt: *u.BannedAt,
			Reason:   *u.BanReason,
		}
	}

	return info
}

// ─── Rol atama ───

// AssignRole, kullanıcının rolünü değiştirir.
// Başarısızlıkta false döner, detay log'dadır — error propagate edilmez.
func (s *roleService) AssignRole(ctx context.Context, userID, roleName, assignedBy string) bool {
	role, err := s.roleRepo.GetRoleByName(ctx, roleName)
	if err != nil {
		log.Printf("[roles] assign failed: role %q not found: %v", roleName, err)
		return false
	}

	if err := s.roleRepo.AssignToUser(ctx, userID, role.ID); err != nil {
		log.Printf("[roles] assign failed: user %s → role %q: %v", userID, roleName, err)
		return false
	}

	log.Printf("[roles] user %s assigned role %q by %s", userID, roleName, assignedBy)
	return true
}

// ─── Moderasyon ───

// ExecuteModeration, moderasyon state machine'i:
//
//  1. Aksiyon tipi → gerekli permission map'i
//  2. Moderatörün permission kontrolü — yoksa ErrForbidden, kayıt YOK
//  3. expiresAt = now + duration (sadece duration > 0 ise)
//  4. Audit kaydı KOŞULSUZ yazılır (warn/kick/mute dahil)
//  5. Side effect sadece ban/unban için:
//     ban   → isBanned=1, isActive=0, ban metadata set
//     unban → isBanned=0, isActive=1, ban metadata temizlenir
//
// Hedef kullanıcının bu alt sistem gözünden state'leri: active ↔ banned.
// Tek geçişler ban (active→banned) ve unban (banned→active);
// diğer tüm aksiyon tipleri self-loop'tur.
func (s *roleService) ExecuteModeration(ctx context.Context, req *models.ModerationRequest) (*models.ModerationAction, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	requiredPerm, err := req.Type.RequiredPermission()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Fail-closed kontrol: storage hatası da "yetki yok" demektir.
	if !s.HasPermission(ctx, req.ModeratorID, requiredPerm) {
		return nil, fmt.Errorf("%w: missing permission %q", pkg.ErrForbidden, requiredPerm)
	}

	var expiresAt *time.Time
	if req.Duration != nil && *req.Duration > 0 {
		t := time.Now().Add(time.Duration(*req.Duration) * time.Minute)
		expiresAt = &t
	}

	action := &models.ModerationAction{
		Type:         req.Type,
		Reason:       req.Reason,
		Duration:     req.Duration,
		ModeratorID:  req.ModeratorID,
		TargetUserID: req.TargetUserID,
		TableID:      req.TableID,
		ExpiresAt:    expiresAt,
	}

	// Audit kaydı + side effect tek transaction'da: side effect başarısız
	// olursa audit satırı da geri alınır — audit trail asla uygulanmamış
	// bir aksiyonu "uygulandı" diye göstermez.
	err = s.txRunner.InTx(ctx, func(r *repository.TxRepos) error {
		if err := r.Moderation.CreateAction(ctx, action); err != nil {
			return err
		}

		// Side effect — sadece ban/unban User kaydına dokunur.
		switch req.Type {
		case models.ModerationBan:
			return r.Users.ApplyBan(ctx, req.TargetUserID, req.ModeratorID, req.Reason, time.Now())
		case models.ModerationUnban:
			return r.Users.ClearBan(ctx, req.TargetUserID)
		}
		return nil
	})
	if err != nil {
		log.Printf("[roles] failed to apply %s to %s: %v", req.Type, req.TargetUserID, err)
		return nil, fmt.Errorf("%w: moderation failed", pkg.ErrInternal)
	}

	log.Printf("[roles] %s applied to %s by %s", req.Type, req.TargetUserID, req.ModeratorID)
	return action, nil
}

// GetModerationHistory, hedef kullanıcının audit kayıtlarını döner.
func (s *roleService) GetModerationHistory(ctx context.Context, targetUserID string, limit int) ([]models.ModerationAction, error) {
	if targetUserID == "" {
		return nil, fmt.Errorf("%w: target user id is required", pkg.ErrBadRequest)
	}
	return s.modRepo.GetByTargetUserID(ctx, targetUserID, limit)
}
