package repository

import (
	"context"

	"github.com/akinalp/masa/models"
)

// RoleRepository, rol/permission kataloğu veritabanı işlemleri için interface.
//
// Katalog satırları (rol, permission, grant) isimle unique'tir.
// Create* metodları constraint ihlalinde pkg.ErrAlreadyExists döner —
// idempotent bootstrap bu hatayı sessizce yutar.
type RoleRepository interface {
	// ─── Roles ───
	GetRoleByID(ctx context.Context, id string) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	GetAllRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error

	// ─── Permissions ───
	GetPermissionByName(ctx context.Context, name string) (*models.Permission, error)
	CreatePermission(ctx context.Context, perm *models.Permission) error
	GetPermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error)

	// ─── Role-Permission grants ───
	GetRolePermission(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error)
	CreateRolePermission(ctx context.Context, grant *models.RolePermission) error

	// ─── User-Role mapping ───
	// AssignToUser, kullanıcının rol referansını değiştirir.
	// Her kullanıcının TAM BİR rolü vardır — ekleme değil, değiştirme.
	AssignToUser(ctx context.Context, userID string, roleID string) error
}
