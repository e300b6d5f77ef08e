package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/masa/database"
	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg"
	"github.com/google/uuid"
)

type sqliteRoleRepo struct {
	db database.TxQuerier
}

// NewSQLiteRoleRepo, constructor.
func NewSQLiteRoleRepo(db database.TxQuerier) RoleRepository {
	return &sqliteRoleRepo{db: db}
}

// ─── Roles ───

func (r *sqliteRoleRepo) GetRoleByID(ctx context.Context, id string) (*models.Role, error) {
	query := `
		SELECT id, name, display_name, description, level, created_at
		FROM roles WHERE id = ?`
	return r.scanRole(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteRoleRepo) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	query := `
		SELECT id, name, display_name, description, level, created_at
		FROM roles WHERE name = ?`
	return r.scanRole(r.db.QueryRowContext(ctx, query, name))
}

func (r *sqliteRoleRepo) GetAllRoles(ctx context.Context) ([]models.Role, error) {
	query := `
		SELECT id, name, display_name, description, level, created_at
		FROM roles ORDER BY level DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(
			&role.ID, &role.Name, &role.DisplayName, &role.Description,
			&role.Level, &role.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

func (r *sqliteRoleRepo) CreateRole(ctx context.Context, role *models.Role) error {
	query := `
		INSERT INTO roles (id, name, display_name, description, level)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		role.Name, role.DisplayName, role.Description, role.Level,
	).Scan(&role.ID, &role.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: role %q", pkg.ErrAlreadyExists, role.Name)
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// ─── Permissions ───

func (r *sqliteRoleRepo) GetPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	query := `
		SELECT id, name, display_name, description, category, created_at
		FROM permissions WHERE name = ?`

	perm := &models.Permission{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&perm.ID, &perm.Name, &perm.DisplayName, &perm.Description,
		&perm.Category, &perm.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission by name: %w", err)
	}

	return perm, nil
}

func (r *sqliteRoleRepo) CreatePermission(ctx context.Context, perm *models.Permission) error {
	query := `
		INSERT INTO permissions (id, name, display_name, description, category)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		perm.Name, perm.DisplayName, perm.Description, perm.Category,
	).Scan(&perm.ID, &perm.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: permission %q", pkg.ErrAlreadyExists, perm.Name)
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

func (r *sqliteRoleRepo) GetPermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	query := `
		SELECT p.id, p.name, p.display_name, p.description, p.category, p.created_at
		FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.name`

	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions by role: %w", err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(
			&p.ID, &p.Name, &p.DisplayName, &p.Description, &p.Category, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		perms = append(perms, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return perms, nil
}

// ─── Role-Permission grants ───

func (r *sqliteRoleRepo) GetRolePermission(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error) {
	query := `
		SELECT id, role_id, permission_id, created_at
		FROM role_permissions WHERE role_id = ? AND permission_id = ?`

	grant := &models.RolePermission{}
	err := r.db.QueryRowContext(ctx, query, roleID, permissionID).Scan(
		&grant.ID, &grant.RoleID, &grant.PermissionID, &grant.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role permission: %w", err)
	}

	return grant, nil
}

func (r *sqliteRoleRepo) CreateRolePermission(ctx context.Context, grant *models.RolePermission) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}

	query := `
		INSERT INTO role_permissions (id, role_id, permission_id)
		VALUES (?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		grant.ID, grant.RoleID, grant.PermissionID,
	).Scan(&grant.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: grant (%s, %s)", pkg.ErrAlreadyExists, grant.RoleID, grant.PermissionID)
		}
		return fmt.Errorf("failed to create role permission: %w", err)
	}

	return nil
}

// ─── User-Role mapping ───

func (r *sqliteRoleRepo) AssignToUser(ctx context.Context, userID string, roleID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role_id = ? WHERE id = ?`, roleID, userID)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}
	return checkAffected(result)
}

// scanRole, tek satırlık rol sorgusunu Role'e aktarır.
func (r *sqliteRoleRepo) scanRole(row *sql.Row) (*models.Role, error) {
	role := &models.Role{}
	err := row.Scan(
		&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&role.Level, &role.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}
