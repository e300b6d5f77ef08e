package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/masa/database"
	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg"
)

// userColumns, SELECT sorgularında kullanılan sabit kolon listesi.
// Scan sırası scanUser ile birebir aynı olmalıdır.
const userColumns = `id, username, email, password_hash, display_name, avatar,
	chips, games_played, games_won, role_id, is_active, is_banned,
	banned_by, banned_at, ban_reason, last_login_at, last_active_at, created_at`

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor.
// UserRepository interface'i döner (concrete struct değil) — Dependency Inversion.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, display_name, avatar, chips, role_id, is_active)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?, ?, 1)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Avatar,
		user.Chips,
		user.RoleID,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		// UNIQUE constraint violation → kullanıcı adı veya email zaten var.
		// Ön kontrol geçse bile eşzamanlı kayıt burada yakalanır — otorite DB'dir.
		if isUniqueViolation(err) {
			// Driver mesajı ihlal edilen kolonu içerir: "UNIQUE constraint failed: users.email"
			if strings.Contains(err.Error(), "users.email") {
				return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.IsActive = true
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, query, "id", id)
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.getOne(ctx, query, "username", username)
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.getOne(ctx, query, "email", email)
}

func (r *sqliteUserRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	// Username eşleşmesi öncelikli döner — kayıt çakışma mesajında
	// username, email'den önce raporlanır.
	query := `SELECT ` + userColumns + `
		FROM users WHERE username = ? OR email = ?
		ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END
		LIMIT 1`

	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, username, email, username), user)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username or email: %w", err)
	}

	return user, nil
}

func (r *sqliteUserRepo) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET display_name = ?, avatar = ?, email = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		user.DisplayName, user.Avatar, user.Email, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return checkAffected(result)
}

func (r *sqliteUserRepo) UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, newPasswordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return checkAffected(result)
}

func (r *sqliteUserRepo) UpdateLoginStamps(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, last_active_at = ? WHERE id = ?`, at, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update login stamps: %w", err)
	}
	return checkAffected(result)
}

func (r *sqliteUserRepo) UpdateLastActive(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active_at = ? WHERE id = ?`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return checkAffected(result)
}

func (r *sqliteUserRepo) ApplyBan(ctx context.Context, userID, bannedBy string, reason *string, at time.Time) error {
	query := `
		UPDATE users
		SET is_banned = 1, is_active = 0, banned_by = ?, banned_at = ?, ban_reason = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, bannedBy, at, reason, userID)
	if err != nil {
		return fmt.Errorf("failed to apply ban: %w", err)
	}
	return checkAffected(result)
}

func (r *sqliteUserRepo) ClearBan(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET is_banned = 0, is_active = 1, banned_by = NULL, banned_at = NULL, ban_reason = NULL
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear ban: %w", err)
	}
	return checkAffected(result)
}

func (r *sqliteUserRepo) GetWithRoleAndPermissions(ctx context.Context, userID string) (*models.UserWithRole, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.display_name, u.avatar,
		       u.chips, u.games_played, u.games_won, u.role_id, u.is_active, u.is_banned,
		       u.banned_by, u.banned_at, u.ban_reason, u.last_login_at, u.last_active_at, u.created_at,
		       r.name, r.display_name, r.level
		FROM users u
		INNER JOIN roles r ON r.id = u.role_id
		WHERE u.id = ?`

	uwr := &models.UserWithRole{}
	row := r.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(
		&uwr.ID, &uwr.Username, &uwr.Email, &uwr.PasswordHash, &uwr.DisplayName, &uwr.Avatar,
		&uwr.Chips, &uwr.GamesPlayed, &uwr.GamesWon, &uwr.RoleID, &uwr.IsActive, &uwr.IsBanned,
		&uwr.BannedBy, &uwr.BannedAt, &uwr.BanReason, &uwr.LastLoginAt, &uwr.LastActiveAt, &uwr.CreatedAt,
		&uwr.RoleName, &uwr.RoleDisplayName, &uwr.RoleLevel,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user with role: %w", err)
	}

	// Rolün permission isimleri — ayrı sorgu (tek satır + N isim).
	permQuery := `
		SELECT p.name
		FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.name`

	rows, err := r.db.QueryContext(ctx, permQuery, uwr.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close() // rows'u kapatmayı ASLA unutma — aksi halde bağlantı sızar (leak)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		uwr.Permissions = append(uwr.Permissions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return uwr, nil
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// ─── Private Helpers ───

// getOne, tek kolonlu WHERE koşuluyla tek kullanıcı yükler.
func (r *sqliteUserRepo) getOne(ctx context.Context, query, field string, arg any) (*models.User, error) {
	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, arg), user)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}

	return user, nil
}

// scanUser, userColumns sırasıyla tek satırı User'a aktarır.
func scanUser(row *sql.Row, u *models.User) error {
	return row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Avatar,
		&u.Chips, &u.GamesPlayed, &u.GamesWon, &u.RoleID, &u.IsActive, &u.IsBanned,
		&u.BannedBy, &u.BannedAt, &u.BanReason, &u.LastLoginAt, &u.LastActiveAt, &u.CreatedAt,
	)
}

// checkAffected, UPDATE sonucunda satır etkilenmediyse pkg.ErrNotFound döner.
func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// isUniqueViolation, SQLite UNIQUE constraint hatasını kontrol eder.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
