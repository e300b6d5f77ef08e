package repository

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/akinalp/masa/database"
	"github.com/akinalp/masa/models"
	"github.com/stretchr/testify/require"
)

// newTestDB, t.TempDir altında gerçek bir SQLite veritabanı açar.
// modernc.org/sqlite pure Go olduğu için testlerde gerçek DB kullanmak
// ucuzdur — mock repository'ye gerek kalmaz.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedRole, FK zinciri için test rolü oluşturur (users.role_id NOT NULL).
func seedRole(t *testing.T, repo RoleRepository, name string, level int) *models.Role {
	t.Helper()

	role := &models.Role{Name: name, DisplayName: name, Level: level}
	require.NoError(t, repo.CreateRole(context.Background(), role))
	require.NotEmpty(t, role.ID)
	return role
}

// seedUser, verilen rol ile test kullanıcısı oluşturur.
func seedUser(t *testing.T, repo UserRepository, roleID, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
		DisplayName:  username,
		Avatar:       models.DeriveAvatar(username),
		Chips:        models.StartingChips,
		RoleID:       roleID,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	return user
}

// testTime, DATETIME kolonlarına yazılacak sabit zaman.
func testTime() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}
