package services

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/akinalp/masa/database"
	"github.com/akinalp/masa/models"
	"github.com/akinalp/masa/pkg/password"
	"github.com/akinalp/masa/pkg/ratelimit"
	"github.com/akinalp/masa/pkg/token"
	"github.com/akinalp/masa/repository"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testEnv, servis testleri için tam wire-up: gerçek SQLite DB (t.TempDir),
// gerçek repository'ler, düşük cost'lu gerçek hasher. Mock yok —
// modernc.org/sqlite pure Go olduğu için gerçek stack ucuz.
type testEnv struct {
	db        *database.DB
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	modRepo   repository.ModerationRepository
	resetRepo repository.PasswordResetRepository
	txRunner  repository.TxRunner
	hasher    password.Hasher
	roles     RoleService
	auth      AuthService
	sender    *captureSender
}

// captureSender, gönderilen reset email'ini yakalayan test EmailSender'ı.
type captureSender struct {
	to    string
	token string
	calls int
	err   error
}

func (c *captureSender) SendPasswordReset(_ context.Context, toEmail, token string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	c.to = toEmail
	c.token = token
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	roleRepo := repository.NewSQLiteRoleRepo(db.Conn)
	modRepo := repository.NewSQLiteModerationRepo(db.Conn)
	resetRepo := repository.NewSQLiteResetTokenRepo(db.Conn)
	txRunner := repository.NewSQLiteTxRunner(db.Conn)

	roles := NewRoleService(roleRepo, userRepo, modRepo, txRunner)
	require.NoError(t, roles.InitializeDefaultRoles(context.Background()))

	sender := &captureSender{}
	limiter := ratelimit.NewLoginRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	hasher := password.NewHasher(bcrypt.MinCost)
	auth := NewAuthService(
		userRepo,
		resetRepo,
		roleRepo,
		txRunner,
		roles,
		hasher,
		token.NewCodec("service-test-secret-0123456789abcdef", 60, 7),
		sender,
		limiter,
	)

	return &testEnv{
		db:        db,
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		modRepo:   modRepo,
		resetRepo: resetRepo,
		txRunner:  txRunner,
		hasher:    hasher,
		roles:     roles,
		auth:      auth,
		sender:    sender,
	}
}

// register, testlerde kısayol: geçerli bir kullanıcı kaydeder.
func (e *testEnv) register(t *testing.T, username, email string) *AuthResult {
	t.Helper()

	res, err := e.auth.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: "password1",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

// promote, kullanıcıyı isimle verilen role taşır.
func (e *testEnv) promote(t *testing.T, userID, roleName string) {
	t.Helper()
	require.True(t, e.roles.AssignRole(context.Background(), userID, roleName, "test-admin"))
}

// countRows, tablo satır sayısı (idempotency assertion'ları için).
func (e *testEnv) countRows(t *testing.T, table string) int {
	t.Helper()

	var n int
	require.NoError(t, e.db.Conn.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
