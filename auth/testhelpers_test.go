package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/db"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		SecretKey:    "test-secret",
		SessionTTL:   time.Hour,
		SessionStore: config.SessionStoreMemory,
		BcryptCost:   bcrypt.MinCost,
	}
}

func newTestRepository(t *testing.T) *GormUserRepository {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })

	repo, err := NewGormUserRepository(gdb)
	require.NoError(t, err)
	return repo
}

type testEnv struct {
	repo     *GormUserRepository
	store    *MemorySessionStore
	service  *AuthService
	sessions *SessionManager
	handlers *Handlers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testAuthConfig()
	repo := newTestRepository(t)
	store := NewMemorySessionStore()
	service := NewAuthService(repo, cfg)
	sessions := NewSessionManager(store, cfg)
	return &testEnv{
		repo:     repo,
		store:    store,
		service:  service,
		sessions: sessions,
		handlers: NewHandlers(service, sessions),
	}
}
