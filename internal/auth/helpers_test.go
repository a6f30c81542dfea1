package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"campushub/internal/logger"
	"campushub/internal/models"
	"campushub/internal/store/memstore"
)

const testPassword = "correct-horse"

func testTenant(name string) Tenant {
	if name == TenantAdmin {
		return AdminTenant("admin-access", "admin-refresh")
	}
	return PublicTenant("public-access", "public-refresh")
}

type testEnv struct {
	tenant   Tenant
	accounts *memstore.AccountStore
	tokens   *TokenService
	sessions *SessionManager
	gate     *Gate
}

func newTestEnv(t *testing.T, tenant Tenant) *testEnv {
	t.Helper()

	accounts := memstore.NewAccountStore()
	tokens, err := NewTokenService(tenant)
	require.NoError(t, err)

	return &testEnv{
		tenant:   tenant,
		accounts: accounts,
		tokens:   tokens,
		sessions: NewSessionManager(tenant, accounts, tokens, BcryptHasher{Cost: bcrypt.MinCost}, logger.NewNoOpLogger()),
		gate:     NewGate(tokens, accounts),
	}
}

func (e *testEnv) createAccount(t *testing.T, username, role string) models.Account {
	t.Helper()

	account, err := e.sessions.CreateAccount(t.Context(), NewAccount{
		Username: username,
		Email:    username + "@x.com",
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return account
}

func (e *testEnv) login(t *testing.T, username string) Session {
	t.Helper()

	session, err := e.sessions.Login(t.Context(), username, testPassword, Meta{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return session
}

func (e *testEnv) load(t *testing.T, account models.Account) models.Account {
	t.Helper()

	stored, err := e.accounts.FindByID(t.Context(), account.ID)
	require.NoError(t, err)
	return stored
}

// fakeSender records the last code sent per address.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string]string)}
}

func (f *fakeSender) SendOTP(_ context.Context, to, code string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.codes[to] = code
	return nil
}

func (f *fakeSender) last(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[to]
}
