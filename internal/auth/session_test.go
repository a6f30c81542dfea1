package auth

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/apperrors"
	"campushub/internal/models"
)

func Test_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues a pair stamped with the current session version", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)

		session := env.login(t, "nk")
		assert.Equal(t, account.ID, session.Account.ID)

		claims, ok := env.tokens.Verify(session.Access.Value, KindAccess)
		require.True(t, ok)
		assert.Equal(t, 0, claims.SessionVersion)

		stored := env.load(t, account)
		require.Len(t, stored.RefreshTokens, 1)
		rec := stored.RefreshTokens[0]
		assert.Equal(t, session.Refresh.JTI, rec.JTI)
		assert.Empty(t, rec.Token, "public tenant stores hashes only")
		assert.Equal(t, hashToken(session.Refresh.Value), rec.TokenHash)
		assert.Equal(t, "10.0.0.1", rec.IP)
		assert.Equal(t, "test", rec.UserAgent)
	})

	t.Run("admin tenant stores raw tokens", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "root", models.RoleSuperAdmin)

		session := env.login(t, "root@x.com")
		stored := env.load(t, account)
		require.Len(t, stored.RefreshTokens, 1)
		assert.Equal(t, session.Refresh.Value, stored.RefreshTokens[0].Token)
		assert.Empty(t, stored.RefreshTokens[0].TokenHash)
	})

	t.Run("unknown identifier and wrong password look the same", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		env.createAccount(t, "nk", models.RoleUser)

		_, errUnknown := env.sessions.Login(t.Context(), "ghost", testPassword, Meta{})
		_, errWrong := env.sessions.Login(t.Context(), "nk", "wrong-password", Meta{})

		require.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, apperrors.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		_, err := env.sessions.Login(t.Context(), " ", "", Meta{})
		require.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("account without password never logs in", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		federated := &models.Account{Username: "fed", Email: "fed@x.com", Role: models.RoleUser}
		require.NoError(t, env.accounts.Create(t.Context(), federated))

		_, err := env.sessions.Login(t.Context(), "fed", "", Meta{})
		require.ErrorIs(t, err, apperrors.ErrValidation)
		_, err = env.sessions.Login(t.Context(), "fed", "anything", Meta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("terminated account is forbidden", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "uni", models.RoleUniAdmin)
		_, err := env.sessions.Terminate(t.Context(), account.ID)
		require.NoError(t, err)

		_, err = env.sessions.Login(t.Context(), "uni", testPassword, Meta{})
		require.ErrorIs(t, err, apperrors.ErrAccountTerminated)
	})

	t.Run("refresh list keeps the most recent tokens", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "root", models.RoleSuperAdmin)

		var sessions []Session
		for i := 0; i < 7; i++ {
			sessions = append(sessions, env.login(t, "root"))
		}

		stored := env.load(t, account)
		require.Len(t, stored.RefreshTokens, 5)
		assert.Equal(t, sessions[6].Refresh.JTI, stored.RefreshTokens[4].JTI)
		assert.Equal(t, sessions[2].Refresh.JTI, stored.RefreshTokens[0].JTI)

		_, err := env.sessions.Refresh(t.Context(), sessions[0].Refresh.Value, Meta{})
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated, "trimmed token is no longer honored")
	})

	t.Run("cap-evicted token does not bump sessionVersion", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "root", models.RoleSuperAdmin)

		var sessions []Session
		for i := 0; i < 6; i++ {
			sessions = append(sessions, env.login(t, "root"))
		}
		before := env.load(t, account)
		require.Equal(t, []string{sessions[0].Refresh.JTI}, before.EvictedJTIs)

		_, err := env.sessions.Refresh(t.Context(), sessions[0].Refresh.Value, Meta{})
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

		after := env.load(t, account)
		assert.Equal(t, before.SessionVersion, after.SessionVersion)
		assert.Len(t, after.RefreshTokens, 5, "other devices keep their refresh tokens")

		_, err = env.gate.Authorize(t.Context(), "Bearer "+sessions[5].Access.Value)
		require.NoError(t, err, "other devices keep their access tokens")

		_, err = env.sessions.Refresh(t.Context(), sessions[5].Refresh.Value, Meta{})
		require.NoError(t, err)
	})

	t.Run("evicted ids are bounded and forgotten on logout-all", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "root", models.RoleSuperAdmin)

		for i := 0; i < 12; i++ {
			env.login(t, "root")
		}
		assert.Len(t, env.load(t, account).EvictedJTIs, 5)

		require.NoError(t, env.sessions.LogoutAll(t.Context(), account.ID))
		assert.Empty(t, env.load(t, account).EvictedJTIs)
	})
}

func Test_Refresh(t *testing.T) {
	t.Parallel()

	for _, name := range []string{TenantAdmin, TenantPublic} {
		t.Run(name, func(t *testing.T) {
			role := models.RoleUser
			if name == TenantAdmin {
				role = models.RoleSuperAdmin
			}

			t.Run("rotates the refresh token", func(t *testing.T) {
				env := newTestEnv(t, testTenant(name))
				account := env.createAccount(t, "nk", role)
				first := env.login(t, "nk")

				next, err := env.sessions.Refresh(t.Context(), first.Refresh.Value, Meta{IP: "10.0.0.2"})
				require.NoError(t, err)
				assert.NotEqual(t, first.Refresh.Value, next.Refresh.Value)
				assert.NotEqual(t, first.Access.Value, next.Access.Value)

				stored := env.load(t, account)
				require.Len(t, stored.RefreshTokens, 1)
				assert.Equal(t, next.Refresh.JTI, stored.RefreshTokens[0].JTI)
				assert.Equal(t, "10.0.0.2", stored.RefreshTokens[0].IP)

				_, err = env.gate.Authorize(t.Context(), "Bearer "+next.Access.Value)
				require.NoError(t, err)
			})

			t.Run("consumed token is rejected and treated as replay", func(t *testing.T) {
				env := newTestEnv(t, testTenant(name))
				account := env.createAccount(t, "nk", role)
				first := env.login(t, "nk")

				next, err := env.sessions.Refresh(t.Context(), first.Refresh.Value, Meta{})
				require.NoError(t, err)

				_, err = env.sessions.Refresh(t.Context(), first.Refresh.Value, Meta{})
				require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

				stored := env.load(t, account)
				assert.Equal(t, 1, stored.SessionVersion, "replay bumps the session version")
				assert.Empty(t, stored.RefreshTokens)

				_, err = env.sessions.Refresh(t.Context(), next.Refresh.Value, Meta{})
				require.Error(t, err, "the successor dies with the replayed token")
				assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
			})

			t.Run("stale session version clears the list every time", func(t *testing.T) {
				env := newTestEnv(t, testTenant(name))
				account := env.createAccount(t, "nk", role)
				old := env.login(t, "nk")

				require.NoError(t, env.sessions.ChangePassword(t.Context(), account.ID, testPassword, "brand-new-password"))
				fresh, err := env.sessions.Login(t.Context(), "nk", "brand-new-password", Meta{})
				require.NoError(t, err)

				for i := 0; i < 2; i++ {
					_, err := env.sessions.Refresh(t.Context(), old.Refresh.Value, Meta{})
					require.ErrorIs(t, err, apperrors.ErrSessionRevoked)
					assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
				}

				stored := env.load(t, account)
				assert.Equal(t, 1, stored.SessionVersion, "staleness alone does not bump the version")
				assert.Empty(t, stored.RefreshTokens)

				_, err = env.sessions.Refresh(t.Context(), fresh.Refresh.Value, Meta{})
				require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			})

			t.Run("invalid tokens", func(t *testing.T) {
				env := newTestEnv(t, testTenant(name))
				env.createAccount(t, "nk", role)
				session := env.login(t, "nk")

				for _, token := range []string{"", "garbage", session.Access.Value} {
					_, err := env.sessions.Refresh(t.Context(), token, Meta{})
					require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
				}
			})
		})
	}

	t.Run("deleted account", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")
		require.NoError(t, env.accounts.Delete(t.Context(), account.ID))

		_, err := env.sessions.Refresh(t.Context(), session.Refresh.Value, Meta{})
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")

		env.tokens.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		_, err := env.sessions.Refresh(t.Context(), session.Refresh.Value, Meta{})
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("concurrent refreshes of one token have one winner", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := env.sessions.Refresh(t.Context(), session.Refresh.Value, Meta{}); err == nil {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
	})
}

func Test_Logout(t *testing.T) {
	t.Parallel()

	t.Run("removes only the presented token", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		laptop := env.login(t, "nk")
		phone := env.login(t, "nk")

		require.NoError(t, env.sessions.Logout(t.Context(), laptop.Refresh.Value))

		stored := env.load(t, account)
		require.Len(t, stored.RefreshTokens, 1)
		assert.Equal(t, phone.Refresh.JTI, stored.RefreshTokens[0].JTI)
		assert.Equal(t, 0, stored.SessionVersion)

		_, err := env.sessions.Refresh(t.Context(), phone.Refresh.Value, Meta{})
		require.NoError(t, err)
	})

	t.Run("missing or garbled input is fine", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")

		require.NoError(t, env.sessions.Logout(t.Context(), ""))
		require.NoError(t, env.sessions.Logout(t.Context(), "garbage"))
		require.NoError(t, env.sessions.Logout(t.Context(), session.Refresh.Value))
		require.NoError(t, env.sessions.Logout(t.Context(), session.Refresh.Value), "second logout is a no-op")

		require.NoError(t, env.accounts.Delete(t.Context(), account.ID))
		require.NoError(t, env.sessions.Logout(t.Context(), session.Refresh.Value))
	})
}

func Test_LogoutAll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testTenant(TenantAdmin))
	account := env.createAccount(t, "root", models.RoleSuperAdmin)
	a := env.login(t, "root")
	b := env.login(t, "root")

	require.NoError(t, env.sessions.LogoutAll(t.Context(), account.ID))

	stored := env.load(t, account)
	assert.Equal(t, 1, stored.SessionVersion, "exactly one bump")
	assert.Empty(t, stored.RefreshTokens)

	for _, s := range []Session{a, b} {
		_, err := env.gate.Authorize(t.Context(), "Bearer "+s.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrSessionRevoked)

		_, err = env.sessions.Refresh(t.Context(), s.Refresh.Value, Meta{})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
	}

	fresh := env.login(t, "root")
	_, err := env.gate.Authorize(t.Context(), "Bearer "+fresh.Access.Value)
	require.NoError(t, err)

	require.ErrorIs(t, env.sessions.LogoutAll(t.Context(), primitive.NewObjectID()), apperrors.ErrAccountNotFound)
}

func Test_Accounts(t *testing.T) {
	t.Parallel()

	t.Run("create validates input", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))

		cases := map[string]NewAccount{
			"bad email":     {Username: "root", Email: "nope", Password: testPassword, Role: models.RoleSuperAdmin},
			"bad username":  {Username: "a b", Email: "a@x.com", Password: testPassword, Role: models.RoleSuperAdmin},
			"short pass":    {Username: "root", Email: "a@x.com", Password: "short", Role: models.RoleSuperAdmin},
			"foreign role":  {Username: "root", Email: "a@x.com", Password: testPassword, Role: models.RoleUser},
			"email in name": {Username: "a@x", Email: "a@x.com", Password: testPassword, Role: models.RoleSuperAdmin},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := env.sessions.CreateAccount(t.Context(), in)
				require.Error(t, err)
				assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			})
		}
	})

	t.Run("create normalizes and rejects duplicates", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))

		account, err := env.sessions.CreateAccount(t.Context(), NewAccount{
			Username: " nk ", Email: " NK@X.com", Password: testPassword, Role: models.RoleUser,
		})
		require.NoError(t, err)
		assert.Equal(t, "nk", account.Username)
		assert.Equal(t, "nk@x.com", account.Email)
		assert.Equal(t, 0, account.SessionVersion)
		assert.NotEqual(t, testPassword, account.PasswordHash)

		_, err = env.sessions.CreateAccount(t.Context(), NewAccount{
			Username: "other", Email: "nk@x.com", Password: testPassword, Role: models.RoleUser,
		})
		require.ErrorIs(t, err, apperrors.ErrAccountExists)
	})

	t.Run("profile update without password keeps sessions", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")

		name := "renamed"
		updated, err := env.sessions.UpdateProfile(t.Context(), account.ID, ProfileUpdate{Username: &name})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Username)
		assert.Equal(t, 0, updated.SessionVersion)

		_, err = env.gate.Authorize(t.Context(), "Bearer "+session.Access.Value)
		require.NoError(t, err)
	})

	t.Run("email change resets verification", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		require.NoError(t, env.sessions.MarkEmailVerified(t.Context(), "nk@x.com"))
		require.True(t, env.load(t, account).EmailVerified)

		email := "new@x.com"
		updated, err := env.sessions.UpdateProfile(t.Context(), account.ID, ProfileUpdate{Email: &email})
		require.NoError(t, err)
		assert.False(t, updated.EmailVerified)
	})

	t.Run("password change needs the current password and revokes sessions", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		session := env.login(t, "nk")

		err := env.sessions.ChangePassword(t.Context(), account.ID, "wrong-password", "brand-new-password")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		assert.Equal(t, 0, env.load(t, account).SessionVersion)

		require.NoError(t, env.sessions.ChangePassword(t.Context(), account.ID, testPassword, "brand-new-password"))
		stored := env.load(t, account)
		assert.Equal(t, 1, stored.SessionVersion)
		assert.Empty(t, stored.RefreshTokens)

		_, err = env.gate.Authorize(t.Context(), "Bearer "+session.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrSessionRevoked)

		_, err = env.sessions.Login(t.Context(), "nk", "brand-new-password", Meta{})
		require.NoError(t, err)
	})

	t.Run("reset password revokes sessions", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantPublic))
		account := env.createAccount(t, "nk", models.RoleUser)
		env.login(t, "nk")

		require.ErrorIs(t, env.sessions.ResetPassword(t.Context(), "ghost@x.com", "brand-new-password"), apperrors.ErrAccountNotFound)
		require.NoError(t, env.sessions.ResetPassword(t.Context(), "nk@x.com", "brand-new-password"))

		stored := env.load(t, account)
		assert.Equal(t, 1, stored.SessionVersion)
		assert.Empty(t, stored.RefreshTokens)

		_, err := env.sessions.Login(t.Context(), "nk", testPassword, Meta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("terminate revokes sessions", func(t *testing.T) {
		env := newTestEnv(t, testTenant(TenantAdmin))
		account := env.createAccount(t, "uni", models.RoleUniAdmin)
		session := env.login(t, "uni")

		terminated, err := env.sessions.Terminate(t.Context(), account.ID)
		require.NoError(t, err)
		assert.True(t, terminated.Terminated)
		assert.Equal(t, 1, terminated.SessionVersion)

		_, err = env.gate.Authorize(t.Context(), "Bearer "+session.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrSessionRevoked)
	})
}
