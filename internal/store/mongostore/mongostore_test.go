package mongostore

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campushub/internal/database"
	"campushub/internal/logger"
	"campushub/internal/models"
	"campushub/internal/store"
)

// startMongo runs a throwaway mongod and returns a database with every index in place.
func startMongo(t *testing.T) *mongo.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("mongo container tests are skipped in short mode")
	}
	if out, err := exec.Command("docker", "info", "--format", "{{.ServerVersion}}").CombinedOutput(); err != nil {
		t.Skipf("docker not available: %s", out)
	}

	container, err := mongodb.Run(t.Context(), "mongo:7")
	require.NoError(t, err, "Error happened when starting container with mongo")
	t.Cleanup(func() { testcontainers.CleanupContainer(t, container) })

	uri, err := container.ConnectionString(t.Context())
	require.NoError(t, err)

	client, err := database.Connect(t.Context(), uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Disconnect(client) })

	db := client.Database("campushub-test")
	require.NoError(t, database.EnsureIndexes(t.Context(), db, logger.NewNoOpLogger()))
	return db
}

func Test_Mongo(t *testing.T) {
	db := startMongo(t)

	t.Run("account lifecycle", func(t *testing.T) {
		s := NewAccountStore(db, store.UsersCollection)
		a := &models.Account{Username: "nk", Email: "nk@x.com", Role: models.RoleUser}
		require.NoError(t, s.Create(t.Context(), a))

		err := s.Create(t.Context(), &models.Account{Username: "nk", Email: "other@x.com"})
		require.ErrorIs(t, err, store.ErrDuplicate)

		byEmail, err := s.FindByIdentifier(t.Context(), "NK@x.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, byEmail.ID)
		assert.Empty(t, byEmail.RefreshTokens)

		stale := byEmail.Clone()
		byEmail.RefreshTokens = append(byEmail.RefreshTokens, models.RefreshTokenRecord{
			JTI:       "jti-1",
			TokenHash: "hash",
			ExpiresAt: time.Now().Add(time.Hour).UTC(),
		})
		require.NoError(t, s.Update(t.Context(), &byEmail))
		assert.Equal(t, int64(1), byEmail.Revision)

		stale.SessionVersion = 5
		require.ErrorIs(t, s.Update(t.Context(), &stale), store.ErrRevisionConflict)

		stored, err := s.FindByID(t.Context(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.SessionVersion)
		require.Len(t, stored.RefreshTokens, 1)
		assert.Equal(t, "jti-1", stored.RefreshTokens[0].JTI)

		require.NoError(t, s.Delete(t.Context(), a.ID))
		ghost := stored
		require.ErrorIs(t, s.Update(t.Context(), &ghost), store.ErrNotFound)
		require.ErrorIs(t, s.Delete(t.Context(), a.ID), store.ErrNotFound)
	})

	t.Run("one concurrent update wins", func(t *testing.T) {
		s := NewAccountStore(db, store.AdminsCollection)
		a := &models.Account{Username: "race", Email: "race@x.com", Role: models.RoleSuperAdmin}
		require.NoError(t, s.Create(t.Context(), a))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			copyOf, err := s.FindByID(t.Context(), a.ID)
			require.NoError(t, err)
			wg.Add(1)
			go func(acc models.Account) {
				defer wg.Done()
				acc.SessionVersion++
				if s.Update(t.Context(), &acc) == nil {
					wins.Add(1)
				}
			}(copyOf)
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("accounts by college", func(t *testing.T) {
		s := NewAccountStore(db, store.AdminsCollection)
		college := primitive.NewObjectID()
		a := &models.Account{Username: "uni", Email: "uni@x.com", Role: models.RoleUniAdmin, CollegeID: &college}
		require.NoError(t, s.Create(t.Context(), a))

		list, err := s.List(t.Context(), store.AccountFilter{CollegeID: &college})
		require.NoError(t, err)
		require.Len(t, list, 1)

		n, err := s.DeleteByCollege(t.Context(), college)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("otp take", func(t *testing.T) {
		s := NewOTPStore(db, store.OTPCollection)
		exp := time.Now().Add(time.Minute).UTC()
		require.NoError(t, s.Replace(t.Context(), models.OTP{Email: "a@x.com", CodeHash: "old", ExpiresAt: exp}))
		require.NoError(t, s.Replace(t.Context(), models.OTP{Email: "a@x.com", CodeHash: "new", ExpiresAt: exp}))

		otp, err := s.Take(t.Context(), "A@x.com")
		require.NoError(t, err)
		assert.Equal(t, "new", otp.CodeHash)

		_, err = s.Take(t.Context(), "a@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Replace(t.Context(), models.OTP{Email: "b@x.com", CodeHash: "h", ExpiresAt: time.Now().Add(-time.Second).UTC()}))
		_, err = s.Take(t.Context(), "b@x.com")
		require.ErrorIs(t, err, store.ErrNotFound, "expired code is never returned")
	})

	t.Run("concurrent otp replaces keep one code", func(t *testing.T) {
		s := NewOTPStore(db, store.AdminOTPCollection)
		exp := time.Now().Add(time.Minute).UTC()

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				errs <- s.Replace(t.Context(), models.OTP{Email: "c@x.com", CodeHash: fmt.Sprintf("h%d", n), ExpiresAt: exp})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		n, err := db.Collection(store.AdminOTPCollection).CountDocuments(t.Context(), bson.M{"email": "c@x.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Take(t.Context(), "c@x.com")
		require.NoError(t, err)
		_, err = s.Take(t.Context(), "c@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("colleges", func(t *testing.T) {
		s := NewCollegeStore(db)
		c := &models.College{Name: "North", Domains: models.StringList{"north.edu"}}
		require.NoError(t, s.Create(t.Context(), c))
		require.ErrorIs(t, s.Create(t.Context(), &models.College{Name: "NORTH"}), store.ErrDuplicate)

		require.NoError(t, s.AdjustAdminCount(t.Context(), c.ID, 1))
		got, err := s.FindByID(t.Context(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.AdminCount)

		require.ErrorIs(t, s.AdjustAdminCount(t.Context(), primitive.NewObjectID(), 1), store.ErrNotFound)
		require.NoError(t, s.Delete(t.Context(), c.ID))
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, NewAccountStore(db, store.UsersCollection).Ping(t.Context()))
	})
}
