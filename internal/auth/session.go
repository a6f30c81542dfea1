package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/apperrors"
	"campushub/internal/logger"
	"campushub/internal/models"
	"campushub/internal/store"
)

// maxWriteAttempts bounds the read-modify-write retries on revision conflicts.
const maxWriteAttempts = 3

// errNoChange tells mutate that nothing has to be written.
var errNoChange = errors.New("no change")

// Meta describes the client a refresh token is handed to.
type Meta struct {
	IP        string
	UserAgent string
}

// Session is the result of a login or a refresh.
type Session struct {
	Account models.Account
	Access  IssuedToken
	Refresh IssuedToken
}

// SessionManager runs the login, refresh and logout flows of one tenant.
// Every account write is a compare-and-swap on models.Account.Revision.
type SessionManager struct {
	tenant   Tenant
	accounts store.AccountStore
	tokens   *TokenService
	hasher   PasswordHasher
	log      logger.Logger
	now      func() time.Time
}

func NewSessionManager(
	tenant Tenant,
	accounts store.AccountStore,
	tokens *TokenService,
	hasher PasswordHasher,
	log logger.Logger,
) *SessionManager {
	return &SessionManager{
		tenant:   tenant,
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		log:      log.With("component", "auth", "tenant", tenant.Name),
		now:      time.Now,
	}
}

func (m *SessionManager) Tenant() Tenant {
	return m.tenant
}

// Login checks the credentials and starts a new session stamped with the current sessionVersion.
// Unknown identifiers and wrong passwords produce the same error.
func (m *SessionManager) Login(ctx context.Context, identifier, password string, meta Meta) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, apperrors.ErrValidation
	}

	account, err := m.accounts.FindByIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		m.log.Info("login rejected", "reason", "unknown identifier")
		return Session{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find account: %w", err)
	}

	if !account.HasPassword() || m.hasher.Compare(account.PasswordHash, password) != nil {
		m.log.Info("login rejected", "reason", "password mismatch", "account", account.ID.Hex())
		return Session{}, apperrors.ErrInvalidCredentials
	}
	if account.Terminated {
		m.log.Info("login rejected", "reason", "terminated", "account", account.ID.Hex())
		return Session{}, apperrors.ErrAccountTerminated
	}

	var session Session
	updated, err := m.mutate(ctx, account.ID, func(a *models.Account) error {
		if a.Terminated {
			return apperrors.ErrAccountTerminated
		}
		var err error
		session, err = m.startSession(a, meta)
		return err
	})
	if errors.Is(err, apperrors.ErrAccountNotFound) {
		return Session{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	m.log.Info("login succeeded", "account", updated.ID.Hex(), "role", updated.Role)
	session.Account = updated
	return session, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented token
// is consumed: it leaves the stored list in the same write that adds its successor.
//
// A token minted before the last sessionVersion bump clears the stored list.
// A current-version token that is no longer stored is treated as replay:
// the list is cleared and sessionVersion is bumped.
func (m *SessionManager) Refresh(ctx context.Context, token string, meta Meta) (Session, error) {
	claims, ok := m.tokens.Verify(token, KindRefresh)
	if !ok {
		return Session{}, apperrors.ErrUnauthenticated
	}
	id, _ := claims.AccountID()

	for attempt := 1; ; attempt++ {
		account, err := m.accounts.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperrors.ErrUnauthenticated
		}
		if err != nil {
			return Session{}, fmt.Errorf("find account: %w", err)
		}

		// Past the first attempt the state changed under us: a concurrent
		// refresh or revocation already did the bookkeeping.
		firstLook := attempt == 1

		if claims.SessionVersion != account.SessionVersion {
			if firstLook {
				m.log.Warn("stale refresh token presented", "account", id.Hex())
				m.revoke(ctx, id, false, claims.SessionVersion)
			}
			return Session{}, apperrors.ErrSessionRevoked
		}

		idx := findRecord(account.RefreshTokens, claims.ID, token)
		if idx < 0 && slices.Contains(account.EvictedJTIs, claims.ID) {
			m.log.Info("evicted refresh token presented", "account", id.Hex())
			return Session{}, apperrors.ErrUnauthenticated
		}
		if idx < 0 {
			if firstLook {
				m.log.Warn("refresh token reuse detected", "account", id.Hex())
				m.revoke(ctx, id, true, claims.SessionVersion)
			}
			return Session{}, apperrors.ErrUnauthenticated
		}

		if account.Terminated {
			return Session{}, apperrors.ErrUnauthenticated
		}

		account.RefreshTokens = slices.Delete(account.RefreshTokens, idx, idx+1)
		session, err := m.startSession(&account, meta)
		if err != nil {
			return Session{}, err
		}

		err = m.accounts.Update(ctx, &account)
		if err == nil {
			session.Account = account
			return session, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperrors.ErrUnauthenticated
		}
		if errors.Is(err, store.ErrRevisionConflict) {
			if attempt < maxWriteAttempts {
				continue
			}
			return Session{}, apperrors.ErrUnauthenticated
		}
		return Session{}, fmt.Errorf("save account: %w", err)
	}
}

// Logout forgets the given refresh token. Missing, garbled or already
// forgotten tokens are not an error.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	claims, ok := m.tokens.Verify(token, KindRefresh)
	if !ok {
		return nil
	}
	id, _ := claims.AccountID()

	_, err := m.mutate(ctx, id, func(a *models.Account) error {
		idx := findRecord(a.RefreshTokens, claims.ID, token)
		if idx < 0 {
			return errNoChange
		}
		a.RefreshTokens = slices.Delete(a.RefreshTokens, idx, idx+1)
		return nil
	})
	if errors.Is(err, apperrors.ErrAccountNotFound) {
		return nil
	}
	return err
}

// LogoutAll invalidates every token ever issued to the account.
func (m *SessionManager) LogoutAll(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.mutate(ctx, id, func(a *models.Account) error {
		invalidateSessions(a)
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info("all sessions revoked", "account", id.Hex())
	return nil
}

func (m *SessionManager) startSession(a *models.Account, meta Meta) (Session, error) {
	access, err := m.tokens.IssueAccess(*a)
	if err != nil {
		return Session{}, err
	}
	refresh, err := m.tokens.IssueRefresh(*a)
	if err != nil {
		return Session{}, err
	}

	record := models.RefreshTokenRecord{
		JTI:       refresh.JTI,
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: m.now().UTC(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if m.tenant.HashRefreshTokens {
		record.TokenHash = hashToken(refresh.Value)
	} else {
		record.Token = refresh.Value
	}

	m.appendRecord(a, record)
	return Session{Access: access, Refresh: refresh}, nil
}

// appendRecord drops expired records, appends rec and keeps the most recent
// MaxRefreshTokens. Records pushed out by the cap are remembered in
// EvictedJTIs, which holds at most MaxRefreshTokens entries as well.
func (m *SessionManager) appendRecord(a *models.Account, rec models.RefreshTokenRecord) {
	now := m.now()
	out := make([]models.RefreshTokenRecord, 0, len(a.RefreshTokens)+1)
	for _, r := range a.RefreshTokens {
		if !store.Expired(r.ExpiresAt, now) {
			out = append(out, r)
		}
	}
	out = append(out, rec)

	limit := m.tenant.MaxRefreshTokens
	if limit > 0 && len(out) > limit {
		for _, r := range out[:len(out)-limit] {
			a.EvictedJTIs = append(a.EvictedJTIs, r.JTI)
		}
		out = out[len(out)-limit:]
		if len(a.EvictedJTIs) > limit {
			a.EvictedJTIs = a.EvictedJTIs[len(a.EvictedJTIs)-limit:]
		}
	}
	a.RefreshTokens = out
}

// revoke clears the refresh list. With bump it also increments sessionVersion,
// unless the version already moved past seenVersion.
// Failures are logged only: the caller rejects the request either way.
func (m *SessionManager) revoke(ctx context.Context, id primitive.ObjectID, bump bool, seenVersion int) {
	_, err := m.mutate(ctx, id, func(a *models.Account) error {
		bumped := bump && a.SessionVersion == seenVersion
		if !bumped && len(a.RefreshTokens) == 0 {
			return errNoChange
		}
		if bumped {
			a.SessionVersion++
		}
		a.RefreshTokens = nil
		a.EvictedJTIs = nil
		return nil
	})
	if err != nil && !errors.Is(err, apperrors.ErrAccountNotFound) {
		m.log.Error("failed to revoke refresh tokens", "account", id.Hex(), "error", err)
	}
}

// mutate reads the account, applies fn and writes it back, retrying on revision conflicts.
// fn may return errNoChange to skip the write.
func (m *SessionManager) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Account) error) (models.Account, error) {
	for attempt := 1; ; attempt++ {
		account, err := m.accounts.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return models.Account{}, apperrors.ErrAccountNotFound
		}
		if err != nil {
			return models.Account{}, fmt.Errorf("find account: %w", err)
		}

		if err := fn(&account); err != nil {
			if errors.Is(err, errNoChange) {
				return account, nil
			}
			return models.Account{}, err
		}

		err = m.accounts.Update(ctx, &account)
		switch {
		case err == nil:
			return account, nil
		case errors.Is(err, store.ErrRevisionConflict) && attempt < maxWriteAttempts:
			continue
		case errors.Is(err, store.ErrNotFound):
			return models.Account{}, apperrors.ErrAccountNotFound
		case errors.Is(err, store.ErrDuplicate):
			return models.Account{}, apperrors.ErrAccountExists
		default:
			return models.Account{}, fmt.Errorf("save account: %w", err)
		}
	}
}

// invalidateSessions is the blanket revocation shared by logout-all, password
// changes and termination.
func invalidateSessions(a *models.Account) {
	a.SessionVersion++
	a.RefreshTokens = nil
	a.EvictedJTIs = nil
}

func findRecord(records []models.RefreshTokenRecord, jti, token string) int {
	for i, r := range records {
		if r.JTI != jti {
			continue
		}
		if r.TokenHash != "" {
			if subtle.ConstantTimeCompare([]byte(r.TokenHash), []byte(hashToken(token))) == 1 {
				return i
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(r.Token), []byte(token)) == 1 {
			return i
		}
	}
	return -1
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
