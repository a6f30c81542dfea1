package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/apperrors"
	"campushub/internal/models"
	"campushub/internal/store"
)

const minPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	errWeakPassword    = apperrors.New(apperrors.KindValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	errInvalidEmail    = apperrors.New(apperrors.KindValidation, "invalid email")
	errInvalidUsername = apperrors.New(apperrors.KindValidation, "invalid username")
	errRoleNotAllowed  = apperrors.New(apperrors.KindValidation, "role not allowed")
)

type NewAccount struct {
	Username  string
	Email     string
	Password  string
	Role      string
	CollegeID *primitive.ObjectID
}

// CreateAccount provisions an account of this tenant with sessionVersion 0 and no refresh tokens.
func (m *SessionManager) CreateAccount(ctx context.Context, in NewAccount) (models.Account, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return models.Account{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.Account{}, err
	}
	if !m.tenant.AllowsRole(in.Role) {
		return models.Account{}, errRoleNotAllowed
	}
	if len(in.Password) < minPasswordLength {
		return models.Account{}, errWeakPassword
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		Role:          in.Role,
		CollegeID:     in.CollegeID,
		RefreshTokens: []models.RefreshTokenRecord{},
	}
	if err := m.accounts.Create(ctx, &account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Account{}, apperrors.ErrAccountExists
		}
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}

	m.log.Info("account created", "account", account.ID.Hex(), "role", account.Role)
	return account, nil
}

// ProfileUpdate changes only the non-nil fields.
// A new password needs the current one unless the account has none yet.
type ProfileUpdate struct {
	Username        *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile applies upd. Changing the password revokes every session of the account.
func (m *SessionManager) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (models.Account, error) {
	var username, email, newHash string
	var err error

	if upd.Username != nil {
		if username, err = normalizeUsername(*upd.Username); err != nil {
			return models.Account{}, err
		}
	}
	if upd.Email != nil {
		if email, err = normalizeEmail(*upd.Email); err != nil {
			return models.Account{}, err
		}
	}
	if upd.NewPassword != "" {
		if len(upd.NewPassword) < minPasswordLength {
			return models.Account{}, errWeakPassword
		}
		if newHash, err = m.hasher.Hash(upd.NewPassword); err != nil {
			return models.Account{}, fmt.Errorf("hash password: %w", err)
		}
	}

	updated, err := m.mutate(ctx, id, func(a *models.Account) error {
		changed := false
		if username != "" && username != a.Username {
			a.Username = username
			changed = true
		}
		if email != "" && email != a.Email {
			a.Email = email
			a.EmailVerified = false
			changed = true
		}
		if newHash != "" {
			if a.HasPassword() && m.hasher.Compare(a.PasswordHash, upd.CurrentPassword) != nil {
				return apperrors.ErrInvalidCredentials
			}
			a.PasswordHash = newHash
			invalidateSessions(a)
			changed = true
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	if newHash != "" {
		m.log.Info("password changed, sessions revoked", "account", id.Hex())
	}
	return updated, nil
}

func (m *SessionManager) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	_, err := m.UpdateProfile(ctx, id, ProfileUpdate{CurrentPassword: current, NewPassword: next})
	return err
}

// ResetPassword sets a new password without the old one. Callers verify an OTP first.
func (m *SessionManager) ResetPassword(ctx context.Context, email, next string) error {
	if len(next) < minPasswordLength {
		return errWeakPassword
	}

	account, err := m.accounts.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	hash, err := m.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = m.mutate(ctx, account.ID, func(a *models.Account) error {
		a.PasswordHash = hash
		invalidateSessions(a)
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info("password reset, sessions revoked", "account", account.ID.Hex())
	return nil
}

// Terminate soft-disables the account and revokes all of its sessions.
func (m *SessionManager) Terminate(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	updated, err := m.mutate(ctx, id, func(a *models.Account) error {
		a.Terminated = true
		invalidateSessions(a)
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	m.log.Info("account terminated", "account", id.Hex())
	return updated, nil
}

func (m *SessionManager) MarkEmailVerified(ctx context.Context, email string) error {
	account, err := m.accounts.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	_, err = m.mutate(ctx, account.ID, func(a *models.Account) error {
		if a.EmailVerified {
			return errNoChange
		}
		a.EmailVerified = true
		return nil
	})
	return err
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", errInvalidEmail
	}
	return email, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if err := validate.Var(username, "required,min=2,max=32,printascii,excludesall=@"); err != nil || strings.Contains(username, " ") {
		return "", errInvalidUsername
	}
	return username, nil
}
