package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"campushub/internal/apperrors"
	"campushub/internal/models"
	"campushub/internal/store"
)

// Gate authorizes requests of one tenant. The live account is loaded on every
// call, so a sessionVersion bump takes effect immediately.
type Gate struct {
	tokens   *TokenService
	accounts store.AccountStore
}

func NewGate(tokens *TokenService, accounts store.AccountStore) *Gate {
	return &Gate{tokens: tokens, accounts: accounts}
}

// Authorize resolves the bearer token in header to its live account.
// An empty roles list admits every role.
func (g *Gate) Authorize(ctx context.Context, header string, roles ...string) (models.Account, error) {
	token, ok := BearerToken(header)
	if !ok {
		return models.Account{}, apperrors.ErrUnauthenticated
	}

	claims, ok := g.tokens.Verify(token, KindAccess)
	if !ok {
		return models.Account{}, apperrors.ErrUnauthenticated
	}
	id, _ := claims.AccountID()

	account, err := g.accounts.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}

	if claims.SessionVersion != account.SessionVersion {
		return models.Account{}, apperrors.ErrSessionRevoked
	}

	if len(roles) > 0 && !slices.Contains(roles, account.Role) {
		return models.Account{}, apperrors.ErrForbidden
	}

	return account, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
