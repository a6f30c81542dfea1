package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/models"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the payload of both token kinds. Refresh tokens leave Role empty.
type Claims struct {
	jwt.RegisteredClaims
	Role           string `json:"role,omitempty"`
	SessionVersion int    `json:"sv"`
	Tenant         string `json:"tenant"`
	Kind           Kind   `json:"kind"`
}

func (c *Claims) AccountID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Subject)
}

type IssuedToken struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// TokenService mints and verifies the tokens of one tenant.
type TokenService struct {
	tenant Tenant
	alg    jwt.SigningMethod
	now    func() time.Time
}

func NewTokenService(tenant Tenant) (*TokenService, error) {
	if tenant.AccessSecret == "" || tenant.RefreshSecret == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if tenant.AccessTTL <= 0 {
		tenant.AccessTTL = defaultAccessTTL
	}
	if tenant.RefreshTTL <= 0 {
		tenant.RefreshTTL = defaultRefreshTTL
	}

	return &TokenService{
		tenant: tenant,
		alg:    jwt.SigningMethodHS256,
		now:    time.Now,
	}, nil
}

func (s *TokenService) IssueAccess(account models.Account) (IssuedToken, error) {
	return s.issue(account, KindAccess, account.Role, s.tenant.AccessTTL)
}

func (s *TokenService) IssueRefresh(account models.Account) (IssuedToken, error) {
	return s.issue(account, KindRefresh, "", s.tenant.RefreshTTL)
}

func (s *TokenService) issue(account models.Account, kind Kind, role string, ttl time.Duration) (IssuedToken, error) {
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(s.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   account.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:           role,
		SessionVersion: account.SessionVersion,
		Tenant:         s.tenant.Name,
		Kind:           kind,
	})

	signed, err := token.SignedString(s.secret(kind))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return IssuedToken{Value: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, expiry, kind and tenant. It reports false on any failure.
func (s *TokenService) Verify(token string, kind Kind) (*Claims, bool) {
	if token == "" {
		return nil, false
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) {
			return s.secret(kind), nil
		},
		jwt.WithValidMethods([]string{s.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, false
	}
	if claims.Kind != kind || claims.Tenant != s.tenant.Name || claims.ID == "" {
		return nil, false
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, false
	}
	return claims, true
}

func (s *TokenService) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return []byte(s.tenant.RefreshSecret)
	}
	return []byte(s.tenant.AccessSecret)
}
