// Package auth implements the dual-token session scheme shared by the admin
// panel and the public site: access and refresh tokens, the per-account
// sessionVersion counter, the authorization gate and one-time passcodes.
//
// The two sites differ only in their Tenant value.
package auth

import (
	"errors"
	"slices"
	"time"

	"campushub/internal/models"
)

const (
	TenantAdmin  = "admin"
	TenantPublic = "public"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Tenant holds everything that differs between the admin panel and the public site.
type Tenant struct {
	Name string

	// Signing keys. All four keys of a deployment have to be distinct,
	// so a token of one kind or tenant never verifies as another.
	AccessSecret  string
	RefreshSecret string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	CookieName   string
	CookiePath   string
	SecureCookie bool

	// HashRefreshTokens stores sha256 digests instead of raw tokens.
	HashRefreshTokens bool

	// MaxRefreshTokens caps the stored list; the oldest records go first.
	MaxRefreshTokens int

	// Roles an account of this tenant may hold.
	Roles []string
}

// AdminTenant keeps the five most recent raw refresh tokens per account.
func AdminTenant(accessSecret, refreshSecret string) Tenant {
	return Tenant{
		Name:              TenantAdmin,
		AccessSecret:      accessSecret,
		RefreshSecret:     refreshSecret,
		AccessTTL:         defaultAccessTTL,
		RefreshTTL:        defaultRefreshTTL,
		CookieName:        "admin_refresh",
		CookiePath:        "/admin/api/auth",
		HashRefreshTokens: false,
		MaxRefreshTokens:  5,
		Roles:             []string{models.RoleSuperAdmin, models.RoleUniAdmin},
	}
}

// PublicTenant keeps hashed refresh tokens with device metadata.
func PublicTenant(accessSecret, refreshSecret string) Tenant {
	return Tenant{
		Name:              TenantPublic,
		AccessSecret:      accessSecret,
		RefreshSecret:     refreshSecret,
		AccessTTL:         defaultAccessTTL,
		RefreshTTL:        defaultRefreshTTL,
		CookieName:        "refresh_token",
		CookiePath:        "/api/auth",
		HashRefreshTokens: true,
		MaxRefreshTokens:  10,
		Roles:             []string{models.RoleUser},
	}
}

func (t Tenant) Validate() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("tenant name is required"))
	}
	if t.AccessSecret == "" || t.RefreshSecret == "" {
		errs = append(errs, errors.New("tenant "+t.Name+": signing secrets are required"))
	}
	if t.AccessSecret != "" && t.AccessSecret == t.RefreshSecret {
		errs = append(errs, errors.New("tenant "+t.Name+": access and refresh secrets must differ"))
	}
	if t.AccessTTL <= 0 || t.RefreshTTL <= 0 {
		errs = append(errs, errors.New("tenant "+t.Name+": token lifetimes must be positive"))
	}
	if t.MaxRefreshTokens <= 0 {
		errs = append(errs, errors.New("tenant "+t.Name+": refresh token cap must be positive"))
	}
	if len(t.Roles) == 0 {
		errs = append(errs, errors.New("tenant "+t.Name+": at least one role is required"))
	}
	return errors.Join(errs...)
}

func (t Tenant) AllowsRole(role string) bool {
	return slices.Contains(t.Roles, role)
}
