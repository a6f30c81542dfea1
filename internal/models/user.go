package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleSuperAdmin = "superadmin"
	RoleUniAdmin   = "uniadmin"
	RoleUser       = "user"
)

// Account is a credential record of either tenant.
// Admin accounts live in the "admins" collection, public accounts in "users".
type Account struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username      string              `bson:"username" json:"username"`
	Email         string              `bson:"email" json:"email"`
	PasswordHash  string              `bson:"passwordHash,omitempty" json:"-"`
	Role          string              `bson:"role" json:"role"`
	CollegeID     *primitive.ObjectID `bson:"collegeId,omitempty" json:"collegeId,omitempty"`
	Terminated    bool                `bson:"terminated" json:"terminated"`
	EmailVerified bool                `bson:"emailVerified" json:"emailVerified"`

	// SessionVersion is bumped on every invalidate-all event.
	// Tokens carrying another value are never honored.
	SessionVersion int                  `bson:"sessionVersion" json:"-"`
	RefreshTokens  []RefreshTokenRecord `bson:"refreshTokens" json:"-"`

	// EvictedJTIs remembers refresh tokens pushed out by the list cap,
	// so presenting one is not mistaken for replay.
	EvictedJTIs []string `bson:"evictedJtis,omitempty" json:"-"`

	// Revision guards every write: stores only apply an update when it still matches.
	Revision int64 `bson:"revision" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasPassword is false for accounts created through a federated identity.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// Clone returns a deep copy, so callers may mutate the refresh list freely.
func (a Account) Clone() Account {
	c := a
	if a.CollegeID != nil {
		id := *a.CollegeID
		c.CollegeID = &id
	}
	if a.RefreshTokens != nil {
		c.RefreshTokens = make([]RefreshTokenRecord, len(a.RefreshTokens))
		copy(c.RefreshTokens, a.RefreshTokens)
	}
	if a.EvictedJTIs != nil {
		c.EvictedJTIs = append([]string(nil), a.EvictedJTIs...)
	}
	return c
}
