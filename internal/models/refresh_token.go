package models

import (
	"time"
)

// RefreshTokenRecord is a currently honored refresh token of an account.
// Depending on the tenant policy either Token (raw) or TokenHash is set.
type RefreshTokenRecord struct {
	JTI       string    `bson:"jti" json:"jti"`
	Token     string    `bson:"token,omitempty" json:"-"`
	TokenHash string    `bson:"tokenHash,omitempty" json:"-"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	IP        string    `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string    `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
}
