package models

import "time"

// OTP is a single-use passcode. Only the hash of the code is stored.
type OTP struct {
	Email     string    `bson:"email"`
	CodeHash  string    `bson:"codeHash"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
