package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// College scopes uniadmin accounts.
type College struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Domains    StringList         `bson:"domains" json:"domains"`
	AdminCount int                `bson:"adminCount" json:"adminCount"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
