// Package store defines persistence contracts shared by the mongo, redis and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")

	// ErrRevisionConflict means the document changed since it was read.
	ErrRevisionConflict = errors.New("revision conflict")
)

// Collection names of the document store.
const (
	AdminsCollection   = "admins"
	UsersCollection    = "users"
	CollegesCollection = "colleges"
	OTPCollection      = "otps"
	AdminOTPCollection = "admin_otps"
)

type AccountFilter struct {
	Role      string
	CollegeID *primitive.ObjectID
}

// AccountStore persists the accounts of one tenant.
type AccountStore interface {
	// Create inserts the account and sets its ID.
	// Duplicate username or email returns ErrDuplicate.
	Create(ctx context.Context, account *models.Account) error

	// FindByID, FindByIdentifier and FindByEmail return ErrNotFound when nothing matches.
	// FindByIdentifier matches either username or email.
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)

	List(ctx context.Context, filter AccountFilter) ([]models.Account, error)

	// Update writes the account only if its stored revision equals account.Revision.
	// On success account.Revision is incremented. A lost race returns ErrRevisionConflict,
	// a vanished document returns ErrNotFound.
	Update(ctx context.Context, account *models.Account) error

	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByCollege(ctx context.Context, collegeID primitive.ObjectID) (int64, error)
}

// OTPStore keeps at most one effective code per email.
type OTPStore interface {
	// Replace removes every previous code of otp.Email and stores otp until otp.ExpiresAt.
	Replace(ctx context.Context, otp models.OTP) error

	// Take returns and deletes the code of email. ErrNotFound when there is none.
	Take(ctx context.Context, email string) (models.OTP, error)
}

type CollegeStore interface {
	Create(ctx context.Context, college *models.College) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.College, error)
	List(ctx context.Context, ids ...primitive.ObjectID) ([]models.College, error)
	AdjustAdminCount(ctx context.Context, id primitive.ObjectID, delta int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Expired reports whether a record that expires at t is no longer usable.
func Expired(t time.Time, now time.Time) bool {
	return !now.Before(t)
}
