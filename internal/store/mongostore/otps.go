package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"campushub/internal/models"
	"campushub/internal/store"
)

// OTPStore relies on the indexes of database.EnsureOTPIndexes: a TTL index on
// expiresAt purges rows and a unique email index keeps one row per email.
type OTPStore struct {
	coll *mongo.Collection
}

func NewOTPStore(db *mongo.Database, collection string) *OTPStore {
	return &OTPStore{coll: db.Collection(collection)}
}

var _ store.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) Replace(ctx context.Context, otp models.OTP) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	otp.Email = strings.ToLower(otp.Email)
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"email": otp.Email}
	_, err := s.coll.ReplaceOne(ctx, filter, otp, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted the document first.
		_, err = s.coll.ReplaceOne(ctx, filter, otp)
	}
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Take deletes the code while reading it, so a code can be looked at once only.
func (s *OTPStore) Take(ctx context.Context, email string) (models.OTP, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var otp models.OTP
	err := s.coll.FindOneAndDelete(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&otp)
	if err != nil {
		return models.OTP{}, mapError(err)
	}

	if store.Expired(otp.ExpiresAt, time.Now()) {
		return models.OTP{}, store.ErrNotFound
	}
	return otp, nil
}

func ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return client.Ping(ctx, readpref.Primary())
}
