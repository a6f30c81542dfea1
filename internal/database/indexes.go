package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campushub/internal/logger"
	"campushub/internal/store"
)

// EnsureAccountIndexes creates the unique username and email indexes of an account collection.
func EnsureAccountIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	return createIndexes(ctx, db.Collection(collection),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("username_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "collegeId", Value: 1}},
			Options: options.Index().SetName("collegeId_index").SetSparse(true),
		},
	)
}

// EnsureOTPIndexes lets mongo purge expired codes on its own and keeps one code per email.
// Expiry is still checked on read since the TTL monitor runs about once a minute.
func EnsureOTPIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	return createIndexes(ctx, db.Collection(collection),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	)
}

func EnsureCollegeIndexes(ctx context.Context, db *mongo.Database) error {
	return createIndexes(ctx, db.Collection(store.CollegesCollection),
		mongo.IndexModel{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetName("name_unique").
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
	)
}

// EnsureIndexes bootstraps every collection of the service.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log logger.Logger) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{store.AdminsCollection, func(ctx context.Context) error { return EnsureAccountIndexes(ctx, db, store.AdminsCollection) }},
		{store.UsersCollection, func(ctx context.Context) error { return EnsureAccountIndexes(ctx, db, store.UsersCollection) }},
		{store.OTPCollection, func(ctx context.Context) error { return EnsureOTPIndexes(ctx, db, store.OTPCollection) }},
		{store.AdminOTPCollection, func(ctx context.Context) error { return EnsureOTPIndexes(ctx, db, store.AdminOTPCollection) }},
		{store.CollegesCollection, func(ctx context.Context) error { return EnsureCollegeIndexes(ctx, db) }},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("indexes of %s: %w", step.name, err)
		}
		log.Debug("indexes ensured", "collection", step.name)
	}
	return nil
}

func createIndexes(ctx context.Context, coll *mongo.Collection, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
