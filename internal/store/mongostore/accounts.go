// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campushub/internal/models"
	"campushub/internal/store"
)

const queryTimeout = 5 * time.Second

type AccountStore struct {
	coll *mongo.Collection
}

// NewAccountStore binds the store to one tenant collection (store.AdminsCollection or store.UsersCollection).
func NewAccountStore(db *mongo.Database, collection string) *AccountStore {
	return &AccountStore{coll: db.Collection(collection)}
}

var _ store.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Revision = 0
	if account.RefreshTokens == nil {
		account.RefreshTokens = []models.RefreshTokenRecord{}
	}

	if _, err := s.coll.InsertOne(ctx, account); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *AccountStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *AccountStore) FindByIdentifier(ctx context.Context, identifier string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": strings.ToLower(identifier)},
	}})
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *AccountStore) findOne(ctx context.Context, filter bson.M) (models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var account models.Account
	if err := s.coll.FindOne(ctx, filter).Decode(&account); err != nil {
		return models.Account{}, mapError(err)
	}
	return account, nil
}

func (s *AccountStore) List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.CollegeID != nil {
		query["collegeId"] = *filter.CollegeID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	accounts := []models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return accounts, nil
}

// Update replaces the mutable fields when the stored revision still matches.
func (s *AccountStore) Update(ctx context.Context, account *models.Account) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	tokens := account.RefreshTokens
	if tokens == nil {
		tokens = []models.RefreshTokenRecord{}
	}

	set := bson.M{
		"username":       account.Username,
		"email":          account.Email,
		"passwordHash":   account.PasswordHash,
		"role":           account.Role,
		"terminated":     account.Terminated,
		"emailVerified":  account.EmailVerified,
		"sessionVersion": account.SessionVersion,
		"refreshTokens":  tokens,
		"evictedJtis":    account.EvictedJTIs,
		"updatedAt":      now,
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"revision": 1},
	}
	if account.CollegeID != nil {
		set["collegeId"] = *account.CollegeID
	} else {
		update["$unset"] = bson.M{"collegeId": ""}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": account.ID, "revision": account.Revision}, update)
	if err != nil {
		return mapError(err)
	}

	if res.MatchedCount == 0 {
		count, err := s.coll.CountDocuments(ctx, bson.M{"_id": account.ID})
		if err != nil {
			return mapError(err)
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrRevisionConflict
	}

	account.Revision++
	account.UpdatedAt = now
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *AccountStore) DeleteByCollege(ctx context.Context, collegeID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.coll.DeleteMany(ctx, bson.M{"collegeId": collegeID})
	if err != nil {
		return 0, mapError(err)
	}
	return res.DeletedCount, nil
}

func (s *AccountStore) Ping(ctx context.Context) error {
	return ping(ctx, s.coll.Database().Client())
}

func mapError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return fmt.Errorf("mongo: %w", err)
	}
}
