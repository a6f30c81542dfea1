package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campushub/internal/models"
	"campushub/internal/store"
)

type CollegeStore struct {
	coll *mongo.Collection
}

func NewCollegeStore(db *mongo.Database) *CollegeStore {
	return &CollegeStore{coll: db.Collection(store.CollegesCollection)}
}

var _ store.CollegeStore = (*CollegeStore)(nil)

func (s *CollegeStore) Create(ctx context.Context, college *models.College) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	if college.ID.IsZero() {
		college.ID = primitive.NewObjectID()
	}
	college.CreatedAt = now
	college.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, college); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *CollegeStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.College, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var college models.College
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&college); err != nil {
		return models.College{}, mapError(err)
	}
	return college, nil
}

func (s *CollegeStore) List(ctx context.Context, ids ...primitive.ObjectID) ([]models.College, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	colleges := []models.College{}
	if err := cursor.All(ctx, &colleges); err != nil {
		return nil, fmt.Errorf("decode colleges: %w", err)
	}
	return colleges, nil
}

func (s *CollegeStore) AdjustAdminCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"adminCount": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CollegeStore) Delete(ctx context.Context, id primitive.ObjectID) error {
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
