package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campushub/internal/models"
	"campushub/internal/store"
)

type CollegeStore struct {
	mu       sync.RWMutex
	colleges map[primitive.ObjectID]models.College
}

func NewCollegeStore() *CollegeStore {
	return &CollegeStore{colleges: make(map[primitive.ObjectID]models.College)}
}

var _ store.CollegeStore = (*CollegeStore)(nil)

func (s *CollegeStore) Create(_ context.Context, college *models.College) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.colleges {
		if strings.EqualFold(c.Name, college.Name) {
			return store.ErrDuplicate
		}
	}

	if college.ID.IsZero() {
		college.ID = primitive.NewObjectID()
	}
	now := time.Now()
	college.CreatedAt = now
	college.UpdatedAt = now
	s.colleges[college.ID] = *college
	return nil
}

func (s *CollegeStore) FindByID(_ context.Context, id primitive.ObjectID) (models.College, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.colleges[id]
	if !ok {
		return models.College{}, store.ErrNotFound
	}
	return c, nil
}

func (s *CollegeStore) List(_ context.Context, ids ...primitive.ObjectID) ([]models.College, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.College, 0, len(s.colleges))
	for id, c := range s.colleges {
		if len(ids) > 0 && !containsID(ids, id) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CollegeStore) AdjustAdminCount(_ context.Context, id primitive.ObjectID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.colleges[id]
	if !ok {
		return store.ErrNotFound
	}
	c.AdminCount += delta
	c.UpdatedAt = time.Now()
	s.colleges[id] = c
	return nil
}

func (s *CollegeStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.colleges[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.colleges, id)
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
