// Package memstore is an in-process implementation of the store contracts.
// It backs the test suites and the STORE_BACKEND=memory development mode.
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

type AccountStore struct {
	mu       sync.RWMutex
	accounts map[primitive.ObjectID]models.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[primitive.ObjectID]models.Account)}
}

var _ store.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Username, account.Username) || strings.EqualFold(a.Email, account.Email) {
			return store.ErrDuplicate
		}
	}

	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Revision = 0
	s.accounts[account.ID] = account.Clone()
	return nil
}

func (s *AccountStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, store.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *AccountStore) FindByIdentifier(_ context.Context, identifier string) (models.Account, error) {
	return s.find(func(a models.Account) bool {
		return a.Username == identifier || a.Email == strings.ToLower(identifier)
	})
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	return s.find(func(a models.Account) bool {
		return a.Email == strings.ToLower(email)
	})
}

func (s *AccountStore) find(match func(models.Account) bool) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return models.Account{}, store.ErrNotFound
}

func (s *AccountStore) List(_ context.Context, filter store.AccountFilter) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.CollegeID != nil && (a.CollegeID == nil || *a.CollegeID != *filter.CollegeID) {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *AccountStore) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Revision != account.Revision {
		return store.ErrRevisionConflict
	}
	for id, a := range s.accounts {
		if id == account.ID {
			continue
		}
		if strings.EqualFold(a.Username, account.Username) || strings.EqualFold(a.Email, account.Email) {
			return store.ErrDuplicate
		}
	}

	account.Revision++
	account.UpdatedAt = time.Now()
	s.accounts[account.ID] = account.Clone()
	return nil
}

func (s *AccountStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *AccountStore) DeleteByCollege(_ context.Context, collegeID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.accounts {
		if a.CollegeID != nil && *a.CollegeID == collegeID {
			delete(s.accounts, id)
			n++
		}
	}
	return n, nil
}

func (s *AccountStore) Ping(context.Context) error { return nil }
