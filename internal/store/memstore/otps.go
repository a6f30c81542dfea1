package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"campushub/internal/models"
	"campushub/internal/store"
)

// OTPStore expires codes lazily: an expired code is dropped when it is looked at.
type OTPStore struct {
	mu   sync.Mutex
	otps map[string]models.OTP
	now  func() time.Time
}

func NewOTPStore() *OTPStore {
	return &OTPStore{otps: make(map[string]models.OTP), now: time.Now}
}

var _ store.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) Replace(_ context.Context, otp models.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	otp.Email = strings.ToLower(otp.Email)
	s.otps[otp.Email] = otp
	return nil
}

func (s *OTPStore) Take(_ context.Context, email string) (models.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	otp, ok := s.otps[email]
	if !ok {
		return models.OTP{}, store.ErrNotFound
	}
	delete(s.otps, email)

	if store.Expired(otp.ExpiresAt, s.now()) {
		return models.OTP{}, store.ErrNotFound
	}
	return otp, nil
}
