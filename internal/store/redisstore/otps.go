// Package redisstore keeps one-time passcodes in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"campushub/internal/models"
	"campushub/internal/store"
)

// OTPStore writes each code under otp:<prefix>:<email> with the code's own expiry,
// so Redis drops expired codes without any sweeper.
type OTPStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewOTPStore scopes keys by prefix, one prefix per tenant.
func NewOTPStore(rdb redis.UniversalClient, prefix string) *OTPStore {
	return &OTPStore{rdb: rdb, prefix: prefix, now: time.Now}
}

var _ store.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) key(email string) string {
	return "otp:" + s.prefix + ":" + strings.ToLower(email)
}

func (s *OTPStore) Replace(ctx context.Context, otp models.OTP) error {
	otp.Email = strings.ToLower(otp.Email)
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = s.now().UTC()
	}

	ttl := otp.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.rdb.Del(ctx, s.key(otp.Email)).Err()
	}

	payload, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}

	// SET overwrites, which discards any previous code of the email.
	if err := s.rdb.Set(ctx, s.key(otp.Email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Take(ctx context.Context, email string) (models.OTP, error) {
	payload, err := s.rdb.GetDel(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.OTP{}, store.ErrNotFound
	}
	if err != nil {
		return models.OTP{}, fmt.Errorf("redis getdel otp: %w", err)
	}

	var otp models.OTP
	if err := json.Unmarshal(payload, &otp); err != nil {
		return models.OTP{}, fmt.Errorf("decode otp: %w", err)
	}
	if store.Expired(otp.ExpiresAt, s.now()) {
		return models.OTP{}, store.ErrNotFound
	}
	return otp, nil
}

func (s *OTPStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
