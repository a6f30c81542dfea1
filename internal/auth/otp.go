package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"campushub/internal/apperrors"
	"campushub/internal/logger"
	"campushub/internal/models"
	"campushub/internal/store"
)

const (
	defaultOTPTTL = 10 * time.Minute
	otpDigits     = 6
)

var otpRange = big.NewInt(1_000_000)

// CodeSender delivers a passcode to its owner.
type CodeSender interface {
	SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error
}

// OTPService issues single-use numeric passcodes to accounts of one tenant.
type OTPService struct {
	otps     store.OTPStore
	accounts store.AccountStore
	sender   CodeSender
	ttl      time.Duration
	log      logger.Logger
	key      []byte

	now    func() time.Time
	random io.Reader
}

func NewOTPService(
	tenant Tenant,
	otps store.OTPStore,
	accounts store.AccountStore,
	sender CodeSender,
	ttl time.Duration,
	log logger.Logger,
) *OTPService {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPService{
		otps:     otps,
		accounts: accounts,
		sender:   sender,
		ttl:      ttl,
		log:      log.With("component", "otp", "tenant", tenant.Name),
		key:      otpKey(tenant),
		now:      time.Now,
		random:   rand.Reader,
	}
}

// Issue replaces any earlier code of email with a fresh one and sends it.
func (s *OTPService) Issue(ctx context.Context, email string) (time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return time.Time{}, apperrors.ErrValidation
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, apperrors.ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("find account: %w", err)
	}

	code, err := s.generate()
	if err != nil {
		return time.Time{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	err = s.otps.Replace(ctx, models.OTP{
		Email:     email,
		CodeHash:  s.hashCode(email, code),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, email, code, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("send otp: %w", err)
	}

	s.log.Info("otp issued", "expires_at", expiresAt)
	return expiresAt, nil
}

// Verify burns the stored code of email whatever the outcome, so every code
// gets exactly one guess.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperrors.ErrInvalidOTP
	}

	otp, err := s.otps.Take(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	if store.Expired(otp.ExpiresAt, s.now()) {
		return apperrors.ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(otp.CodeHash), []byte(s.hashCode(email, code))) != 1 {
		s.log.Info("otp mismatch, code burned")
		return apperrors.ErrInvalidOTP
	}
	return nil
}

func (s *OTPService) generate() (string, error) {
	n, err := rand.Int(s.random, otpRange)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// hashCode is HMAC-SHA256 of email:code under the tenant key.
func (s *OTPService) hashCode(email, code string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(email + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

// otpKey derives the code hashing key from the tenant refresh secret.
func otpKey(tenant Tenant) []byte {
	mac := hmac.New(sha256.New, []byte(tenant.RefreshSecret))
	mac.Write([]byte("otp:" + tenant.Name))
	return mac.Sum(nil)
}
