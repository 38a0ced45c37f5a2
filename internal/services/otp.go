package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

const defaultOTPTTL = 2 * time.Minute

// OTPService issues and verifies one-time passcodes, one outstanding code
// per user.
type OTPService struct {
	store       storage.OTPStore
	ttl         time.Duration
	maxAttempts int
	generate    func() (string, error)
	now         func() time.Time
}

// NewOTPService creates an issuer/verifier. A zero ttl reads OTP_TTL and
// falls back to two minutes.
func NewOTPService(store storage.OTPStore, ttl time.Duration) *OTPService {
	if ttl <= 0 {
		if d, err := time.ParseDuration(os.Getenv("OTP_TTL")); err == nil && d > 0 {
			ttl = d
		} else {
			ttl = defaultOTPTTL
		}
	}
	return &OTPService{
		store:       store,
		ttl:         ttl,
		maxAttempts: models.MaxOTPAttempts,
		generate:    utils.GenerateSecureOTP,
		now:         time.Now,
	}
}

// Issue creates a new code for userID, replacing any pending one.
func (s *OTPService) Issue(ctx context.Context, userID string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	now := s.now()
	record := &models.OTPRecord{
		UserID:      userID,
		CodeHash:    utils.HashOTP(userID, code),
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.SaveOTP(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	log.Printf("🔐 OTP issued for %s (expires %s)", userID, record.ExpiresAt.Format(time.RFC3339))
	return code, nil
}

// Verify checks code against the pending record. A match consumes the
// record; a mismatch spends one attempt and consumes the record once no
// attempts remain. A missing or expired record yields (false, 0).
func (s *OTPService) Verify(ctx context.Context, userID, code string) (bool, int, error) {
	record, err := s.store.GetOTP(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to load OTP: %w", err)
	}

	if record.Expired(s.now()) {
		if err := s.store.DeleteOTP(ctx, userID); err != nil {
			return false, 0, fmt.Errorf("failed to delete expired OTP: %w", err)
		}
		return false, 0, nil
	}

	if utils.OTPMatches(userID, code, record.CodeHash) {
		if err := s.store.DeleteOTP(ctx, userID); err != nil {
			return false, 0, fmt.Errorf("failed to consume OTP: %w", err)
		}
		return true, remainingAttempts(record), nil
	}

	record.Attempts++
	left := remainingAttempts(record)
	if left == 0 {
		err = s.store.DeleteOTP(ctx, userID)
	} else {
		err = s.store.SaveOTP(ctx, record)
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to record OTP attempt: %w", err)
	}
	return false, left, nil
}

// Discard drops the pending record for userID, if any.
func (s *OTPService) Discard(ctx context.Context, userID string) error {
	if err := s.store.DeleteOTP(ctx, userID); err != nil {
		return fmt.Errorf("failed to discard OTP: %w", err)
	}
	return nil
}

// PurgeExpired removes records past their expiry.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredOTPs(ctx, s.now())
}

func remainingAttempts(record *models.OTPRecord) int {
	left := record.MaxAttempts - record.Attempts
	if left < 0 {
		return 0
	}
	return left
}
