package service

import (
	"context"
	"crypto/subtle"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"github.com/google/uuid"
)

// OTPService issues and checks email login codes. A user has at most one
// live code; issuing a new one deletes the previous.
type OTPService interface {
	Generate(ctx context.Context, userID uuid.UUID) (string, error)
	// Verify consumes the user's code. It fails with NotFound when no code
	// is pending and AuthenticationFailed when the code is wrong or expired.
	Verify(ctx context.Context, userID uuid.UUID, code string) error
}

type otpService struct {
	repo   repository.OTPRepository
	length int
	ttl    time.Duration
	now    func() time.Time
}

func NewOTPService(repo repository.OTPRepository, length int, ttl time.Duration) OTPService {
	return &otpService{repo: repo, length: length, ttl: ttl, now: time.Now}
}

func (s *otpService) Generate(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := randomDigits(s.length)
	if err != nil {
		return "", apperr.Internal(err, "generate otp")
	}
	otp := &model.UserOTP{
		ID:        uuid.New(),
		UserID:    userID,
		CodeHash:  hashToken(code),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.ReplaceOTP(ctx, otp); err != nil {
		return "", apperr.Internal(err, "store otp")
	}
	return code, nil
}

func (s *otpService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	otp, err := s.repo.FindOTP(ctx, userID)
	if isNotFound(err) {
		return apperr.NotFound("no pending verification code")
	}
	if err != nil {
		return apperr.Internal(err, "load otp")
	}

	if s.now().After(otp.ExpiresAt) {
		if _, err := s.repo.ConsumeOTP(ctx, otp.ID); err != nil {
			return apperr.Internal(err, "delete expired otp")
		}
		return apperr.AuthenticationFailed("verification code expired")
	}

	if subtle.ConstantTimeCompare([]byte(hashToken(code)), []byte(otp.CodeHash)) != 1 {
		return apperr.AuthenticationFailed("invalid verification code")
	}

	consumed, err := s.repo.ConsumeOTP(ctx, otp.ID)
	if err != nil {
		return apperr.Internal(err, "consume otp")
	}
	// Lost a race with a concurrent verification of the same code.
	if !consumed {
		return apperr.AuthenticationFailed("invalid verification code")
	}
	return nil
}
