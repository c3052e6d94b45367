package service

import (
	"context"
	"log/slog"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/mail"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const passwordRule = "password must be at least 8 characters with upper-case, lower-case, digit and symbol"

// RecoveryService handles forgotten credentials and password changes.
type RecoveryService interface {
	// RequestPasswordReset mails a single-use token. Unknown emails succeed
	// silently so the endpoint cannot be used to probe for accounts.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error
	RecoverUsername(ctx context.Context, email string) error
}

type recoveryService struct {
	db       *gorm.DB
	users    repository.UserRepository
	otps     repository.OTPRepository
	sessions SessionService
	hasher   *PasswordHasher
	mailer   mail.Mailer
	ttl      time.Duration
	now      func() time.Time
}

func NewRecoveryService(db *gorm.DB, users repository.UserRepository, otps repository.OTPRepository, sessions SessionService, hasher *PasswordHasher, mailer mail.Mailer, ttl time.Duration) RecoveryService {
	return &recoveryService{
		db:       db,
		users:    users,
		otps:     otps,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *recoveryService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if isNotFound(err) {
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return apperr.Internal(err, "load user")
	}

	token, err := newSecretToken()
	if err != nil {
		return apperr.Internal(err, "generate reset token")
	}
	reset := &model.PasswordReset{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.otps.ReplaceReset(ctx, reset); err != nil {
		return apperr.Internal(err, "store reset token")
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token, s.ttl); err != nil {
		slog.Warn("password reset mail failed", "user_id", user.ID, "err", err)
	}
	return nil
}

func (s *recoveryService) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.otps.FindResetByHash(ctx, hashToken(token))
	if isNotFound(err) {
		return apperr.NotFound("reset token is invalid or already used")
	}
	if err != nil {
		return apperr.Internal(err, "load reset token")
	}
	if s.now().After(reset.ExpiresAt) {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := s.otps.ConsumeReset(tx, reset.ID)
			return err
		})
		if err != nil {
			return apperr.Internal(err, "delete expired reset token")
		}
		return apperr.AuthenticationFailed("reset token expired")
	}
	// A weak password leaves the token usable for another attempt.
	if !validator.StrongPassword(newPassword) {
		return apperr.Validation(passwordRule)
	}

	hashed, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return apperr.Internal(err, "hash password")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := s.otps.ConsumeReset(tx, reset.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return apperr.NotFound("reset token is invalid or already used")
		}
		if err := s.users.UpdatePassword(tx, reset.UserID, hashed); err != nil {
			return err
		}
		return s.sessions.CloseAllForUser(tx, reset.UserID)
	})
	if err != nil {
		return classify(err, "reset password")
	}
	slog.Info("password reset", "user_id", reset.UserID)
	return nil
}

func (s *recoveryService) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	ok, err := s.hasher.Compare(ctx, user.Password, oldPassword)
	if err != nil {
		return apperr.Internal(err, "verify password")
	}
	if !ok {
		return apperr.AuthenticationFailed("current password is incorrect")
	}
	if !validator.StrongPassword(newPassword) {
		return apperr.Validation(passwordRule)
	}

	hashed, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return apperr.Internal(err, "hash password")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.users.UpdatePassword(tx, user.ID, hashed)
	})
	if err != nil {
		return apperr.Internal(err, "update password")
	}
	user.Password = hashed
	return nil
}

func (s *recoveryService) RecoverUsername(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return apperr.Internal(err, "load user")
	}
	if err := s.mailer.SendUsernameRecovery(ctx, user.Email, user.Username); err != nil {
		slog.Warn("username recovery mail failed", "user_id", user.ID, "err", err)
	}
	return nil
}
