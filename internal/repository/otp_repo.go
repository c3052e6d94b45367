package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPRepository stores one-time email codes and password reset tokens.
// Both are single-use secrets: Consume deletes the row and reports whether
// this caller was the one that removed it.
type OTPRepository interface {
	ReplaceOTP(ctx context.Context, otp *model.UserOTP) error
	FindOTP(ctx context.Context, userID uuid.UUID) (*model.UserOTP, error)
	ConsumeOTP(ctx context.Context, id uuid.UUID) (bool, error)

	ReplaceReset(ctx context.Context, reset *model.PasswordReset) error
	FindResetByHash(ctx context.Context, tokenHash string) (*model.PasswordReset, error)
	ConsumeReset(tx *gorm.DB, id uuid.UUID) (bool, error)
}

type otpRepo struct {
	db *gorm.DB
}

func NewOTPRepo(db *gorm.DB) OTPRepository {
	return &otpRepo{db}
}

// ReplaceOTP purges any earlier code for the user and stores otp.
func (r *otpRepo) ReplaceOTP(ctx context.Context, otp *model.UserOTP) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", otp.UserID).Delete(&model.UserOTP{}).Error; err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
}

func (r *otpRepo) FindOTP(ctx context.Context, userID uuid.UUID) (*model.UserOTP, error) {
	var otp model.UserOTP
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepo) ConsumeOTP(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UserOTP{})
	return res.RowsAffected == 1, res.Error
}

// ReplaceReset purges earlier reset tokens for the user and stores reset.
func (r *otpRepo) ReplaceReset(ctx context.Context, reset *model.PasswordReset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", reset.UserID).Delete(&model.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
}

func (r *otpRepo) FindResetByHash(ctx context.Context, tokenHash string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *otpRepo) ConsumeReset(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Where("id = ?", id).Delete(&model.PasswordReset{})
	return res.RowsAffected == 1, res.Error
}
