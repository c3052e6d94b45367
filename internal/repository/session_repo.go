package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	// LockActiveByUser returns the user's active sessions, newest activity first, locked for update.
	LockActiveByUser(tx *gorm.DB, userID uuid.UUID) ([]model.Session, error)
	LockByTokenHash(tx *gorm.DB, tokenHash string) (*model.Session, error)
	Create(tx *gorm.DB, session *model.Session) error
	Save(tx *gorm.DB, session *model.Session) error

	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByUser(tx *gorm.DB, userID uuid.UUID) error
	// FindActive reads active sessions without taking locks.
	FindActive(ctx context.Context) ([]model.Session, error)
	// ExpireIfIdle deactivates the session only if it is still active and
	// its last activity is before cutoff. Returns whether a row changed.
	ExpireIfIdle(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db}
}

func (r *sessionRepo) LockActiveByUser(tx *gorm.DB, userID uuid.UUID) ([]model.Session, error) {
	var sessions []model.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND active = ?", userID, true).
		Order("last_activity DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) LockByTokenHash(tx *gorm.DB, tokenHash string) (*model.Session, error) {
	var session model.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_hash = ?", tokenHash).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Create(tx *gorm.DB, session *model.Session) error {
	return tx.Create(session).Error
}

func (r *sessionRepo) Save(tx *gorm.DB, session *model.Session) error {
	return tx.Omit(clause.Associations).Save(session).Error
}

func (r *sessionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *sessionRepo) DeactivateByUser(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&model.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false).Error
}

func (r *sessionRepo) FindActive(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "last_activity", "timeout_seconds", "active").
		Where("active = ?", true).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ExpireIfIdle(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND active = ? AND last_activity < ?", id, true, cutoff).
		Update("active", false)
	return res.RowsAffected > 0, res.Error
}
