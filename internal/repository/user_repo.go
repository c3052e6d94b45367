package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	FindByRole(ctx context.Context, roleCode string) ([]model.User, error)
	// Taken reports whether username or email is used by a user other than exclude.
	Taken(ctx context.Context, username, email string, exclude uuid.UUID) (usernameTaken, emailTaken bool, err error)

	// LockByID takes a row lock on the user inside tx.
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.User, error)
	Create(tx *gorm.DB, user *model.User) error
	Update(tx *gorm.DB, user *model.User) error
	ReplacePermissions(tx *gorm.DB, user *model.User, permissions []model.Permission) error
	Delete(tx *gorm.DB, id uuid.UUID) error
	UpdatePassword(tx *gorm.DB, userID uuid.UUID, hashedPassword string) error
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Role").Preload("Permissions")
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.preloaded(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.preloaded(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.preloaded(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.preloaded(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) FindByRole(ctx context.Context, roleCode string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.code = ?", roleCode).
		Find(&users).Error
	return users, err
}

func (r *userRepo) Taken(ctx context.Context, username, email string, exclude uuid.UUID) (bool, bool, error) {
	db := r.db.WithContext(ctx).Model(&model.User{}).Where("id <> ?", exclude)

	var n int64
	if err := db.Session(&gorm.Session{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, false, err
	}
	usernameTaken := n > 0

	if err := db.Session(&gorm.Session{}).Where("LOWER(email) = LOWER(?)", email).Count(&n).Error; err != nil {
		return false, false, err
	}
	return usernameTaken, n > 0, nil
}

func (r *userRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(tx *gorm.DB, user *model.User) error {
	return tx.Create(user).Error
}

func (r *userRepo) Update(tx *gorm.DB, user *model.User) error {
	return tx.Omit(clause.Associations).Save(user).Error
}

func (r *userRepo) ReplacePermissions(tx *gorm.DB, user *model.User, permissions []model.Permission) error {
	return tx.Model(user).Association("Permissions").Replace(permissions)
}

func (r *userRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	user := model.User{BaseModel: model.BaseModel{ID: id}}
	if err := tx.Model(&user).Association("Permissions").Clear(); err != nil {
		return err
	}
	for _, dep := range []any{&model.Session{}, &model.UserOTP{}, &model.PasswordReset{}} {
		if err := tx.Where("user_id = ?", id).Delete(dep).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&model.User{}, "id = ?", id).Error
}

func (r *userRepo) UpdatePassword(tx *gorm.DB, userID uuid.UUID, hashedPassword string) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).Update("password", hashedPassword).Error
}

func (r *userRepo) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("totp_secret", secret).Error
}
