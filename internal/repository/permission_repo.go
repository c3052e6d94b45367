package repository

import (
	"context"
	"errors"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PermissionRepository interface {
	FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error)
	FindAll(ctx context.Context) ([]model.Permission, error)
	// UserHas reports whether userID holds code through roleID or an explicit grant.
	UserHas(ctx context.Context, userID uuid.UUID, roleID *uint, code string) (bool, error)
	// EffectiveCodes returns the union of role-implied and explicitly granted codes.
	EffectiveCodes(ctx context.Context, userID uuid.UUID, roleID *uint) ([]string, error)
	SeedDefaults(ctx context.Context) error
}

type permissionRepo struct {
	db *gorm.DB
}

func NewPermissionRepo(db *gorm.DB) PermissionRepository {
	return &permissionRepo{db}
}

func (r *permissionRepo) FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	var permissions []model.Permission
	if len(codes) == 0 {
		return permissions, nil
	}
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *permissionRepo) FindAll(ctx context.Context) ([]model.Permission, error) {
	var permissions []model.Permission
	if err := r.db.WithContext(ctx).Order("code").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *permissionRepo) UserHas(ctx context.Context, userID uuid.UUID, roleID *uint, code string) (bool, error) {
	db := r.db.WithContext(ctx)

	var explicit int64
	err := db.Table("user_permissions").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND permissions.code = ?", userID, code).
		Count(&explicit).Error
	if err != nil {
		return false, err
	}
	if explicit > 0 || roleID == nil {
		return explicit > 0, nil
	}

	var implied int64
	err = db.Table("role_permissions").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ? AND permissions.code = ?", *roleID, code).
		Count(&implied).Error
	if err != nil {
		return false, err
	}
	return implied > 0, nil
}

func (r *permissionRepo) EffectiveCodes(ctx context.Context, userID uuid.UUID, roleID *uint) ([]string, error) {
	db := r.db.WithContext(ctx)

	var codes []string
	err := db.Table("user_permissions").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, err
	}
	if roleID != nil {
		var implied []string
		err = db.Table("role_permissions").
			Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
			Where("role_permissions.role_id = ?", *roleID).
			Pluck("permissions.code", &implied).Error
		if err != nil {
			return nil, err
		}
		codes = append(codes, implied...)
	}

	seen := make(map[string]bool, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// SeedDefaults creates default permissions if they don't exist
func (r *permissionRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	for _, p := range model.DefaultPermissions {
		var existing model.Permission
		err := db.Where("code = ?", p.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p := p
			if err := db.Create(&p).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
