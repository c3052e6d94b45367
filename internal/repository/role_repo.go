package repository

import (
	"context"
	"errors"

	"go-inventory-pos/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	// SeedDefaults creates the default roles and assigns their permissions
	// the first time they are seen.
	SeedDefaults(ctx context.Context) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var all []model.Permission
		if err := tx.Find(&all).Error; err != nil {
			return err
		}

		for _, defaultRole := range model.DefaultRoles {
			var existing model.Role
			err := tx.Where("code = ?", defaultRole.Code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			role := defaultRole
			role.Permissions = rolePermissions(role.Code, all)
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func rolePermissions(code string, all []model.Permission) []model.Permission {
	if code == model.RoleAdmin {
		return all
	}
	allowed := make(map[string]bool, len(model.DefaultUserPermissions))
	for _, c := range model.DefaultUserPermissions {
		allowed[c] = true
	}
	var out []model.Permission
	for _, p := range all {
		if allowed[p.Code] {
			out = append(out, p)
		}
	}
	return out
}
