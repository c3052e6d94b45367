package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(tx *gorm.DB, category *model.Category) error
	List(ctx context.Context, page, pageSize int) (*model.Page[model.Category], error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	Update(tx *gorm.DB, category *model.Category) error
	Delete(tx *gorm.DB, id uuid.UUID) error
	// CountProducts includes archived products, which still hold the reference.
	CountProducts(tx *gorm.DB, id uuid.UUID) (int64, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) Create(tx *gorm.DB, category *model.Category) error {
	return tx.Create(category).Error
}

func (r *categoryRepo) List(ctx context.Context, page, pageSize int) (*model.Page[model.Category], error) {
	out := &model.Page[model.Category]{Page: page, PageSize: pageSize}
	db := r.db.WithContext(ctx).Model(&model.Category{})
	if err := db.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	err := db.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&out.Items).Error
	return out, err
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exclude).
		Count(&n).Error
	return n > 0, err
}

func (r *categoryRepo) Update(tx *gorm.DB, category *model.Category) error {
	return tx.Save(category).Error
}

func (r *categoryRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Category{}, "id = ?", id).Error
}

func (r *categoryRepo) CountProducts(tx *gorm.DB, id uuid.UUID) (int64, error) {
	var n int64
	err := tx.Unscoped().Model(&model.Product{}).Where("category_id = ?", id).Count(&n).Error
	return n, err
}
