package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	CreateItem(tx *gorm.DB, item *model.SaleItem) error
	UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, page, pageSize int) (*model.Page[model.Sale], error)
	CountByProduct(tx *gorm.DB, productID uuid.UUID) (int64, error)
	CountByUser(tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return tx.Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepo) CreateItem(tx *gorm.DB, item *model.SaleItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return tx.Omit(clause.Associations).Create(item).Error
}

func (r *saleRepo) UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error {
	return tx.Model(&model.Sale{}).Where("id = ?", id).Update("total", total).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) List(ctx context.Context, page, pageSize int) (*model.Page[model.Sale], error) {
	out := &model.Page[model.Sale]{Page: page, PageSize: pageSize}
	db := r.db.WithContext(ctx).Model(&model.Sale{})
	if err := db.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	err := db.Preload("User").Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&out.Items).Error
	return out, err
}

func (r *saleRepo) CountByProduct(tx *gorm.DB, productID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.SaleItem{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}

func (r *saleRepo) CountByUser(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.Sale{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
