package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	Create(tx *gorm.DB, purchase *model.Purchase) error
	CreateItem(tx *gorm.DB, item *model.PurchaseItem) error
	UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	List(ctx context.Context, page, pageSize int) (*model.Page[model.Purchase], error)
	CountByProduct(tx *gorm.DB, productID uuid.UUID) (int64, error)
	CountByUser(tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type purchaseRepo struct {
	db *gorm.DB
}

func NewPurchaseRepo(db *gorm.DB) PurchaseRepository {
	return &purchaseRepo{db}
}

func (r *purchaseRepo) Create(tx *gorm.DB, purchase *model.Purchase) error {
	return tx.Omit(clause.Associations).Create(purchase).Error
}

func (r *purchaseRepo) CreateItem(tx *gorm.DB, item *model.PurchaseItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return tx.Omit(clause.Associations).Create(item).Error
}

func (r *purchaseRepo) UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error {
	return tx.Model(&model.Purchase{}).Where("id = ?", id).Update("total", total).Error
}

func (r *purchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepo) List(ctx context.Context, page, pageSize int) (*model.Page[model.Purchase], error) {
	out := &model.Page[model.Purchase]{Page: page, PageSize: pageSize}
	db := r.db.WithContext(ctx).Model(&model.Purchase{})
	if err := db.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	err := db.Preload("User").Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&out.Items).Error
	return out, err
}

func (r *purchaseRepo) CountByProduct(tx *gorm.DB, productID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.PurchaseItem{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}

func (r *purchaseRepo) CountByUser(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.Purchase{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
