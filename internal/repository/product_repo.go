package repository

import (
	"context"
	"errors"
	"strings"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows a product listing. Zero values mean no filter.
type ProductFilter struct {
	Category string
	Name     string
	Page     int
	PageSize int
}

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	List(ctx context.Context, filter ProductFilter) (*model.Page[model.Product], error)
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	FindBelowMinimum(ctx context.Context) ([]model.Product, error)
	// Taken reports whether code or barcode belongs to a product other than exclude.
	Taken(ctx context.Context, code string, barcode *string, exclude uuid.UUID) (codeTaken, barcodeTaken bool, err error)

	// LockByCode locks the product whose code matches exactly.
	LockByCode(tx *gorm.DB, code string) (*model.Product, error)
	// LockByRef resolves ref as a product code first, then as a barcode.
	LockByRef(tx *gorm.DB, ref string) (*model.Product, error)
	Update(tx *gorm.DB, product *model.Product) error
	UpdateInventory(tx *gorm.DB, id uuid.UUID, inventory int, updatedBy string) error
	Delete(tx *gorm.DB, id uuid.UUID) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return tx.Omit(clause.Associations).Create(product).Error
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) (*model.Page[model.Product], error) {
	out := &model.Page[model.Product]{Page: filter.Page, PageSize: filter.PageSize}

	db := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Category != "" {
		db = db.Joins("JOIN categories ON categories.id = products.category_id").
			Where("LOWER(categories.name) = LOWER(?)", filter.Category)
	}
	if filter.Name != "" {
		db = db.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}

	if err := db.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	err := db.Preload("Category").
		Order("products.name").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out.Items).Error
	return out, err
}

func (r *productRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&product, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBelowMinimum(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("inventory < min_inventory").
		Order("name").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Taken(ctx context.Context, code string, barcode *string, exclude uuid.UUID) (bool, bool, error) {
	// Archived products keep their unique keys.
	db := r.db.WithContext(ctx).Unscoped().Model(&model.Product{}).Where("id <> ?", exclude)

	var n int64
	if err := db.Session(&gorm.Session{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, false, err
	}
	codeTaken := n > 0
	if barcode == nil || *barcode == "" {
		return codeTaken, false, nil
	}
	if err := db.Session(&gorm.Session{}).Where("barcode = ?", *barcode).Count(&n).Error; err != nil {
		return false, false, err
	}
	return codeTaken, n > 0, nil
}

func (r *productRepo) LockByCode(tx *gorm.DB, code string) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) LockByRef(tx *gorm.DB, ref string) (*model.Product, error) {
	product, err := r.LockByCode(tx, ref)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return product, err
	}
	var byBarcode model.Product
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&byBarcode, "barcode = ?", ref).Error
	if err != nil {
		return nil, err
	}
	return &byBarcode, nil
}

func (r *productRepo) Update(tx *gorm.DB, product *model.Product) error {
	return tx.Omit(clause.Associations).Save(product).Error
}

// UpdateInventory accepts tx so it always runs inside the caller's transaction.
func (r *productRepo) UpdateInventory(tx *gorm.DB, id uuid.UUID, inventory int, updatedBy string) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"inventory":  inventory,
			"updated_by": updatedBy,
		}).Error
}

// Delete archives the product; its ledger rows remain.
func (r *productRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Product{}, "id = ?", id).Error
}
