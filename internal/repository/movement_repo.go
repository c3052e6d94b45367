package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	// Create appends a ledger row. Rows are never updated or deleted.
	Create(tx *gorm.DB, movement *model.InventoryMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error)
	// Totals sums inbound and outbound quantities for a product.
	Totals(ctx context.Context, productID uuid.UUID) (in, out int64, err error)
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) Create(tx *gorm.DB, movement *model.InventoryMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return tx.Create(movement).Error
}

func (r *movementRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *movementRepo) Totals(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	var row struct {
		Inbound  int64
		Outbound int64
	}
	err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select(`
			COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity ELSE 0 END), 0) AS inbound,
			COALESCE(SUM(CASE WHEN direction = 'out' THEN quantity ELSE 0 END), 0) AS outbound
		`).
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Inbound, row.Outbound, err
}
