package service

import (
	"math"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementInput struct {
	// Product must already be locked in the caller's transaction.
	Product   *model.Product
	Direction model.MovementDirection
	Quantity  int
	Reason    string
	RelatedID *uuid.UUID
	Actor     *model.User
}

type MovementResult struct {
	Previous int
	New      int
	// LowStock is set when an outbound movement leaves the product under its minimum.
	LowStock bool
}

// InventoryLedger is the only writer of Product.Inventory. Every change is
// paired with an immutable InventoryMovement in the same transaction.
type InventoryLedger interface {
	Apply(tx *gorm.DB, in MovementInput) (*MovementResult, error)
}

type inventoryLedger struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
}

func NewInventoryLedger(products repository.ProductRepository, movements repository.MovementRepository) InventoryLedger {
	return &inventoryLedger{products: products, movements: movements}
}

func (l *inventoryLedger) Apply(tx *gorm.DB, in MovementInput) (*MovementResult, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	p := in.Product
	previous := p.Inventory
	next := previous

	switch in.Direction {
	case model.MovementIn:
		if in.Quantity > math.MaxInt-previous {
			return nil, apperr.Validation("quantity %d would overflow the inventory of %s", in.Quantity, p.Code)
		}
		next = previous + in.Quantity
	case model.MovementOut:
		if in.Quantity > previous {
			return nil, apperr.Validation("insufficient stock for %s: available %d, requested %d", p.Code, previous, in.Quantity)
		}
		next = previous - in.Quantity
	default:
		return nil, apperr.Validation("unknown movement direction %q", in.Direction)
	}

	if err := l.products.UpdateInventory(tx, p.ID, next, in.Actor.Username); err != nil {
		return nil, err
	}
	p.Inventory = next
	p.UpdatedBy = in.Actor.Username

	movement := &model.InventoryMovement{
		ProductID:         p.ID,
		Direction:         in.Direction,
		Quantity:          in.Quantity,
		Reason:            in.Reason,
		RelatedID:         in.RelatedID,
		PreviousInventory: previous,
		NewInventory:      next,
		UserID:            in.Actor.ID,
	}
	if err := l.movements.Create(tx, movement); err != nil {
		return nil, err
	}

	return &MovementResult{
		Previous: previous,
		New:      next,
		LowStock: in.Direction == model.MovementOut && p.BelowMinimum(),
	}, nil
}
