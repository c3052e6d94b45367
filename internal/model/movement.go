package model

import (
	"time"

	"github.com/google/uuid"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "in"
	MovementOut MovementDirection = "out"
)

// Movement reasons.
const (
	ReasonSale       = "sale"
	ReasonPurchase   = "purchase"
	ReasonAdjustment = "adjustment"
	ReasonInitial    = "initial"
)

// InventoryMovement is an append-only record of one stock change.
type InventoryMovement struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product          `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Direction         MovementDirection `gorm:"type:varchar(3);not null" json:"direction"`
	Quantity          int               `gorm:"not null" json:"quantity"`
	Reason            string            `gorm:"type:varchar(50);not null" json:"reason"`
	RelatedID         *uuid.UUID        `gorm:"type:uuid;index" json:"related_id,omitempty"`
	PreviousInventory int               `gorm:"not null" json:"previous_inventory"`
	NewInventory      int               `gorm:"not null" json:"new_inventory"`
	UserID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt         time.Time         `gorm:"index" json:"created_at"`
}
