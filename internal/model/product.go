package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	BaseModel
	AuditFields
	Code         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Barcode      *string         `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	SalePrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"sale_price"`
	Inventory    int             `gorm:"not null;default:0" json:"inventory"`
	MinInventory int             `gorm:"not null;default:0" json:"min_inventory"`
	CategoryID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category     *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"` // archived products keep their ledger
}

// BelowMinimum reports whether stock has dropped under the alert threshold.
func (p *Product) BelowMinimum() bool {
	return p.Inventory < p.MinInventory
}

func (p *Product) LowStockItem() LowStockItem {
	return LowStockItem{
		ProductID:    p.ID,
		Code:         p.Code,
		Name:         p.Name,
		Inventory:    p.Inventory,
		MinInventory: p.MinInventory,
	}
}

// LowStockItem summarises a product for alerting.
type LowStockItem struct {
	ProductID    uuid.UUID `json:"product_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Inventory    int       `json:"inventory"`
	MinInventory int       `json:"min_inventory"`
}
