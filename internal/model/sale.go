package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Sale struct {
	BaseModel
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CustomerName *string         `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	Total        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	Items        []SaleItem      `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}

type Purchase struct {
	BaseModel
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SupplierName *string         `gorm:"type:varchar(255)" json:"supplier_name,omitempty"`
	Total        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	Items        []PurchaseItem  `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type PurchaseItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitCost   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_cost"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}
