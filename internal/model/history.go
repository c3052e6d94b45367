package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HistoryAction string

const (
	ActionCreate HistoryAction = "create"
	ActionUpdate HistoryAction = "update"
	ActionDelete HistoryAction = "delete"
)

// HistoryEntry is an audit record written in the same transaction as the
// mutation it describes.
type HistoryEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Username    string         `gorm:"type:varchar(100);not null;index" json:"username"`
	Action      HistoryAction  `gorm:"type:varchar(10);not null;index" json:"action"`
	Module      string         `gorm:"type:varchar(50);not null;index" json:"module"`
	Description string         `gorm:"type:text" json:"description"`
	Before      datatypes.JSON `json:"before,omitempty"`
	After       datatypes.JSON `json:"after,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// AllModels lists every persisted type for AutoMigrate.
func AllModels() []any {
	return []any{
		&Permission{}, &Role{}, &User{}, &Session{}, &UserOTP{}, &PasswordReset{},
		&Category{}, &Product{}, &InventoryMovement{},
		&Sale{}, &SaleItem{}, &Purchase{}, &PurchaseItem{},
		&HistoryEntry{},
	}
}
