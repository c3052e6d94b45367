// Package queue carries low-stock events over RabbitMQ so alert delivery
// happens outside the API process.
package queue

import (
	"time"

	"go-inventory-pos/internal/model"
)

const LowStockQueue = "inventory.low_stock"

// LowStockEvent is published after a committed sale leaves products under
// their minimum inventory.
type LowStockEvent struct {
	Items      []model.LowStockItem `json:"items"`
	DetectedAt time.Time            `json:"detected_at"`
}
