package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovementData is one day of the dashboard chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats for the overview cards.
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	SalesToday     int64           `json:"sales_today"`
}

// StockLevel filters the inventory report.
type StockLevel string

const (
	StockAll  StockLevel = "all"
	StockLow  StockLevel = "low"  // inventory <= min_inventory
	StockGood StockLevel = "good" // inventory > min_inventory
)

type InventoryReportFilter struct {
	Categories []string
	Products   []string
	Level      StockLevel
}

type InventoryReportRow struct {
	ProductID    uuid.UUID `json:"product_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Inventory    int       `json:"inventory"`
	MinInventory int       `json:"min_inventory"`
	TotalIn      int64     `json:"total_in"`
	TotalOut     int64     `json:"total_out"`
}

type SalesReportFilter struct {
	Usernames  []string
	Categories []string
	Products   []string
	From       *time.Time
	To         *time.Time
}

type SalesReportRow struct {
	SaleID       uuid.UUID       `json:"sale_id"`
	SoldAt       time.Time       `json:"sold_at"`
	Username     string          `json:"username"`
	CustomerName *string         `json:"customer_name,omitempty"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type ReportRepository interface {
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context, dayStart time.Time) (*DashboardStats, error)
	InventoryReport(ctx context.Context, filter InventoryReportFilter) ([]InventoryReportRow, error)
	SalesReport(ctx context.Context, filter SalesReportFilter) ([]SalesReportRow, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Aggregate ledger rows per day
	rows, err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN direction = 'out' THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		if len(data.Date) > 10 {
			data.Date = data.Date[:10]
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *reportRepo) GetDashboardStats(ctx context.Context, dayStart time.Time) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("inventory < min_inventory").Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	var products []model.Product
	if err := db.Select("inventory", "sale_price").Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		stats.TotalValuation = stats.TotalValuation.Add(p.SalePrice.Mul(decimal.NewFromInt(int64(p.Inventory))))
	}

	if err := db.Model(&model.Sale{}).Where("created_at >= ?", dayStart).Count(&stats.SalesToday).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *reportRepo) InventoryReport(ctx context.Context, filter InventoryReportFilter) ([]InventoryReportRow, error) {
	q := r.db.WithContext(ctx).Table("products AS p").
		Select(`
			p.id AS product_id, p.code, p.name, c.name AS category,
			p.inventory, p.min_inventory,
			COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.quantity ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN m.direction = 'out' THEN m.quantity ELSE 0 END), 0) AS total_out
		`).
		Joins("JOIN categories AS c ON c.id = p.category_id").
		Joins("LEFT JOIN inventory_movements AS m ON m.product_id = p.id").
		Where("p.deleted_at IS NULL")

	if len(filter.Categories) > 0 {
		q = q.Where("c.name IN ?", filter.Categories)
	}
	if len(filter.Products) > 0 {
		q = q.Where("p.name IN ?", filter.Products)
	}
	switch filter.Level {
	case StockLow:
		q = q.Where("p.inventory <= p.min_inventory")
	case StockGood:
		q = q.Where("p.inventory > p.min_inventory")
	}

	var rows []InventoryReportRow
	err := q.Group("p.id, p.code, p.name, c.name, p.inventory, p.min_inventory").
		Order("p.name").
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SalesReport(ctx context.Context, filter SalesReportFilter) ([]SalesReportRow, error) {
	q := r.db.WithContext(ctx).Table("sale_items AS si").
		Select(`
			s.id AS sale_id, s.created_at AS sold_at, u.username, s.customer_name,
			p.code AS product_code, p.name AS product_name, c.name AS category,
			si.quantity, si.unit_price, si.subtotal
		`).
		Joins("JOIN sales AS s ON s.id = si.sale_id").
		Joins("JOIN users AS u ON u.id = s.user_id").
		Joins("JOIN products AS p ON p.id = si.product_id").
		Joins("JOIN categories AS c ON c.id = p.category_id")

	if len(filter.Usernames) > 0 {
		q = q.Where("u.username IN ?", filter.Usernames)
	}
	if len(filter.Categories) > 0 {
		q = q.Where("c.name IN ?", filter.Categories)
	}
	if len(filter.Products) > 0 {
		q = q.Where("p.name IN ?", filter.Products)
	}
	if filter.From != nil {
		q = q.Where("s.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("s.created_at <= ?", *filter.To)
	}

	var rows []SalesReportRow
	err := q.Order("s.created_at ASC, p.name ASC").Scan(&rows).Error
	return rows, err
}
