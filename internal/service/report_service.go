package service

import (
	"context"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/repository"

	"github.com/shopspring/decimal"
)

type Dashboard struct {
	Stats    *repository.DashboardStats     `json:"stats"`
	Movement []repository.StockMovementData `json:"movement"`
}

type InventoryReport struct {
	Rows   []repository.InventoryReportRow `json:"rows"`
	Totals InventoryTotals                 `json:"totals"`
}

type InventoryTotals struct {
	Products  int   `json:"products"`
	Inventory int64 `json:"inventory"`
	TotalIn   int64 `json:"total_in"`
	TotalOut  int64 `json:"total_out"`
}

type SalesReport struct {
	Rows       []repository.SalesReportRow `json:"rows"`
	Units      int64                       `json:"units"`
	GrandTotal decimal.Decimal             `json:"grand_total"`
}

type ReportService interface {
	Dashboard(ctx context.Context, days int) (*Dashboard, error)
	Inventory(ctx context.Context, filter repository.InventoryReportFilter) (*InventoryReport, error)
	Sales(ctx context.Context, filter repository.SalesReportFilter) (*SalesReport, error)
}

type reportService struct {
	reports repository.ReportRepository
	now     func() time.Time
}

func NewReportService(reports repository.ReportRepository) ReportService {
	return &reportService{reports: reports, now: time.Now}
}

func (s *reportService) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	if days < 1 || days > 90 {
		days = 7
	}
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats, err := s.reports.GetDashboardStats(ctx, dayStart)
	if err != nil {
		return nil, apperr.Internal(err, "dashboard stats")
	}
	movement, err := s.reports.GetStockMovement(ctx, dayStart.AddDate(0, 0, -(days-1)), now)
	if err != nil {
		return nil, apperr.Internal(err, "stock movement")
	}
	return &Dashboard{Stats: stats, Movement: movement}, nil
}

func (s *reportService) Inventory(ctx context.Context, filter repository.InventoryReportFilter) (*InventoryReport, error) {
	switch filter.Level {
	case "":
		filter.Level = repository.StockAll
	case repository.StockAll, repository.StockLow, repository.StockGood:
	default:
		return nil, apperr.Validation("stock filter must be one of all, low, good")
	}

	rows, err := s.reports.InventoryReport(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "inventory report")
	}
	out := &InventoryReport{Rows: rows}
	for _, r := range rows {
		out.Totals.Products++
		out.Totals.Inventory += int64(r.Inventory)
		out.Totals.TotalIn += r.TotalIn
		out.Totals.TotalOut += r.TotalOut
	}
	return out, nil
}

func (s *reportService) Sales(ctx context.Context, filter repository.SalesReportFilter) (*SalesReport, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperr.Validation("date range end is before its start")
	}
	rows, err := s.reports.SalesReport(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "sales report")
	}
	out := &SalesReport{Rows: rows, GrandTotal: decimal.Zero}
	for _, r := range rows {
		out.Units += int64(r.Quantity)
		out.GrandTotal = out.GrandTotal.Add(r.Subtotal)
	}
	return out, nil
}
