package handler

import (
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reports service.ReportService
	history service.HistoryService
}

func NewReportHandler(reports service.ReportService, history service.HistoryService) *ReportHandler {
	return &ReportHandler{reports: reports, history: history}
}

// GetDashboard returns overview statistics and the stock movement chart.
// Query params: days (default 7)
func (h *ReportHandler) GetDashboard(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	data, err := h.reports.Dashboard(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(data)
}

// GET /api/v1/reports/inventory?categories=&products=&stock=all|low|good
func (h *ReportHandler) GetInventoryReport(c *fiber.Ctx) error {
	report, err := h.reports.Inventory(c.UserContext(), repository.InventoryReportFilter{
		Categories: queryList(c, "categories"),
		Products:   queryList(c, "products"),
		Level:      repository.StockLevel(c.Query("stock")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GET /api/v1/reports/sales?usernames=&categories=&products=&from=&to=
func (h *ReportHandler) GetSalesReport(c *fiber.Ctx) error {
	from, err := queryTime(c, "from", false)
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.reports.Sales(c.UserContext(), repository.SalesReportFilter{
		Usernames:  queryList(c, "usernames"),
		Categories: queryList(c, "categories"),
		Products:   queryList(c, "products"),
		From:       from,
		To:         to,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GET /api/v1/history?username=&action=&module=&from=&to=&page=&page_size=
func (h *ReportHandler) GetHistory(c *fiber.Ctx) error {
	from, err := queryTime(c, "from", false)
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		return respondError(c, err)
	}
	page, err := h.history.List(c.UserContext(), repository.HistoryFilter{
		Username: c.Query("username"),
		Action:   c.Query("action"),
		Module:   c.Query("module"),
		From:     from,
		To:       to,
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
