package handler

import (
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SaleHandler serves both sides of stock flow: sales out, purchases in.
type SaleHandler struct {
	sales     service.SaleService
	purchases service.PurchaseService
}

func NewSaleHandler(sales service.SaleService, purchases service.PurchaseService) *SaleHandler {
	return &SaleHandler{sales: sales, purchases: purchases}
}

// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	result, err := h.sales.CreateSale(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GET /api/v1/sales
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	page, err := h.sales.ListSales(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// POST /api/v1/purchases
func (h *SaleHandler) CreatePurchase(c *fiber.Ctx) error {
	var req service.CreatePurchaseInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	result, err := h.purchases.CreatePurchase(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GET /api/v1/purchases
func (h *SaleHandler) GetPurchases(c *fiber.Ctx) error {
	page, err := h.purchases.ListPurchases(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/purchases/:id
func (h *SaleHandler) GetPurchase(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	purchase, err := h.purchases.GetPurchase(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(purchase)
}
