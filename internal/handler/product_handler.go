package handler

import (
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GET /api/v1/products?category=&name=&page=&page_size=
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), repository.ProductFilter{
		Category: c.Query("category"),
		Name:     c.Query("name"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/:code
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	product, err := h.service.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PUT /api/v1/products/:code
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	var req service.UpdateProductInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	product, err := h.service.Update(c.UserContext(), actor(c), c.Params("code"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

// DELETE /api/v1/products/:code
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), actor(c), c.Params("code")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product archived"})
}

// POST /api/v1/products/:code/adjust
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	var req service.AdjustStockInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	result, err := h.service.AdjustStock(c.UserContext(), actor(c), c.Params("code"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":            "Stock adjusted",
		"previous_inventory": result.Previous,
		"new_inventory":      result.New,
		"low_stock":          result.LowStock,
	})
}

// GET /api/v1/products/:code/movements
func (h *ProductHandler) GetMovements(c *fiber.Ctx) error {
	movements, err := h.service.Movements(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}
