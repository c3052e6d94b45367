package service

import (
	"context"
	"fmt"
	"strings"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductInput struct {
	Code         string          `json:"code" validate:"required,max=50"`
	Barcode      *string         `json:"barcode" validate:"omitempty,max=64"`
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Inventory    int             `json:"inventory" validate:"gte=0"`
	MinInventory int             `json:"min_inventory" validate:"gte=0"`
	CategoryID   uuid.UUID       `json:"category_id" validate:"uuid_required"`
}

// UpdateProductInput changes only the fields that are set. Inventory is
// not editable here; use AdjustStock.
type UpdateProductInput struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description  *string          `json:"description"`
	Barcode      *string          `json:"barcode" validate:"omitempty,max=64"`
	SalePrice    *decimal.Decimal `json:"sale_price"`
	MinInventory *int             `json:"min_inventory" validate:"omitempty,gte=0"`
	CategoryID   *uuid.UUID       `json:"category_id"`
}

type AdjustStockInput struct {
	// Delta is added to inventory; negative values remove stock.
	Delta int    `json:"delta" validate:"ne=0,min=-1000000,max=1000000"`
	Note  string `json:"note" validate:"max=255"`
}

type ProductService interface {
	Create(ctx context.Context, actor *model.User, in CreateProductInput) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) (*model.Page[model.Product], error)
	Get(ctx context.Context, code string) (*model.Product, error)
	Update(ctx context.Context, actor *model.User, code string, in UpdateProductInput) (*model.Product, error)
	Delete(ctx context.Context, actor *model.User, code string) error
	AdjustStock(ctx context.Context, actor *model.User, code string, in AdjustStockInput) (*MovementResult, error)
	Movements(ctx context.Context, code string) ([]model.InventoryMovement, error)
}

type productService struct {
	db         *gorm.DB
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.MovementRepository
	ledger     InventoryLedger
	history    HistoryService
	hub        Broadcaster
	alerts     LowStockNotifier
}

func NewProductService(db *gorm.DB, products repository.ProductRepository, categories repository.CategoryRepository, movements repository.MovementRepository, ledger InventoryLedger, history HistoryService, hub Broadcaster, alerts LowStockNotifier) ProductService {
	return &productService{
		db:         db,
		products:   products,
		categories: categories,
		movements:  movements,
		ledger:     ledger,
		history:    history,
		hub:        hub,
		alerts:     alerts,
	}
}

func (s *productService) Create(ctx context.Context, actor *model.User, in CreateProductInput) (*model.Product, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	if in.SalePrice.IsNegative() {
		return nil, apperr.Validation("sale price must not be negative")
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Barcode = trimmedOrNil(in.Barcode)

	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal(err, "load category")
	}
	if err := s.checkUnique(ctx, in.Code, in.Barcode, uuid.Nil); err != nil {
		return nil, err
	}

	product := &model.Product{
		AuditFields:  model.AuditFields{CreatedBy: actor.Username, UpdatedBy: actor.Username},
		Code:         in.Code,
		Barcode:      in.Barcode,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		SalePrice:    in.SalePrice,
		MinInventory: in.MinInventory,
		CategoryID:   in.CategoryID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.products.Create(tx, product); err != nil {
			return err
		}
		// Opening stock goes through the ledger so the movement history starts complete.
		if in.Inventory > 0 {
			if _, err := s.ledger.Apply(tx, MovementInput{
				Product:   product,
				Direction: model.MovementIn,
				Quantity:  in.Inventory,
				Reason:    model.ReasonInitial,
				Actor:     actor,
			}); err != nil {
				return err
			}
		}
		return s.history.Record(tx, actor, model.ActionCreate, ModuleProducts,
			fmt.Sprintf("created product %s", product.Code), nil, product)
	})
	if err != nil {
		return nil, classify(err, "create product")
	}

	s.hub.Publish(ws.EventStockChanged, product)
	return product, nil
}

func (s *productService) checkUnique(ctx context.Context, code string, barcode *string, exclude uuid.UUID) error {
	codeTaken, barcodeTaken, err := s.products.Taken(ctx, code, barcode, exclude)
	if err != nil {
		return apperr.Internal(err, "check product uniqueness")
	}
	if codeTaken {
		return apperr.Conflict("product code %q already exists", code)
	}
	if barcodeTaken {
		return apperr.Conflict("barcode %q already exists", *barcode)
	}
	return nil
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) (*model.Page[model.Product], error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	page, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "list products")
	}
	return page, nil
}

func (s *productService) Get(ctx context.Context, code string) (*model.Product, error) {
	product, err := s.products.FindByCode(ctx, code)
	if isNotFound(err) {
		return nil, apperr.NotFound("product %q not found", code)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, actor *model.User, code string, in UpdateProductInput) (*model.Product, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	if in.SalePrice != nil && in.SalePrice.IsNegative() {
		return nil, apperr.Validation("sale price must not be negative")
	}
	if in.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *in.CategoryID); err != nil {
			if isNotFound(err) {
				return nil, apperr.NotFound("category not found")
			}
			return nil, apperr.Internal(err, "load category")
		}
	}

	current, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	barcodeSet := in.Barcode != nil
	if barcodeSet {
		in.Barcode = trimmedOrNil(in.Barcode)
		if err := s.checkUnique(ctx, current.Code, in.Barcode, current.ID); err != nil {
			return nil, err
		}
	}

	var updated *model.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.LockByCode(tx, code)
		if isNotFound(err) {
			return apperr.NotFound("product %q not found", code)
		}
		if err != nil {
			return err
		}
		before := *product

		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if barcodeSet {
			product.Barcode = in.Barcode
		}
		if in.SalePrice != nil {
			product.SalePrice = *in.SalePrice
		}
		if in.MinInventory != nil {
			product.MinInventory = *in.MinInventory
		}
		if in.CategoryID != nil {
			product.CategoryID = *in.CategoryID
		}
		product.UpdatedBy = actor.Username

		if err := s.products.Update(tx, product); err != nil {
			return err
		}
		updated = product
		return s.history.Record(tx, actor, model.ActionUpdate, ModuleProducts,
			fmt.Sprintf("updated product %s", product.Code), before, product)
	})
	if err != nil {
		return nil, classify(err, "update product")
	}
	return updated, nil
}

// Delete archives the product. Its movements and sale lines stay intact.
func (s *productService) Delete(ctx context.Context, actor *model.User, code string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.LockByCode(tx, code)
		if isNotFound(err) {
			return apperr.NotFound("product %q not found", code)
		}
		if err != nil {
			return err
		}
		if err := s.products.Delete(tx, product.ID); err != nil {
			return err
		}
		return s.history.Record(tx, actor, model.ActionDelete, ModuleProducts,
			fmt.Sprintf("archived product %s", product.Code), product, nil)
	})
	return classify(err, "delete product")
}

func (s *productService) AdjustStock(ctx context.Context, actor *model.User, code string, in AdjustStockInput) (*MovementResult, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}

	direction, qty := model.MovementIn, in.Delta
	if in.Delta < 0 {
		direction, qty = model.MovementOut, -in.Delta
	}

	var (
		result *MovementResult
		item   model.LowStockItem
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.LockByCode(tx, code)
		if isNotFound(err) {
			return apperr.NotFound("product %q not found", code)
		}
		if err != nil {
			return err
		}
		result, err = s.ledger.Apply(tx, MovementInput{
			Product:   product,
			Direction: direction,
			Quantity:  qty,
			Reason:    model.ReasonAdjustment,
			Actor:     actor,
		})
		if err != nil {
			return err
		}
		item = product.LowStockItem()

		desc := fmt.Sprintf("adjusted %s by %+d", product.Code, in.Delta)
		if in.Note != "" {
			desc += ": " + in.Note
		}
		return s.history.Record(tx, actor, model.ActionUpdate, ModuleInventory, desc,
			map[string]int{"inventory": result.Previous}, map[string]int{"inventory": result.New})
	})
	if err != nil {
		return nil, classify(err, "adjust stock")
	}

	s.hub.Publish(ws.EventStockChanged, item)
	if result.LowStock {
		go s.alerts.Notify(context.WithoutCancel(ctx), []model.LowStockItem{item})
	}
	return result, nil
}

func (s *productService) Movements(ctx context.Context, code string) ([]model.InventoryMovement, error) {
	product, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	movements, err := s.movements.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list movements")
	}
	return movements, nil
}
