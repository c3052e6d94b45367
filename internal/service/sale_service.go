package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleLine references a product by code or barcode.
type SaleLine struct {
	ProductRef string `json:"product" validate:"required,max=64"`
	Quantity   int    `json:"quantity" validate:"gt=0,lte=1000000"`
}

type CreateSaleInput struct {
	Lines        []SaleLine `json:"items" validate:"required,min=1,dive"`
	CustomerName *string    `json:"customer_name" validate:"omitempty,max=255"`
}

// LineResult reports what one line did to its product.
type LineResult struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	PreviousInventory int             `json:"previous_inventory"`
	NewInventory      int             `json:"new_inventory"`
}

type SaleResult struct {
	SaleID    uuid.UUID            `json:"sale_id"`
	Total     decimal.Decimal      `json:"total"`
	Lines     []LineResult         `json:"lines"`
	LowStock  []model.LowStockItem `json:"low_stock"`
	CreatedAt time.Time            `json:"created_at"`
}

type SaleService interface {
	CreateSale(ctx context.Context, actor *model.User, in CreateSaleInput) (*SaleResult, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, page, pageSize int) (*model.Page[model.Sale], error)
}

type saleService struct {
	db       *gorm.DB
	sales    repository.SaleRepository
	products repository.ProductRepository
	ledger   InventoryLedger
	history  HistoryService
	hub      Broadcaster
	alerts   LowStockNotifier
}

func NewSaleService(db *gorm.DB, sales repository.SaleRepository, products repository.ProductRepository, ledger InventoryLedger, history HistoryService, hub Broadcaster, alerts LowStockNotifier) SaleService {
	return &saleService{
		db:       db,
		sales:    sales,
		products: products,
		ledger:   ledger,
		history:  history,
		hub:      hub,
		alerts:   alerts,
	}
}

func (s *saleService) CreateSale(ctx context.Context, actor *model.User, in CreateSaleInput) (*SaleResult, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}

	result := &SaleResult{Total: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale := &model.Sale{UserID: actor.ID, CustomerName: trimmedOrNil(in.CustomerName), Total: decimal.Zero}
		if err := s.sales.Create(tx, sale); err != nil {
			return err
		}
		result.SaleID = sale.ID
		result.CreatedAt = sale.CreatedAt

		// Lines run in request order; a repeated product sees the earlier line's effect.
		lowStock := newLowStockSet()
		for _, line := range in.Lines {
			product, err := lockProduct(tx, s.products, line.ProductRef)
			if err != nil {
				return err
			}

			subtotal := product.SalePrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			item := &model.SaleItem{
				SaleID:    sale.ID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.SalePrice,
				Subtotal:  subtotal,
			}
			if err := s.sales.CreateItem(tx, item); err != nil {
				return err
			}

			moved, err := s.ledger.Apply(tx, MovementInput{
				Product:   product,
				Direction: model.MovementOut,
				Quantity:  line.Quantity,
				Reason:    model.ReasonSale,
				RelatedID: &sale.ID,
				Actor:     actor,
			})
			if err != nil {
				return err
			}
			if moved.LowStock {
				lowStock.add(product.LowStockItem())
			}

			result.Total = result.Total.Add(subtotal)
			result.Lines = append(result.Lines, LineResult{
				ProductID:         product.ID,
				ProductCode:       product.Code,
				ProductName:       product.Name,
				Quantity:          line.Quantity,
				UnitPrice:         product.SalePrice,
				Subtotal:          subtotal,
				PreviousInventory: moved.Previous,
				NewInventory:      moved.New,
			})
		}
		result.LowStock = lowStock.items()

		if err := s.sales.UpdateTotal(tx, sale.ID, result.Total); err != nil {
			return err
		}
		sale.Total = result.Total

		desc := fmt.Sprintf("sale of %d line(s), total %s", len(result.Lines), result.Total.StringFixed(2))
		return s.history.Record(tx, actor, model.ActionCreate, ModuleSales, desc, nil, result)
	})
	if err != nil {
		return nil, classify(err, "create sale")
	}

	slog.Info("sale created", "sale_id", result.SaleID, "user", actor.Username, "lines", len(result.Lines), "total", result.Total.String())

	s.hub.Publish(ws.EventStockChanged, result.Lines)
	if len(result.LowStock) > 0 {
		// Detached so a slow mail provider never delays the response.
		go s.alerts.Notify(context.WithoutCancel(ctx), result.LowStock)
	}
	return result, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if isNotFound(err) {
		return nil, apperr.NotFound("sale not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load sale")
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, page, pageSize int) (*model.Page[model.Sale], error) {
	page, pageSize = normalizePage(page, pageSize)
	out, err := s.sales.List(ctx, page, pageSize)
	if err != nil {
		return nil, apperr.Internal(err, "list sales")
	}
	return out, nil
}

// lockProduct resolves ref by exact code, then barcode, and locks the row.
func lockProduct(tx *gorm.DB, products repository.ProductRepository, ref string) (*model.Product, error) {
	ref = strings.TrimSpace(ref)
	product, err := products.LockByRef(tx, ref)
	if isNotFound(err) {
		return nil, apperr.NotFound("product %q not found", ref)
	}
	return product, err
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// lowStockSet keeps the latest state of each product, in first-seen order.
type lowStockSet struct {
	order []uuid.UUID
	byID  map[uuid.UUID]model.LowStockItem
}

func newLowStockSet() *lowStockSet {
	return &lowStockSet{byID: make(map[uuid.UUID]model.LowStockItem)}
}

func (s *lowStockSet) add(item model.LowStockItem) {
	if _, ok := s.byID[item.ProductID]; !ok {
		s.order = append(s.order, item.ProductID)
	}
	s.byID[item.ProductID] = item
}

func (s *lowStockSet) items() []model.LowStockItem {
	out := make([]model.LowStockItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
