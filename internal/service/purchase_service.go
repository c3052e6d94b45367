package service

import (
	"context"
	"fmt"
	"log/slog"
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

type PurchaseLine struct {
	ProductRef string          `json:"product" validate:"required,max=64"`
	Quantity   int             `json:"quantity" validate:"gt=0,lte=1000000"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

type CreatePurchaseInput struct {
	Lines        []PurchaseLine `json:"items" validate:"required,min=1,dive"`
	SupplierName *string        `json:"supplier_name" validate:"omitempty,max=255"`
}

type PurchaseResult struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	Total      decimal.Decimal `json:"total"`
	Lines      []LineResult    `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PurchaseService interface {
	CreatePurchase(ctx context.Context, actor *model.User, in CreatePurchaseInput) (*PurchaseResult, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	ListPurchases(ctx context.Context, page, pageSize int) (*model.Page[model.Purchase], error)
}

type purchaseService struct {
	db        *gorm.DB
	purchases repository.PurchaseRepository
	products  repository.ProductRepository
	ledger    InventoryLedger
	history   HistoryService
	hub       Broadcaster
}

func NewPurchaseService(db *gorm.DB, purchases repository.PurchaseRepository, products repository.ProductRepository, ledger InventoryLedger, history HistoryService, hub Broadcaster) PurchaseService {
	return &purchaseService{
		db:        db,
		purchases: purchases,
		products:  products,
		ledger:    ledger,
		history:   history,
		hub:       hub,
	}
}

func (s *purchaseService) CreatePurchase(ctx context.Context, actor *model.User, in CreatePurchaseInput) (*PurchaseResult, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	for i, line := range in.Lines {
		if line.UnitCost.IsNegative() {
			return nil, apperr.Validation("line %d: unit cost must not be negative", i+1)
		}
	}

	result := &PurchaseResult{Total: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase := &model.Purchase{UserID: actor.ID, SupplierName: trimmedOrNil(in.SupplierName), Total: decimal.Zero}
		if err := s.purchases.Create(tx, purchase); err != nil {
			return err
		}
		result.PurchaseID = purchase.ID
		result.CreatedAt = purchase.CreatedAt

		for _, line := range in.Lines {
			product, err := lockProduct(tx, s.products, line.ProductRef)
			if err != nil {
				return err
			}

			subtotal := line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))
			item := &model.PurchaseItem{
				PurchaseID: purchase.ID,
				ProductID:  product.ID,
				Quantity:   line.Quantity,
				UnitCost:   line.UnitCost,
				Subtotal:   subtotal,
			}
			if err := s.purchases.CreateItem(tx, item); err != nil {
				return err
			}

			moved, err := s.ledger.Apply(tx, MovementInput{
				Product:   product,
				Direction: model.MovementIn,
				Quantity:  line.Quantity,
				Reason:    model.ReasonPurchase,
				RelatedID: &purchase.ID,
				Actor:     actor,
			})
			if err != nil {
				return err
			}

			result.Total = result.Total.Add(subtotal)
			result.Lines = append(result.Lines, LineResult{
				ProductID:         product.ID,
				ProductCode:       product.Code,
				ProductName:       product.Name,
				Quantity:          line.Quantity,
				UnitPrice:         line.UnitCost,
				Subtotal:          subtotal,
				PreviousInventory: moved.Previous,
				NewInventory:      moved.New,
			})
		}

		if err := s.purchases.UpdateTotal(tx, purchase.ID, result.Total); err != nil {
			return err
		}

		desc := fmt.Sprintf("purchase of %d line(s), total %s", len(result.Lines), result.Total.StringFixed(2))
		return s.history.Record(tx, actor, model.ActionCreate, ModulePurchases, desc, nil, result)
	})
	if err != nil {
		return nil, classify(err, "create purchase")
	}

	slog.Info("purchase created", "purchase_id", result.PurchaseID, "user", actor.Username, "lines", len(result.Lines), "total", result.Total.String())
	s.hub.Publish(ws.EventStockChanged, result.Lines)
	return result, nil
}

func (s *purchaseService) GetPurchase(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	purchase, err := s.purchases.FindByID(ctx, id)
	if isNotFound(err) {
		return nil, apperr.NotFound("purchase not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load purchase")
	}
	return purchase, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, page, pageSize int) (*model.Page[model.Purchase], error) {
	page, pageSize = normalizePage(page, pageSize)
	out, err := s.purchases.List(ctx, page, pageSize)
	if err != nil {
		return nil, apperr.Internal(err, "list purchases")
	}
	return out, nil
}
