package service

import (
	"context"
	"testing"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/testutil"

	"github.com/shopspring/decimal"
)

func TestCategoryLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)

	office, err := e.categories.Create(ctx, admin, CategoryInput{Name: "  Office "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if office.Name != "Office" {
		t.Errorf("expected trimmed name, got %q", office.Name)
	}
	if _, err := e.categories.Create(ctx, admin, CategoryInput{Name: "office"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate name: expected conflict, got %v", err)
	}
	if _, err := e.categories.Create(ctx, admin, CategoryInput{Name: "ab"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("short name: expected validation, got %v", err)
	}

	renamed, err := e.categories.Update(ctx, admin, office.ID, CategoryInput{Name: "Stationery"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if renamed.Name != "Stationery" {
		t.Errorf("expected renamed category, got %q", renamed.Name)
	}

	if err := e.categories.Delete(ctx, admin, office.ID); err != nil {
		t.Fatalf("delete empty category: %v", err)
	}
	if _, err := e.categories.Get(ctx, office.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected deleted category to be gone, got %v", err)
	}
}

func TestCategoryDeleteWithProducts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)

	if err := e.categories.Delete(ctx, admin, office.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Archived products still pin the category.
	if err := e.catalog.Delete(ctx, admin, "pencil"); err != nil {
		t.Fatalf("archive product: %v", err)
	}
	if err := e.categories.Delete(ctx, admin, office.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict with archived product, got %v", err)
	}
}

func TestProductCreateOpensLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	barcode := "7501234567890"

	p, err := e.catalog.Create(ctx, admin, CreateProductInput{
		Code:         "pencil",
		Barcode:      &barcode,
		Name:         "Pencil HB",
		SalePrice:    decimal.RequireFromString("0.50"),
		Inventory:    12,
		MinInventory: 2,
		CategoryID:   office.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Inventory != 12 {
		t.Errorf("inventory: expected 12, got %d", p.Inventory)
	}
	moves, err := e.catalog.Movements(ctx, "pencil")
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(moves) != 1 || moves[0].Reason != model.ReasonInitial || moves[0].NewInventory != 12 {
		t.Errorf("expected one initial movement, got %+v", moves)
	}

	dupCode := CreateProductInput{Code: "pencil", Name: "Other", CategoryID: office.ID}
	if _, err := e.catalog.Create(ctx, admin, dupCode); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate code: expected conflict, got %v", err)
	}
	dupBarcode := CreateProductInput{Code: "pen", Barcode: &barcode, Name: "Pen", CategoryID: office.ID}
	if _, err := e.catalog.Create(ctx, admin, dupBarcode); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate barcode: expected conflict, got %v", err)
	}
	negative := CreateProductInput{Code: "pen", Name: "Pen", CategoryID: office.ID, SalePrice: decimal.NewFromInt(-1)}
	if _, err := e.catalog.Create(ctx, admin, negative); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("negative price: expected validation, got %v", err)
	}
}

func TestProductUpdateAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	kitchen := testutil.CreateCategory(t, e.db, "Kitchen")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)
	testutil.CreateProduct(t, e.db, kitchen, "spoon", "1.25", 4, 1)

	name := "Pencil 2B"
	price := decimal.RequireFromString("0.75")
	updated, err := e.catalog.Update(ctx, admin, "pencil", UpdateProductInput{Name: &name, SalePrice: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || !updated.SalePrice.Equal(price) || updated.Inventory != 10 {
		t.Errorf("unexpected product after update: %+v", updated)
	}

	page, err := e.catalog.List(ctx, repository.ProductFilter{Category: "kitchen"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].Code != "spoon" {
		t.Errorf("category filter: got %+v", page.Items)
	}

	if err := e.catalog.Delete(ctx, admin, "spoon"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := e.catalog.Get(ctx, "spoon"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("archived product should be hidden, got %v", err)
	}
	page, err = e.catalog.List(ctx, repository.ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected archived product excluded, total %d", page.Total)
	}
}

func TestAdjustStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 5)

	res, err := e.catalog.AdjustStock(ctx, admin, "pencil", AdjustStockInput{Delta: 5, Note: "recount"})
	if err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if res.Previous != 10 || res.New != 15 || res.LowStock {
		t.Errorf("unexpected result %+v", res)
	}

	res, err = e.catalog.AdjustStock(ctx, admin, "pencil", AdjustStockInput{Delta: -12, Note: "damaged"})
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if res.New != 3 || !res.LowStock {
		t.Errorf("expected low stock at 3, got %+v", res)
	}
	select {
	case items := <-e.notifier.Calls:
		if items[0].Code != "pencil" {
			t.Errorf("unexpected notification %+v", items)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a low stock notification")
	}

	if _, err := e.catalog.AdjustStock(ctx, admin, "pencil", AdjustStockInput{Delta: -4}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("below zero: expected validation, got %v", err)
	}
	if _, err := e.catalog.AdjustStock(ctx, admin, "pencil", AdjustStockInput{Delta: 0}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("zero delta: expected validation, got %v", err)
	}
	if got := e.ledgerBalance(t, "pencil"); got != 3 {
		t.Errorf("ledger balance: expected 3, got %d", got)
	}
}

func TestLedgerRejectsNonPositiveQuantity(t *testing.T) {
	e := newEnv(t)
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	p := testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)

	_, err := e.ledger.Apply(e.db, MovementInput{Product: p, Direction: model.MovementOut, Quantity: 0, Reason: model.ReasonSale, Actor: admin})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation, got %v", err)
	}
}
