package service

import (
	"context"
	"math"
	"testing"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/testutil"
	"go-inventory-pos/internal/ws"

	"github.com/shopspring/decimal"
)

func TestCreateSaleLowStockThreshold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)

	first, err := e.sales.CreateSale(ctx, alice, CreateSaleInput{Lines: []SaleLine{{ProductRef: "pencil", Quantity: 3}}})
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != 7 {
		t.Errorf("inventory after first sale: expected 7, got %d", got)
	}
	line := first.Lines[0]
	if line.PreviousInventory != 10 || line.NewInventory != 7 {
		t.Errorf("movement: expected 10->7, got %d->%d", line.PreviousInventory, line.NewInventory)
	}
	if !first.Total.Equal(decimal.RequireFromString("1.50")) {
		t.Errorf("total: expected 1.50, got %s", first.Total)
	}
	if len(first.LowStock) != 0 {
		t.Errorf("expected no low stock after first sale, got %+v", first.LowStock)
	}

	second, err := e.sales.CreateSale(ctx, alice, CreateSaleInput{Lines: []SaleLine{{ProductRef: "pencil", Quantity: 6}}})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != 1 {
		t.Errorf("inventory after second sale: expected 1, got %d", got)
	}
	if len(second.LowStock) != 1 || second.LowStock[0].Code != "pencil" {
		t.Fatalf("expected pencil in low stock list, got %+v", second.LowStock)
	}
	if second.LowStock[0].Inventory != 1 {
		t.Errorf("low stock inventory: expected 1, got %d", second.LowStock[0].Inventory)
	}

	select {
	case items := <-e.notifier.Calls:
		if len(items) != 1 || items[0].Code != "pencil" {
			t.Errorf("unexpected notification %+v", items)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a low stock notification")
	}

	if got := e.ledgerBalance(t, "pencil"); got != 1 {
		t.Errorf("ledger balance: expected 1, got %d", got)
	}

	var stockEvents int
	for _, ev := range e.hub.Events() {
		if ev.Type == ws.EventStockChanged {
			stockEvents++
		}
	}
	if stockEvents != 2 {
		t.Errorf("expected 2 stock_changed events, got %d", stockEvents)
	}
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)
	testutil.CreateProduct(t, e.db, office, "eraser", "1.00", 1, 0)

	_, err := e.sales.CreateSale(ctx, alice, CreateSaleInput{Lines: []SaleLine{
		{ProductRef: "pencil", Quantity: 4},
		{ProductRef: "eraser", Quantity: 2},
	}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got := testutil.Inventory(t, e.db, "pencil"); got != 10 {
		t.Errorf("pencil should be untouched, got %d", got)
	}
	if got := testutil.Inventory(t, e.db, "eraser"); got != 1 {
		t.Errorf("eraser should be untouched, got %d", got)
	}

	var sales, movements int64
	e.db.Model(&model.Sale{}).Count(&sales)
	e.db.Model(&model.InventoryMovement{}).Where("reason = ?", model.ReasonSale).Count(&movements)
	if sales != 0 || movements != 0 {
		t.Errorf("expected no sale rows, got %d sales and %d movements", sales, movements)
	}
	if len(e.hub.Events()) != 0 {
		t.Error("failed sale must not broadcast")
	}
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)

	_, err := e.sales.CreateSale(context.Background(), alice, CreateSaleInput{Lines: []SaleLine{{ProductRef: "nope", Quantity: 1}}})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateSaleValidation(t *testing.T) {
	e := newEnv(t)
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)

	tests := []struct {
		name string
		in   CreateSaleInput
	}{
		{"no lines", CreateSaleInput{}},
		{"zero quantity", CreateSaleInput{Lines: []SaleLine{{ProductRef: "pencil", Quantity: 0}}}},
		{"blank product", CreateSaleInput{Lines: []SaleLine{{Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.sales.CreateSale(context.Background(), alice, tt.in)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateSaleByBarcodeAndRepeatedLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)
	office := testutil.CreateCategory(t, e.db, "Office")
	p := testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)
	if err := e.db.Model(p).Update("barcode", "7501234567890").Error; err != nil {
		t.Fatalf("set barcode: %v", err)
	}

	res, err := e.sales.CreateSale(ctx, alice, CreateSaleInput{Lines: []SaleLine{
		{ProductRef: "7501234567890", Quantity: 2},
		{ProductRef: "pencil", Quantity: 3},
	}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if res.Lines[1].PreviousInventory != 8 || res.Lines[1].NewInventory != 5 {
		t.Errorf("second line should see first: got %d->%d", res.Lines[1].PreviousInventory, res.Lines[1].NewInventory)
	}

	sale, err := e.sales.GetSale(ctx, res.SaleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(sale.Items) != 2 || !sale.Total.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("unexpected stored sale: %d items, total %s", len(sale.Items), sale.Total)
	}

	var entries int64
	e.db.Model(&model.HistoryEntry{}).Where("module = ?", ModuleSales).Count(&entries)
	if entries != 1 {
		t.Errorf("expected one history entry, got %d", entries)
	}
}

func TestCreatePurchaseAddsStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 1, 2)

	res, err := e.purchases.CreatePurchase(ctx, admin, CreatePurchaseInput{Lines: []PurchaseLine{
		{ProductRef: "pencil", Quantity: 24, UnitCost: decimal.RequireFromString("0.20")},
	}})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if !res.Total.Equal(decimal.RequireFromString("4.80")) {
		t.Errorf("total: expected 4.80, got %s", res.Total)
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != 25 {
		t.Errorf("inventory: expected 25, got %d", got)
	}
	if got := e.ledgerBalance(t, "pencil"); got != 25 {
		t.Errorf("ledger balance: expected 25, got %d", got)
	}

	_, err = e.purchases.CreatePurchase(ctx, admin, CreatePurchaseInput{Lines: []PurchaseLine{
		{ProductRef: "pencil", Quantity: 1, UnitCost: decimal.RequireFromString("-1")},
	}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for negative cost, got %v", err)
	}
}

func TestCreatePurchaseRejectsInventoryOverflow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)
	cost := decimal.RequireFromString("0.20")

	_, err := e.purchases.CreatePurchase(ctx, admin, CreatePurchaseInput{Lines: []PurchaseLine{
		{ProductRef: "pencil", Quantity: math.MaxInt, UnitCost: cost},
	}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for huge quantity, got %v", err)
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != 10 {
		t.Errorf("inventory: expected 10, got %d", got)
	}

	// A bounded quantity can still overflow a product that is already near the limit.
	if err := e.db.Model(&model.Product{}).Where("code = ?", "pencil").Update("inventory", math.MaxInt-5).Error; err != nil {
		t.Fatalf("raise inventory: %v", err)
	}
	_, err = e.purchases.CreatePurchase(ctx, admin, CreatePurchaseInput{Lines: []PurchaseLine{
		{ProductRef: "pencil", Quantity: 10, UnitCost: cost},
	}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error on overflow, got %v", err)
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != math.MaxInt-5 {
		t.Errorf("inventory changed on rejected purchase: got %d", got)
	}

	var purchases int64
	e.db.Model(&model.Purchase{}).Count(&purchases)
	if purchases != 0 {
		t.Errorf("expected no stored purchase, got %d", purchases)
	}
}

func TestAdjustStockRejectsOutOfRangeDelta(t *testing.T) {
	e := newEnv(t)
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 2)

	for _, delta := range []int{math.MaxInt, math.MinInt} {
		_, err := e.catalog.AdjustStock(context.Background(), admin, "pencil", AdjustStockInput{Delta: delta})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("delta %d: expected validation error, got %v", delta, err)
		}
	}
	if got := testutil.Inventory(t, e.db, "pencil"); got != 10 {
		t.Errorf("inventory: expected 10, got %d", got)
	}
}
