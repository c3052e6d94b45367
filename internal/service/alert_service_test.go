package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/testutil"
	"go-inventory-pos/internal/ws"
)

type fakePublisher struct {
	err   error
	calls int
}

func (p *fakePublisher) PublishLowStock(_ context.Context, _ []model.LowStockItem) error {
	p.calls++
	return p.err
}

// bouncingMailer fails for one address and only delivers to the others if
// the context is still live after a short delay.
type bouncingMailer struct {
	*testutil.Mailer
	bounce string

	mu        sync.Mutex
	delivered []string
}

func (m *bouncingMailer) SendLowStockAlert(ctx context.Context, to string, _ []model.LowStockItem) error {
	if to == m.bounce {
		return errors.New("mailbox unavailable")
	}
	time.Sleep(20 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, to)
	return nil
}

func TestDeliverContinuesPastFailedRecipient(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"a0", "a1", "a2", "a3"} {
		testutil.CreateUser(t, e.db, name, model.RoleAdmin)
	}
	mailer := &bouncingMailer{Mailer: e.mailer, bounce: "a0@example.com"}

	alerts := NewAlertService(e.users, e.products, mailer, e.hub, nil)
	err := alerts.Deliver(context.Background(), []model.LowStockItem{{Code: "pencil", Inventory: 1, MinInventory: 2}})
	if err == nil || !strings.Contains(err.Error(), "a0@example.com") {
		t.Errorf("expected the failed recipient in the error, got %v", err)
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.delivered) != 3 {
		t.Errorf("expected 3 healthy admins to receive the alert, got %v", mailer.delivered)
	}
}

func TestDeliverMailsEveryAdmin(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	testutil.CreateUser(t, e.db, "boss", model.RoleAdmin)
	testutil.CreateUser(t, e.db, "clerk", model.RoleUser)

	alerts := NewAlertService(e.users, e.products, e.mailer, e.hub, nil)
	items := []model.LowStockItem{{Code: "pencil", Inventory: 1, MinInventory: 2}}
	if err := alerts.Deliver(context.Background(), items); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	got := map[string]bool{}
	for _, m := range e.mailer.Messages() {
		if m.Kind == "low_stock" {
			got[m.To] = true
		}
	}
	if len(got) != 2 || !got["root@example.com"] || !got["boss@example.com"] {
		t.Errorf("expected both admins mailed, got %v", got)
	}
}

func TestNotifyPrefersQueue(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	items := []model.LowStockItem{{Code: "pencil", Inventory: 1, MinInventory: 2}}

	pub := &fakePublisher{}
	NewAlertService(e.users, e.products, e.mailer, e.hub, pub).Notify(context.Background(), items)
	if pub.calls != 1 {
		t.Errorf("expected one publish, got %d", pub.calls)
	}
	if len(e.mailer.Messages()) != 0 {
		t.Error("queued alerts should not be mailed inline")
	}
	events := e.hub.Events()
	if len(events) != 1 || events[0].Type != ws.EventLowStock {
		t.Errorf("expected a low_stock broadcast, got %+v", events)
	}

	pub.err = errors.New("broker down")
	NewAlertService(e.users, e.products, e.mailer, e.hub, pub).Notify(context.Background(), items)
	if _, ok := e.mailer.Last("low_stock"); !ok {
		t.Error("expected mail fallback when publishing fails")
	}
}

func TestScanLowStock(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 1, 2)
	testutil.CreateProduct(t, e.db, office, "eraser", "1.00", 9, 2)

	alerts := NewAlertService(e.users, e.products, e.mailer, e.hub, nil)
	n, err := alerts.ScanLowStock(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 product below minimum, got %d", n)
	}
	sent, ok := e.mailer.Last("low_stock")
	if !ok || len(sent.Items) != 1 || sent.Items[0].Code != "pencil" {
		t.Errorf("unexpected alert %+v", sent)
	}
}
