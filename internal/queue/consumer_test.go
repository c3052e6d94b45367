package queue

import (
	"context"
	"errors"
	"testing"

	"go-inventory-pos/internal/model"
)

func TestHandleMessage(t *testing.T) {
	var got []model.LowStockItem
	handle := func(_ context.Context, items []model.LowStockItem) error {
		got = items
		return nil
	}

	body := []byte(`{"items":[{"code":"PEN-01","name":"pencil","inventory":1,"min_inventory":2}],"detected_at":"2024-01-01T00:00:00Z"}`)
	if err := handleMessage(context.Background(), body, handle); err != nil {
		t.Fatalf("handleMessage failed: %v", err)
	}
	if len(got) != 1 || got[0].Code != "PEN-01" || got[0].Inventory != 1 {
		t.Errorf("unexpected items %+v", got)
	}
}

func TestHandleMessageErrors(t *testing.T) {
	calls := 0
	handle := func(context.Context, []model.LowStockItem) error {
		calls++
		return errors.New("smtp down")
	}

	if err := handleMessage(context.Background(), []byte(`not json`), handle); err == nil {
		t.Error("expected unmarshal error")
	}
	if err := handleMessage(context.Background(), []byte(`{"items":[]}`), handle); err != nil {
		t.Errorf("empty event should be acked, got %v", err)
	}
	if calls != 0 {
		t.Errorf("handler should not run for empty events, ran %d times", calls)
	}
	if err := handleMessage(context.Background(), []byte(`{"items":[{"code":"A"}]}`), handle); err == nil {
		t.Error("expected handler error to propagate")
	}
}
