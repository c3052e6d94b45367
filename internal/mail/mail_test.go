package mail

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sent struct {
	kind string
	to   string
	arg  string
}

// recordingMailer captures calls and signals each one on ch.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sent
	ch   chan sent
}

func newRecorder() *recordingMailer {
	return &recordingMailer{ch: make(chan sent, 16)}
}

func (r *recordingMailer) record(s sent) error {
	r.mu.Lock()
	r.sent = append(r.sent, s)
	r.mu.Unlock()
	r.ch <- s
	return nil
}

func (r *recordingMailer) SendOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	return r.record(sent{"otp", to, code})
}

func (r *recordingMailer) SendLowStockAlert(_ context.Context, to string, items []model.LowStockItem) error {
	return r.record(sent{"low_stock", to, items[0].Code})
}

func (r *recordingMailer) SendPasswordReset(_ context.Context, to, token string, _ time.Duration) error {
	return r.record(sent{"reset", to, token})
}

func (r *recordingMailer) SendUsernameRecovery(_ context.Context, to, username string) error {
	return r.record(sent{"username", to, username})
}

func newQueue(t *testing.T, inner Mailer, max int64) (*QueuedMailer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewQueuedMailer(inner, rdb, max), rdb
}

func TestQueuedMailerWorkerDelivers(t *testing.T) {
	rec := newRecorder()
	q, _ := newQueue(t, rec, DefaultMaxQueueSize)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.StartWorker(ctx)
		close(done)
	}()

	if err := q.SendOTP(ctx, "alice@example.com", "alice", "123456", 5*time.Minute); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	items := []model.LowStockItem{{Code: "PEN-1", Name: "pencil", Inventory: 1, MinInventory: 2}}
	if err := q.SendLowStockAlert(ctx, "admin@example.com", items); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}

	want := []sent{{"otp", "alice@example.com", "123456"}, {"low_stock", "admin@example.com", "PEN-1"}}
	for _, w := range want {
		select {
		case got := <-rec.ch:
			if got != w {
				t.Errorf("expected %+v, got %+v", w, got)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s job", w.kind)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestQueuedMailerRejectsWhenFull(t *testing.T) {
	q, rdb := newQueue(t, newRecorder(), 1)
	ctx := context.Background()

	if err := q.SendPasswordReset(ctx, "bob@example.com", "tok", time.Minute); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := q.SendUsernameRecovery(ctx, "bob@example.com", "bob"); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if n := rdb.LLen(ctx, QueueKey).Val(); n != 1 {
		t.Errorf("expected 1 queued job, got %d", n)
	}
}

func TestComposeMessages(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{FromAddress: "noreply@shop.test", ResetURLBase: "https://shop.test/reset"})

	msg := m.compose("bob@example.com", "Reset your password", resetBody(m.resetLink("a b"), 15*time.Minute))
	for _, want := range []string{
		"From: noreply@shop.test\r\n",
		"To: bob@example.com\r\n",
		"https://shop.test/reset?token=a+b",
		"expires in 15 minutes",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}

	body := lowStockBody([]model.LowStockItem{{Code: "PEN-1", Name: "pencil", Inventory: 1, MinInventory: 2}})
	if !strings.Contains(body, "- pencil (PEN-1): 1 in stock, minimum 2") {
		t.Errorf("unexpected low stock body: %q", body)
	}

	if got := formatDuration(time.Hour); got != "1 hour" {
		t.Errorf("formatDuration(1h) = %q", got)
	}
}
