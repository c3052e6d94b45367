package testutil

import (
	"context"
	"sync"
	"time"

	"go-inventory-pos/internal/model"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mail is one message captured by Mailer.
type Mail struct {
	Kind  string
	To    string
	Value string
	Items []model.LowStockItem
}

// Mailer records every send. Sent delivers each message as it arrives.
type Mailer struct {
	mu   sync.Mutex
	all  []Mail
	Err  error
	Sent chan Mail
}

func NewMailer() *Mailer {
	return &Mailer{Sent: make(chan Mail, 64)}
}

func (m *Mailer) record(mail Mail) error {
	m.mu.Lock()
	m.all = append(m.all, mail)
	err := m.Err
	m.mu.Unlock()
	select {
	case m.Sent <- mail:
	default:
	}
	return err
}

func (m *Mailer) Messages() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.all...)
}

// Last returns the most recent message of kind, or false.
func (m *Mailer) Last(kind string) (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.all) - 1; i >= 0; i-- {
		if m.all[i].Kind == kind {
			return m.all[i], true
		}
	}
	return Mail{}, false
}

func (m *Mailer) SendOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	return m.record(Mail{Kind: "otp", To: to, Value: code})
}

func (m *Mailer) SendLowStockAlert(_ context.Context, to string, items []model.LowStockItem) error {
	return m.record(Mail{Kind: "low_stock", To: to, Items: items})
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, token string, _ time.Duration) error {
	return m.record(Mail{Kind: "reset", To: to, Value: token})
}

func (m *Mailer) SendUsernameRecovery(_ context.Context, to, username string) error {
	return m.record(Mail{Kind: "username", To: to, Value: username})
}

type Event struct {
	Type string
	Data any
}

// Hub records published events.
type Hub struct {
	mu     sync.Mutex
	events []Event
}

func (h *Hub) Publish(eventType string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, Event{Type: eventType, Data: data})
}

func (h *Hub) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Notifier captures low-stock notifications.
type Notifier struct {
	Calls chan []model.LowStockItem
}

func NewNotifier() *Notifier {
	return &Notifier{Calls: make(chan []model.LowStockItem, 16)}
}

func (n *Notifier) Notify(_ context.Context, items []model.LowStockItem) {
	n.Calls <- items
}
