package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/mail"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"golang.org/x/sync/errgroup"
)

// Broadcaster pushes live events to dashboard clients.
type Broadcaster interface {
	Publish(eventType string, data any)
}

// LowStockPublisher hands alerts to an out-of-process consumer.
type LowStockPublisher interface {
	PublishLowStock(ctx context.Context, items []model.LowStockItem) error
}

// LowStockNotifier receives products that crossed below their minimum.
type LowStockNotifier interface {
	Notify(ctx context.Context, items []model.LowStockItem)
}

type AlertService interface {
	LowStockNotifier
	// Deliver mails items to every admin.
	Deliver(ctx context.Context, items []model.LowStockItem) error
	// ScanLowStock mails admins the full list of products under minimum.
	ScanLowStock(ctx context.Context) (int, error)
}

type alertService struct {
	users     repository.UserRepository
	products  repository.ProductRepository
	mailer    mail.Mailer
	hub       Broadcaster
	publisher LowStockPublisher
}

// NewAlertService builds the alerting path. publisher may be nil, in which
// case alerts are mailed from this process.
func NewAlertService(users repository.UserRepository, products repository.ProductRepository, mailer mail.Mailer, hub Broadcaster, publisher LowStockPublisher) AlertService {
	return &alertService{
		users:     users,
		products:  products,
		mailer:    mailer,
		hub:       hub,
		publisher: publisher,
	}
}

// Notify never fails; delivery problems are logged.
func (s *alertService) Notify(ctx context.Context, items []model.LowStockItem) {
	if len(items) == 0 {
		return
	}
	s.hub.Publish(ws.EventLowStock, items)

	if s.publisher != nil {
		err := s.publisher.PublishLowStock(ctx, items)
		if err == nil {
			return
		}
		slog.Warn("low-stock publish failed, mailing directly", "err", err)
	}
	if err := s.Deliver(ctx, items); err != nil {
		slog.Warn("low-stock alert delivery failed", "err", err, "items", len(items))
	}
}

func (s *alertService) Deliver(ctx context.Context, items []model.LowStockItem) error {
	admins, err := s.users.FindByRole(ctx, model.RoleAdmin)
	if err != nil {
		return apperr.Internal(err, "list admins")
	}

	// Each recipient is independent; one failed send must not cancel the rest.
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(4)
	for _, admin := range admins {
		to := admin.Email
		g.Go(func() error {
			if err := s.mailer.SendLowStockAlert(ctx, to, items); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", to, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *alertService) ScanLowStock(ctx context.Context) (int, error) {
	products, err := s.products.FindBelowMinimum(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "scan low stock")
	}
	if len(products) == 0 {
		return 0, nil
	}
	items := make([]model.LowStockItem, len(products))
	for i := range products {
		items[i] = products[i].LowStockItem()
	}
	return len(items), s.Deliver(ctx, items)
}
