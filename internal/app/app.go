// Package app builds the service graph shared by the API server and the
// admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/geo"
	"go-inventory-pos/internal/handler"
	"go-inventory-pos/internal/jobs"
	"go-inventory-pos/internal/mail"
	"go-inventory-pos/internal/oauth"
	"go-inventory-pos/internal/queue"
	"go-inventory-pos/internal/ratelimit"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/cache"
	"go-inventory-pos/pkg/database"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// mailQueueMax caps the Redis mail queue so a dead SMTP server cannot grow it forever.
const mailQueueMax = 10000

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client // nil without REDIS_URL
	Hub    *ws.Hub
	ownsDB bool

	Mailer      mail.Mailer
	queuedMail  *mail.QueuedMailer
	publisher   *queue.Publisher
	AuthLimiter ratelimit.Limiter

	UserRepo    repository.UserRepository
	Sessions    service.SessionService
	Permissions service.PermissionService
	History     service.HistoryService
	Auth        service.AuthService
	Recovery    service.RecoveryService
	Users       service.UserService
	Products    service.ProductService
	Categories  service.CategoryService
	Sales       service.SaleService
	Purchases   service.PurchaseService
	Reports     service.ReportService
	Alerts      service.AlertService
	Seed        service.SeedService
}

// New connects to the database and optional infrastructure and wires every
// service. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	a, err := NewWithDB(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	a.ownsDB = true
	return a, nil
}

// NewWithDB wires the services over an already migrated database. The
// caller keeps ownership of db.
func NewWithDB(ctx context.Context, cfg *config.Config, db *gorm.DB) (*App, error) {
	var err error
	a := &App{Config: cfg, DB: db, Hub: ws.NewHub()}

	if cfg.RedisURL != "" {
		a.Redis, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("redis connected")
	}

	a.Mailer = a.buildMailer()
	if a.Redis != nil {
		a.AuthLimiter = ratelimit.NewRedisLimiter(a.Redis, "ratelimit", cfg.LoginRateMax, cfg.LoginRateWindow)
	} else {
		a.AuthLimiter = ratelimit.NewMemoryLimiter(cfg.LoginRateMax, cfg.LoginRateWindow)
	}

	if err := a.wire(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) buildMailer() mail.Mailer {
	cfg := a.Config
	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:         cfg.SMTPHost,
			Port:         cfg.SMTPPort,
			Username:     cfg.SMTPUsername,
			Password:     cfg.SMTPPassword,
			FromAddress:  cfg.SMTPFromAddress,
			ResetURLBase: cfg.PasswordResetURL,
		})
	} else {
		slog.Warn("SMTP_HOST not set; outgoing mail is discarded")
	}
	if a.Redis != nil {
		a.queuedMail = mail.NewQueuedMailer(mailer, a.Redis, mailQueueMax)
		return a.queuedMail
	}
	return mailer
}

func (a *App) wire(ctx context.Context) error {
	cfg, db := a.Config, a.DB

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	permRepo := repository.NewPermissionRepo(db)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	otpRepo := repository.NewOTPRepo(db)

	hasher := service.NewPasswordHasher(cfg.HashWorkers, bcrypt.DefaultCost)
	otp := service.NewOTPService(otpRepo, cfg.OTPLength, cfg.OTPTTL)
	totp := service.NewTOTPService(cfg.TOTPIssuer, userRepo)

	a.UserRepo = userRepo
	a.Sessions = service.NewSessionService(db, repository.NewSessionRepo(db), userRepo, cfg.SessionTimeout)
	a.Permissions = service.NewPermissionService(permRepo)
	a.History = service.NewHistoryService(repository.NewHistoryRepo(db))
	ledger := service.NewInventoryLedger(productRepo, movementRepo)

	var publisher service.LowStockPublisher
	if cfg.AMQPURL != "" {
		a.publisher = queue.NewPublisher(cfg.AMQPURL)
		publisher = a.publisher
	}
	a.Alerts = service.NewAlertService(userRepo, productRepo, a.Mailer, a.Hub, publisher)

	a.Users = service.NewUserService(db, userRepo, roleRepo, permRepo, saleRepo, purchaseRepo, hasher, totp, a.History)
	a.Products = service.NewProductService(db, productRepo, categoryRepo, movementRepo, ledger, a.History, a.Hub, a.Alerts)
	a.Categories = service.NewCategoryService(db, categoryRepo, a.History)
	a.Sales = service.NewSaleService(db, saleRepo, productRepo, ledger, a.History, a.Hub, a.Alerts)
	a.Purchases = service.NewPurchaseService(db, purchaseRepo, productRepo, ledger, a.History, a.Hub)
	a.Reports = service.NewReportService(repository.NewReportRepo(db))
	a.Recovery = service.NewRecoveryService(db, userRepo, otpRepo, a.Sessions, hasher, a.Mailer, cfg.PasswordResetTTL)
	a.Seed = service.NewSeedService(permRepo, roleRepo, userRepo, a.Users)

	deps := service.AuthDeps{
		DB:          db,
		Users:       userRepo,
		Roles:       roleRepo,
		Hasher:      hasher,
		OTP:         otp,
		TOTP:        totp,
		Sessions:    a.Sessions,
		Permissions: a.Permissions,
		Mailer:      a.Mailer,
		OTPTTL:      cfg.OTPTTL,
	}
	if cfg.GeoEnabled() {
		deps.Locator = geo.NewGoogleLocator(cfg.GeoURL, cfg.GeoAPIKey)
	}
	if cfg.OAuthEnabled() {
		provider, err := oauth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return fmt.Errorf("google oauth: %w", err)
		}
		deps.Provider = provider
		deps.StateSecret = []byte(cfg.StateSecret)
	}
	a.Auth = service.NewAuthService(deps)
	return nil
}

// SeedDefaults installs permissions, roles and the bootstrap administrator.
func (a *App) SeedDefaults(ctx context.Context) error {
	return a.Seed.Seed(ctx, service.AdminAccount{
		Username: a.Config.AdminUsername,
		Email:    a.Config.AdminEmail,
		Password: a.Config.AdminPassword,
	})
}

// StartBackground launches the websocket hub, the mail worker and the
// low-stock consumer. They stop when ctx is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	go a.Hub.Run(ctx)

	if a.queuedMail != nil {
		go a.queuedMail.StartWorker(ctx)
	}
	if a.Config.AMQPURL != "" {
		go queue.StartLowStockConsumer(ctx, a.Config.AMQPURL, a.Alerts.Deliver)
	}
}

func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("closing amqp publisher", "err", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if !a.ownsDB {
		return
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Jobs returns the periodic maintenance schedule.
func (a *App) Jobs() *jobs.Runner {
	r := jobs.NewRunner()
	r.Every("session-sweep", a.Config.SessionSweepInterval, func(ctx context.Context) error {
		n, err := a.Sessions.Sweep(ctx)
		if n > 0 {
			slog.Info("expired sessions closed", "count", n)
		}
		return err
	})
	r.Every("low-stock-scan", a.Config.StockAlertInterval, func(ctx context.Context) error {
		_, err := a.Alerts.ScanLowStock(ctx)
		return err
	})
	if mem, ok := a.AuthLimiter.(*ratelimit.MemoryLimiter); ok {
		r.Every("ratelimit-cleanup", a.Config.LoginRateWindow, func(ctx context.Context) error {
			mem.Cleanup(ctx)
			return nil
		})
	}
	return r
}

// Router builds the HTTP handlers over the wired services.
func (a *App) Router() *handler.Router {
	// The OAuth state cookie is only marked Secure when the callback is served over TLS.
	secure := strings.HasPrefix(a.Config.GoogleRedirectURL, "https://")
	return &handler.Router{
		Auth:        handler.NewAuthHandler(a.Auth, a.Recovery, secure),
		Products:    handler.NewProductHandler(a.Products),
		Categories:  handler.NewCategoryHandler(a.Categories),
		Sales:       handler.NewSaleHandler(a.Sales, a.Purchases),
		Users:       handler.NewUserHandler(a.Users),
		Roles:       handler.NewRoleHandler(a.Users, a.Permissions),
		Reports:     handler.NewReportHandler(a.Reports, a.History),
		Sessions:    a.Auth,
		Permissions: a.Permissions,
		AuthLimiter: a.AuthLimiter,
		Hub:         a.Hub,
	}
}
