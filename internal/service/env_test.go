package service

import (
	"context"
	"testing"
	"time"

	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/testutil"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTimeout = 30 * time.Minute

// env wires every service against one in-memory database with a shared fake clock.
type env struct {
	db       *gorm.DB
	clock    *testutil.Clock
	mailer   *testutil.Mailer
	hub      *testutil.Hub
	notifier *testutil.Notifier

	users    repository.UserRepository
	otps     repository.OTPRepository
	products repository.ProductRepository
	moves    repository.MovementRepository

	hasher     *PasswordHasher
	otp        OTPService
	totp       TOTPService
	sessions   SessionService
	perms      PermissionService
	history    HistoryService
	ledger     InventoryLedger
	sales      SaleService
	purchases  PurchaseService
	catalog    ProductService
	categories CategoryService
	userAdmin  UserService
	recovery   RecoveryService
	auth       AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := testutil.NewClock()

	e := &env{
		db:       db,
		clock:    clock,
		mailer:   testutil.NewMailer(),
		hub:      &testutil.Hub{},
		notifier: testutil.NewNotifier(),
		users:    repository.NewUserRepo(db),
		otps:     repository.NewOTPRepo(db),
		products: repository.NewProductRepo(db),
		moves:    repository.NewMovementRepo(db),
	}

	roles := repository.NewRoleRepo(db)
	permRepo := repository.NewPermissionRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)

	e.hasher = NewPasswordHasher(2, bcrypt.MinCost)

	otp := NewOTPService(e.otps, 6, 5*time.Minute).(*otpService)
	otp.now = clock.Now
	e.otp = otp

	totp := NewTOTPService("Inventory POS", e.users).(*totpService)
	totp.now = clock.Now
	e.totp = totp

	sessions := NewSessionService(db, repository.NewSessionRepo(db), e.users, sessionTimeout).(*sessionService)
	sessions.now = clock.Now
	e.sessions = sessions

	e.perms = NewPermissionService(permRepo)
	e.history = NewHistoryService(repository.NewHistoryRepo(db))
	e.ledger = NewInventoryLedger(e.products, e.moves)
	e.sales = NewSaleService(db, saleRepo, e.products, e.ledger, e.history, e.hub, e.notifier)
	e.purchases = NewPurchaseService(db, purchaseRepo, e.products, e.ledger, e.history, e.hub)
	e.catalog = NewProductService(db, e.products, categoryRepo, e.moves, e.ledger, e.history, e.hub, e.notifier)
	e.categories = NewCategoryService(db, categoryRepo, e.history)
	e.userAdmin = NewUserService(db, e.users, roles, permRepo, saleRepo, purchaseRepo, e.hasher, e.totp, e.history)

	recovery := NewRecoveryService(db, e.users, e.otps, e.sessions, e.hasher, e.mailer, 15*time.Minute).(*recoveryService)
	recovery.now = clock.Now
	e.recovery = recovery

	e.auth = NewAuthService(AuthDeps{
		DB:          db,
		Users:       e.users,
		Roles:       roles,
		Hasher:      e.hasher,
		OTP:         e.otp,
		TOTP:        e.totp,
		Sessions:    e.sessions,
		Permissions: e.perms,
		Mailer:      e.mailer,
		OTPTTL:      5 * time.Minute,
	})
	return e
}

func (e *env) activeSessions(t *testing.T, username string) int64 {
	t.Helper()
	var n int64
	err := e.db.Table("sessions").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("users.username = ? AND sessions.active = ?", username, true).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return n
}

func (e *env) ledgerBalance(t *testing.T, code string) int64 {
	t.Helper()
	p, err := e.products.FindByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("load %s: %v", code, err)
	}
	in, out, err := e.moves.Totals(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("totals %s: %v", code, err)
	}
	return in - out
}
