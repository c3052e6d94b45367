// Package testutil provides an in-memory database and hand-written fakes
// for service and handler tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plaintext password of every user made by CreateUser.
const Password = "Str0ng!Pass"

// NewTestDB returns a migrated, seeded in-memory SQLite database private to t.
// A single connection is used, so code under test must run statements
// inside a transaction through that transaction's handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := t.Context()
	if err := repository.NewPermissionRepo(db).SeedDefaults(ctx); err != nil {
		t.Fatalf("seed permissions: %v", err)
	}
	if err := repository.NewRoleRepo(db).SeedDefaults(ctx); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return db
}

// CreateUser inserts a user with role and explicit permission grants.
func CreateUser(t *testing.T, db *gorm.DB, username, role string, permissions ...string) *model.User {
	t.Helper()

	var r model.Role
	if err := db.Where("code = ?", role).First(&r).Error; err != nil {
		t.Fatalf("role %s: %v", role, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		RoleID:   &r.ID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	if len(permissions) > 0 {
		var perms []model.Permission
		if err := db.Where("code IN ?", permissions).Find(&perms).Error; err != nil {
			t.Fatalf("load permissions: %v", err)
		}
		if err := db.Model(user).Association("Permissions").Replace(perms); err != nil {
			t.Fatalf("grant permissions: %v", err)
		}
	}

	var loaded model.User
	if err := db.Preload("Role").Preload("Permissions").First(&loaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &loaded
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

// CreateProduct inserts a product with an opening "initial" movement so the
// ledger and the inventory column agree from the start.
func CreateProduct(t *testing.T, db *gorm.DB, category *model.Category, code, price string, inventory, minInventory int) *model.Product {
	t.Helper()
	p := &model.Product{
		Code:         code,
		Name:         code,
		SalePrice:    decimal.RequireFromString(price),
		Inventory:    inventory,
		MinInventory: minInventory,
		CategoryID:   category.ID,
	}
	if err := db.Omit("Category").Create(p).Error; err != nil {
		t.Fatalf("create product %s: %v", code, err)
	}
	if inventory > 0 {
		m := &model.InventoryMovement{
			ID:           uuid.New(),
			ProductID:    p.ID,
			Direction:    model.MovementIn,
			Quantity:     inventory,
			Reason:       model.ReasonInitial,
			NewInventory: inventory,
			UserID:       uuid.Nil,
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("create initial movement: %v", err)
		}
	}
	return p
}

// Inventory reads the stored inventory of the product with code.
func Inventory(t *testing.T, db *gorm.DB, code string) int {
	t.Helper()
	var p model.Product
	if err := db.Unscoped().First(&p, "code = ?", code).Error; err != nil {
		t.Fatalf("load product %s: %v", code, err)
	}
	return p.Inventory
}
