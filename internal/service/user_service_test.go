package service

import (
	"context"
	"testing"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/testutil"

	"github.com/google/uuid"
)

func TestCreateUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)

	user, err := e.userAdmin.CreateUser(ctx, admin, CreateUserRequest{
		Username:    "carol",
		Email:       "Carol@Example.com",
		Password:    testutil.Password,
		Role:        model.RoleUser,
		Permissions: []string{model.PermReportView},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "carol@example.com" {
		t.Errorf("expected normalised email, got %q", user.Email)
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		t.Error("expected an authenticator secret")
	}
	if got := user.PermissionCodes(); len(got) != 1 || got[0] != model.PermReportView {
		t.Errorf("unexpected grants %v", got)
	}
	if err := e.perms.Check(ctx, user, model.PermReportView); err != nil {
		t.Errorf("granted permission denied: %v", err)
	}

	history, err := e.history.List(ctx, repository.HistoryFilter{Module: ModuleUsers})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != 1 || history.Items[0].Username != "root" {
		t.Errorf("expected one entry by root, got %+v", history.Items)
	}
}

func TestCreateUserRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	testutil.CreateUser(t, e.db, "alice", model.RoleUser)

	base := CreateUserRequest{Username: "carol", Email: "carol@example.com", Password: testutil.Password, Role: model.RoleUser}
	tests := []struct {
		name   string
		mutate func(r *CreateUserRequest)
		want   apperr.Kind
	}{
		{"duplicate username", func(r *CreateUserRequest) { r.Username = "alice" }, apperr.KindConflict},
		{"duplicate email", func(r *CreateUserRequest) { r.Email = "ALICE@example.com" }, apperr.KindConflict},
		{"weak password", func(r *CreateUserRequest) { r.Password = "password" }, apperr.KindValidation},
		{"unknown role", func(r *CreateUserRequest) { r.Role = "owner" }, apperr.KindValidation},
		{"unknown permission", func(r *CreateUserRequest) { r.Permissions = []string{"sale:refund"} }, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := e.userAdmin.CreateUser(ctx, admin, req)
			if !apperr.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.userAdmin.Register(ctx, RegisterRequest{
		Username:        " dave ",
		Email:           "Dave@Example.com",
		Password:        testutil.Password,
		ConfirmPassword: testutil.Password,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "dave" || user.Email != "dave@example.com" {
		t.Errorf("unexpected identity %q %q", user.Username, user.Email)
	}
	if user.Role == nil || user.Role.Code != model.RoleUser {
		t.Errorf("expected the user role, got %+v", user.Role)
	}
	if user.IsAdmin() || len(user.PermissionCodes()) != 0 {
		t.Errorf("self-registered account must not carry extra privileges")
	}

	history, err := e.history.List(ctx, repository.HistoryFilter{Module: ModuleUsers})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != 1 || history.Items[0].Username != "dave" {
		t.Errorf("expected one entry by dave, got %+v", history.Items)
	}
}

func TestRegisterRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "alice", model.RoleUser)

	base := RegisterRequest{Username: "dave", Email: "dave@example.com", Password: testutil.Password, ConfirmPassword: testutil.Password}
	tests := []struct {
		name   string
		mutate func(r *RegisterRequest)
		want   apperr.Kind
	}{
		{"confirmation mismatch", func(r *RegisterRequest) { r.ConfirmPassword = testutil.Password + "x" }, apperr.KindValidation},
		{"missing confirmation", func(r *RegisterRequest) { r.ConfirmPassword = "" }, apperr.KindValidation},
		{"short username", func(r *RegisterRequest) { r.Username = "dv" }, apperr.KindValidation},
		{"weak password", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "password", "password" }, apperr.KindValidation},
		{"duplicate username", func(r *RegisterRequest) { r.Username = "alice" }, apperr.KindConflict},
		{"duplicate email", func(r *RegisterRequest) { r.Email = "alice@example.com" }, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := e.userAdmin.Register(ctx, req)
			if !apperr.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateUserReplacesGrants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser, model.PermReportView)

	grants := []string{model.PermHistoryView}
	updated, err := e.userAdmin.UpdateUser(ctx, admin, alice.ID, UpdateUserRequest{Permissions: &grants})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := updated.PermissionCodes(); len(got) != 1 || got[0] != model.PermHistoryView {
		t.Errorf("expected grants replaced, got %v", got)
	}

	role := model.RoleAdmin
	updated, err = e.userAdmin.UpdateUser(ctx, admin, alice.ID, UpdateUserRequest{Role: &role})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !updated.IsAdmin() {
		t.Error("expected alice promoted")
	}

	taken := "root@example.com"
	if _, err := e.userAdmin.UpdateUser(ctx, admin, alice.ID, UpdateUserRequest{Email: &taken}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if _, err := e.userAdmin.UpdateUser(ctx, admin, uuid.New(), UpdateUserRequest{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, e.db, "bob", model.RoleUser)
	office := testutil.CreateCategory(t, e.db, "Office")
	testutil.CreateProduct(t, e.db, office, "pencil", "0.50", 10, 0)

	if _, err := e.sales.CreateSale(ctx, alice, CreateSaleInput{Lines: []SaleLine{{ProductRef: "pencil", Quantity: 1}}}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	if err := e.userAdmin.DeleteUser(ctx, admin, admin.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("self delete: expected conflict, got %v", err)
	}
	if err := e.userAdmin.DeleteUser(ctx, admin, alice.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("user with sales: expected conflict, got %v", err)
	}
	if err := e.userAdmin.DeleteUser(ctx, admin, bob.ID); err != nil {
		t.Fatalf("delete bob: %v", err)
	}
	if _, err := e.userAdmin.GetUserByID(ctx, bob.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected bob gone, got %v", err)
	}
}
