package service

import (
	"context"
	"testing"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/testutil"
)

func TestPermissionCheck(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	clerk := testutil.CreateUser(t, e.db, "clerk", model.RoleUser)
	buyer := testutil.CreateUser(t, e.db, "buyer", model.RoleUser, model.PermPurchaseCreate)

	tests := []struct {
		name string
		user *model.User
		code string
		want apperr.Kind
		ok   bool
	}{
		{"admin has everything", admin, model.PermUserManage, 0, true},
		{"role grant", clerk, model.PermSaleCreate, 0, true},
		{"missing grant", clerk, model.PermPurchaseCreate, apperr.KindPermissionDenied, false},
		{"explicit grant", buyer, model.PermPurchaseCreate, 0, true},
		{"explicit grant does not leak", buyer, model.PermUserManage, apperr.KindPermissionDenied, false},
		{"anonymous", nil, model.PermProductView, apperr.KindUnauthenticated, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.perms.Check(ctx, tt.user, tt.code)
			if tt.ok {
				if err != nil {
					t.Errorf("expected allowed, got %v", err)
				}
				return
			}
			if !apperr.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEffectivePermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, "root", model.RoleAdmin)
	buyer := testutil.CreateUser(t, e.db, "buyer", model.RoleUser, model.PermPurchaseCreate)

	all, err := e.perms.EffectivePermissions(ctx, admin)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(all) != len(model.DefaultPermissions) {
		t.Errorf("admin: expected %d codes, got %d", len(model.DefaultPermissions), len(all))
	}

	codes, err := e.perms.EffectivePermissions(ctx, buyer)
	if err != nil {
		t.Fatalf("buyer: %v", err)
	}
	want := append([]string{model.PermPurchaseCreate}, model.DefaultUserPermissions...)
	for _, c := range want {
		if !contains(codes, c) {
			t.Errorf("expected %s in %v", c, codes)
		}
	}
	if len(codes) != len(want) {
		t.Errorf("expected %d codes without duplicates, got %v", len(want), codes)
	}
}
