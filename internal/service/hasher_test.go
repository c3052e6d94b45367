package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(1, bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Str0ng!Pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if ok, err := h.Compare(ctx, hash, "Str0ng!Pass"); err != nil || !ok {
		t.Errorf("expected match, got %v %v", ok, err)
	}
	if ok, _ := h.Compare(ctx, hash, "wrong"); ok {
		t.Error("expected mismatch")
	}
	if ok, _ := h.Compare(ctx, "", "not-a-real-password"); ok {
		t.Error("empty hash must never match")
	}
}

func TestPasswordHasherHonoursContext(t *testing.T) {
	h := NewPasswordHasher(1, bcrypt.MinCost)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With the only slot taken, a cancelled caller gives up instead of waiting.
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer h.sem.Release(1)

	if _, err := h.Hash(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}
