package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher runs bcrypt on a bounded number of goroutines so a burst
// of logins cannot starve request handling of CPU.
type PasswordHasher struct {
	sem   *semaphore.Weighted
	cost  int
	dummy []byte
}

func NewPasswordHasher(workers, cost int) *PasswordHasher {
	if workers < 1 {
		workers = 1
	}
	// Compared against when the user is unknown, so both paths cost one bcrypt.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &PasswordHasher{
		sem:   semaphore.NewWeighted(int64(workers)),
		cost:  cost,
		dummy: dummy,
	}
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash. An empty hash (an account
// without a local password) never matches.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	target := []byte(hash)
	if hash == "" {
		target = h.dummy
	}
	err := bcrypt.CompareHashAndPassword(target, []byte(password))
	switch {
	case err == nil:
		return hash != "", nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// Burn spends one comparison against the dummy hash.
func (h *PasswordHasher) Burn(ctx context.Context, password string) {
	_, _ = h.Compare(ctx, "", password)
}
