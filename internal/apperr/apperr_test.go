package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad %s", "input"), http.StatusBadRequest},
		{"authentication", AuthenticationFailed("invalid credentials"), http.StatusUnauthorized},
		{"unauthenticated", Unauthenticated("no session"), http.StatusUnauthorized},
		{"permission", PermissionDenied("nope"), http.StatusForbidden},
		{"not found", NotFound("product %q not found", "X1"), http.StatusNotFound},
		{"conflict", Conflict("duplicate"), http.StatusConflict},
		{"rate", TooManyRequests("slow down"), http.StatusTooManyRequests},
		{"internal", Internal(errors.New("db down"), "load user"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode: expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("creating sale: %w", NotFound("product not found"))
	if !Is(err, KindNotFound) {
		t.Errorf("expected wrapped NotFound, got %v", KindOf(err))
	}
}

func TestPublicMessageHidesInternal(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "create sale")
	if got := PublicMessage(err); got != "internal server error" {
		t.Errorf("expected opaque message, got %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose cause")
	}

	if got := PublicMessage(Conflict("category has products")); got != "category has products" {
		t.Errorf("unexpected message %q", got)
	}
}
