package service

import (
	"errors"

	"go-inventory-pos/internal/apperr"
)

// classify passes typed errors through and wraps anything else as Internal.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(err, op)
}
