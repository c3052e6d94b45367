package handler

import (
	"log/slog"
	"strings"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError is the single place service errors become HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.StatusCode(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}

func actor(c *fiber.Ctx) *model.User {
	return middleware.CurrentUser(c)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// queryList splits a comma-separated query value, dropping blanks.
func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range strings.Split(c.Query(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// queryTime accepts RFC 3339 or a bare date. A bare "to" date covers the whole day.
func queryTime(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, apperr.Validation("%s must be a date (YYYY-MM-DD) or RFC 3339 time", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
