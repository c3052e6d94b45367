package middleware

import (
	"log/slog"
	"math"
	"strconv"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit throttles requests per client IP under prefix. A limiter
// backend error lets the request through.
func RateLimit(limiter ratelimit.Limiter, prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, retryAfter, err := limiter.Allow(c.UserContext(), prefix+":"+c.IP())
		if err != nil {
			slog.Warn("rate limiter unavailable", "prefix", prefix, "err", err)
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			return fail(c, apperr.TooManyRequests("too many requests, try again later"))
		}
		return c.Next()
	}
}
