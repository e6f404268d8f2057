package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:"

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Cache  *redis.Client
	Name   string
	Max    int
	Window time.Duration
	// Key picks the bucket for a request. Defaults to the client IP.
	Key    func(c *fiber.Ctx) string
	Logger *slog.Logger
}

// RateLimit allows Max requests per bucket in each fixed Window. It fails
// open when Redis is unavailable.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = func(c *fiber.Ctx) string { return c.IP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		if cfg.Cache == nil {
			return c.Next()
		}
		bucket := strings.ToLower(strings.TrimSpace(cfg.Key(c)))
		if bucket == "" {
			bucket = c.IP()
		}
		key := rateLimitPrefix + cfg.Name + ":" + bucket

		ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyTimeout)
		defer cancel()
		count, err := cfg.Cache.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = cfg.Cache.Expire(ctx, key, cfg.Window).Err()
		}
		if err != nil {
			cfg.Logger.Warn("rate limit unavailable", slog.String("limit", cfg.Name), slog.Any("error", err))
			return c.Next()
		}

		remaining := int64(cfg.Max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(cfg.Max) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// BodyField returns a Key func reading a top-level string field from a JSON
// body, for limits scoped to the submitted identity.
func BodyField(name string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return ""
		}
		v, _ := body[name].(string)
		return v
	}
}
