package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stashly/stashly/internal/logging"
)

func newTestCache(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return cache, mr
}

func setupIdempotentApp(t *testing.T, required bool) (*fiber.App, *int32) {
	t.Helper()
	cache, _ := newTestCache(t)
	var calls int32
	app := fiber.New()
	app.Use(Idempotency(IdempotencyConfig{Cache: cache, TTL: time.Minute, Logger: logging.Discard(), Required: required}))
	app.Post("/deposit", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/withdraw", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		atomic.AddInt32(&calls, 1)
		return c.SendStatus(fiber.StatusBadGateway)
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header.Get("Idempotent-Replayed")
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls := setupIdempotentApp(t, true)
	status, _, _ := post(t, app, "/deposit", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatal("handler should not run")
	}
}

func TestIdempotencyOptionalPassesThrough(t *testing.T) {
	app, calls := setupIdempotentApp(t, false)
	post(t, app, "/deposit", "")
	post(t, app, "/deposit", "")
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 handler calls, got %d", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t, true)

	status, body, _ := post(t, app, "/deposit", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status2, body2, replayed := post(t, app, "/deposit", "abc123")
	if status2 != fiber.StatusCreated || body2 != body {
		t.Fatalf("expected cached %d %s, got %d %s", status, body, status2, body2)
	}
	if replayed != "true" {
		t.Fatal("expected replay header")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected handler to run once, got %d", got)
	}
}

func TestIdempotencyKeysAreScopedByRoute(t *testing.T) {
	app, calls := setupIdempotentApp(t, true)
	post(t, app, "/deposit", "same")
	post(t, app, "/withdraw", "same")
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected both routes to run, got %d", got)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	app, calls := setupIdempotentApp(t, true)
	post(t, app, "/broken", "retry-me")
	status, _, _ := post(t, app, "/broken", "retry-me")
	if status != fiber.StatusBadGateway {
		t.Fatalf("expected 502 got %d", status)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", got)
	}
}
