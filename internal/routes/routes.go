package routes

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stashly/stashly/internal/audit"
	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/config"
	"github.com/stashly/stashly/internal/middleware"
	"github.com/stashly/stashly/internal/notification"
	"github.com/stashly/stashly/internal/savings"
	"github.com/stashly/stashly/internal/session"
)

const (
	sessionOpensPerMinute = 10
	// sessionWaitMargin covers bookkeeping after the backend answers.
	sessionWaitMargin = 2 * time.Second
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	SQLite   *sql.DB
	Cache    *redis.Client
	Backend  *backend.Client
	Attempts audit.Repository
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Backend == nil {
		return fmt.Errorf("backend client is required")
	}
	if d.Attempts == nil {
		d.Attempts = audit.NewMemoryRepository()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.RequestLog(d.Logger))

	RegisterHealthRoutes(app, d)

	notifier := notification.NewLoggerNotifier(d.Logger)
	sessions := session.NewService(d.Backend, d.Attempts, notifier, d.Logger, session.Options{
		PINLength:    d.Cfg.PINLength,
		ConfirmDelay: d.Cfg.ConfirmDelay,
		TTL:          d.Cfg.SessionTTL,
		WaitTimeout:  d.Cfg.BackendTimeout + d.Cfg.ConfirmDelay + sessionWaitMargin,
	})
	savingsSvc := savings.NewService(d.Backend, d.Cache, d.Cfg.GoalsCacheTTL, d.Logger)

	var (
		openLimit    []fiber.Handler
		verifyLimit  fiber.Handler
		idempotentMw fiber.Handler
	)
	if d.Cache != nil {
		openLimit = append(openLimit, middleware.RateLimit(middleware.RateLimitConfig{
			Cache:  d.Cache,
			Name:   "pin_sessions",
			Max:    sessionOpensPerMinute,
			Window: time.Minute,
			Key:    middleware.BodyField("email"),
			Logger: d.Logger,
		}))
		verifyLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Cache:  d.Cache,
			Name:   "verify_email",
			Max:    5,
			Window: time.Minute,
			Key:    middleware.BodyField("email"),
			Logger: d.Logger,
		})
		idempotentMw = middleware.Idempotency(middleware.IdempotencyConfig{
			Cache:    d.Cache,
			TTL:      d.Cfg.IdempotencyTTL,
			Logger:   d.Logger,
			Required: true,
		})
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.LocalRequestID).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	auth := middleware.JWTAuth([]byte(d.Cfg.JWTSecret))

	// Public routes
	RegisterAuthRoutes(api, d.Backend, verifyLimit)
	RegisterPinRoutes(api, session.NewHandler(sessions), auth, openLimit...)

	// Protected routes
	protected := api.Group("/savings", auth)
	RegisterSavingsRoutes(protected, savings.NewHandler(savingsSvc), idempotentMw)

	return nil
}
