package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds every backend call unless the caller's context is shorter.
const DefaultTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/stashly/stashly/internal/backend")

// Config describes how to reach the savings backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a thin JSON client for the savings backend.
type Client struct {
	baseURL string
	timeout time.Duration
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("backend base url must be http or https, got %q", base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: base, timeout: timeout}, nil
}

// Ack is the backend's generic {"message": ...} acknowledgment.
type Ack struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	ctx, span := tracer.Start(ctx, "backend."+strings.ToLower(method), trace.WithAttributes(
		attribute.String("http.route", path),
	))
	defer span.End()

	err := c.send(ctx, method, path, token, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path, token string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if in != nil {
		agent.JSON(in)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return newAPIError(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
