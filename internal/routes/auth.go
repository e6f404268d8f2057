package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/pinpad"
)

// EmailVerifier forwards signup email verification codes.
type EmailVerifier interface {
	VerifyEmail(ctx context.Context, email, code string) (backend.Ack, error)
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RegisterAuthRoutes wires the email verification passthrough.
func RegisterAuthRoutes(r fiber.Router, verifier EmailVerifier, rateLimiter fiber.Handler) {
	handler := func(c *fiber.Ctx) error {
		var req verifyEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		identity, err := pinpad.NewIdentity(req.Email)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		code := strings.TrimSpace(req.Code)
		if code == "" {
			return fiber.NewError(http.StatusBadRequest, "code is required")
		}
		ack, err := verifier.VerifyEmail(c.UserContext(), identity.Email(), code)
		if err != nil {
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return fiber.NewError(apiErr.StatusCode, pinpad.FailureMessage(err, ""))
			}
			return fiber.NewError(http.StatusBadGateway, pinpad.FailureMessage(err, ""))
		}
		return c.Status(http.StatusOK).JSON(ack)
	}

	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/verify-email", rateLimiter, handler)
	} else {
		group.Post("/verify-email", handler)
	}
}
