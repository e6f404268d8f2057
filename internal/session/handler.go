package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stashly/stashly/internal/audit"
	"github.com/stashly/stashly/internal/middleware"
	"github.com/stashly/stashly/internal/pinpad"
)

// Handler exposes pin pad sessions over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a session handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	Flow         string `json:"flow"`
	Email        string `json:"email"`
	ConfirmToken string `json:"confirm_token"`
}

type keyRequest struct {
	Key string `json:"key"`
}

// Open starts a create or verify session.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	view, err := h.service.Open(c.UserContext(), OpenInput{
		Flow:         pinpad.Flow(strings.ToLower(strings.TrimSpace(req.Flow))),
		Email:        req.Email,
		ConfirmToken: req.ConfirmToken,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(view)
}

// Press applies one keypad key.
func (h *Handler) Press(c *fiber.Ctx) error {
	var req keyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	key, err := pinpad.ParseKey(req.Key)
	if err != nil {
		return toHTTPError(err)
	}
	view, err := h.service.Press(c.UserContext(), c.Params("id"), key)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(view)
}

// Get returns the current session view.
func (h *Handler) Get(c *fiber.Ctx) error {
	view, err := h.service.Get(c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(view)
}

// Close discards a session.
func (h *Handler) Close(c *fiber.Ctx) error {
	if err := h.service.Close(c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Attempts lists the caller's recorded attempts. It runs behind JWTAuth; an
// email query parameter naming anyone else is forbidden.
func (h *Handler) Attempts(c *fiber.Ctx) error {
	owner, _ := c.Locals(middleware.LocalEmail).(string)
	if owner == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	if q := strings.TrimSpace(c.Query("email")); q != "" && !strings.EqualFold(q, owner) {
		return fiber.NewError(http.StatusForbidden, "attempts belong to another user")
	}
	limit := audit.ClampLimit(c.QueryInt("limit", 0))
	attempts, err := h.service.Attempts(c.UserContext(), owner, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"attempts": attempts})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConfirmTokenInvalid),
		errors.Is(err, pinpad.ErrUnknownFlow),
		errors.Is(err, pinpad.ErrUnknownKey),
		errors.Is(err, pinpad.ErrMissingIdentity),
		errors.Is(err, pinpad.ErrInvalidIdentity):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
