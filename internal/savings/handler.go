package savings

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly/internal/backend"
)

// Handler exposes goal progress and fund movement endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a savings handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type moveRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// Goals lists the caller's plans with progress.
func (h *Handler) Goals(c *fiber.Ctx) error {
	owner, token, err := caller(c)
	if err != nil {
		return err
	}
	goals, err := h.service.Goals(c.UserContext(), owner, token)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"goals": goals})
}

// Deposit forwards a deposit into the plan named in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	input, err := moveInput(c)
	if err != nil {
		return err
	}
	tx, err := h.service.Deposit(c.UserContext(), input)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

// Withdraw forwards a withdrawal from the plan named in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	input, err := moveInput(c)
	if err != nil {
		return err
	}
	tx, err := h.service.Withdraw(c.UserContext(), input)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

func caller(c *fiber.Ctx) (string, string, error) {
	owner, _ := c.Locals("email").(string)
	token, _ := c.Locals("access_token").(string)
	if owner == "" || token == "" {
		return "", "", fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return owner, token, nil
}

func moveInput(c *fiber.Ctx) (MoveInput, error) {
	owner, token, err := caller(c)
	if err != nil {
		return MoveInput{}, err
	}
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return MoveInput{}, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return MoveInput{
		Owner:     owner,
		Token:     token,
		PlanID:    c.Params("planId"),
		Amount:    req.Amount,
		Reference: req.Reference,
	}, nil
}

func toHTTPError(err error) error {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, ErrPlanNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPlanLocked):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingPlanID):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		msg := apiErr.Detail
		if msg == "" {
			msg = "savings backend rejected the request"
		}
		return fiber.NewError(status, msg)
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
