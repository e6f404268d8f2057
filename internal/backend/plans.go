package backend

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Plan is a savings plan as returned by the backend.
type Plan struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Target    decimal.Decimal `json:"target_amount"`
	Saved     decimal.Decimal `json:"saved_amount"`
	Currency  string          `json:"currency"`
	MaturesAt *time.Time      `json:"matures_at,omitempty"`
}

// MoveFundsRequest is the body of deposit and withdraw calls.
type MoveFundsRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// Transaction is the backend's record of a deposit or withdrawal.
type Transaction struct {
	ID        string          `json:"id"`
	PlanID    string          `json:"plan_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

type plansResponse struct {
	Plans []Plan `json:"plans"`
}

// ListPlans returns the plans owned by the token's subject.
func (c *Client) ListPlans(ctx context.Context, token string) ([]Plan, error) {
	var resp plansResponse
	if err := c.do(ctx, fiber.MethodGet, "/savings/plans", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plans, nil
}

// Deposit moves funds into a plan.
func (c *Client) Deposit(ctx context.Context, token, planID string, req MoveFundsRequest) (Transaction, error) {
	return c.moveFunds(ctx, token, planID, "deposit", req)
}

// Withdraw moves funds out of a plan.
func (c *Client) Withdraw(ctx context.Context, token, planID string, req MoveFundsRequest) (Transaction, error) {
	return c.moveFunds(ctx, token, planID, "withdraw", req)
}

func (c *Client) moveFunds(ctx context.Context, token, planID, action string, req MoveFundsRequest) (Transaction, error) {
	if planID == "" {
		return Transaction{}, errors.New("plan id is required")
	}
	var tx Transaction
	path := "/savings/plans/" + url.PathEscape(planID) + "/" + action
	if err := c.do(ctx, fiber.MethodPost, path, token, req, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}
