package backend

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type setPINRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

// SetPIN registers the transaction PIN for email.
func (c *Client) SetPIN(ctx context.Context, email, pin string) (Ack, error) {
	var ack Ack
	if err := c.do(ctx, fiber.MethodPost, "/auth/set-pin", "", setPINRequest{Email: email, PIN: pin}, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail submits the one-time code sent to email during signup.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) (Ack, error) {
	var ack Ack
	if err := c.do(ctx, fiber.MethodPost, "/auth/verify-email", "", verifyEmailRequest{Email: email, Code: code}, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}
