package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stashly/stashly/internal/savings"
)

// RegisterSavingsRoutes exposes goal progress and fund movements. r must
// already run JWTAuth; moves run behind the idempotency handler when given.
func RegisterSavingsRoutes(r fiber.Router, h *savings.Handler, idempotency fiber.Handler) {
	r.Get("/goals", h.Goals)
	plans := r.Group("/plans/:planId")
	if idempotency != nil {
		plans.Post("/deposit", idempotency, h.Deposit)
		plans.Post("/withdraw", idempotency, h.Withdraw)
		return
	}
	plans.Post("/deposit", h.Deposit)
	plans.Post("/withdraw", h.Withdraw)
}
