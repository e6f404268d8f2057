package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stashly/stashly/internal/session"
)

// RegisterPinRoutes exposes pin pad sessions. Handlers in open run before
// session creation; auth guards the attempt history.
func RegisterPinRoutes(r fiber.Router, h *session.Handler, auth fiber.Handler, open ...fiber.Handler) {
	group := r.Group("/pin")
	group.Post("/sessions", append(open, h.Open)...)
	group.Get("/sessions/:id", h.Get)
	group.Post("/sessions/:id/keys", h.Press)
	group.Delete("/sessions/:id", h.Close)
	group.Get("/attempts", auth, h.Attempts)
}
