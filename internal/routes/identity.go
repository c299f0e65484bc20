package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fazosimples/botfut/internal/identity"
)

// RegisterIdentityRoutes wires the caller's identity endpoint.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
}
