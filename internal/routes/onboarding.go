package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fazosimples/botfut/internal/onboarding"
)

// RegisterOnboardingRoutes wires the wizard session endpoints. The submit
// handlers guard the calls that reach the league API.
func RegisterOnboardingRoutes(r fiber.Router, h *onboarding.Handler, submit ...fiber.Handler) {
	g := r.Group("/onboarding/sessions")
	g.Post("", h.Start)
	g.Get("/:id", h.Get)
	g.Patch("/:id/draft", h.UpdateDraft)
	g.Post("/:id/profile", guarded(submit, h.SaveProfile)...)
	g.Post("/:id/workspace", guarded(submit, h.SubmitWorkspace)...)
	g.Post("/:id/confirm", h.Confirm)
	g.Post("/:id/signout", h.SignOut)
}

func guarded(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}
