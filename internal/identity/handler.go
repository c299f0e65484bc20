package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// BearerTokenLocal is the fiber local holding the caller's raw credential.
const BearerTokenLocal = "bearer_token"

// BearerToken returns the credential stored under BearerTokenLocal.
func BearerToken(c *fiber.Ctx) string {
	token, _ := c.Locals(BearerTokenLocal).(string)
	return token
}

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type meResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Role               string `json:"role"`
	NeedsProfileUpdate bool   `json:"needs_profile_update"`
}

// Me returns the cached identity of the caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	token := BearerToken(c)
	if token == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	user, err := h.service.Current(c.UserContext(), token)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(meResponse{
		ID:                 user.ID,
		Name:               user.Name,
		Phone:              user.Phone,
		Role:               user.Role,
		NeedsProfileUpdate: NeedsProfileStep(user.Name),
	})
}

// statusFor keeps authentication failures reported by the league API and
// maps everything else to a gateway error.
func statusFor(err error) int {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		switch coded.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return coded.StatusCode()
		}
	}
	return http.StatusBadGateway
}
