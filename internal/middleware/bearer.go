package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fazosimples/botfut/internal/identity"
)

// TokenFingerprintKey is the fiber local holding the digest of the caller's
// credential.
const TokenFingerprintKey = "token_fingerprint"

// BearerAuth requires an Authorization bearer header. The credential is not
// verified here: the league API that issued it checks it on every call.
func BearerAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		c.Locals(identity.BearerTokenLocal, token)
		c.Locals(TokenFingerprintKey, identity.Fingerprint(token))
		return c.Next()
	}
}

func tokenFingerprint(c *fiber.Ctx) string {
	fp, _ := c.Locals(TokenFingerprintKey).(string)
	return fp
}
