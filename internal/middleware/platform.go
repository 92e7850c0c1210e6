package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const platformTokenHeader = "X-Platform-Token"

// PlatformOnly restricts a route to platform callers presenting the shared
// token. An empty configured token disables the route entirely, so deposits
// stay locked until the operator provisions a secret.
func PlatformOnly(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return fiber.NewError(http.StatusForbidden, "platform access disabled")
		}
		presented := c.Get(platformTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return fiber.NewError(http.StatusForbidden, "platform access required")
		}
		return c.Next()
	}
}
