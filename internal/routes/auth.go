package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints. Logout requires a valid
// token, everything else is public.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwtmw, h.Logout)
}
