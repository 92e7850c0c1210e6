package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/purchases"
)

// RegisterPurchaseRoutes wires deposit and purchase endpoints. Deposits mint
// from the treasury, so they sit behind the platform guard in addition to the
// caller's JWT.
func RegisterPurchaseRoutes(r fiber.Router, h *purchases.Handler, rateLimiter, platformGuard fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/deposits", platformGuard, rateLimiter, h.Deposit)
		r.Post("/purchases", rateLimiter, h.Purchase)
		return
	}
	r.Post("/deposits", platformGuard, h.Deposit)
	r.Post("/purchases", h.Purchase)
}
