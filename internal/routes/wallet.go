package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/wallet"
)

// RegisterWalletRoutes wires the authenticated user's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallet/balance", h.Balance)
	r.Get("/wallet/tips", h.History)
}
