package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/transfer"
)

// RegisterTransferRoutes wires the MSR transfer endpoint.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, rateLimiter fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/transfers", rateLimiter, h.Send)
		return
	}
	r.Post("/transfers", h.Send)
}
