package wallet

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/ledger"
)

// Handler exposes wallet HTTP endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	UserID      string    `json:"user_id"`
	Balance     int64     `json:"balance"`
	Locked      int64     `json:"locked"`
	TotalEarned int64     `json:"total_earned"`
	TotalSpent  int64     `json:"total_spent"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Me returns the caller's wallet, creating it on first access.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	wallet, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, "wallet temporarily unavailable")
	}
	return c.Status(http.StatusOK).JSON(toResponse(wallet))
}

// Balance returns the caller's available balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	balance, err := h.service.Balance(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, "wallet temporarily unavailable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user_id": uid, "balance": balance})
}

// History returns the caller's most recent tips.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	tips, err := h.service.History(c.UserContext(), uid, limit)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, "history temporarily unavailable")
	}
	out := make([]fiber.Map, 0, len(tips))
	for _, t := range tips {
		entry := fiber.Map{
			"id":          t.ID,
			"kind":        t.Kind,
			"receiver_id": t.ReceiverID,
			"amount":      t.Amount,
			"entity_ref":  t.EntityRef,
			"message":     t.Message,
			"created_at":  t.CreatedAt,
		}
		// Anonymous tips hide the sender from the receiving side.
		if t.Anonymous && t.SenderID != uid {
			entry["sender_id"] = ""
		} else {
			entry["sender_id"] = t.SenderID
		}
		out = append(out, entry)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"tips": out})
}

func toResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		UserID:      w.UserID,
		Balance:     w.Balance,
		Locked:      w.Locked,
		TotalEarned: w.TotalEarned,
		TotalSpent:  w.TotalSpent,
		UpdatedAt:   w.UpdatedAt,
	}
}
