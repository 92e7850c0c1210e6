package purchases

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/ledger"
)

// Handler exposes deposit and purchase endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchases handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount    int64  `json:"amount"`
	ClientRef string `json:"client_ref"`
}

type purchaseRequest struct {
	ItemRef   string `json:"item_ref"`
	Amount    int64  `json:"amount"`
	ClientRef string `json:"client_ref"`
}

type receiptResponse struct {
	TipID     string `json:"tip_id"`
	Balance   int64  `json:"balance"`
	ClientRef string `json:"client_ref"`
}

// Deposit credits the caller's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.service.Deposit(c.UserContext(), uid, req.ClientRef, req.Amount)
	if err != nil {
		return mapError(c, receipt, err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(receipt))
}

// Purchase debits the caller's wallet for a course or membership.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.service.Purchase(c.UserContext(), uid, req.ItemRef, req.ClientRef, req.Amount)
	if err != nil {
		return mapError(c, receipt, err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(receipt))
}

func mapError(c *fiber.Ctx, receipt Receipt, err error) error {
	switch {
	case errors.Is(err, ErrMissingItem):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusBadRequest, "wallet is required")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrDuplicateTransfer):
		return c.Status(http.StatusOK).JSON(toResponse(receipt))
	case errors.Is(err, ledger.ErrConflict):
		return fiber.NewError(http.StatusServiceUnavailable, "conflict, try again")
	default:
		return fiber.NewError(http.StatusServiceUnavailable, "temporary failure, try again")
	}
}

func toResponse(receipt Receipt) receiptResponse {
	return receiptResponse{
		TipID:     receipt.TipID,
		Balance:   receipt.Balance,
		ClientRef: receipt.ClientRef,
	}
}
