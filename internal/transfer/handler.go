package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/ledger"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	ReceiverID string `json:"receiver_id"`
	Amount     int64  `json:"amount"`
	EntityRef  string `json:"entity_ref"`
	Message    string `json:"message"`
	Anonymous  bool   `json:"anonymous"`
	ClientRef  string `json:"client_ref"`
}

type sendResponse struct {
	TipID           string `json:"tip_id"`
	SenderBalance   int64  `json:"sender_balance"`
	ReceiverBalance int64  `json:"receiver_balance"`
	ClientRef       string `json:"client_ref"`
}

// Send processes a wallet-to-wallet MSR transfer for the authenticated sender.
//
// Validation failures are terminal 4xx responses; storage trouble surfaces as
// 503 so clients know to retry. The two must never be conflated.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Send(c.UserContext(), SendInput{
		SenderID:   uid,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		EntityRef:  req.EntityRef,
		Message:    req.Message,
		Anonymous:  req.Anonymous,
		ClientRef:  req.ClientRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, ledger.ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, "cannot send to yourself")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusBadRequest, "receiver is required")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ledger.ErrDuplicateTransfer):
			// Replayed client_ref: return the original outcome.
			return c.Status(http.StatusOK).JSON(toResponse(res))
		case errors.Is(err, ledger.ErrConflict):
			return fiber.NewError(http.StatusServiceUnavailable, "transfer conflict, try again")
		default:
			return fiber.NewError(http.StatusServiceUnavailable, "temporary failure, try again")
		}
	}

	return c.Status(http.StatusCreated).JSON(toResponse(res))
}

func toResponse(res SendResult) sendResponse {
	return sendResponse{
		TipID:           res.TipID,
		SenderBalance:   res.SenderBalance,
		ReceiverBalance: res.ReceiverBalance,
		ClientRef:       res.ClientRef,
	}
}
