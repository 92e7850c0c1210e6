package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamvai/wallet-service/internal/ledger"
	"github.com/tamvai/wallet-service/internal/notification"
)

// ErrNotAuthenticated indicates the sender identity could not be resolved.
var ErrNotAuthenticated = errors.New("not authenticated")

// Service orchestrates MSR transfers between user wallets.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(ledgerBackend ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledgerBackend, notifier: notifier}
}

// SendInput captures the data needed to send MSR to another user.
type SendInput struct {
	SenderID   string
	ReceiverID string
	Amount     int64
	EntityRef  string
	Message    string
	Anonymous  bool
	ClientRef  string
}

// SendResult describes the outcome of a completed transfer.
type SendResult struct {
	TipID           string
	SenderBalance   int64
	ReceiverBalance int64
	ClientRef       string
	CompletedAt     time.Time
}

// Send moves MSR from the authenticated sender to the receiver. The ledger
// performs the balance check, both balance updates and the tip append as one
// atomic unit; a failure at any point leaves no partial state behind.
func (s *Service) Send(ctx context.Context, input SendInput) (SendResult, error) {
	if input.SenderID == "" {
		return SendResult{}, ErrNotAuthenticated
	}
	if input.ClientRef == "" {
		input.ClientRef = uuid.NewString()
	}
	if input.EntityRef == "" {
		input.EntityRef = ledger.KindTip
	}

	res, err := s.ledger.Transfer(ctx, ledger.TransferInput{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Amount:     input.Amount,
		EntityRef:  input.EntityRef,
		Message:    input.Message,
		Anonymous:  input.Anonymous,
		ClientRef:  input.ClientRef,
	})
	outcome := SendResult{
		TipID:           res.TipID,
		SenderBalance:   res.SenderBalance,
		ReceiverBalance: res.ReceiverBalance,
		ClientRef:       input.ClientRef,
		CompletedAt:     time.Now().UTC(),
	}
	if err != nil {
		return outcome, err
	}

	if s.notifier != nil {
		body := fmt.Sprintf("You received %d MSR", input.Amount)
		if !input.Anonymous {
			body = fmt.Sprintf("You received %d MSR from %s", input.Amount, input.SenderID)
		}
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTipReceived,
			Destination: input.ReceiverID,
			Body:        body,
		})
	}

	return outcome, nil
}
