package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tamvai/wallet-service/internal/ledger"
	"github.com/tamvai/wallet-service/internal/notification"
)

// ErrMissingItem indicates a purchase request without an item reference.
var ErrMissingItem = errors.New("item reference is required")

// Service routes deposits and course/membership purchases through the ledger
// so every balance mutation follows the same atomic debit discipline as a
// transfer.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a purchases service.
func NewService(ledgerBackend ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledgerBackend, notifier: notifier}
}

// Receipt describes the outcome of a deposit or purchase.
type Receipt struct {
	TipID       string
	Balance     int64
	ClientRef   string
	CompletedAt time.Time
}

// Deposit credits the user's wallet from the treasury.
func (s *Service) Deposit(ctx context.Context, userID, clientRef string, amount int64) (Receipt, error) {
	if clientRef == "" {
		clientRef = uuid.NewString()
	}
	res, err := s.ledger.Deposit(ctx, userID, clientRef, amount)
	receipt := Receipt{TipID: res.TipID, Balance: res.Balance, ClientRef: clientRef, CompletedAt: time.Now().UTC()}
	if err != nil {
		return receipt, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDeposit,
			Destination: userID,
			Body:        "Your deposit has been credited",
		})
	}
	return receipt, nil
}

// Purchase debits the user's wallet for the referenced item.
func (s *Service) Purchase(ctx context.Context, userID, itemRef, clientRef string, amount int64) (Receipt, error) {
	if itemRef == "" {
		return Receipt{}, ErrMissingItem
	}
	if clientRef == "" {
		clientRef = uuid.NewString()
	}
	res, err := s.ledger.Purchase(ctx, userID, itemRef, clientRef, amount)
	return Receipt{TipID: res.TipID, Balance: res.Balance, ClientRef: clientRef, CompletedAt: time.Now().UTC()}, err
}
