package wallet

import (
	"context"

	"github.com/tamvai/wallet-service/internal/ledger"
)

// Service exposes the signed-in user's wallet: balance and tip history.
// Wallets are created lazily on first access.
type Service struct {
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(ledger ledger.Ledger) *Service {
	return &Service{ledger: ledger}
}

// Get returns the user's wallet, creating a zero-balance one if absent.
func (s *Service) Get(ctx context.Context, userID string) (ledger.Wallet, error) {
	return s.ledger.GetOrCreateWallet(ctx, userID)
}

// Balance returns the current committed balance, creating the wallet if this
// is the user's first access.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	wallet, err := s.ledger.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// History returns the user's most recent tip records, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]ledger.Tip, error) {
	return s.ledger.TipsForUser(ctx, userID, limit)
}
