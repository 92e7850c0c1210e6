package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
	replay  map[string]string // kind:client_ref -> tip id
	tips    []Tip
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and for running the service without a database.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets: make(map[string]Wallet),
		replay:  make(map[string]string),
	}
}

func (l *inMemoryLedger) GetOrCreateWallet(_ context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrWalletNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureWallet(userID), nil
}

func (l *inMemoryLedger) BalanceFor(_ context.Context, userID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wallet, ok := l.wallets[userID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	return wallet.Balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if input.SenderID == input.ReceiverID {
		return TransferResult{}, ErrSelfTransfer
	}
	return l.move(movement{
		kind:       KindTip,
		senderID:   input.SenderID,
		receiverID: input.ReceiverID,
		amount:     input.Amount,
		entityRef:  input.EntityRef,
		message:    input.Message,
		anonymous:  input.Anonymous,
		clientRef:  input.ClientRef,
	})
}

func (l *inMemoryLedger) Deposit(_ context.Context, userID, clientRef string, amount int64) (FundsResult, error) {
	if amount <= 0 {
		return FundsResult{}, ErrInvalidAmount
	}
	res, err := l.move(movement{
		kind:       KindDeposit,
		senderID:   TreasuryID,
		receiverID: userID,
		amount:     amount,
		entityRef:  KindDeposit,
		clientRef:  clientRef,
		mintSender: true,
	})
	return FundsResult{TipID: res.TipID, Balance: res.ReceiverBalance}, err
}

func (l *inMemoryLedger) Purchase(_ context.Context, userID, itemRef, clientRef string, amount int64) (FundsResult, error) {
	if amount <= 0 {
		return FundsResult{}, ErrInvalidAmount
	}
	res, err := l.move(movement{
		kind:       KindPurchase,
		senderID:   userID,
		receiverID: TreasuryID,
		amount:     amount,
		entityRef:  itemRef,
		clientRef:  clientRef,
	})
	return FundsResult{TipID: res.TipID, Balance: res.SenderBalance}, err
}

func (l *inMemoryLedger) TipsForUser(_ context.Context, userID string, limit int) ([]Tip, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var tips []Tip
	for i := len(l.tips) - 1; i >= 0 && len(tips) < limit; i-- {
		t := l.tips[i]
		if t.SenderID == userID || t.ReceiverID == userID {
			tips = append(tips, t)
		}
	}
	return tips, nil
}

func (l *inMemoryLedger) move(m movement) (TransferResult, error) {
	if m.senderID == "" || m.receiverID == "" {
		return TransferResult{}, ErrWalletNotFound
	}
	if m.clientRef == "" {
		m.clientRef = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// A replayed client_ref returns the original tip id with the wallets'
	// current balances, same as the Postgres implementation.
	if tipID, exists := l.replay[m.kind+":"+m.clientRef]; exists {
		return TransferResult{
			TipID:           tipID,
			SenderBalance:   l.wallets[m.senderID].Balance,
			ReceiverBalance: l.wallets[m.receiverID].Balance,
		}, ErrDuplicateTransfer
	}

	// Funds check before wallet creation so a failed transfer leaves no
	// empty wallet rows behind.
	if !m.mintSender && l.wallets[m.senderID].Balance < m.amount {
		return TransferResult{}, ErrInsufficientFunds
	}
	sender := l.ensureWallet(m.senderID)
	receiver := l.ensureWallet(m.receiverID)

	now := time.Now().UTC()
	sender.Balance -= m.amount
	sender.TotalSpent += m.amount
	sender.UpdatedAt = now
	receiver.Balance += m.amount
	receiver.TotalEarned += m.amount
	receiver.UpdatedAt = now
	l.wallets[m.senderID] = sender
	l.wallets[m.receiverID] = receiver

	tip := Tip{
		ID:         uuid.NewString(),
		Kind:       m.kind,
		SenderID:   m.senderID,
		ReceiverID: m.receiverID,
		Amount:     m.amount,
		EntityRef:  m.entityRef,
		Message:    m.message,
		Anonymous:  m.anonymous,
		ClientRef:  m.clientRef,
		CreatedAt:  now,
	}
	l.tips = append(l.tips, tip)

	l.replay[m.kind+":"+m.clientRef] = tip.ID
	return TransferResult{
		TipID:           tip.ID,
		SenderBalance:   sender.Balance,
		ReceiverBalance: receiver.Balance,
	}, nil
}

// ensureWallet must be called with the write lock held.
func (l *inMemoryLedger) ensureWallet(userID string) Wallet {
	wallet, ok := l.wallets[userID]
	if !ok {
		wallet = Wallet{UserID: userID, UpdatedAt: time.Now().UTC()}
		l.wallets[userID] = wallet
	}
	return wallet
}
