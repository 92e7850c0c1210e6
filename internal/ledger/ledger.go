package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidAmount occurs when a mutation is requested with a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer occurs when sender and receiver resolve to the same wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")

	// ErrInsufficientFunds occurs when the sender wallet lacks available balance
	// to cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransfer indicates the provided client reference was already
	// recorded and therefore the operation should be treated as idempotent.
	ErrDuplicateTransfer = errors.New("duplicate transfer")

	// ErrWalletNotFound indicates the wallet row does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrConflict indicates concurrent mutations exhausted the retry budget.
	ErrConflict = errors.New("transfer conflict")
)

const (
	// KindTip marks a user-to-user MSR transfer.
	KindTip = "tip"
	// KindDeposit marks a treasury-to-user credit.
	KindDeposit = "deposit"
	// KindPurchase marks a user-to-treasury debit (course or membership purchase).
	KindPurchase = "purchase"

	// TreasuryID is the reserved wallet backing deposits and purchases. It is
	// the mint and the only wallet permitted to run a negative balance.
	TreasuryID = "treasury:msr"
)

// Wallet is the per-user MSR balance record.
type Wallet struct {
	UserID      string
	Balance     int64
	Locked      int64
	TotalEarned int64
	TotalSpent  int64
	UpdatedAt   time.Time
}

// Tip is one immutable audit record. Every balance mutation, whatever its
// kind, writes exactly one.
type Tip struct {
	ID         string
	Kind       string
	SenderID   string
	ReceiverID string
	Amount     int64
	EntityRef  string
	Message    string
	Anonymous  bool
	ClientRef  string
	CreatedAt  time.Time
}

// TransferInput captures the data needed to move MSR between two wallets.
type TransferInput struct {
	SenderID   string
	ReceiverID string
	Amount     int64
	EntityRef  string
	Message    string
	Anonymous  bool
	ClientRef  string
}

// TransferResult captures the outcome of a completed transfer.
type TransferResult struct {
	TipID           string
	SenderBalance   int64
	ReceiverBalance int64
}

// FundsResult captures the outcome of a deposit or purchase, reporting the
// user-side wallet balance.
type FundsResult struct {
	TipID   string
	Balance int64
}

// Ledger defines the contract implemented by wallet backends (e.g. Postgres).
// Every mutation is atomic: on failure no balance changes and no tip row is written.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID string) (Wallet, error)
	BalanceFor(ctx context.Context, userID string) (int64, error)
	Transfer(ctx context.Context, input TransferInput) (TransferResult, error)
	Deposit(ctx context.Context, userID, clientRef string, amount int64) (FundsResult, error)
	Purchase(ctx context.Context, userID, itemRef, clientRef string, amount int64) (FundsResult, error)
	TipsForUser(ctx context.Context, userID string, limit int) ([]Tip, error)
}
