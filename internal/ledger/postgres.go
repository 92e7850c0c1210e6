package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxMoveAttempts bounds internal retries on serialization failures before
// surfacing ErrConflict to the caller.
const maxMoveAttempts = 3

const walletColumns = `user_id, balance, locked, total_earned, total_spent, updated_at`

const tipColumns = `id, kind, sender_id, receiver_id, amount, entity_ref, message, anonymous, client_ref, created_at`

// PostgresLedger persists wallets and tips in PostgreSQL. All balance
// mutations run in a single transaction that locks both wallet rows in a
// fixed order, so concurrent transfers against the same wallet serialize
// instead of racing the balance check.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// GetOrCreateWallet returns the wallet for userID, inserting a zero-balance
// row if none exists. The unique constraint on user_id makes concurrent
// first-access safe: the losing insert is a no-op and both callers read the
// same row.
func (l *PostgresLedger) GetOrCreateWallet(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrWalletNotFound
	}
	if _, err := l.db.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1)
        ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		return Wallet{}, fmt.Errorf("read wallet: %w", err)
	}
	return wallet, nil
}

// BalanceFor returns the committed balance for the specified wallet.
func (l *PostgresLedger) BalanceFor(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// Transfer moves MSR between two user wallets and appends one tip record,
// all inside a single transaction.
func (l *PostgresLedger) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if input.SenderID == input.ReceiverID {
		return TransferResult{}, ErrSelfTransfer
	}
	return l.move(ctx, movement{
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

// Deposit credits a user wallet from the treasury. The treasury is the mint,
// so its side of the posting skips the funds check.
func (l *PostgresLedger) Deposit(ctx context.Context, userID, clientRef string, amount int64) (FundsResult, error) {
	if amount <= 0 {
		return FundsResult{}, ErrInvalidAmount
	}
	res, err := l.move(ctx, movement{
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

// Purchase debits a user wallet into the treasury for a course or membership
// purchase, enforcing the same funds check and locking as a transfer.
func (l *PostgresLedger) Purchase(ctx context.Context, userID, itemRef, clientRef string, amount int64) (FundsResult, error) {
	if amount <= 0 {
		return FundsResult{}, ErrInvalidAmount
	}
	res, err := l.move(ctx, movement{
		kind:       KindPurchase,
		senderID:   userID,
		receiverID: TreasuryID,
		amount:     amount,
		entityRef:  itemRef,
		clientRef:  clientRef,
	})
	return FundsResult{TipID: res.TipID, Balance: res.SenderBalance}, err
}

// TipsForUser returns the newest tips the user sent or received.
func (l *PostgresLedger) TipsForUser(ctx context.Context, userID string, limit int) ([]Tip, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `SELECT `+tipColumns+` FROM tips
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	var tips []Tip
	for rows.Next() {
		var (
			t     Tip
			tipID uuid.UUID
		)
		if err := rows.Scan(&tipID, &t.Kind, &t.SenderID, &t.ReceiverID, &t.Amount,
			&t.EntityRef, &t.Message, &t.Anonymous, &t.ClientRef, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		t.ID = tipID.String()
		t.CreatedAt = t.CreatedAt.UTC()
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

// movement is the shared shape behind Transfer, Deposit and Purchase.
type movement struct {
	kind       string
	senderID   string
	receiverID string
	amount     int64
	entityRef  string
	message    string
	anonymous  bool
	clientRef  string
	mintSender bool
}

func (l *PostgresLedger) move(ctx context.Context, m movement) (TransferResult, error) {
	if m.senderID == "" || m.receiverID == "" {
		return TransferResult{}, ErrWalletNotFound
	}
	if m.clientRef == "" {
		m.clientRef = uuid.NewString()
	}

	var (
		res TransferResult
		err error
	)
	for attempt := 0; attempt < maxMoveAttempts; attempt++ {
		res, err = l.moveTx(ctx, m)
		if err == nil || !retryableTxError(err) {
			return res, err
		}
	}
	return TransferResult{}, fmt.Errorf("%w: %v", ErrConflict, err)
}

func (l *PostgresLedger) moveTx(ctx context.Context, m movement) (TransferResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Wallets are created lazily, so both rows must exist before they can be
	// locked. The losing side of a concurrent insert reads the winner's row.
	for _, id := range []string{m.senderID, m.receiverID} {
		if _, err := tx.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1)
            ON CONFLICT (user_id) DO NOTHING`, id); err != nil {
			return TransferResult{}, fmt.Errorf("ensure wallet %s: %w", id, err)
		}
	}

	// Lock both rows in lexicographic user-id order so two transfers touching
	// the same pair of wallets cannot deadlock.
	first, second := m.senderID, m.receiverID
	if second < first {
		first, second = second, first
	}
	firstWallet, err := lockWallet(ctx, tx, first)
	if err != nil {
		return TransferResult{}, err
	}
	secondWallet, err := lockWallet(ctx, tx, second)
	if err != nil {
		return TransferResult{}, err
	}
	sender, receiver := firstWallet, secondWallet
	if sender.UserID != m.senderID {
		sender, receiver = secondWallet, firstWallet
	}

	// Replay check under the row locks: a retried client_ref returns the
	// original outcome instead of debiting twice.
	existingID, err := tipIDByClientRef(ctx, tx, m.kind, m.clientRef)
	if err == nil {
		return TransferResult{
			TipID:           existingID,
			SenderBalance:   sender.Balance,
			ReceiverBalance: receiver.Balance,
		}, ErrDuplicateTransfer
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return TransferResult{}, err
	}

	if !m.mintSender && sender.Balance < m.amount {
		return TransferResult{}, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = balance - $1, total_spent = total_spent + $1, updated_at = now()
        WHERE user_id = $2`, m.amount, m.senderID); err != nil {
		return TransferResult{}, fmt.Errorf("debit sender: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = balance + $1, total_earned = total_earned + $1, updated_at = now()
        WHERE user_id = $2`, m.amount, m.receiverID); err != nil {
		return TransferResult{}, fmt.Errorf("credit receiver: %w", err)
	}

	tipID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO tips (id, kind, sender_id, receiver_id, amount, entity_ref, message, anonymous, client_ref)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tipID, m.kind, m.senderID, m.receiverID, m.amount, m.entityRef, m.message, m.anonymous, m.clientRef); err != nil {
		if isUniqueViolation(err) {
			return TransferResult{}, ErrDuplicateTransfer
		}
		return TransferResult{}, fmt.Errorf("record tip: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, fmt.Errorf("commit transfer: %w", err)
	}

	return TransferResult{
		TipID:           tipID.String(),
		SenderBalance:   sender.Balance - m.amount,
		ReceiverBalance: receiver.Balance + m.amount,
	}, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, userID string) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	wallet, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		return Wallet{}, fmt.Errorf("lock wallet %s: %w", userID, err)
	}
	return wallet, nil
}

func tipIDByClientRef(ctx context.Context, tx pgx.Tx, kind, clientRef string) (string, error) {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM tips WHERE kind = $1 AND client_ref = $2`, kind, clientRef).Scan(&id); err != nil {
		return "", err
	}
	return id.String(), nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.UserID, &w.Balance, &w.Locked, &w.TotalEarned, &w.TotalSpent, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func retryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure and deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
