package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferMovesBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if _, err := l.GetOrCreateWallet(ctx, "alice"); err != nil {
		t.Fatalf("wallet alice: %v", err)
	}
	if _, err := l.GetOrCreateWallet(ctx, "bob"); err != nil {
		t.Fatalf("wallet bob: %v", err)
	}
	SeedBalance(l, "alice", 100)
	SeedBalance(l, "bob", 10)

	res, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 40, ClientRef: "t-1"})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if res.SenderBalance != 60 {
		t.Fatalf("expected sender balance 60, got %d", res.SenderBalance)
	}
	if res.ReceiverBalance != 50 {
		t.Fatalf("expected receiver balance 50, got %d", res.ReceiverBalance)
	}

	tips, err := l.TipsForUser(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list tips: %v", err)
	}
	if len(tips) != 1 {
		t.Fatalf("expected exactly one tip, got %d", len(tips))
	}
	if tips[0].Amount != 40 || tips[0].Kind != KindTip {
		t.Fatalf("unexpected tip record: %+v", tips[0])
	}
}

func TestInMemoryLedger_InsufficientFundsLeavesNoTrace(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 10)
	SeedBalance(l, "bob", 5)

	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 40, ClientRef: "t-1"}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if bal, _ := l.BalanceFor(ctx, "alice"); bal != 10 {
		t.Fatalf("sender balance changed on failed transfer: %d", bal)
	}
	if bal, _ := l.BalanceFor(ctx, "bob"); bal != 5 {
		t.Fatalf("receiver balance changed on failed transfer: %d", bal)
	}
	tips, _ := l.TipsForUser(ctx, "alice", 10)
	if len(tips) != 0 {
		t.Fatalf("failed transfer wrote %d tips", len(tips))
	}

	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "stranger", Amount: 40, ClientRef: "t-2"}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := l.BalanceFor(ctx, "stranger"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatal("failed transfer created the receiver wallet")
	}
}

func TestInMemoryLedger_RejectsInvalidInput(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 100)

	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: -5}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "alice", Amount: 10}); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer rejection, got %v", err)
	}
	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "", Amount: 10}); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected empty receiver rejection, got %v", err)
	}
	if _, err := l.Transfer(ctx, TransferInput{SenderID: "", ReceiverID: "bob", Amount: 10}); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected empty sender rejection, got %v", err)
	}
	if _, err := l.BalanceFor(ctx, ""); !errors.Is(err, ErrWalletNotFound) {
		t.Fatal("empty receiver grew a wallet")
	}
	if bal, _ := l.BalanceFor(ctx, "alice"); bal != 100 {
		t.Fatalf("rejected input mutated balance: %d", bal)
	}
}

func TestInMemoryLedger_TransferToMissingWalletCreatesIt(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 100)

	res, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "newcomer", Amount: 25, ClientRef: "t-1"})
	if err != nil {
		t.Fatalf("transfer to missing wallet: %v", err)
	}
	if res.ReceiverBalance != 25 {
		t.Fatalf("expected receiver balance 25, got %d", res.ReceiverBalance)
	}
	if bal, err := l.BalanceFor(ctx, "newcomer"); err != nil || bal != 25 {
		t.Fatalf("expected created wallet with balance 25, got %d (%v)", bal, err)
	}
}

func TestInMemoryLedger_DuplicateClientRefReplays(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 100)

	first, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 30, ClientRef: "retry-me"})
	if err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}

	replay, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 30, ClientRef: "retry-me"})
	if !errors.Is(err, ErrDuplicateTransfer) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if replay.TipID != first.TipID || replay.SenderBalance != first.SenderBalance {
		t.Fatalf("replay did not return original outcome: %+v vs %+v", replay, first)
	}
	if bal, _ := l.BalanceFor(ctx, "alice"); bal != 70 {
		t.Fatalf("retry double-debited: balance %d", bal)
	}
	tips, _ := l.TipsForUser(ctx, "alice", 10)
	if len(tips) != 1 {
		t.Fatalf("retry wrote an extra tip: %d", len(tips))
	}

	// After further movement a replay still returns the original tip id,
	// with balances as of the replay.
	if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 20, ClientRef: "later"}); err != nil {
		t.Fatalf("follow-up transfer failed: %v", err)
	}
	replay, err = l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 30, ClientRef: "retry-me"})
	if !errors.Is(err, ErrDuplicateTransfer) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if replay.TipID != first.TipID {
		t.Fatalf("late replay returned a different tip: %s vs %s", replay.TipID, first.TipID)
	}
	if replay.SenderBalance != 50 {
		t.Fatalf("expected current balance 50 on late replay, got %d", replay.SenderBalance)
	}
}

func TestInMemoryLedger_ConcurrentTransfersConserveTotal(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 100_000)
	SeedBalance(l, "bob", 0)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("tx-%d", i)
			if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: amount, ClientRef: ref}); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	a, _ := l.BalanceFor(ctx, "alice")
	b, _ := l.BalanceFor(ctx, "bob")
	if a+b != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", a+b)
	}
	if b != workers*amount {
		t.Fatalf("expected receiver balance %d, got %d", workers*amount, b)
	}
}

func TestInMemoryLedger_ConcurrentOverdraftOnlyOneWins(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("race-%d", i)
			_, errs[i] = l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 60, ClientRef: ref})
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, ErrInsufficientFunds) && !errors.Is(err, ErrConflict) {
				t.Fatalf("unexpected failure: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one losing transfer, got %d failures", failures)
	}
	if bal, _ := l.BalanceFor(ctx, "alice"); bal != 40 {
		t.Fatalf("expected final sender balance 40, got %d", bal)
	}
	tips, _ := l.TipsForUser(ctx, "alice", 10)
	if len(tips) != 1 {
		t.Fatalf("expected exactly one tip, got %d", len(tips))
	}
}

func TestInMemoryLedger_DepositAndPurchase(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	dep, err := l.Deposit(ctx, "alice", "dep-1", 500)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if dep.Balance != 500 {
		t.Fatalf("expected balance 500 after deposit, got %d", dep.Balance)
	}

	if _, err := l.Deposit(ctx, "alice", "dep-1", 500); !errors.Is(err, ErrDuplicateTransfer) {
		t.Fatalf("expected duplicate deposit error, got %v", err)
	}

	pur, err := l.Purchase(ctx, "alice", "course:go-101", "buy-1", 200)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if pur.Balance != 300 {
		t.Fatalf("expected balance 300 after purchase, got %d", pur.Balance)
	}

	if _, err := l.Purchase(ctx, "alice", "course:go-201", "buy-2", 1_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	tips, _ := l.TipsForUser(ctx, "alice", 10)
	if len(tips) != 2 {
		t.Fatalf("expected deposit and purchase records, got %d", len(tips))
	}
	if tips[0].Kind != KindPurchase || tips[0].EntityRef != "course:go-101" {
		t.Fatalf("unexpected newest record: %+v", tips[0])
	}
}

func TestInMemoryLedger_WalletCountersAreMonotone(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "alice", 1_000)

	for i := 0; i < 3; i++ {
		if _, err := l.Transfer(ctx, TransferInput{SenderID: "alice", ReceiverID: "bob", Amount: 100, ClientRef: fmt.Sprintf("t-%d", i)}); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}

	alice, err := l.GetOrCreateWallet(ctx, "alice")
	if err != nil {
		t.Fatalf("wallet alice: %v", err)
	}
	bob, err := l.GetOrCreateWallet(ctx, "bob")
	if err != nil {
		t.Fatalf("wallet bob: %v", err)
	}
	if alice.TotalSpent != 300 {
		t.Fatalf("expected total_spent 300, got %d", alice.TotalSpent)
	}
	if bob.TotalEarned != 300 {
		t.Fatalf("expected total_earned 300, got %d", bob.TotalEarned)
	}
}
