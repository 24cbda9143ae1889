package integration

import (
	"context"
	"errors"
	"testing"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"
	"character_catcher/internal/service"
)

func TestLedger_CreditDebit(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	userID := newUser(t, db)
	ctx := context.Background()

	balance, err := ledger.Credit(ctx, userID, 500, domain.TxAdminGrant, nil)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected balance 500, got %d", balance)
	}

	balance, err = ledger.Debit(ctx, userID, 200, domain.TxPurchase, nil)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 300 {
		t.Fatalf("expected balance 300, got %d", balance)
	}

	history, err := ledger.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(history))
	}
	// Newest first.
	if history[0].Amount != -200 || history[1].Amount != 500 {
		t.Fatalf("unexpected audit amounts: %d, %d", history[0].Amount, history[1].Amount)
	}
}

func TestLedger_DebitInsufficientFunds(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	userID := newUser(t, db)
	ctx := context.Background()

	if _, err := ledger.Credit(ctx, userID, 100, domain.TxAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := ledger.Debit(ctx, userID, 101, domain.TxPurchase, nil)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The failed debit must leave no trace: balance intact, no audit row.
	if got := balanceOf(t, db, userID); got != 100 {
		t.Fatalf("expected balance 100 after failed debit, got %d", got)
	}
	history, err := ledger.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(history))
	}
}

func TestLedger_DebitUnknownUser(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	ctx := context.Background()

	// An id that was never upserted distinguishes missing users from
	// insufficient funds.
	_, err := ledger.Debit(ctx, -1, 10, domain.TxPurchase, nil)
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLedger_Transfer(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	sender := newUser(t, db)
	recipient := newUser(t, db)
	ctx := context.Background()

	if _, err := ledger.Credit(ctx, sender, 1000, domain.TxAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := ledger.Transfer(ctx, sender, recipient, 400, nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := balanceOf(t, db, sender); got != 600 {
		t.Fatalf("expected sender balance 600, got %d", got)
	}
	if got := balanceOf(t, db, recipient); got != 400 {
		t.Fatalf("expected recipient balance 400, got %d", got)
	}

	// Both sides audited.
	senderHistory, _ := ledger.History(ctx, sender, 10)
	recipientHistory, _ := ledger.History(ctx, recipient, 10)
	if senderHistory[0].Type != domain.TxTransferOut {
		t.Fatalf("expected transfer_out, got %s", senderHistory[0].Type)
	}
	if recipientHistory[0].Type != domain.TxTransferIn {
		t.Fatalf("expected transfer_in, got %s", recipientHistory[0].Type)
	}
}

func TestLedger_TransferInsufficientLeavesBothUntouched(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	sender := newUser(t, db)
	recipient := newUser(t, db)
	ctx := context.Background()

	if _, err := ledger.Credit(ctx, sender, 50, domain.TxAdminGrant, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := ledger.Transfer(ctx, sender, recipient, 51, nil)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := balanceOf(t, db, sender); got != 50 {
		t.Fatalf("expected sender balance 50, got %d", got)
	}
	if got := balanceOf(t, db, recipient); got != 0 {
		t.Fatalf("expected recipient balance 0, got %d", got)
	}
}
