package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/cashpoint/cashpoint/internal/account"
)

func TestDebitMaintainsBalance(t *testing.T) {
	l := New()
	acct := &account.Account{Number: "4111", Balance: 10_000}

	balance, err := l.Debit(acct, 1_500)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 8_500 || acct.Balance != 8_500 {
		t.Fatalf("expected balance 8500, got %d/%d", balance, acct.Balance)
	}

	balance, err = l.Credit(acct, 500)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 9_000 {
		t.Fatalf("expected balance 9000, got %d", balance)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	l := New()
	acct := &account.Account{Balance: 5_000}

	if _, err := l.Debit(acct, 5_001); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if acct.Balance != 5_000 {
		t.Fatalf("balance changed on failed debit: %d", acct.Balance)
	}

	if _, err := l.Debit(acct, 5_000); err != nil {
		t.Fatalf("debit full balance: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("expected zero balance, got %d", acct.Balance)
	}
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	l := New()
	acct := &account.Account{Balance: 5_000}

	if _, err := l.Debit(acct, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Credit(acct, -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if acct.Balance != 5_000 {
		t.Fatalf("balance changed: %d", acct.Balance)
	}
}

func TestAppendAndHistory(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return at }))
	acct := &account.Account{}

	w := l.Append(acct, account.TransactionWithdrawal, 20_000, "")
	l.Append(acct, account.TransactionDeposit, 5_000, "")
	l.Append(acct, account.TransactionWithdrawal, 10_000, account.StatusCompleted)

	if w.ID == "" || w.Status != account.StatusCompleted || !w.At.Equal(at) {
		t.Fatalf("unexpected transaction %+v", w)
	}

	all := l.History(*acct, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(all))
	}
	withdrawals := l.History(*acct, account.TransactionWithdrawal)
	if len(withdrawals) != 2 || withdrawals[0].Amount != 20_000 || withdrawals[1].Amount != 10_000 {
		t.Fatalf("unexpected withdrawals %+v", withdrawals)
	}

	withdrawals[0].Amount = 1
	if acct.Transactions[0].Amount != 20_000 {
		t.Fatalf("history must be a copy")
	}
}
