package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cashpoint/cashpoint/internal/account"
)

var (
	// ErrInsufficientFunds occurs when the account lacks available balance
	// to cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount occurs when a posting amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Ledger applies balance movements and history entries to an account
// record. It never persists; callers hold the account lock between loading
// the record and saving it, so every check runs against the current balance.
type Ledger struct {
	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Debit removes amount from the balance and returns the new balance.
func (l *Ledger) Debit(acct *account.Account, amount int64) (int64, error) {
	if amount <= 0 {
		return acct.Balance, ErrInvalidAmount
	}
	if amount > acct.Balance {
		return acct.Balance, ErrInsufficientFunds
	}
	acct.Balance -= amount
	return acct.Balance, nil
}

// Credit adds amount to the balance and returns the new balance.
func (l *Ledger) Credit(acct *account.Account, amount int64) (int64, error) {
	if amount <= 0 {
		return acct.Balance, ErrInvalidAmount
	}
	acct.Balance += amount
	return acct.Balance, nil
}

// Append records a movement in the account history. An empty status
// defaults to Completed.
func (l *Ledger) Append(acct *account.Account, kind account.TransactionKind, amount int64, status string) account.Transaction {
	if status == "" {
		status = account.StatusCompleted
	}
	tx := account.Transaction{
		ID:     uuid.NewString(),
		Kind:   kind,
		Amount: amount,
		At:     l.now().UTC(),
		Status: status,
	}
	acct.Transactions = append(acct.Transactions, tx)
	return tx
}

// History returns a copy of the account history, optionally restricted to
// one kind of movement.
func (l *Ledger) History(acct account.Account, kind account.TransactionKind) []account.Transaction {
	out := make([]account.Transaction, 0, len(acct.Transactions))
	for _, tx := range acct.Transactions {
		if kind == "" || tx.Kind == kind {
			out = append(out, tx)
		}
	}
	return out
}
