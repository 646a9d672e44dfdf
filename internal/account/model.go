package account

import (
	"fmt"
	"time"
)

// Kind identifies how an account authorizes cash withdrawals.
type Kind string

const (
	// KindNequi is a mobile wallet account authorized by one-time codes.
	KindNequi Kind = "nequi"
	// KindBancolombia is a bank wallet account authorized by one-time codes.
	KindBancolombia Kind = "bancolombia"
	// KindCard is a debit card account authorized by its PIN.
	KindCard Kind = "tarjeta"
)

// ParseKind converts a raw string into a Kind.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("unknown account kind %q", raw)
	}
	return k, nil
}

// Valid reports whether k is one of the supported account kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNequi, KindBancolombia, KindCard:
		return true
	default:
		return false
	}
}

// UsesWithdrawalCodes reports whether withdrawals are authorized by
// one-time codes instead of the PIN.
func (k Kind) UsesWithdrawalCodes() bool {
	return k == KindNequi || k == KindBancolombia
}

// TransactionKind classifies ledger movements.
type TransactionKind string

const (
	TransactionDeposit    TransactionKind = "Deposit"
	TransactionWithdrawal TransactionKind = "Withdrawal"
	TransactionTransfer   TransactionKind = "Transfer"
)

// StatusCompleted is the default status of a ledger movement.
const StatusCompleted = "Completed"

// Transaction is an immutable entry in an account history.
type Transaction struct {
	ID     string          `json:"id"`
	Kind   TransactionKind `json:"type"`
	Amount int64           `json:"amount"`
	At     time.Time       `json:"date"`
	Status string          `json:"status"`
}

// WithdrawalCode is a one-time credential for code-authorized accounts.
type WithdrawalCode struct {
	Code      string
	ExpiresAt time.Time
}

// Account is the record kept by the account directory. Balance and
// Transactions are owned by the ledger; Codes by the withdrawal code registry.
type Account struct {
	Number       string
	Kind         Kind
	PINHash      []byte
	Balance      int64
	Codes        []WithdrawalCode
	Transactions []Transaction
	Version      int64
	CreatedAt    time.Time

	// stored counts the leading Transactions already persisted.
	stored int
}

// Clone returns a deep copy so callers can mutate a record without touching
// the stored one.
func (a Account) Clone() Account {
	cp := a
	cp.PINHash = append([]byte(nil), a.PINHash...)
	cp.Codes = append([]WithdrawalCode(nil), a.Codes...)
	cp.Transactions = append([]Transaction(nil), a.Transactions...)
	return cp
}

// pendingTransactions returns the history entries appended since the record
// was loaded or last saved.
func (a Account) pendingTransactions() []Transaction {
	if a.stored < 0 || a.stored > len(a.Transactions) {
		return a.Transactions
	}
	return a.Transactions[a.stored:]
}
