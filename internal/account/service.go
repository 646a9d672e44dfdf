package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPIN is returned when a PIN is not exactly four digits.
	ErrInvalidPIN = errors.New("PIN must be a 4 digit number")
	// ErrMissingCredential is returned when the credential an operation
	// requires was not supplied.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned for a wrong PIN or an invalid or
	// expired withdrawal code.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrPersistence wraps storage failures surfaced by account operations.
	ErrPersistence = errors.New("persistence failure")
)

// Service manages the account directory.
type Service struct {
	repo    Repository
	pinCost int
}

// NewService creates a new account service. A zero pinCost selects bcrypt's default cost.
func NewService(repo Repository, pinCost int) *Service {
	if pinCost == 0 {
		pinCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, pinCost: pinCost}
}

// OpenInput captures the data required to open an account.
type OpenInput struct {
	Number         string
	Kind           Kind
	PIN            string
	InitialBalance int64
}

// Open stores a new account with a hashed PIN.
func (s *Service) Open(ctx context.Context, input OpenInput) (Account, error) {
	number := strings.TrimSpace(input.Number)
	if number == "" {
		return Account{}, errors.New("account number is required")
	}
	if !input.Kind.Valid() {
		return Account{}, fmt.Errorf("unknown account kind %q", input.Kind)
	}
	if err := ValidatePIN(input.PIN); err != nil {
		return Account{}, err
	}
	if input.InitialBalance < 0 {
		return Account{}, errors.New("initial balance must not be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), s.pinCost)
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		Number:    number,
		Kind:      input.Kind,
		PINHash:   hash,
		Balance:   input.InitialBalance,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Get fetches an account by number.
func (s *Service) Get(ctx context.Context, number string) (Account, error) {
	return s.repo.FindByNumber(ctx, number)
}

// ValidatePIN checks the PIN shape.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// VerifyPIN checks a PIN presented by the account holder.
func (a Account) VerifyPIN(pin string) error {
	if pin == "" {
		return fmt.Errorf("%w: PIN is required", ErrMissingCredential)
	}
	if !a.CheckPIN(pin) {
		return fmt.Errorf("%w: wrong PIN", ErrInvalidCredential)
	}
	return nil
}

// CheckPIN reports whether pin matches the stored hash.
func (a Account) CheckPIN(pin string) bool {
	return bcrypt.CompareHashAndPassword(a.PINHash, []byte(pin)) == nil
}
