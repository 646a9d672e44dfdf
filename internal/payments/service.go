package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/ledger"
	"github.com/cashpoint/cashpoint/internal/lock"
	"github.com/cashpoint/cashpoint/internal/notification"
)

// ErrSameAccount indicates a transfer whose source and destination match.
var ErrSameAccount = errors.New("cannot transfer to the same account")

const defaultLockTimeout = 5 * time.Second

// Service posts deposits and account-to-account transfers.
type Service struct {
	accounts    account.Repository
	locker      lock.Locker
	ledger      *ledger.Ledger
	notifier    notification.Notifier
	logger      *slog.Logger
	lockTimeout time.Duration
}

// NewService constructs a payment service.
func NewService(accounts account.Repository, locker lock.Locker, led *ledger.Ledger, notifier notification.Notifier, logger *slog.Logger, lockTimeout time.Duration) *Service {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, locker: locker, ledger: led, notifier: notifier, logger: logger, lockTimeout: lockTimeout}
}

// DepositInput captures a cash deposit.
type DepositInput struct {
	AccountNumber string
	Amount        int64
}

// DepositResult describes a posted deposit.
type DepositResult struct {
	AccountNumber string
	Balance       int64
	Transaction   account.Transaction
}

// TransferInput captures the data needed to move funds between accounts.
// PIN authorizes the debit on FromAccount.
type TransferInput struct {
	FromAccount string
	ToAccount   string
	Amount      int64
	PIN         string
}

// TransferResult describes the ledger outcome of a transfer.
type TransferResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
	CompletedAt   time.Time
}

// Deposit credits an account.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (DepositResult, error) {
	if input.Amount <= 0 {
		return DepositResult{}, ledger.ErrInvalidAmount
	}

	release, err := s.acquire(ctx, input.AccountNumber)
	if err != nil {
		return DepositResult{}, err
	}
	defer release()

	acct, err := s.load(ctx, input.AccountNumber)
	if err != nil {
		return DepositResult{}, err
	}
	balance, err := s.ledger.Credit(&acct, input.Amount)
	if err != nil {
		return DepositResult{}, err
	}
	tx := s.ledger.Append(&acct, account.TransactionDeposit, input.Amount, account.StatusCompleted)
	if err := s.accounts.Save(ctx, &acct); err != nil {
		return DepositResult{}, fmt.Errorf("%w: %w", account.ErrPersistence, err)
	}

	s.logger.Info("deposit completed", slog.String("account", acct.Number), slog.Int64("amount", input.Amount), slog.Int64("balance", balance))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDeposit,
		Destination: acct.Number,
		Body:        fmt.Sprintf("Deposit of %d received, new balance %d", input.Amount, balance),
	})

	return DepositResult{AccountNumber: acct.Number, Balance: balance, Transaction: tx}, nil
}

// Transfer moves funds between two accounts. Both accounts are locked in
// ascending number order.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, ledger.ErrInvalidAmount
	}
	if input.FromAccount == input.ToAccount {
		return TransferResult{}, ErrSameAccount
	}
	if input.PIN == "" {
		return TransferResult{}, fmt.Errorf("%w: PIN is required", account.ErrMissingCredential)
	}

	first, second := input.FromAccount, input.ToAccount
	if second < first {
		first, second = second, first
	}
	releaseFirst, err := s.acquire(ctx, first)
	if err != nil {
		return TransferResult{}, err
	}
	defer releaseFirst()
	releaseSecond, err := s.acquire(ctx, second)
	if err != nil {
		return TransferResult{}, err
	}
	defer releaseSecond()

	from, err := s.load(ctx, input.FromAccount)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.load(ctx, input.ToAccount)
	if err != nil {
		return TransferResult{}, err
	}

	if err := from.VerifyPIN(input.PIN); err != nil {
		s.logger.Warn("transfer rejected", slog.String("from", from.Number), slog.Any("error", err))
		return TransferResult{}, err
	}

	fromBalance, err := s.ledger.Debit(&from, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	toBalance, err := s.ledger.Credit(&to, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	outgoing := s.ledger.Append(&from, account.TransactionTransfer, input.Amount, account.StatusCompleted)
	s.ledger.Append(&to, account.TransactionTransfer, input.Amount, account.StatusCompleted)

	if err := s.accounts.Save(ctx, &from, &to); err != nil {
		s.logger.Error("save transfer", slog.String("from", from.Number), slog.String("to", to.Number), slog.Any("error", err))
		return TransferResult{}, fmt.Errorf("%w: %w", account.ErrPersistence, err)
	}

	s.logger.Info("transfer completed", slog.String("from", from.Number), slog.String("to", to.Number), slog.Int64("amount", input.Amount))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindTransfer,
		Destination: to.Number,
		Body:        fmt.Sprintf("You received %d from account %s", input.Amount, from.Number),
	})

	return TransferResult{
		TransactionID: outgoing.ID,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
		CompletedAt:   outgoing.At,
	}, nil
}

func (s *Service) acquire(ctx context.Context, number string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	release, err := s.locker.Acquire(lockCtx, number)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", lock.ErrBusy, err)
		}
		return nil, fmt.Errorf("%w: %w", account.ErrPersistence, err)
	}
	return release, nil
}

func (s *Service) load(ctx context.Context, number string) (account.Account, error) {
	acct, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, err
		}
		return account.Account{}, fmt.Errorf("%w: %w", account.ErrPersistence, err)
	}
	return acct, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
