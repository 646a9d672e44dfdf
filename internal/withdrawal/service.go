// Package withdrawal authorizes cash withdrawals, debits the account and
// works out which bills the machine hands out.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/codes"
	"github.com/cashpoint/cashpoint/internal/dispense"
	"github.com/cashpoint/cashpoint/internal/ledger"
	"github.com/cashpoint/cashpoint/internal/lock"
	"github.com/cashpoint/cashpoint/internal/logging"
	"github.com/cashpoint/cashpoint/internal/notification"
)

const (
	// DefaultMinAmount is the smallest withdrawal accepted by the reference machine.
	DefaultMinAmount   = 10_000
	defaultLockTimeout = 5 * time.Second
)

// Options tunes withdrawal behaviour.
type Options struct {
	// MinAmount is the lowest amount accepted. Zero selects DefaultMinAmount.
	MinAmount int64
	// LockTimeout bounds the wait for the per-account lock.
	LockTimeout time.Duration
	// BurnCodeOnInsufficientFunds keeps the legacy ordering where a
	// withdrawal code is spent even when the debit is then refused.
	BurnCodeOnInsufficientFunds bool
}

// Deps aggregates the collaborators of the withdrawal service. Only
// Accounts is required.
type Deps struct {
	Accounts  account.Repository
	Locker    lock.Locker
	Ledger    *ledger.Ledger
	Registry  *codes.Registry
	Allocator *dispense.Allocator
	Notifier  notification.Notifier
	Logger    *slog.Logger
}

// Service orchestrates code issuance and withdrawals.
type Service struct {
	accounts  account.Repository
	locker    lock.Locker
	ledger    *ledger.Ledger
	registry  *codes.Registry
	gate      *Gate
	allocator *dispense.Allocator
	notifier  notification.Notifier
	logger    *slog.Logger
	opts      Options
}

// NewService wires a withdrawal service, filling unset collaborators with
// in-process defaults.
func NewService(d Deps, opts Options) (*Service, error) {
	if d.Accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if d.Locker == nil {
		d.Locker = lock.NewKeyed()
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New()
	}
	if d.Registry == nil {
		d.Registry = codes.NewRegistry(codes.DefaultTTL)
	}
	if d.Allocator == nil {
		alloc, err := dispense.New(dispense.Default)
		if err != nil {
			return nil, err
		}
		d.Allocator = alloc
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if opts.MinAmount <= 0 {
		opts.MinAmount = DefaultMinAmount
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}

	return &Service{
		accounts:  d.Accounts,
		locker:    d.Locker,
		ledger:    d.Ledger,
		registry:  d.Registry,
		gate:      NewGate(d.Registry),
		allocator: d.Allocator,
		notifier:  d.Notifier,
		logger:    d.Logger,
		opts:      opts,
	}, nil
}

// Request captures a withdrawal attempt. PIN is used by card accounts,
// Code by wallet accounts.
type Request struct {
	AccountNumber string
	Amount        int64
	PIN           string
	Code          string
}

// Result describes a completed withdrawal.
type Result struct {
	AccountNumber string
	Amount        int64
	NewBalance    int64
	Breakdown     dispense.Breakdown
	Transaction   account.Transaction
}

// IssuedCode is a freshly generated withdrawal code.
type IssuedCode struct {
	AccountNumber string
	Code          string
	ExpiresAt     time.Time
}

// Withdraw authorizes and applies a cash withdrawal. Nothing is saved
// unless every step succeeds.
func (s *Service) Withdraw(ctx context.Context, req Request) (Result, error) {
	if err := s.validateAmount(req.Amount); err != nil {
		return Result{}, err
	}

	var res Result
	err := s.withAccount(ctx, req.AccountNumber, func(acct *account.Account) error {
		if err := s.gate.Authorize(acct, Credential{PIN: req.PIN, Code: req.Code}); err != nil {
			s.logger.Warn("withdrawal rejected",
				slog.String("account", acct.Number),
				slog.String("kind", string(acct.Kind)),
				slog.Any("error", err),
			)
			return err
		}

		balance, err := s.ledger.Debit(acct, req.Amount)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) && s.opts.BurnCodeOnInsufficientFunds && acct.Kind.UsesWithdrawalCodes() {
				if saveErr := s.save(ctx, acct); saveErr != nil {
					return saveErr
				}
			}
			return err
		}

		breakdown, err := s.allocator.Allocate(req.Amount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
		}

		tx := s.ledger.Append(acct, account.TransactionWithdrawal, req.Amount, account.StatusCompleted)
		if err := s.save(ctx, acct); err != nil {
			return err
		}

		res = Result{
			AccountNumber: acct.Number,
			Amount:        req.Amount,
			NewBalance:    balance,
			Breakdown:     breakdown,
			Transaction:   tx,
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("withdrawal completed",
		slog.String("account", res.AccountNumber),
		slog.Int64("amount", res.Amount),
		slog.Int64("balance", res.NewBalance),
		slog.Int("bills", res.Breakdown.Bills()),
		slog.String("transaction_id", res.Transaction.ID),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdrawal,
		Destination: res.AccountNumber,
		Body:        fmt.Sprintf("Withdrawal of %d completed, new balance %d", res.Amount, res.NewBalance),
	})

	return res, nil
}

// IssueCode verifies the PIN and issues a one-time withdrawal code.
func (s *Service) IssueCode(ctx context.Context, accountNumber, pin string) (IssuedCode, error) {
	if pin == "" {
		return IssuedCode{}, fmt.Errorf("%w: PIN is required", ErrMissingCredential)
	}

	var issued IssuedCode
	err := s.withAccount(ctx, accountNumber, func(acct *account.Account) error {
		if err := acct.VerifyPIN(pin); err != nil {
			return err
		}
		code, err := s.registry.Issue(acct)
		if err != nil {
			return err
		}
		if err := s.save(ctx, acct); err != nil {
			return err
		}
		issued = IssuedCode{AccountNumber: acct.Number, Code: code.Code, ExpiresAt: code.ExpiresAt}
		return nil
	})
	if err != nil {
		return IssuedCode{}, err
	}

	s.logger.Info("withdrawal code issued",
		slog.String("account", issued.AccountNumber),
		slog.Time("expires_at", issued.ExpiresAt),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdrawalCode,
		Destination: issued.AccountNumber,
		Body:        fmt.Sprintf("Your withdrawal code is %s, valid until %s", issued.Code, issued.ExpiresAt.Format(time.Kitchen)),
	})

	return issued, nil
}

// MinAmount returns the lowest accepted withdrawal.
func (s *Service) MinAmount() int64 {
	return s.opts.MinAmount
}

// Denominations returns the bills the machine dispenses, largest first.
func (s *Service) Denominations() []int64 {
	return s.allocator.Denominations()
}

func (s *Service) validateAmount(amount int64) error {
	if amount <= 0 || amount < s.opts.MinAmount || amount%s.allocator.Smallest() != 0 {
		return ErrInvalidAmount
	}
	return nil
}

// withAccount loads the account under its lock and runs fn. The lock is
// held until fn returns.
func (s *Service) withAccount(ctx context.Context, number string, fn func(acct *account.Account) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, number)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			s.logger.Warn("account lock timeout", slog.String("account", number), slog.Duration("wait", s.opts.LockTimeout))
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer release()

	acct, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return fn(&acct)
}

func (s *Service) save(ctx context.Context, acct *account.Account) error {
	if err := s.accounts.Save(ctx, acct); err != nil {
		s.logger.Error("save account", slog.String("account", acct.Number), slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
