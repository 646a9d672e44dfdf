package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no account carries the requested number.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned when creating an account whose number is taken.
	ErrExists = errors.New("account already exists")
	// ErrConflict signals that the record changed since it was loaded.
	ErrConflict = errors.New("account modified concurrently")
)

// Repository persists account records.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByNumber(ctx context.Context, number string) (Account, error)
	// Save writes balance, outstanding codes and new transactions of every
	// record as one unit. Each Version must match the stored version; on
	// success they are advanced in place.
	Save(ctx context.Context, accts ...*Account) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	cmd, err := r.db.Exec(ctx, `INSERT INTO accounts (number, kind, pin_hash, balance, version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (number) DO NOTHING`,
		acct.Number, string(acct.Kind), acct.PINHash, acct.Balance, acct.Version, acct.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// FindByNumber loads an account together with its codes and history.
func (r *PostgresRepository) FindByNumber(ctx context.Context, number string) (Account, error) {
	var (
		acct      Account
		kind      string
		createdAt time.Time
	)
	row := r.db.QueryRow(ctx, `SELECT number, kind, pin_hash, balance, version, created_at
        FROM accounts WHERE number = $1`, number)
	if err := row.Scan(&acct.Number, &kind, &acct.PINHash, &acct.Balance, &acct.Version, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.Kind = Kind(kind)
	acct.CreatedAt = createdAt.UTC()

	rows, err := r.db.Query(ctx, `SELECT code, expires_at FROM withdrawal_codes
        WHERE account_number = $1 ORDER BY seq`, number)
	if err != nil {
		return Account{}, err
	}
	acct.Codes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (WithdrawalCode, error) {
		var c WithdrawalCode
		err := row.Scan(&c.Code, &c.ExpiresAt)
		c.ExpiresAt = c.ExpiresAt.UTC()
		return c, err
	})
	if err != nil {
		return Account{}, fmt.Errorf("load withdrawal codes: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT id, kind, amount, status, created_at FROM transactions
        WHERE account_number = $1 ORDER BY seq`, number)
	if err != nil {
		return Account{}, err
	}
	acct.Transactions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var (
			t    Transaction
			id   uuid.UUID
			kind string
		)
		err := row.Scan(&id, &kind, &t.Amount, &t.Status, &t.At)
		t.ID = id.String()
		t.Kind = TransactionKind(kind)
		t.At = t.At.UTC()
		return t, err
	})
	if err != nil {
		return Account{}, fmt.Errorf("load transactions: %w", err)
	}
	acct.stored = len(acct.Transactions)

	return acct, nil
}

// Save persists the mutable parts of the records in a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, accts ...*Account) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, acct := range accts {
		if err := saveAccount(ctx, tx, acct); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	for _, acct := range accts {
		acct.Version++
		acct.stored = len(acct.Transactions)
	}
	return nil
}

func saveAccount(ctx context.Context, tx pgx.Tx, acct *Account) error {
	cmd, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, version = version + 1
        WHERE number = $2 AND version = $3`, acct.Balance, acct.Number, acct.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM withdrawal_codes WHERE account_number = $1`, acct.Number); err != nil {
		return err
	}
	for _, c := range acct.Codes {
		if _, err := tx.Exec(ctx, `INSERT INTO withdrawal_codes (account_number, code, expires_at) VALUES ($1, $2, $3)`,
			acct.Number, c.Code, c.ExpiresAt.UTC()); err != nil {
			return err
		}
	}

	// History is append-only; only entries added since the load are written.
	for _, t := range acct.pendingTransactions() {
		id, err := uuid.Parse(t.ID)
		if err != nil {
			return fmt.Errorf("transaction id %q: %w", t.ID, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, account_number, kind, amount, status, created_at)
            VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			id, acct.Number, string(t.Kind), t.Amount, t.Status, t.At.UTC()); err != nil {
			return err
		}
	}
	return nil
}
