package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        number     TEXT PRIMARY KEY,
        kind       TEXT NOT NULL,
        pin_hash   BYTEA NOT NULL,
        balance    BIGINT NOT NULL CHECK (balance >= 0),
        version    BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS withdrawal_codes (
        seq            BIGSERIAL PRIMARY KEY,
        account_number TEXT NOT NULL REFERENCES accounts(number),
        code           TEXT NOT NULL,
        expires_at     TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS withdrawal_codes_account_idx ON withdrawal_codes (account_number)`,
	`CREATE TABLE IF NOT EXISTS transactions (
        seq            BIGSERIAL,
        id             UUID PRIMARY KEY,
        account_number TEXT NOT NULL REFERENCES accounts(number),
        kind           TEXT NOT NULL,
        amount         BIGINT NOT NULL CHECK (amount > 0),
        status         TEXT NOT NULL,
        created_at     TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS transactions_account_seq_idx ON transactions (account_number, seq)`,
}

// EnsureSchema creates the account tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
