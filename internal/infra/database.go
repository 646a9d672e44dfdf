package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgMaxConnIdle     = 5 * time.Minute
	pgHealthCheck     = 30 * time.Second
	pgConnectDeadline = 10 * time.Second
)

// NewPostgresPool connects to PostgreSQL and verifies the connection. Pool
// sizing comes from the URL (pool_max_conns and friends); idle connections
// are recycled after a few minutes.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConnIdleTime = pgMaxConnIdle
	cfg.HealthCheckPeriod = pgHealthCheck

	ctx, cancel := context.WithTimeout(ctx, pgConnectDeadline)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
