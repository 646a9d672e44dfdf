package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinWithdrawal != 10_000 || cfg.CodeTTL != 30*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Denominations) != 4 || cfg.Denominations[0] != 100_000 {
		t.Fatalf("unexpected denominations: %v", cfg.Denominations)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRequiresStoresOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DENOMINATIONS", "50, 20")
	t.Setenv("MIN_WITHDRAWAL", "20")
	t.Setenv("CODE_TTL", "5m")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("LEGACY_CODE_BURN", "true")
	t.Setenv("PORT", ":9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Denominations) != 2 || cfg.Denominations[1] != 20 {
		t.Fatalf("unexpected denominations: %v", cfg.Denominations)
	}
	if cfg.MinWithdrawal != 20 || cfg.CodeTTL != 5*time.Minute || cfg.LockTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.IdempotencyTTL != time.Minute || !cfg.LegacyCodeBurn || cfg.Address() != ":9000" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"DENOMINATIONS":    "100,abc",
		"MIN_WITHDRAWAL":   "0",
		"CODE_TTL":         "soon",
		"LEGACY_CODE_BURN": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
