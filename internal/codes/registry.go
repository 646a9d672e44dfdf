// Package codes issues and redeems the one-time withdrawal codes used by
// wallet accounts in place of a PIN.
package codes

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/cashpoint/cashpoint/internal/account"
)

const (
	// DefaultTTL is how long an issued code stays redeemable.
	DefaultTTL = 30 * time.Minute

	codeMin  = 100_000
	codeSpan = 900_000
)

var (
	// ErrInvalidOrExpired is returned when no live code matches.
	ErrInvalidOrExpired = errors.New("withdrawal code is invalid or expired")
	// ErrNotSupported is returned when issuing codes for a PIN-only account.
	ErrNotSupported = errors.New("account kind does not use withdrawal codes")
)

// Source returns a uniform random integer in [0, n).
type Source func(n int64) (int64, error)

// Registry manages the outstanding codes stored on an account record.
// Callers serialize access per account.
type Registry struct {
	ttl  time.Duration
	now  func() time.Time
	rand Source
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSource overrides the random source.
func WithSource(src Source) Option {
	return func(r *Registry) { r.rand = src }
}

// NewRegistry builds a registry issuing codes valid for ttl. A zero ttl
// selects DefaultTTL.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{ttl: ttl, now: time.Now, rand: cryptoSource}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the validity window of issued codes.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Issue draws a six digit code and appends it to the account's outstanding
// set. The caller must already have verified the account PIN. Collisions
// with other outstanding codes are not checked.
func (r *Registry) Issue(acct *account.Account) (account.WithdrawalCode, error) {
	if !acct.Kind.UsesWithdrawalCodes() {
		return account.WithdrawalCode{}, ErrNotSupported
	}
	n, err := r.rand(codeSpan)
	if err != nil {
		return account.WithdrawalCode{}, err
	}
	now := r.now()
	issued := account.WithdrawalCode{
		Code:      strconv.FormatInt(codeMin+n, 10),
		ExpiresAt: now.Add(r.ttl).UTC(),
	}
	acct.Codes = append(live(acct.Codes, now), issued)
	return issued, nil
}

// Consume removes the first live code equal to code. Expired entries are
// dropped on the way.
func (r *Registry) Consume(acct *account.Account, code string) error {
	now := r.now()
	remaining := live(acct.Codes, now)
	for i, c := range remaining {
		if c.Code == code {
			acct.Codes = append(remaining[:i:i], remaining[i+1:]...)
			return nil
		}
	}
	acct.Codes = remaining
	return ErrInvalidOrExpired
}

// Outstanding returns the codes that are still redeemable.
func (r *Registry) Outstanding(acct account.Account) []account.WithdrawalCode {
	return live(acct.Codes, r.now())
}

func live(codes []account.WithdrawalCode, now time.Time) []account.WithdrawalCode {
	out := make([]account.WithdrawalCode, 0, len(codes))
	for _, c := range codes {
		if c.ExpiresAt.After(now) {
			out = append(out, c)
		}
	}
	return out
}

func cryptoSource(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}
