// Package dispense splits a cash amount into the bills an ATM can hand out.
package dispense

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrIndivisible is returned when the amount cannot be paid exactly with
	// the configured bills.
	ErrIndivisible = errors.New("amount cannot be dispensed with the available bills")
)

// Default lists the bills loaded in the reference machine, largest first.
var Default = []int64{100_000, 50_000, 20_000, 10_000}

// Breakdown maps a bill value to the number of bills handed out.
type Breakdown map[int64]int

// Total returns the cash value of the breakdown.
func (b Breakdown) Total() int64 {
	var total int64
	for denom, count := range b {
		total += denom * int64(count)
	}
	return total
}

// Bills returns the number of bills in the breakdown.
func (b Breakdown) Bills() int {
	var n int
	for _, count := range b {
		n += count
	}
	return n
}

// Allocator computes breakdowns over a fixed set of denominations.
type Allocator struct {
	denoms []int64
}

// New builds an allocator. Denominations must be positive and strictly
// descending.
func New(denoms []int64) (*Allocator, error) {
	if len(denoms) == 0 {
		return nil, errors.New("at least one denomination is required")
	}
	for i, d := range denoms {
		if d <= 0 {
			return nil, fmt.Errorf("denomination %d must be positive", d)
		}
		if i > 0 && d >= denoms[i-1] {
			return nil, fmt.Errorf("denominations must be strictly descending, got %d after %d", d, denoms[i-1])
		}
	}
	return &Allocator{denoms: append([]int64(nil), denoms...)}, nil
}

// Denominations returns a copy of the configured bills, largest first.
func (a *Allocator) Denominations() []int64 {
	return append([]int64(nil), a.denoms...)
}

// Smallest returns the lowest bill value.
func (a *Allocator) Smallest() int64 {
	return a.denoms[len(a.denoms)-1]
}

// Allocate walks the bills from largest to smallest taking as many of each
// as fit, and wraps around to the largest while an amount is left.
func (a *Allocator) Allocate(amount int64) (Breakdown, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount%a.Smallest() != 0 {
		return nil, ErrIndivisible
	}

	out := make(Breakdown, len(a.denoms))
	for _, d := range a.denoms {
		out[d] = 0
	}

	remaining := amount
	for remaining > 0 {
		before := remaining
		for _, d := range a.denoms {
			n := remaining / d
			out[d] += int(n)
			remaining -= n * d
		}
		if remaining == before {
			return nil, ErrIndivisible
		}
	}

	return out, nil
}
