package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acct.Number]; exists {
		return ErrExists
	}
	r.accounts[acct.Number] = acct.Clone()
	return nil
}

func (r *memoryRepository) FindByNumber(_ context.Context, number string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	cp := acct.Clone()
	cp.stored = len(cp.Transactions)
	return cp, nil
}

func (r *memoryRepository) Save(_ context.Context, accts ...*Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range accts {
		stored, ok := r.accounts[acct.Number]
		if !ok {
			return ErrNotFound
		}
		if stored.Version != acct.Version {
			return ErrConflict
		}
	}
	for _, acct := range accts {
		acct.Version++
		acct.stored = len(acct.Transactions)
		r.accounts[acct.Number] = acct.Clone()
	}
	return nil
}
