// Package lock provides per-key mutual exclusion used to serialize
// operations on a single account.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrTimeout is returned when a lock could not be acquired before the
	// context expired.
	ErrTimeout = errors.New("lock wait timed out")
	// ErrBusy is what services report to their callers when ErrTimeout hits.
	// The request may be retried.
	ErrBusy = errors.New("account busy, retry later")
)

// Locker grants exclusive access to a key. The returned release function
// is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Keyed is an in-process lock table. Idle keys are removed, so the table
// only holds keys that are locked or awaited.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyed builds an empty lock table.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Acquire blocks until key is free or ctx is done.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				k.drop(key, e)
			})
		}, nil
	case <-ctx.Done():
		k.drop(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
	}
}

func (k *Keyed) drop(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
