package common

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned when a guarded entry point is invoked
// while another guarded operation is still in flight.
var ErrReentrantCall = errors.New("reentrant call")

// CallLock is the per-process mutual-exclusion flag shared by every
// guarded entry point. Unlike a mutex it never blocks: a nested call
// observes the held flag and fails immediately, which is the required
// behaviour when externally-supplied transfer code calls back into the
// ledger mid-operation.
type CallLock struct {
	mu     sync.Mutex
	locked bool
}

// Enter acquires the flag, failing with ErrReentrantCall when it is
// already held. Every successful Enter must be paired with Exit on all
// return paths.
func (l *CallLock) Enter() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return ErrReentrantCall
	}
	l.locked = true
	return nil
}

// Exit releases the flag.
func (l *CallLock) Exit() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.locked = false
	l.mu.Unlock()
}
