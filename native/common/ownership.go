package common

import (
	"errors"
	"sync"
)

var (
	// ErrNotOwner rejects a restricted call from anyone but the owner.
	ErrNotOwner = errors.New("caller is not the owner")
	// ErrZeroOwner rejects handing ownership to the zero address.
	ErrZeroOwner = errors.New("owner must not be the zero address")
)

// Ownership is the single-owner capability consumed by modules with
// admin surfaces. Modules only ever read the current owner; rotating it
// is an operator concern.
type Ownership interface {
	CurrentOwner() [20]byte
}

// Owner is the reference Ownership implementation.
type Owner struct {
	mu    sync.RWMutex
	owner [20]byte
}

// NewOwner seeds the capability with the initial owner address.
func NewOwner(initial [20]byte) (*Owner, error) {
	if initial == ([20]byte{}) {
		return nil, ErrZeroOwner
	}
	return &Owner{owner: initial}, nil
}

// CurrentOwner returns the address holding the capability.
func (o *Owner) CurrentOwner() [20]byte {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.owner
}

// TransferOwnership rotates the owner. Only the current owner may
// transfer, and never to the zero address.
func (o *Owner) TransferOwnership(caller, next [20]byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if caller != o.owner {
		return ErrNotOwner
	}
	if next == ([20]byte{}) {
		return ErrZeroOwner
	}
	o.owner = next
	return nil
}
