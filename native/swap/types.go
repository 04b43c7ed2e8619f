package swap

import (
	"fmt"
	"math/big"
	"strings"
)

// Status represents the lifecycle states of a swap request. Pending is
// the only non-terminal state; every transition out of it is final.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s.Valid() && s != StatusPending
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// AssetKind distinguishes the ledger's own currency from externally
// defined fungible tokens.
type AssetKind uint8

const (
	AssetNative AssetKind = iota
	AssetToken
)

// Asset identifies a transferable value kind. Native assets carry no
// symbol; token assets name the registry entry that moves them.
type Asset struct {
	Kind   AssetKind
	Symbol string
}

// NativeAsset returns the ledger's own currency.
func NativeAsset() Asset { return Asset{Kind: AssetNative} }

// TokenAsset returns a fungible asset identified by symbol.
func TokenAsset(symbol string) Asset {
	return Asset{Kind: AssetToken, Symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// Valid reports whether the asset identifier is structurally sound.
// Whether a token symbol is actually registered is a custody concern.
func (a Asset) Valid() bool {
	switch a.Kind {
	case AssetNative:
		return a.Symbol == ""
	case AssetToken:
		return strings.TrimSpace(a.Symbol) != ""
	default:
		return false
	}
}

func (a Asset) String() string {
	if a.Kind == AssetNative {
		return "native"
	}
	return "token:" + a.Symbol
}

// normalize returns the canonical form of the asset identifier.
func (a Asset) normalize() Asset {
	if a.Kind == AssetToken {
		return TokenAsset(a.Symbol)
	}
	return Asset{Kind: a.Kind}
}

// SwapRequest captures the immutable terms and runtime status of a
// single bilateral exchange. The identifier is allocated from a
// monotonic counter; zero is the permanent "no such request" sentinel.
type SwapRequest struct {
	ID              uint64
	Initiator       [20]byte
	Counterparty    [20]byte
	Offered         Asset
	OfferedAmount   *big.Int
	Requested       Asset
	RequestedAmount *big.Int
	CreatedAt       int64
	Status          Status
}

// Clone returns a deep copy so callers can safely mutate the result
// without affecting the stored instance.
func (r *SwapRequest) Clone() *SwapRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.OfferedAmount != nil {
		clone.OfferedAmount = new(big.Int).Set(r.OfferedAmount)
	} else {
		clone.OfferedAmount = big.NewInt(0)
	}
	if r.RequestedAmount != nil {
		clone.RequestedAmount = new(big.Int).Set(r.RequestedAmount)
	} else {
		clone.RequestedAmount = big.NewInt(0)
	}
	return &clone
}

// SanitizeRequest validates and normalises the supplied request,
// returning a cloned instance with canonical asset identifiers and
// non-nil amounts. The original value is not mutated.
func SanitizeRequest(r *SwapRequest) (*SwapRequest, error) {
	if r == nil {
		return nil, fmt.Errorf("swap: nil request")
	}
	clone := r.Clone()
	if clone.ID == 0 {
		return nil, fmt.Errorf("swap: request id must be non-zero")
	}
	if !clone.Offered.Valid() || !clone.Requested.Valid() {
		return nil, ErrInvalidAsset
	}
	clone.Offered = clone.Offered.normalize()
	clone.Requested = clone.Requested.normalize()
	if clone.OfferedAmount.Sign() <= 0 || clone.RequestedAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if clone.Initiator == clone.Counterparty {
		return nil, ErrSelfSwap
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("swap: invalid status %d", clone.Status)
	}
	return clone, nil
}
