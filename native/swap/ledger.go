package swap

import (
	"encoding/binary"
	"math/big"
)

// Storage abstracts the subset of state manager functionality required
// by the swap ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVHas(key []byte) (bool, error)
}

var (
	requestPrefix = []byte("swap/request/")
	sequenceKey   = []byte("swap/seq")
	configKey     = []byte("swap/config")
)

// LedgerConfig is the mutable ledger configuration. It is persisted
// alongside the requests so a logic upgrade preserves it byte for byte.
// Authorized is an owner-managed capability registry consulted by no
// transition guard; it exists as an extension point only.
type LedgerConfig struct {
	Treasury   [20]byte
	FeePolicy  FeePolicy
	FeeRate    uint32
	Authorized [][20]byte
}

// IsAuthorized reports whether account is present in the registry.
func (c LedgerConfig) IsAuthorized(account [20]byte) bool {
	for _, addr := range c.Authorized {
		if addr == account {
			return true
		}
	}
	return false
}

// Ledger is the keyed store holding swap requests, the id sequence and
// the ledger configuration. It carries no business logic; precondition
// checking belongs to the engine.
type Ledger struct {
	state Storage
}

// NewLedger binds the store to the supplied state backend.
func NewLedger(state Storage) *Ledger {
	return &Ledger{state: state}
}

// storedRequest is the RLP-friendly persistence record. Signed
// timestamps travel as big integers on the wire.
type storedRequest struct {
	ID              uint64
	Initiator       [20]byte
	Counterparty    [20]byte
	OfferedKind     uint8
	OfferedSymbol   string
	OfferedAmount   *big.Int
	RequestedKind   uint8
	RequestedSymbol string
	RequestedAmount *big.Int
	CreatedAt       *big.Int
	Status          uint8
}

func newStoredRequest(r *SwapRequest) *storedRequest {
	if r == nil {
		return nil
	}
	offered := big.NewInt(0)
	if r.OfferedAmount != nil {
		offered = new(big.Int).Set(r.OfferedAmount)
	}
	requested := big.NewInt(0)
	if r.RequestedAmount != nil {
		requested = new(big.Int).Set(r.RequestedAmount)
	}
	return &storedRequest{
		ID:              r.ID,
		Initiator:       r.Initiator,
		Counterparty:    r.Counterparty,
		OfferedKind:     uint8(r.Offered.Kind),
		OfferedSymbol:   r.Offered.Symbol,
		OfferedAmount:   offered,
		RequestedKind:   uint8(r.Requested.Kind),
		RequestedSymbol: r.Requested.Symbol,
		RequestedAmount: requested,
		CreatedAt:       big.NewInt(r.CreatedAt),
		Status:          uint8(r.Status),
	}
}

func (s *storedRequest) toRequest() (*SwapRequest, error) {
	if s == nil {
		return nil, errNilState
	}
	out := &SwapRequest{
		ID:              s.ID,
		Initiator:       s.Initiator,
		Counterparty:    s.Counterparty,
		Offered:         Asset{Kind: AssetKind(s.OfferedKind), Symbol: s.OfferedSymbol},
		OfferedAmount:   big.NewInt(0),
		Requested:       Asset{Kind: AssetKind(s.RequestedKind), Symbol: s.RequestedSymbol},
		RequestedAmount: big.NewInt(0),
		Status:          Status(s.Status),
	}
	if s.OfferedAmount != nil {
		out.OfferedAmount = new(big.Int).Set(s.OfferedAmount)
	}
	if s.RequestedAmount != nil {
		out.RequestedAmount = new(big.Int).Set(s.RequestedAmount)
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	if !out.Status.Valid() {
		return nil, ErrNotPending
	}
	return out, nil
}

func requestKey(id uint64) []byte {
	key := make([]byte, len(requestPrefix)+8)
	copy(key, requestPrefix)
	binary.BigEndian.PutUint64(key[len(requestPrefix):], id)
	return key
}

// Initialize seeds the stored configuration. The call is guarded so it
// runs at most once: repeat invocations are no-ops and never overwrite
// the stored values, which keeps version swaps idempotent.
func (l *Ledger) Initialize(cfg LedgerConfig) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	initialized, err := l.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}
	if !cfg.FeePolicy.Valid() {
		return ErrFeeRateRange
	}
	if cfg.FeeRate > cfg.FeePolicy.MaxRate() {
		return ErrFeeRateRange
	}
	return l.state.KVPut(configKey, &cfg)
}

// Initialized reports whether a configuration has been stored.
func (l *Ledger) Initialized() (bool, error) {
	if l == nil || l.state == nil {
		return false, errNilState
	}
	return l.state.KVHas(configKey)
}

// Config loads the stored configuration.
func (l *Ledger) Config() (LedgerConfig, error) {
	cfg := LedgerConfig{}
	if l == nil || l.state == nil {
		return cfg, errNilState
	}
	ok, err := l.state.KVGet(configKey, &cfg)
	if err != nil {
		return LedgerConfig{}, err
	}
	if !ok {
		return LedgerConfig{}, ErrNotInitialized
	}
	return cfg, nil
}

// SetConfig replaces the stored configuration. Authorization belongs to
// the engine's admin gate.
func (l *Ledger) SetConfig(cfg LedgerConfig) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.KVPut(configKey, &cfg)
}

// NextID allocates the next request identifier. Identifiers start at 1
// and never repeat; 0 permanently means "no such request."
func (l *Ledger) NextID() (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	var last uint64
	if _, err := l.state.KVGet(sequenceKey, &last); err != nil {
		return 0, err
	}
	next := last + 1
	if err := l.state.KVPut(sequenceKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Get loads the request with the given id. Id 0 always misses.
func (l *Ledger) Get(id uint64) (*SwapRequest, bool, error) {
	if l == nil || l.state == nil {
		return nil, false, errNilState
	}
	if id == 0 {
		return nil, false, nil
	}
	stored := new(storedRequest)
	ok, err := l.state.KVGet(requestKey(id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	req, err := stored.toRequest()
	if err != nil {
		return nil, false, err
	}
	return req, true, nil
}

// Insert stores a new request. The id must not already exist; a
// collision signals a flawed allocator, not a caller mistake.
func (l *Ledger) Insert(req *SwapRequest) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	sanitized, err := SanitizeRequest(req)
	if err != nil {
		return err
	}
	if _, exists, err := l.Get(sanitized.ID); err != nil {
		return err
	} else if exists {
		return ErrDuplicateRequest
	}
	return l.state.KVPut(requestKey(sanitized.ID), newStoredRequest(sanitized))
}

// SetStatus rewrites the stored status of an existing request.
func (l *Ledger) SetStatus(id uint64, status Status) error {
	if !status.Valid() {
		return ErrNotPending
	}
	req, ok, err := l.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	return l.state.KVPut(requestKey(id), newStoredRequest(req))
}
