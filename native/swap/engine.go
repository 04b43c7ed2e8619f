package swap

import (
	"math/big"
	"time"

	"swapledger/core/events"
	"swapledger/core/types"
	"swapledger/native/common"
)

// engineState is the transactional view the engine needs on top of the
// ledger and custody backends. Every entry point runs inside a snapshot
// so a failure anywhere discards the whole operation.
type engineState interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Engine is the swap state machine. It validates preconditions, drives
// status transitions, moves value through custody and emits outcome
// notifications. Every mutating entry point, admin writes included,
// shares one reentrancy lock: transfer callbacks that re-enter fail
// immediately with common.ErrReentrantCall and leave state untouched.
type Engine struct {
	state   engineState
	ledger  *Ledger
	custody *Custody
	owner   common.Ownership
	lock    *common.CallLock
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine wires the state machine to its collaborators. The emitter
// defaults to a no-op; override it via SetEmitter.
func NewEngine(state engineState, ledger *Ledger, custody *Custody, owner common.Ownership) *Engine {
	return &Engine{
		state:   state,
		ledger:  ledger,
		custody: custody,
		owner:   owner,
		lock:    &common.CallLock{},
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a
// no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(swapEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.ledger == nil || e.custody == nil {
		return errNilState
	}
	return nil
}

// Get returns the stored request, or ErrNotFound. Reads take no lock.
func (e *Engine) Get(id uint64) (*SwapRequest, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	req, ok, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

// Config exposes the stored ledger configuration.
func (e *Engine) Config() (LedgerConfig, error) {
	if err := e.ready(); err != nil {
		return LedgerConfig{}, err
	}
	return e.ledger.Config()
}

// Open escrows the offered asset and records a new pending request.
func (e *Engine) Open(initiator, counterparty [20]byte, offered Asset, offeredAmount *big.Int, requested Asset, requestedAmount *big.Int) (*SwapRequest, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.lock.Enter(); err != nil {
		return nil, err
	}
	defer e.lock.Exit()

	if offeredAmount == nil || offeredAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if requestedAmount == nil || requestedAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if initiator == ([20]byte{}) || counterparty == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if initiator == counterparty {
		return nil, ErrSelfSwap
	}
	if !e.custody.ValidAsset(offered) || !e.custody.ValidAsset(requested) {
		return nil, ErrInvalidAsset
	}

	snap := e.state.Snapshot()
	id, err := e.ledger.NextID()
	if err != nil {
		return nil, e.fail(snap, err)
	}
	if err := e.custody.TransferIn(offered, initiator, offeredAmount); err != nil {
		return nil, e.fail(snap, err)
	}
	req := &SwapRequest{
		ID:              id,
		Initiator:       initiator,
		Counterparty:    counterparty,
		Offered:         offered.normalize(),
		OfferedAmount:   new(big.Int).Set(offeredAmount),
		Requested:       requested.normalize(),
		RequestedAmount: new(big.Int).Set(requestedAmount),
		CreatedAt:       e.now(),
		Status:          StatusPending,
	}
	if err := e.ledger.Insert(req); err != nil {
		return nil, e.fail(snap, err)
	}
	e.emit(NewOpenedEvent(req))
	return req.Clone(), nil
}

// Approve settles a pending request: the counterparty's asset is pulled
// in, both nets are paid out, the treasury takes its cut, and the
// status becomes Approved. Any transfer failure rolls the whole
// operation back.
func (e *Engine) Approve(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	req, err := e.loadPending(id)
	if err != nil {
		return err
	}
	if caller != req.Counterparty {
		return ErrUnauthorized
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return err
	}
	if cfg.Treasury == ([20]byte{}) {
		return ErrNilTreasury
	}

	// Fee rate resolves now, at approval time, not at offer time.
	settlement := ComputeSettlement(cfg.FeePolicy, cfg.FeeRate, req.OfferedAmount, req.RequestedAmount)

	snap := e.state.Snapshot()
	if err := e.custody.TransferIn(req.Requested, req.Counterparty, req.RequestedAmount); err != nil {
		return e.fail(snap, err)
	}
	if err := e.payout(req.Requested, req.Initiator, settlement.NetToInitiator); err != nil {
		return e.fail(snap, err)
	}
	if err := e.payout(req.Offered, req.Counterparty, settlement.NetToCounterparty); err != nil {
		return e.fail(snap, err)
	}
	if err := e.payout(req.Offered, cfg.Treasury, settlement.TreasuryFromOffered); err != nil {
		return e.fail(snap, err)
	}
	if err := e.payout(req.Requested, cfg.Treasury, settlement.TreasuryFromRequested); err != nil {
		return e.fail(snap, err)
	}
	if err := e.ledger.SetStatus(id, StatusApproved); err != nil {
		return e.fail(snap, err)
	}
	req.Status = StatusApproved
	e.emit(NewApprovedEvent(req))
	return nil
}

// Reject returns the escrow to the initiator and closes the request.
// The counterparty may always reject; under the flat-fee policy the
// initiator may too, with the same refund arithmetic.
func (e *Engine) Reject(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	req, err := e.loadPending(id)
	if err != nil {
		return err
	}
	if caller != req.Counterparty {
		cfg, err := e.ledger.Config()
		if err != nil {
			return err
		}
		if cfg.FeePolicy != FeePolicyFlatBps || caller != req.Initiator {
			return ErrUnauthorized
		}
	}
	return e.closeWithRefund(req, StatusRejected)
}

// Cancel lets the initiator withdraw a pending request, refunding the
// escrow in full.
func (e *Engine) Cancel(id uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	req, err := e.loadPending(id)
	if err != nil {
		return err
	}
	if caller != req.Initiator {
		return ErrUnauthorized
	}
	return e.closeWithRefund(req, StatusCancelled)
}

// SetTreasury rotates the fee destination. Owner only; applies to every
// future settlement, including already-pending requests. Admin writes
// share the transition lock, so a transfer callback cannot slip a
// config change inside an operation that may still revert.
func (e *Engine) SetTreasury(caller, treasury [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if treasury == ([20]byte{}) {
		return ErrZeroTreasury
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return err
	}
	cfg.Treasury = treasury
	if err := e.ledger.SetConfig(cfg); err != nil {
		return err
	}
	e.emit(NewTreasuryChangedEvent(treasury))
	return nil
}

// SetFeeRate updates the fee rate under the active policy. Owner only;
// range-checked here so settlement never has to reject a stored rate.
func (e *Engine) SetFeeRate(caller [20]byte, rate uint32) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return err
	}
	if rate > cfg.FeePolicy.MaxRate() {
		return ErrFeeRateRange
	}
	cfg.FeeRate = rate
	if err := e.ledger.SetConfig(cfg); err != nil {
		return err
	}
	e.emit(NewFeeRateChangedEvent(rate))
	return nil
}

// SetAuthorized toggles an account in the auxiliary capability
// registry. Owner only. No transition consults the registry.
func (e *Engine) SetAuthorized(caller, account [20]byte, authorized bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.lock.Enter(); err != nil {
		return err
	}
	defer e.lock.Exit()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if account == ([20]byte{}) {
		return ErrZeroAddress
	}
	cfg, err := e.ledger.Config()
	if err != nil {
		return err
	}
	filtered := make([][20]byte, 0, len(cfg.Authorized))
	for _, addr := range cfg.Authorized {
		if addr != account {
			filtered = append(filtered, addr)
		}
	}
	if authorized {
		filtered = append(filtered, account)
	}
	cfg.Authorized = filtered
	return e.ledger.SetConfig(cfg)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.owner == nil || caller != e.owner.CurrentOwner() {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) loadPending(id uint64) (*SwapRequest, error) {
	req, ok, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != StatusPending {
		return nil, ErrNotPending
	}
	return req, nil
}

func (e *Engine) closeWithRefund(req *SwapRequest, status Status) error {
	snap := e.state.Snapshot()
	if err := e.custody.TransferOut(req.Offered, req.Initiator, req.OfferedAmount); err != nil {
		return e.fail(snap, err)
	}
	if err := e.ledger.SetStatus(req.ID, status); err != nil {
		return e.fail(snap, err)
	}
	e.emit(NewStatusChangedEvent(req.ID, status))
	return nil
}

func (e *Engine) payout(asset Asset, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	return e.custody.TransferOut(asset, to, amount)
}

func (e *Engine) fail(snap int, err error) error {
	e.state.RevertToSnapshot(snap)
	return err
}
