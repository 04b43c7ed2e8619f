package swap

import (
	"errors"
	"math/big"
	"testing"

	"swapledger/core/events"
	"swapledger/native/common"
	"swapledger/native/token"
	"swapledger/state"
	"swapledger/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	addrOwner        = newTestAddress(0x01)
	addrInitiator    = newTestAddress(0x11)
	addrCounterparty = newTestAddress(0x22)
	addrTreasury     = newTestAddress(0x33)
	addrVault        = newTestAddress(0xAA)
	addrStranger     = newTestAddress(0x99)
)

type testEnv struct {
	manager *state.Manager
	ledger  *Ledger
	custody *Custody
	engine  *Engine
	tokenX  *token.Ledger
	tokenY  *token.Ledger
	events  *events.Recorder
}

func newTestEnv(t *testing.T, policy FeePolicy, rate uint32) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := NewLedger(manager)
	custody := NewCustody(manager, addrVault)
	tokenX, err := token.NewLedger("TOKX", manager)
	if err != nil {
		t.Fatalf("token ledger: %v", err)
	}
	tokenY, err := token.NewLedger("TOKY", manager)
	if err != nil {
		t.Fatalf("token ledger: %v", err)
	}
	custody.RegisterToken("TOKX", tokenX)
	custody.RegisterToken("TOKY", tokenY)
	owner, err := common.NewOwner(addrOwner)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	engine := NewEngine(manager, ledger, custody, owner)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	recorder := events.NewRecorder()
	engine.SetEmitter(recorder)
	if err := ledger.Initialize(LedgerConfig{Treasury: addrTreasury, FeePolicy: policy, FeeRate: rate}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return &testEnv{
		manager: manager,
		ledger:  ledger,
		custody: custody,
		engine:  engine,
		tokenX:  tokenX,
		tokenY:  tokenY,
		events:  recorder,
	}
}

func (env *testEnv) fundToken(t *testing.T, ledger *token.Ledger, holder [20]byte, amount int64) {
	t.Helper()
	if err := ledger.Mint(holder, big.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(holder, addrVault, big.NewInt(amount)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func (env *testEnv) tokenBalance(t *testing.T, ledger *token.Ledger, holder [20]byte) int64 {
	t.Helper()
	balance, err := ledger.BalanceOf(holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance.Int64()
}

func (env *testEnv) openTokenSwap(t *testing.T, offered, requested int64) *SwapRequest {
	t.Helper()
	env.fundToken(t, env.tokenX, addrInitiator, offered)
	env.fundToken(t, env.tokenY, addrCounterparty, requested)
	req, err := env.engine.Open(addrInitiator, addrCounterparty, TokenAsset("TOKX"), big.NewInt(offered), TokenAsset("TOKY"), big.NewInt(requested))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return req
}

func TestOpenEscrowsOfferedAsset(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	if req.ID != 1 {
		t.Fatalf("expected first id 1, got %d", req.ID)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %v", req.Status)
	}
	if got := env.tokenBalance(t, env.tokenX, addrInitiator); got != 0 {
		t.Fatalf("initiator should have escrowed all TOKX, has %d", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 100 {
		t.Fatalf("vault should hold 100 TOKX, has %d", got)
	}
	evts := env.events.Events()
	if len(evts) != 1 || evts[0].Type != EventTypeOpened {
		t.Fatalf("expected a single opened event, got %+v", evts)
	}
	if evts[0].Attributes["offeredAmount"] != "100" || evts[0].Attributes["requestedAmount"] != "200" {
		t.Fatalf("unexpected opened attributes: %+v", evts[0].Attributes)
	}
}

func TestOpenValidation(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	cases := []struct {
		name         string
		initiator    [20]byte
		counterparty [20]byte
		offered      Asset
		offeredAmt   *big.Int
		requested    Asset
		requestedAmt *big.Int
		want         error
	}{
		{"zero offered amount", addrInitiator, addrCounterparty, TokenAsset("TOKX"), big.NewInt(0), TokenAsset("TOKY"), big.NewInt(200), ErrInvalidAmount},
		{"zero requested amount", addrInitiator, addrCounterparty, TokenAsset("TOKX"), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(0), ErrInvalidAmount},
		{"self swap", addrInitiator, addrInitiator, TokenAsset("TOKX"), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(200), ErrSelfSwap},
		{"zero counterparty", addrInitiator, [20]byte{}, TokenAsset("TOKX"), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(200), ErrZeroAddress},
		{"unregistered token", addrInitiator, addrCounterparty, TokenAsset("NOPE"), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(200), ErrInvalidAsset},
		{"blank token symbol", addrInitiator, addrCounterparty, TokenAsset("  "), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(200), ErrInvalidAsset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Open(tc.initiator, tc.counterparty, tc.offered, tc.offeredAmt, tc.requested, tc.requestedAmt)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	// Validation failures happen before any custody movement.
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 0 {
		t.Fatalf("vault should be untouched, holds %d", got)
	}
	if len(env.events.Events()) != 0 {
		t.Fatalf("no events expected after failed opens")
	}
}

func TestApproveDualPercentSettlement(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// Initiator receives 190 TOKY, counterparty 95 TOKX, treasury
	// 5 TOKX + 10 TOKY; both flows settle with zero dust.
	if got := env.tokenBalance(t, env.tokenY, addrInitiator); got != 190 {
		t.Fatalf("initiator TOKY = %d, want 190", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrCounterparty); got != 95 {
		t.Fatalf("counterparty TOKX = %d, want 95", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrTreasury); got != 5 {
		t.Fatalf("treasury TOKX = %d, want 5", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrTreasury); got != 10 {
		t.Fatalf("treasury TOKY = %d, want 10", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 0 {
		t.Fatalf("vault TOKX dust = %d, want 0", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrVault); got != 0 {
		t.Fatalf("vault TOKY dust = %d, want 0", got)
	}
	stored, err := env.engine.Get(req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusApproved {
		t.Fatalf("status = %v, want approved", stored.Status)
	}
	evts := env.events.Events()
	if len(evts) != 2 || evts[1].Type != EventTypeApproved {
		t.Fatalf("expected opened+approved events, got %+v", evts)
	}
}

func TestApproveRetainsRoundingDust(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 3)
	req := env.openTokenSwap(t, 101, 7)

	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 101 at 3%: cut 3, net 97, dust 1. 7 at 3%: cut 0, net 6, dust 1.
	if got := env.tokenBalance(t, env.tokenX, addrCounterparty); got != 97 {
		t.Fatalf("counterparty TOKX = %d, want 97", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrTreasury); got != 3 {
		t.Fatalf("treasury TOKX = %d, want 3", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 1 {
		t.Fatalf("vault TOKX dust = %d, want 1", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrInitiator); got != 6 {
		t.Fatalf("initiator TOKY = %d, want 6", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrTreasury); got != 0 {
		t.Fatalf("treasury TOKY = %d, want 0", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrVault); got != 1 {
		t.Fatalf("vault TOKY dust = %d, want 1", got)
	}
}

func TestApproveFlatBpsSettlement(t *testing.T) {
	env := newTestEnv(t, FeePolicyFlatBps, 250)
	req := env.openTokenSwap(t, 10_000, 500)

	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 250 bps over the offered flow only: fee 250, net 9750; the
	// requested flow passes through in full.
	if got := env.tokenBalance(t, env.tokenX, addrCounterparty); got != 9_750 {
		t.Fatalf("counterparty TOKX = %d, want 9750", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrTreasury); got != 250 {
		t.Fatalf("treasury TOKX = %d, want 250", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrInitiator); got != 500 {
		t.Fatalf("initiator TOKY = %d, want 500", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrTreasury); got != 0 {
		t.Fatalf("treasury TOKY = %d, want 0", got)
	}
}

func TestApproveAuthorization(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	for _, caller := range [][20]byte{addrInitiator, addrStranger, addrOwner} {
		if err := env.engine.Approve(req.ID, caller); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("caller %x: expected ErrUnauthorized, got %v", caller[:1], err)
		}
	}
	stored, _ := env.engine.Get(req.ID)
	if stored.Status != StatusPending {
		t.Fatalf("status should stay pending, got %v", stored.Status)
	}
}

func TestApproveCustodyFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	env.fundToken(t, env.tokenX, addrInitiator, 100)
	// Counterparty holds the tokens but never granted the vault an
	// allowance, so the pull must fail.
	if err := env.tokenY.Mint(addrCounterparty, big.NewInt(200)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	req, err := env.engine.Open(addrInitiator, addrCounterparty, TokenAsset("TOKX"), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(200))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = env.engine.Approve(req.ID, addrCounterparty)
	var custodyErr *CustodyError
	if !errors.As(err, &custodyErr) {
		t.Fatalf("expected CustodyError, got %v", err)
	}
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance failure, got %v", err)
	}
	// Nothing moved and the request is still pending.
	if got := env.tokenBalance(t, env.tokenY, addrCounterparty); got != 200 {
		t.Fatalf("counterparty TOKY = %d, want 200", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 100 {
		t.Fatalf("vault must keep the escrow, holds %d", got)
	}
	stored, _ := env.engine.Get(req.ID)
	if stored.Status != StatusPending {
		t.Fatalf("status = %v, want pending", stored.Status)
	}
}

func TestCancelRefundsInitiator(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	if err := env.engine.Cancel(req.ID, addrCounterparty); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("counterparty must not cancel, got %v", err)
	}
	if err := env.engine.Cancel(req.ID, addrInitiator); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := env.tokenBalance(t, env.tokenX, addrInitiator); got != 100 {
		t.Fatalf("initiator refund = %d, want 100", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrCounterparty); got != 200 {
		t.Fatalf("counterparty TOKY must be untouched, has %d", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrTreasury); got != 0 {
		t.Fatalf("no fee on cancel, treasury has %d", got)
	}
	stored, _ := env.engine.Get(req.ID)
	if stored.Status != StatusCancelled {
		t.Fatalf("status = %v, want cancelled", stored.Status)
	}
	evts := env.events.Events()
	last := evts[len(evts)-1]
	if last.Type != EventTypeStatusChanged || last.Attributes["newStatus"] != "cancelled" {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
}

func TestRejectByCounterpartyRefunds(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	if err := env.engine.Reject(req.ID, addrInitiator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("initiator reject under dual policy must fail, got %v", err)
	}
	if err := env.engine.Reject(req.ID, addrCounterparty); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := env.tokenBalance(t, env.tokenX, addrInitiator); got != 100 {
		t.Fatalf("initiator refund = %d, want 100", got)
	}
	stored, _ := env.engine.Get(req.ID)
	if stored.Status != StatusRejected {
		t.Fatalf("status = %v, want rejected", stored.Status)
	}
}

func TestRejectByInitiatorUnderFlatPolicy(t *testing.T) {
	env := newTestEnv(t, FeePolicyFlatBps, 100)
	req := env.openTokenSwap(t, 100, 100)

	if err := env.engine.Reject(req.ID, addrInitiator); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := env.tokenBalance(t, env.tokenX, addrInitiator); got != 100 {
		t.Fatalf("initiator refund = %d, want 100", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrVault); got != 0 {
		t.Fatalf("vault must not strand the escrow, holds %d", got)
	}
}

func TestTerminalRequestsRejectFurtherTransitions(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)
	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	balancesAfterFirst := []int64{
		env.tokenBalance(t, env.tokenY, addrInitiator),
		env.tokenBalance(t, env.tokenX, addrCounterparty),
		env.tokenBalance(t, env.tokenX, addrTreasury),
		env.tokenBalance(t, env.tokenY, addrTreasury),
	}
	eventCount := len(env.events.Events())

	if err := env.engine.Approve(req.ID, addrCounterparty); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second approve: expected ErrNotPending, got %v", err)
	}
	if err := env.engine.Reject(req.ID, addrCounterparty); !errors.Is(err, ErrNotPending) {
		t.Fatalf("reject after approve: expected ErrNotPending, got %v", err)
	}
	if err := env.engine.Cancel(req.ID, addrInitiator); !errors.Is(err, ErrNotPending) {
		t.Fatalf("cancel after approve: expected ErrNotPending, got %v", err)
	}
	balancesAfterSecond := []int64{
		env.tokenBalance(t, env.tokenY, addrInitiator),
		env.tokenBalance(t, env.tokenX, addrCounterparty),
		env.tokenBalance(t, env.tokenX, addrTreasury),
		env.tokenBalance(t, env.tokenY, addrTreasury),
	}
	for i := range balancesAfterFirst {
		if balancesAfterFirst[i] != balancesAfterSecond[i] {
			t.Fatalf("balance %d drifted after rejected transition", i)
		}
	}
	if len(env.events.Events()) != eventCount {
		t.Fatalf("failed transitions must emit no events")
	}
}

func TestIdSentinel(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	if _, err := env.engine.Get(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("id 0 must never resolve, got %v", err)
	}
	req := env.openTokenSwap(t, 100, 200)
	if req.ID == 0 {
		t.Fatalf("id 0 must never be assigned")
	}
	if _, err := env.engine.Get(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("id 0 must still miss after opens, got %v", err)
	}
}

func TestNativeAssetSwap(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 10)
	if err := creditNative(env.manager, addrInitiator, 1_000); err != nil {
		t.Fatalf("credit: %v", err)
	}
	env.fundToken(t, env.tokenY, addrCounterparty, 300)

	req, err := env.engine.Open(addrInitiator, addrCounterparty, NativeAsset(), big.NewInt(1_000), TokenAsset("TOKY"), big.NewInt(300))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := nativeBalance(t, env.manager, addrVault); got != 1_000 {
		t.Fatalf("vault native = %d, want 1000", got)
	}
	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := nativeBalance(t, env.manager, addrCounterparty); got != 900 {
		t.Fatalf("counterparty native = %d, want 900", got)
	}
	if got := nativeBalance(t, env.manager, addrTreasury); got != 100 {
		t.Fatalf("treasury native = %d, want 100", got)
	}
	if got := env.tokenBalance(t, env.tokenY, addrInitiator); got != 270 {
		t.Fatalf("initiator TOKY = %d, want 270", got)
	}
}

func TestOpenInsufficientNativeBalance(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	if err := creditNative(env.manager, addrInitiator, 50); err != nil {
		t.Fatalf("credit: %v", err)
	}
	env.fundToken(t, env.tokenY, addrCounterparty, 300)

	_, err := env.engine.Open(addrInitiator, addrCounterparty, NativeAsset(), big.NewInt(100), TokenAsset("TOKY"), big.NewInt(300))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := nativeBalance(t, env.manager, addrInitiator); got != 50 {
		t.Fatalf("initiator balance must be untouched, has %d", got)
	}
	// The reverted id allocation is reissued on the next open.
	env.fundToken(t, env.tokenX, addrInitiator, 10)
	req, err := env.engine.Open(addrInitiator, addrCounterparty, TokenAsset("TOKX"), big.NewInt(10), TokenAsset("TOKY"), big.NewInt(300))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if req.ID != 1 {
		t.Fatalf("expected id 1 after rollback, got %d", req.ID)
	}
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)

	if err := env.engine.SetTreasury(addrStranger, newTestAddress(0x44)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner treasury change: expected ErrUnauthorized, got %v", err)
	}
	if err := env.engine.SetTreasury(addrOwner, [20]byte{}); !errors.Is(err, ErrZeroTreasury) {
		t.Fatalf("zero treasury: expected ErrZeroTreasury, got %v", err)
	}
	if err := env.engine.SetFeeRate(addrOwner, 101); !errors.Is(err, ErrFeeRateRange) {
		t.Fatalf("rate above percent bound: expected ErrFeeRateRange, got %v", err)
	}
	newTreasury := newTestAddress(0x44)
	if err := env.engine.SetTreasury(addrOwner, newTreasury); err != nil {
		t.Fatalf("set treasury: %v", err)
	}
	if err := env.engine.SetFeeRate(addrOwner, 7); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}
	cfg, err := env.engine.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Treasury != newTreasury || cfg.FeeRate != 7 {
		t.Fatalf("config not applied: %+v", cfg)
	}
	evts := env.events.Events()
	if len(evts) != 2 || evts[0].Type != EventTypeTreasuryChanged || evts[1].Type != EventTypeFeeRateChanged {
		t.Fatalf("unexpected admin events: %+v", evts)
	}
}

func TestFeeRateResolvedAtApprovalTime(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	req := env.openTokenSwap(t, 100, 200)

	if err := env.engine.SetFeeRate(addrOwner, 10); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}
	if err := env.engine.Approve(req.ID, addrCounterparty); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// The new 10% rate applies even though the request predates it.
	if got := env.tokenBalance(t, env.tokenX, addrCounterparty); got != 90 {
		t.Fatalf("counterparty TOKX = %d, want 90", got)
	}
	if got := env.tokenBalance(t, env.tokenX, addrTreasury); got != 10 {
		t.Fatalf("treasury TOKX = %d, want 10", got)
	}
}

func TestSetAuthorizedRegistry(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	account := newTestAddress(0x55)

	if err := env.engine.SetAuthorized(addrStranger, account, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner: expected ErrUnauthorized, got %v", err)
	}
	if err := env.engine.SetAuthorized(addrOwner, account, true); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	cfg, _ := env.engine.Config()
	if !cfg.IsAuthorized(account) {
		t.Fatalf("account should be authorized")
	}
	if err := env.engine.SetAuthorized(addrOwner, account, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	cfg, _ = env.engine.Config()
	if cfg.IsAuthorized(account) {
		t.Fatalf("account should be revoked")
	}
}

func TestInitializeRunsOnce(t *testing.T) {
	env := newTestEnv(t, FeePolicyDualPercent, 5)
	err := env.ledger.Initialize(LedgerConfig{Treasury: newTestAddress(0x77), FeePolicy: FeePolicyFlatBps, FeeRate: 1})
	if err != nil {
		t.Fatalf("repeat initialize: %v", err)
	}
	cfg, err := env.ledger.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Treasury != addrTreasury || cfg.FeePolicy != FeePolicyDualPercent || cfg.FeeRate != 5 {
		t.Fatalf("repeat initialize must not overwrite config: %+v", cfg)
	}
}

func creditNative(manager *state.Manager, addr [20]byte, amount int64) error {
	account, err := manager.GetAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, big.NewInt(amount))
	return manager.PutAccount(addr, account)
}

func nativeBalance(t *testing.T, manager *state.Manager, addr [20]byte) int64 {
	t.Helper()
	account, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	return account.Balance.Int64()
}
