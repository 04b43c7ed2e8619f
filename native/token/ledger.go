package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAmount         = errors.New("token: amount must be positive")
	errNilState              = errors.New("token: state not configured")
)

// Storage abstracts the subset of state manager functionality required
// by the token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is a state-backed fungible token with balances and spending
// allowances. One instance manages one token symbol; the custody layer
// resolves symbols to instances through its registry.
type Ledger struct {
	symbol string
	state  Storage
}

// NewLedger binds a token symbol to the supplied state backend.
func NewLedger(symbol string, state Storage) (*Ledger, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return nil, errors.New("token: empty symbol")
	}
	if state == nil {
		return nil, errNilState
	}
	return &Ledger{symbol: trimmed, state: state}, nil
}

// Symbol returns the canonical token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) balanceKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/balance/%x", l.symbol, addr))
}

func (l *Ledger) allowanceKey(owner, spender [20]byte) []byte {
	return []byte(fmt.Sprintf("token/%s/allowance/%x/%x", l.symbol, owner, spender))
}

func (l *Ledger) load(key []byte) (*big.Int, error) {
	value := new(big.Int)
	ok, err := l.state.KVGet(key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return value, nil
}

// BalanceOf returns the balance held by addr.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	return l.load(l.balanceKey(addr))
}

// Allowance returns how much spender may still move out of owner.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return l.load(l.allowanceKey(owner, spender))
}

// Mint credits newly issued tokens to addr.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.load(l.balanceKey(addr))
	if err != nil {
		return err
	}
	return l.state.KVPut(l.balanceKey(addr), new(big.Int).Add(balance, amount))
}

// Approve grants spender the right to move up to amount out of owner.
// A zero amount revokes the grant.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.state.KVPut(l.allowanceKey(owner, spender), amount)
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.load(l.balanceKey(from))
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.load(l.balanceKey(to))
	if err != nil {
		return err
	}
	if err := l.state.KVPut(l.balanceKey(from), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.KVPut(l.balanceKey(to), new(big.Int).Add(toBalance, amount))
}

// TransferFrom moves amount out of owner on behalf of spender,
// consuming the matching allowance.
func (l *Ledger) TransferFrom(spender, owner, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.load(l.allowanceKey(owner, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(owner, to, amount); err != nil {
		return err
	}
	return l.state.KVPut(l.allowanceKey(owner, spender), new(big.Int).Sub(allowance, amount))
}
