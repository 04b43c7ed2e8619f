package swap

import (
	"math/big"
	"strings"

	"swapledger/core/types"
)

// Token is the external fungible-asset capability. Implementations are
// supplied by the host process; their transfer paths run arbitrary code
// and may fail, which makes them both fallible and the ledger's
// reentrancy surface.
type Token interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	TransferFrom(spender, owner, to [20]byte, amount *big.Int) error
}

// custodyState is the account view needed to move native value.
type custodyState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Custody provides uniform transfer-in/transfer-out over the two asset
// kinds. Native value moves between accounts held by the state manager,
// with the vault address as the custody account; token value moves
// through the registered Token capability, with the vault as holder.
type Custody struct {
	state  custodyState
	vault  [20]byte
	tokens map[string]Token
}

// NewCustody builds the adapter around the supplied vault address.
func NewCustody(state custodyState, vault [20]byte) *Custody {
	return &Custody{
		state:  state,
		vault:  vault,
		tokens: make(map[string]Token),
	}
}

// Vault returns the custody account address.
func (c *Custody) Vault() [20]byte { return c.vault }

// RegisterToken makes a fungible asset transferable under symbol.
// Registration happens at wiring time, before any operation runs.
func (c *Custody) RegisterToken(symbol string, tok Token) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" || tok == nil {
		return
	}
	c.tokens[trimmed] = tok
}

// resolve validates the asset identifier and, for tokens, looks up the
// registered capability.
func (c *Custody) resolve(asset Asset) (Token, error) {
	if !asset.Valid() {
		return nil, ErrInvalidAsset
	}
	if asset.Kind == AssetNative {
		return nil, nil
	}
	tok, ok := c.tokens[asset.normalize().Symbol]
	if !ok {
		return nil, ErrInvalidAsset
	}
	return tok, nil
}

// ValidAsset reports whether the asset can be moved by this adapter.
func (c *Custody) ValidAsset(asset Asset) bool {
	_, err := c.resolve(asset)
	return err == nil
}

// TransferIn pulls amount of asset from the holder into custody. A
// failure aborts the enclosing operation; no partial debit survives.
func (c *Custody) TransferIn(asset Asset, from [20]byte, amount *big.Int) error {
	tok, err := c.resolve(asset)
	if err != nil {
		return err
	}
	if tok == nil {
		if err := c.moveNative(from, c.vault, amount); err != nil {
			return &CustodyError{Op: "transfer-in", Asset: asset, Err: err}
		}
		return nil
	}
	if err := tok.TransferFrom(c.vault, from, c.vault, amount); err != nil {
		return &CustodyError{Op: "transfer-in", Asset: asset, Err: err}
	}
	return nil
}

// TransferOut pushes custody-held amount of asset to the recipient.
func (c *Custody) TransferOut(asset Asset, to [20]byte, amount *big.Int) error {
	tok, err := c.resolve(asset)
	if err != nil {
		return err
	}
	if tok == nil {
		if err := c.moveNative(c.vault, to, amount); err != nil {
			return &CustodyError{Op: "transfer-out", Asset: asset, Err: err}
		}
		return nil
	}
	if err := tok.Transfer(c.vault, to, amount); err != nil {
		return &CustodyError{Op: "transfer-out", Asset: asset, Err: err}
	}
	return nil
}

func (c *Custody) moveNative(from, to [20]byte, amount *big.Int) error {
	if c.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := c.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := c.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := c.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return c.state.PutAccount(to, toAcc)
}
