package types

import "math/big"

// Account holds the native-currency balance tracked by the state manager.
// Token balances live inside the token ledger, not here.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// Ensure returns the account with a non-nil balance, allocating a zero
// account when the input is nil. Stored accounts predating a field are
// normalised through this before any arithmetic.
func (a *Account) Ensure() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}
