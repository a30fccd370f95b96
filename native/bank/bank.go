package bank

import (
	"errors"
	"math/big"
)

var (
	ErrPaused              = errors.New("bank: ledger paused")
	ErrUnauthorized        = errors.New("bank: caller not authorized")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: invalid amount")
	ErrRecipientRejected   = errors.New("bank: recipient rejected transfer")
	ErrUnknownSnapshot     = errors.New("bank: unknown snapshot")
)

// Ledger is a fungible token the engines can mint, burn and move.
type Ledger interface {
	Symbol() string
	Mint(to [20]byte, amount *big.Int) error
	Burn(from [20]byte, amount *big.Int) error
	Transfer(from, to [20]byte, amount *big.Int) error
	BalanceOf(account [20]byte) *big.Int
	TotalSupply() *big.Int
}

// Custody holds the native Coin backing auction bids and payouts.
type Custody interface {
	// Deposit pulls amount from the account into custody.
	Deposit(from [20]byte, amount *big.Int) error
	// Send pays amount out of custody.
	Send(to [20]byte, amount *big.Int) error
	// TrySend attempts a payout that the caller may choose to abandon.
	TrySend(to [20]byte, amount *big.Int) error
	Reserve() *big.Int
}

// Snapshotter is implemented by collaborators that can roll back to an
// earlier point.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(id int) error
	DiscardSnapshot(id int)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func cloneBalances(in map[[20]byte]*big.Int) map[[20]byte]*big.Int {
	out := make(map[[20]byte]*big.Int, len(in))
	for k, v := range in {
		out[k] = cloneBigInt(v)
	}
	return out
}
