package config

import (
	"fmt"
	"math/big"
	"strings"

	"meltwater/crypto"
)

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseAmount converts a decimal amount of whole units into its 18 decimal
// fixed-point value. Empty means zero.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	r, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", value)
	}
	r.Mul(r, new(big.Rat).SetInt(unit))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimals", value)
	}
	return new(big.Int).Set(r.Num()), nil
}

// ParseRate parses a non-negative decimal fraction such as "0.02".
func ParseRate(value string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return nil, fmt.Errorf("invalid rate %q", value)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("rate %q must not be negative", value)
	}
	return r, nil
}

// ResolveAccount accepts a bech32 or hex address. Anything else is treated as
// a label and hashed into a stable account address.
func ResolveAccount(value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("empty account")
	}
	if addr, err := crypto.ParseAddress(trimmed); err == nil {
		return addr, nil
	}
	return crypto.LabelAddress(crypto.AccountPrefix, trimmed), nil
}

// SeededAccount is a genesis account with parsed balances.
type SeededAccount struct {
	Address crypto.Address
	H2O     *big.Int
	ICE     *big.Int
	Coin    *big.Int
}

// SeededAccounts parses every genesis account.
func (g Genesis) SeededAccounts() ([]SeededAccount, error) {
	out := make([]SeededAccount, 0, len(g.Accounts))
	for i, account := range g.Accounts {
		addr, err := ResolveAccount(account.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis.accounts[%d]: %w", i, err)
		}
		seeded := SeededAccount{Address: addr}
		if seeded.H2O, err = ParseAmount(account.H2O); err != nil {
			return nil, fmt.Errorf("genesis.accounts[%d].H2O: %w", i, err)
		}
		if seeded.ICE, err = ParseAmount(account.ICE); err != nil {
			return nil, fmt.Errorf("genesis.accounts[%d].ICE: %w", i, err)
		}
		if seeded.Coin, err = ParseAmount(account.Coin); err != nil {
			return nil, fmt.Errorf("genesis.accounts[%d].Coin: %w", i, err)
		}
		out = append(out, seeded)
	}
	return out, nil
}
