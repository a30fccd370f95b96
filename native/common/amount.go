package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrNilAmount      = errors.New("amount required")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountOverflow = errors.New("amount exceeds 256 bits")
)

// CheckAmount rejects nil, negative and out-of-range values. Amounts must fit
// the 256-bit word used by the ledgers.
func CheckAmount(v *big.Int) error {
	if v == nil {
		return ErrNilAmount
	}
	if v.Sign() < 0 {
		return ErrNegativeAmount
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return ErrAmountOverflow
	}
	return nil
}

// CheckPositive is CheckAmount plus a non-zero requirement.
func CheckPositive(v *big.Int) error {
	if err := CheckAmount(v); err != nil {
		return err
	}
	if v.Sign() == 0 {
		return ErrNegativeAmount
	}
	return nil
}
