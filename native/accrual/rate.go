package accrual

import (
	"errors"
	"math/big"
)

// SecondsPerYear converts between per-second and annual rates.
const SecondsPerYear = 31_536_000

var (
	// Unit is the fixed-point scale of externally supplied rates.
	Unit = big.NewInt(1_000_000_000_000_000_000)

	ErrInvalidRate = errors.New("accrual engine: rate must not be negative")
)

// DefaultRate is 2% per year expressed as an exact per-second fraction.
func DefaultRate() *big.Rat {
	return big.NewRat(2, 100*SecondsPerYear)
}

// RateFromFixed converts a Unit-scaled per-second rate.
func RateFromFixed(perSecond *big.Int) (*big.Rat, error) {
	if perSecond == nil || perSecond.Sign() < 0 {
		return nil, ErrInvalidRate
	}
	return new(big.Rat).SetFrac(perSecond, Unit), nil
}

// RateFromAnnual spreads an annual fraction evenly over SecondsPerYear.
func RateFromAnnual(annual *big.Rat) (*big.Rat, error) {
	if annual == nil || annual.Sign() < 0 {
		return nil, ErrInvalidRate
	}
	return new(big.Rat).Quo(annual, new(big.Rat).SetInt64(SecondsPerYear)), nil
}

// AnnualRate reports perSecond*SecondsPerYear.
func AnnualRate(perSecond *big.Rat) *big.Rat {
	return new(big.Rat).Mul(cloneRat(perSecond), new(big.Rat).SetInt64(SecondsPerYear))
}

// FixedRate truncates perSecond to its Unit-scaled integer form.
func FixedRate(perSecond *big.Rat) *big.Int {
	scaled := new(big.Rat).Mul(cloneRat(perSecond), new(big.Rat).SetInt(Unit))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

func cloneRat(r *big.Rat) *big.Rat {
	if r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(r)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
