package accrual

import (
	"math"
	"math/big"
)

// NoCeiling disables the settlement upper bound.
const NoCeiling int64 = math.MaxInt64

// Checkpoint is the accrual state of one principal.
type Checkpoint struct {
	Principal     *big.Int
	RatePerSecond *big.Rat
	LastSettled   int64
}

// NewCheckpoint starts accrual for principal at start.
func NewCheckpoint(principal *big.Int, rate *big.Rat, start int64) Checkpoint {
	return Checkpoint{Principal: cloneBigInt(principal), RatePerSecond: cloneRat(rate), LastSettled: start}
}

// Clone returns a deep copy of the checkpoint.
func (c Checkpoint) Clone() Checkpoint {
	return Checkpoint{Principal: cloneBigInt(c.Principal), RatePerSecond: cloneRat(c.RatePerSecond), LastSettled: c.LastSettled}
}

// Preview computes the reward that Settle would return, without producing a
// new checkpoint.
func Preview(cp Checkpoint, now, ceiling int64) *big.Int {
	reward, _ := settle(cp, now, ceiling)
	return reward
}

// Settle returns the reward owed for the interval since the last settlement,
// bounded by ceiling, and the advanced checkpoint. LastSettled never decreases
// and never passes ceiling, so each second is paid at most once.
func Settle(cp Checkpoint, now, ceiling int64) (*big.Int, Checkpoint) {
	return settle(cp, now, ceiling)
}

func settle(cp Checkpoint, now, ceiling int64) (*big.Int, Checkpoint) {
	end := now
	if ceiling < end {
		end = ceiling
	}
	next := cp.Clone()
	elapsed := end - cp.LastSettled
	if elapsed <= 0 {
		return big.NewInt(0), next
	}
	next.LastSettled = end
	if next.Principal.Sign() <= 0 || next.RatePerSecond.Sign() <= 0 {
		return big.NewInt(0), next
	}
	accrued := new(big.Rat).SetInt(next.Principal)
	accrued.Mul(accrued, next.RatePerSecond)
	accrued.Mul(accrued, new(big.Rat).SetInt64(elapsed))
	return new(big.Int).Quo(accrued.Num(), accrued.Denom()), next
}
