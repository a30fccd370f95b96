package vesting

import (
	"math/big"

	"meltwater/native/accrual"
)

// Position is a principal locked until End that accrues reward for its
// beneficiary.
type Position struct {
	ID          uint64
	Creator     [20]byte
	Beneficiary [20]byte
	Principal   *big.Int
	Start       int64
	End         int64
	Checkpoint  accrual.Checkpoint
	Redeemed    bool
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Principal = new(big.Int)
	if p.Principal != nil {
		clone.Principal.Set(p.Principal)
	}
	clone.Checkpoint = p.Checkpoint.Clone()
	return &clone
}

// Matured reports whether the position can be redeemed at now.
func (p *Position) Matured(now int64) bool {
	return now >= p.End
}

// ClaimResult reports the value released by a claim or redemption.
type ClaimResult struct {
	Position  *Position
	Reward    *big.Int
	Principal *big.Int
	Redeemed  bool
}
