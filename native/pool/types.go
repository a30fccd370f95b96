package pool

import "math/big"

// Asset identifies one side of the market. A is the unit of account, B the
// growth unit.
type Asset uint8

const (
	AssetA Asset = iota
	AssetB
)

func (a Asset) String() string {
	switch a {
	case AssetA:
		return "A"
	case AssetB:
		return "B"
	default:
		return "unknown"
	}
}

// Direction selects the input side of a swap.
type Direction uint8

const (
	// AToB sells A for B.
	AToB Direction = iota
	// BToA sells B for A.
	BToA
)

func (d Direction) String() string {
	if d == BToA {
		return "b_to_a"
	}
	return "a_to_b"
}

func (d Direction) input() Asset {
	if d == BToA {
		return AssetB
	}
	return AssetA
}

func (d Direction) output() Asset {
	if d == BToA {
		return AssetA
	}
	return AssetB
}

// State holds the virtual reserves of the market.
type State struct {
	ReserveA *big.Int
	ReserveB *big.Int
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return &State{ReserveA: cloneBigInt(s.ReserveA), ReserveB: cloneBigInt(s.ReserveB)}
}

// K returns the constant product of the reserves.
func (s *State) K() *big.Int {
	return new(big.Int).Mul(cloneBigInt(s.ReserveA), cloneBigInt(s.ReserveB))
}

func (s *State) reserve(asset Asset) *big.Int {
	if asset == AssetB {
		return s.ReserveB
	}
	return s.ReserveA
}

// SwapRequest captures a single swap.
type SwapRequest struct {
	Direction Direction
	Recipient [20]byte
	AmountIn  *big.Int
	MinOut    *big.Int
	Deadline  int64
}

// SwapResult reports the filled swap.
type SwapResult struct {
	Direction Direction
	AmountIn  *big.Int
	AmountOut *big.Int
	Reserves  *State
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
