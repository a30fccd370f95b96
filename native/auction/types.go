package auction

import (
	"math/big"
	"time"

	"meltwater/native/rebase"
)

const (
	// DefaultBiddingWindow is how long bids are accepted without settling.
	DefaultBiddingWindow = 30 * 24 * time.Hour
	// DefaultGracePeriod is the extra time before anyone may terminate.
	DefaultGracePeriod = 24 * time.Hour
)

// Params bounds the auction timeline.
type Params struct {
	BiddingWindow time.Duration
	GracePeriod   time.Duration
}

// DefaultParams returns the standard 30 day window with a 1 day grace period.
func DefaultParams() Params {
	return Params{BiddingWindow: DefaultBiddingWindow, GracePeriod: DefaultGracePeriod}
}

func (p Params) windowSeconds() int64 { return int64(p.BiddingWindow / time.Second) }

func (p Params) terminateSeconds() int64 {
	return int64((p.BiddingWindow + p.GracePeriod) / time.Second)
}

// Round is the payload of an active auction.
type Round struct {
	Kind          rebase.Kind
	InitiatedAt   int64
	EscrowAmount  *big.Int
	LeadingBid    *big.Int
	LeadingBidder [20]byte
}

// Clone returns a deep copy of the round.
func (r Round) Clone() Round {
	return Round{
		Kind:          r.Kind,
		InitiatedAt:   r.InitiatedAt,
		EscrowAmount:  cloneBigInt(r.EscrowAmount),
		LeadingBid:    cloneBigInt(r.LeadingBid),
		LeadingBidder: r.LeadingBidder,
	}
}

// improves reports whether amount beats the leading bid for the round's kind.
func (r Round) improves(amount *big.Int) bool {
	switch r.Kind {
	case rebase.KindPositive:
		return amount.Cmp(r.LeadingBid) > 0
	case rebase.KindNegative:
		return amount.Cmp(r.LeadingBid) < 0
	default:
		return false
	}
}

// State is either idle or holds exactly one active round.
type State struct {
	round *Round
}

// Idle returns the state with no active auction.
func Idle() State { return State{} }

// Active returns the state holding round.
func Active(round Round) State {
	r := round.Clone()
	return State{round: &r}
}

// IsIdle reports whether no auction is active.
func (s State) IsIdle() bool { return s.round == nil }

// Round returns a copy of the active round.
func (s State) Round() (Round, bool) {
	if s.round == nil {
		return Round{}, false
	}
	return s.round.Clone(), true
}

// Kind returns the active kind, or KindNone while idle.
func (s State) Kind() rebase.Kind {
	if s.round == nil {
		return rebase.KindNone
	}
	return s.round.Kind
}

// Asset names the value an effect moves.
type Asset uint8

const (
	// AssetCoin is the native value held in custody.
	AssetCoin Asset = iota
	// AssetUnit is the unit-of-account token.
	AssetUnit
)

func (a Asset) String() string {
	if a == AssetUnit {
		return "unit"
	}
	return "coin"
}

// EffectKind enumerates the value movements an auction transition requests.
type EffectKind uint8

const (
	// EffectLock pulls value from Account into custody.
	EffectLock EffectKind = iota
	// EffectRefund returns custody value to Account. It may fail without
	// failing the transition.
	EffectRefund
	// EffectMint creates new units for Account.
	EffectMint
	// EffectBurn destroys units held in custody.
	EffectBurn
	// EffectPay sends custody value to Account.
	EffectPay
)

func (k EffectKind) String() string {
	switch k {
	case EffectLock:
		return "lock"
	case EffectRefund:
		return "refund"
	case EffectMint:
		return "mint"
	case EffectBurn:
		return "burn"
	case EffectPay:
		return "pay"
	default:
		return "unknown"
	}
}

// Effect is one value movement requested by a transition.
type Effect struct {
	Kind    EffectKind
	Asset   Asset
	Account [20]byte
	Amount  *big.Int
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
