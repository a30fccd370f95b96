package auction

import (
	"errors"
	"fmt"
	"math/big"

	"meltwater/native/rebase"
)

var (
	ErrAuctionAlreadyActive = errors.New("auction engine: auction already active")
	ErrNoActiveAuction      = errors.New("auction engine: no active auction")
	ErrBidNotImproved       = errors.New("auction engine: bid does not improve on the leading bid")
	ErrTimeRemaining        = errors.New("auction engine: time remaining in the auction")
	ErrInsufficientReserve  = errors.New("auction engine: custody reserve below ask")
	ErrInvalidAmount        = errors.New("auction engine: amount must be positive")
	ErrInvalidKind          = errors.New("auction engine: unknown auction kind")
)

// InitiateEvent opens a round. Eligible is the correction currently allowed
// by the supply deviation; EscrowAmount is the unit amount on offer.
type InitiateEvent struct {
	Kind         rebase.Kind
	Initiator    [20]byte
	EscrowAmount *big.Int
	InitialBid   *big.Int
	Eligible     rebase.Kind
	// MaxEscrow bounds EscrowAmount for negative rounds.
	MaxEscrow *big.Int
	// Reserve is the custody balance available for the negative payout.
	Reserve *big.Int
	Now     int64
}

// BidEvent places a bid. Kind restricts the bid to rounds of that kind;
// KindNone accepts either.
type BidEvent struct {
	Kind   rebase.Kind
	Bidder [20]byte
	Amount *big.Int
	Now    int64
}

// Initiate opens a round from the idle state.
func Initiate(s State, ev InitiateEvent) (State, []Effect, error) {
	if !s.IsIdle() {
		return s, nil, ErrAuctionAlreadyActive
	}
	if ev.Kind != rebase.KindPositive && ev.Kind != rebase.KindNegative {
		return s, nil, ErrInvalidKind
	}
	if ev.Eligible != ev.Kind {
		return s, nil, fmt.Errorf("%w: %s requested, %s eligible", rebase.ErrAuctionUnavailable, ev.Kind, ev.Eligible)
	}
	if !positive(ev.InitialBid) {
		return s, nil, fmt.Errorf("%w: initial bid", ErrInvalidAmount)
	}
	if !positive(ev.EscrowAmount) {
		return s, nil, fmt.Errorf("%w: escrow", ErrInvalidAmount)
	}
	round := Round{
		Kind:          ev.Kind,
		InitiatedAt:   ev.Now,
		EscrowAmount:  cloneBigInt(ev.EscrowAmount),
		LeadingBid:    cloneBigInt(ev.InitialBid),
		LeadingBidder: ev.Initiator,
	}
	var effects []Effect
	switch ev.Kind {
	case rebase.KindPositive:
		effects = []Effect{{Kind: EffectLock, Asset: AssetCoin, Account: ev.Initiator, Amount: cloneBigInt(ev.InitialBid)}}
	case rebase.KindNegative:
		if ev.MaxEscrow != nil && ev.EscrowAmount.Cmp(ev.MaxEscrow) > 0 {
			return s, nil, fmt.Errorf("%w: escrow %s exceeds excess %s", ErrInvalidAmount, ev.EscrowAmount, ev.MaxEscrow)
		}
		if ev.Reserve == nil || ev.Reserve.Cmp(ev.InitialBid) < 0 {
			return s, nil, ErrInsufficientReserve
		}
		effects = []Effect{{Kind: EffectLock, Asset: AssetUnit, Account: ev.Initiator, Amount: cloneBigInt(ev.EscrowAmount)}}
	}
	return Active(round), effects, nil
}

// Bid replaces the leading bid. The previous leader's locked value is refunded
// best-effort. A bid placed after the bidding window settles the round in the
// same transition.
func Bid(s State, p Params, ev BidEvent) (State, []Effect, error) {
	round, ok := s.Round()
	if !ok || (ev.Kind != rebase.KindNone && ev.Kind != round.Kind) {
		return s, nil, ErrNoActiveAuction
	}
	if !positive(ev.Amount) {
		return s, nil, fmt.Errorf("%w: bid", ErrInvalidAmount)
	}
	if !round.improves(ev.Amount) {
		return s, nil, ErrBidNotImproved
	}
	var effects []Effect
	switch round.Kind {
	case rebase.KindPositive:
		effects = append(effects,
			Effect{Kind: EffectLock, Asset: AssetCoin, Account: ev.Bidder, Amount: cloneBigInt(ev.Amount)},
			Effect{Kind: EffectRefund, Asset: AssetCoin, Account: round.LeadingBidder, Amount: cloneBigInt(round.LeadingBid)},
		)
	case rebase.KindNegative:
		effects = append(effects,
			Effect{Kind: EffectLock, Asset: AssetUnit, Account: ev.Bidder, Amount: cloneBigInt(round.EscrowAmount)},
			Effect{Kind: EffectRefund, Asset: AssetUnit, Account: round.LeadingBidder, Amount: cloneBigInt(round.EscrowAmount)},
		)
	}
	round.LeadingBid = cloneBigInt(ev.Amount)
	round.LeadingBidder = ev.Bidder
	if ev.Now-round.InitiatedAt >= p.windowSeconds() {
		return Idle(), append(effects, settlement(round)...), nil
	}
	return Active(round), effects, nil
}

// Terminate settles the round once the bidding window and grace period have
// both elapsed. Anyone may call it.
func Terminate(s State, p Params, now int64) (State, []Effect, error) {
	round, ok := s.Round()
	if !ok {
		return s, nil, ErrNoActiveAuction
	}
	if now-round.InitiatedAt < p.terminateSeconds() {
		return s, nil, ErrTimeRemaining
	}
	return Idle(), settlement(round), nil
}

// settlement pays out the round to its leader.
func settlement(round Round) []Effect {
	switch round.Kind {
	case rebase.KindPositive:
		return []Effect{{Kind: EffectMint, Asset: AssetUnit, Account: round.LeadingBidder, Amount: cloneBigInt(round.EscrowAmount)}}
	case rebase.KindNegative:
		return []Effect{
			{Kind: EffectBurn, Asset: AssetUnit, Amount: cloneBigInt(round.EscrowAmount)},
			{Kind: EffectPay, Asset: AssetCoin, Account: round.LeadingBidder, Amount: cloneBigInt(round.LeadingBid)},
		}
	default:
		return nil
	}
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
