package auction

import (
	"errors"
	"math/big"
	"testing"

	"meltwater/native/rebase"
)

const day = int64(24 * 60 * 60)

var (
	alice = [20]byte{0xa1}
	bob   = [20]byte{0xb0}
	carol = [20]byte{0xca}
)

func positiveRound(t *testing.T) State {
	t.Helper()
	s, _, err := Initiate(Idle(), InitiateEvent{
		Kind:         rebase.KindPositive,
		Initiator:    alice,
		EscrowAmount: big.NewInt(1_000),
		InitialBid:   big.NewInt(100),
		Eligible:     rebase.KindPositive,
		Now:          0,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return s
}

func negativeRound(t *testing.T) State {
	t.Helper()
	s, _, err := Initiate(Idle(), InitiateEvent{
		Kind:         rebase.KindNegative,
		Initiator:    alice,
		EscrowAmount: big.NewInt(500),
		InitialBid:   big.NewInt(100),
		Eligible:     rebase.KindNegative,
		MaxEscrow:    big.NewInt(600),
		Reserve:      big.NewInt(100),
		Now:          0,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return s
}

func TestInitiateRequiresIdleAndEligibility(t *testing.T) {
	active := positiveRound(t)
	if _, _, err := Initiate(active, InitiateEvent{Kind: rebase.KindPositive, Eligible: rebase.KindPositive}); !errors.Is(err, ErrAuctionAlreadyActive) {
		t.Fatalf("expected already active, got %v", err)
	}
	_, _, err := Initiate(Idle(), InitiateEvent{
		Kind:         rebase.KindNegative,
		Initiator:    alice,
		EscrowAmount: big.NewInt(1),
		InitialBid:   big.NewInt(1),
		Eligible:     rebase.KindPositive,
	})
	if !errors.Is(err, rebase.ErrAuctionUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestInitiateNegativeBounds(t *testing.T) {
	base := InitiateEvent{
		Kind:         rebase.KindNegative,
		Initiator:    alice,
		EscrowAmount: big.NewInt(500),
		InitialBid:   big.NewInt(100),
		Eligible:     rebase.KindNegative,
		MaxEscrow:    big.NewInt(400),
		Reserve:      big.NewInt(100),
	}
	if _, _, err := Initiate(Idle(), base); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected escrow above excess to fail, got %v", err)
	}
	base.MaxEscrow = big.NewInt(500)
	base.Reserve = big.NewInt(99)
	if _, _, err := Initiate(Idle(), base); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected insufficient reserve, got %v", err)
	}
	base.Reserve = big.NewInt(100)
	s, effects, err := Initiate(Idle(), base)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if s.Kind() != rebase.KindNegative {
		t.Fatalf("unexpected kind %s", s.Kind())
	}
	if len(effects) != 1 || effects[0].Kind != EffectLock || effects[0].Asset != AssetUnit || effects[0].Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected effects %+v", effects)
	}
}

func TestPositiveBidsMustIncrease(t *testing.T) {
	s := positiveRound(t)
	params := DefaultParams()
	if _, _, err := Bid(s, params, BidEvent{Bidder: bob, Amount: big.NewInt(100), Now: day}); !errors.Is(err, ErrBidNotImproved) {
		t.Fatalf("expected not improved, got %v", err)
	}
	next, effects, err := Bid(s, params, BidEvent{Bidder: bob, Amount: big.NewInt(150), Now: day})
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	round, _ := next.Round()
	if round.LeadingBidder != bob || round.LeadingBid.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected leader %+v", round)
	}
	if len(effects) != 2 || effects[0].Kind != EffectLock || effects[1].Kind != EffectRefund || effects[1].Account != alice || effects[1].Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected effects %+v", effects)
	}
}

func TestNegativeBidsMustDecrease(t *testing.T) {
	s := negativeRound(t)
	params := DefaultParams()
	if _, _, err := Bid(s, params, BidEvent{Bidder: bob, Amount: big.NewInt(100), Now: day}); !errors.Is(err, ErrBidNotImproved) {
		t.Fatalf("expected not improved, got %v", err)
	}
	_, effects, err := Bid(s, params, BidEvent{Bidder: bob, Amount: big.NewInt(90), Now: day})
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if effects[0].Asset != AssetUnit || effects[0].Amount.Cmp(big.NewInt(500)) != 0 || effects[1].Account != alice {
		t.Fatalf("unexpected effects %+v", effects)
	}
}

func TestBidKindFilter(t *testing.T) {
	s := positiveRound(t)
	if _, _, err := Bid(s, DefaultParams(), BidEvent{Kind: rebase.KindNegative, Bidder: bob, Amount: big.NewInt(50), Now: 1}); !errors.Is(err, ErrNoActiveAuction) {
		t.Fatalf("expected no active negative auction, got %v", err)
	}
	if _, _, err := Bid(Idle(), DefaultParams(), BidEvent{Bidder: bob, Amount: big.NewInt(50), Now: 1}); !errors.Is(err, ErrNoActiveAuction) {
		t.Fatalf("expected no active auction, got %v", err)
	}
}

func TestLateBidSettles(t *testing.T) {
	s := positiveRound(t)
	next, effects, err := Bid(s, DefaultParams(), BidEvent{Bidder: carol, Amount: big.NewInt(200), Now: 30 * day})
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if !next.IsIdle() {
		t.Fatalf("late bid should settle the round")
	}
	last := effects[len(effects)-1]
	if last.Kind != EffectMint || last.Account != carol || last.Amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("unexpected settlement %+v", last)
	}
}

func TestTerminateTiming(t *testing.T) {
	s := negativeRound(t)
	params := DefaultParams()
	if _, _, err := Terminate(s, params, 31*day-1); !errors.Is(err, ErrTimeRemaining) {
		t.Fatalf("expected time remaining, got %v", err)
	}
	next, effects, err := Terminate(s, params, 31*day)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if !next.IsIdle() {
		t.Fatalf("terminate should return to idle")
	}
	if len(effects) != 2 || effects[0].Kind != EffectBurn || effects[1].Kind != EffectPay || effects[1].Account != alice || effects[1].Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected effects %+v", effects)
	}
	if _, _, err := Terminate(Idle(), params, 31*day); !errors.Is(err, ErrNoActiveAuction) {
		t.Fatalf("expected no active auction, got %v", err)
	}
}

func TestStateRoundIsACopy(t *testing.T) {
	s := positiveRound(t)
	round, _ := s.Round()
	round.LeadingBid.SetInt64(1)
	again, _ := s.Round()
	if again.LeadingBid.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("round payload leaked a reference")
	}
}
