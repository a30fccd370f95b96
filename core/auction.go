package core

import (
	"context"
	"log/slog"
	"math/big"

	"meltwater/core/events"
	"meltwater/native/auction"
	"meltwater/native/rebase"
)

// InitiatePositiveAuction opens an auction of the H2O shortfall, locking bid
// Coin from caller as the opening bid.
func (c *Controller) InitiatePositiveAuction(ctx context.Context, caller [20]byte, bid *big.Int) (*auction.Outcome, error) {
	var outcome *auction.Outcome
	err := c.exec(ctx, "initiate_positive_auction", func(now int64) error {
		eligible, err := c.rebase.Eligible()
		if err != nil {
			return err
		}
		shortfall, err := c.rebase.Shortfall()
		if err != nil {
			return err
		}
		outcome, err = c.auctions.Initiate(auction.InitiateEvent{
			Kind:         rebase.KindPositive,
			Initiator:    caller,
			EscrowAmount: shortfall,
			InitialBid:   bid,
			Eligible:     eligible,
			Now:          now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveAuctionInitiated(rebase.KindPositive.String())
	return outcome, nil
}

// InitiateNegativeAuction escrows amount H2O from caller and asks for ask Coin
// in exchange.
func (c *Controller) InitiateNegativeAuction(ctx context.Context, caller [20]byte, amount, ask *big.Int) (*auction.Outcome, error) {
	var outcome *auction.Outcome
	err := c.exec(ctx, "initiate_negative_auction", func(now int64) error {
		eligible, err := c.rebase.Eligible()
		if err != nil {
			return err
		}
		excess, err := c.rebase.Excess()
		if err != nil {
			return err
		}
		outcome, err = c.auctions.Initiate(auction.InitiateEvent{
			Kind:         rebase.KindNegative,
			Initiator:    caller,
			EscrowAmount: amount,
			InitialBid:   ask,
			Eligible:     eligible,
			MaxEscrow:    excess,
			Reserve:      c.custody.Reserve(),
			Now:          now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveAuctionInitiated(rebase.KindNegative.String())
	return outcome, nil
}

// Bid bids on whichever auction is active.
func (c *Controller) Bid(ctx context.Context, caller [20]byte, amount *big.Int) (*auction.Outcome, error) {
	return c.bid(ctx, rebase.KindNone, caller, amount)
}

// BidPositive bids Coin on the active positive auction.
func (c *Controller) BidPositive(ctx context.Context, caller [20]byte, amount *big.Int) (*auction.Outcome, error) {
	return c.bid(ctx, rebase.KindPositive, caller, amount)
}

// BidNegative asks for amount Coin on the active negative auction.
func (c *Controller) BidNegative(ctx context.Context, caller [20]byte, amount *big.Int) (*auction.Outcome, error) {
	return c.bid(ctx, rebase.KindNegative, caller, amount)
}

func (c *Controller) bid(ctx context.Context, kind rebase.Kind, caller [20]byte, amount *big.Int) (*auction.Outcome, error) {
	var outcome *auction.Outcome
	err := c.exec(ctx, "bid", func(now int64) error {
		before := c.h2o.TotalSupply()
		var err error
		outcome, err = c.auctions.Bid(auction.BidEvent{Kind: kind, Bidder: caller, Amount: amount, Now: now})
		if err != nil {
			return err
		}
		if outcome.Settled {
			return c.afterSettlement(before, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveBid(outcome.Round.Kind.String())
	c.observeOutcome(outcome)
	return outcome, nil
}

// TerminateAuction settles an auction whose window and grace period have both
// passed. Anyone may call it.
func (c *Controller) TerminateAuction(ctx context.Context, caller [20]byte) (*auction.Outcome, error) {
	var outcome *auction.Outcome
	err := c.exec(ctx, "terminate_auction", func(now int64) error {
		before := c.h2o.TotalSupply()
		var err error
		if outcome, err = c.auctions.Terminate(now); err != nil {
			return err
		}
		return c.afterSettlement(before, now)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("auction terminated",
		slog.String("caller", events.FormatAccount(caller)),
		slog.String("kind", outcome.Round.Kind.String()),
		slog.String("winner", events.FormatAccount(outcome.Round.LeadingBidder)))
	c.observeOutcome(outcome)
	return outcome, nil
}

// afterSettlement scales pool depth in step with the H2O supply change.
func (c *Controller) afterSettlement(before *big.Int, now int64) error {
	if !c.cfg.RescaleOnSettlement || before.Sign() == 0 {
		return nil
	}
	after := c.h2o.TotalSupply()
	if after.Cmp(before) == 0 {
		return nil
	}
	ratio := new(big.Int).Mul(after, rebase.Unit)
	ratio.Quo(ratio, before)
	if ratio.Sign() == 0 {
		return nil
	}
	if _, err := c.rollAnchor(now); err != nil {
		return err
	}
	_, err := c.pool.Rescale(c.cfg.Module, ratio)
	return err
}

func (c *Controller) observeOutcome(outcome *auction.Outcome) {
	kind := outcome.Round.Kind.String()
	c.metrics.ObserveRefundFailures(kind, outcome.RefundsFailed)
	if outcome.Settled {
		c.metrics.ObserveSettlement(kind)
	}
}

// Auction returns the active round, if any.
func (c *Controller) Auction(ctx context.Context) (auction.Round, bool, error) {
	var (
		round  auction.Round
		active bool
	)
	err := c.view(ctx, "auction", func(int64) error {
		current, err := c.auctions.Current()
		if err != nil {
			return err
		}
		round, active = current.Round()
		return nil
	})
	return round, active, err
}
