package core

import (
	"context"
	"math/big"
	"time"

	"meltwater/native/accrual"
	"meltwater/native/anchor"
	"meltwater/native/auction"
	"meltwater/native/pool"
	"meltwater/native/rebase"
)

// Snapshot is a consistent read of every engine at one instant.
type Snapshot struct {
	Now            int64
	Reserves       *pool.State
	SpotPriceA     *big.Int
	SpotPriceB     *big.Int
	Anchor         *anchor.Sample
	AnchorWindow   time.Duration
	H2OSupply      *big.Int
	ICESupply      *big.Int
	TargetSupply   *big.Int
	Deviation      *big.Int
	Eligible       rebase.Kind
	Auction        *auction.Round
	RatePerSecond  *big.Int
	AnnualRate     *big.Rat
	CustodyReserve *big.Int
	Paused         []string
}

// Snapshot reads the full engine state.
func (c *Controller) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := c.view(ctx, "snapshot", func(now int64) error {
		if err := c.requireGenesis(); err != nil {
			return err
		}
		out := &Snapshot{Now: now}
		var err error
		if out.Reserves, err = c.pool.Reserves(); err != nil {
			return err
		}
		if out.SpotPriceA, err = c.pool.SpotPriceA(); err != nil {
			return err
		}
		if out.SpotPriceB, err = c.pool.SpotPriceB(); err != nil {
			return err
		}
		if out.Anchor, err = c.anchor.Sample(); err != nil {
			return err
		}
		if out.AnchorWindow, err = c.anchor.Window(); err != nil {
			return err
		}
		out.H2OSupply = c.h2o.TotalSupply()
		out.ICESupply = c.ice.TotalSupply()
		if out.TargetSupply, err = c.rebase.TargetSupply(); err != nil {
			return err
		}
		if out.Deviation, err = c.rebase.Deviation(); err != nil {
			return err
		}
		if out.Eligible, err = c.rebase.Eligible(); err != nil {
			return err
		}
		current, err := c.auctions.Current()
		if err != nil {
			return err
		}
		if round, active := current.Round(); active {
			out.Auction = &round
		}
		rate, err := c.rewards.Rate()
		if err != nil {
			return err
		}
		out.RatePerSecond = accrual.FixedRate(rate)
		out.AnnualRate = accrual.AnnualRate(rate)
		out.CustodyReserve = c.custody.Reserve()
		if out.Paused, err = c.state.PausedModules(); err != nil {
			return err
		}
		snap = out
		return nil
	})
	return snap, err
}

// AnchorPrice returns the delayed price of ICE in H2O.
func (c *Controller) AnchorPrice(ctx context.Context) (*big.Int, error) {
	return c.read(ctx, "anchor_price", c.anchor.Observe)
}

// SpotPrice returns the live pool price of ICE in H2O.
func (c *Controller) SpotPrice(ctx context.Context) (*big.Int, error) {
	return c.read(ctx, "spot_price", c.pool.SpotPriceB)
}

// TargetSupply returns the H2O supply implied by the ICE float at the anchor
// price.
func (c *Controller) TargetSupply(ctx context.Context) (*big.Int, error) {
	return c.read(ctx, "target_supply", c.rebase.TargetSupply)
}

// Deviation returns H2O supply minus TargetSupply.
func (c *Controller) Deviation(ctx context.Context) (*big.Int, error) {
	return c.read(ctx, "deviation", c.rebase.Deviation)
}

// EligibleAuction reports which auction may be opened now.
func (c *Controller) EligibleAuction(ctx context.Context) (rebase.Kind, error) {
	kind := rebase.KindNone
	err := c.view(ctx, "eligible_auction", func(int64) error {
		var err error
		kind, err = c.rebase.Eligible()
		return err
	})
	return kind, err
}

func (c *Controller) read(ctx context.Context, op string, fn func() (*big.Int, error)) (*big.Int, error) {
	var out *big.Int
	err := c.view(ctx, op, func(int64) error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
