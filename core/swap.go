package core

import (
	"context"
	"math/big"

	"meltwater/native/pool"
)

// PreviewSwapH2OForICE quotes the ICE received for amountIn H2O.
func (c *Controller) PreviewSwapH2OForICE(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
	return c.previewSwap(ctx, pool.AToB, amountIn)
}

// PreviewSwapICEForH2O quotes the H2O received for amountIn ICE.
func (c *Controller) PreviewSwapICEForH2O(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
	return c.previewSwap(ctx, pool.BToA, amountIn)
}

func (c *Controller) previewSwap(ctx context.Context, dir pool.Direction, amountIn *big.Int) (*big.Int, error) {
	var out *big.Int
	err := c.view(ctx, "preview_swap", func(int64) error {
		quote, err := c.pool.PreviewSwap(dir, amountIn)
		out = quote
		return err
	})
	return out, err
}

// SwapH2OForICE sells amountIn H2O for at least minOut ICE.
func (c *Controller) SwapH2OForICE(ctx context.Context, caller [20]byte, amountIn, minOut *big.Int, deadline int64) (*pool.SwapResult, error) {
	return c.swap(ctx, caller, pool.AToB, amountIn, minOut, deadline)
}

// SwapICEForH2O sells amountIn ICE for at least minOut H2O.
func (c *Controller) SwapICEForH2O(ctx context.Context, caller [20]byte, amountIn, minOut *big.Int, deadline int64) (*pool.SwapResult, error) {
	return c.swap(ctx, caller, pool.BToA, amountIn, minOut, deadline)
}

func (c *Controller) swap(ctx context.Context, caller [20]byte, dir pool.Direction, amountIn, minOut *big.Int, deadline int64) (*pool.SwapResult, error) {
	var (
		result *pool.SwapResult
		rolled bool
	)
	err := c.exec(ctx, "swap", func(now int64) error {
		// The anchor samples the price as it stood before this swap.
		var err error
		if rolled, err = c.rollAnchor(now); err != nil {
			return err
		}
		if err := c.syncHolder(caller, now); err != nil {
			return err
		}
		result, err = c.pool.Swap(c.cfg.Module, pool.SwapRequest{
			Direction: dir,
			Recipient: caller,
			AmountIn:  amountIn,
			MinOut:    minOut,
			Deadline:  deadline,
		}, now)
		if err != nil {
			return err
		}
		return c.syncHolder(caller, now)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveSwap(dir.String())
	c.metrics.SetReserves(result.Reserves.ReserveA, result.Reserves.ReserveB)
	c.observeRoll(ctx, rolled)
	return result, nil
}

func (c *Controller) observeRoll(ctx context.Context, rolled bool) {
	if !rolled {
		return
	}
	if price, err := c.AnchorPrice(ctx); err == nil {
		c.metrics.ObserveAnchorRoll(price)
	}
}
