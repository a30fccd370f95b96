package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"meltwater/native/accrual"
	"meltwater/native/pool"
)

// SetRatePerSecond sets the accrual rate as a UNIT-scaled per-second fraction.
func (c *Controller) SetRatePerSecond(ctx context.Context, caller [20]byte, perSecond *big.Int) error {
	rate, err := accrual.RateFromFixed(perSecond)
	if err != nil {
		return err
	}
	return c.setRate(ctx, caller, rate)
}

// SetAnnualRate sets the accrual rate from an annual fraction such as 2/100.
func (c *Controller) SetAnnualRate(ctx context.Context, caller [20]byte, annual *big.Rat) error {
	rate, err := accrual.RateFromAnnual(annual)
	if err != nil {
		return err
	}
	return c.setRate(ctx, caller, rate)
}

func (c *Controller) setRate(ctx context.Context, caller [20]byte, rate *big.Rat) error {
	return c.exec(ctx, "set_rate", func(int64) error {
		if err := c.requireOwner(caller); err != nil {
			return err
		}
		return c.rewards.SetRate(rate)
	})
}

// SetAnchorWindow changes how long the anchor holds a sample.
func (c *Controller) SetAnchorWindow(ctx context.Context, caller [20]byte, window time.Duration) error {
	return c.exec(ctx, "set_anchor_window", func(int64) error {
		if err := c.requireOwner(caller); err != nil {
			return err
		}
		return c.anchor.SetWindow(window)
	})
}

// RescalePool moves pool depth halfway toward ratio/UNIT of the current
// reserves without changing the price.
func (c *Controller) RescalePool(ctx context.Context, caller [20]byte, ratio *big.Int) (*pool.State, error) {
	var (
		next   *pool.State
		rolled bool
	)
	err := c.exec(ctx, "rescale_pool", func(now int64) error {
		if err := c.requireOwner(caller); err != nil {
			return err
		}
		var err error
		if rolled, err = c.rollAnchor(now); err != nil {
			return err
		}
		next, err = c.pool.Rescale(c.cfg.Module, ratio)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.metrics.SetReserves(next.ReserveA, next.ReserveB)
	c.observeRoll(ctx, rolled)
	return next, nil
}

// Pause switches off a module.
func (c *Controller) Pause(ctx context.Context, caller [20]byte, module string) error {
	return c.setPaused(ctx, caller, module, true)
}

// Unpause switches a module back on.
func (c *Controller) Unpause(ctx context.Context, caller [20]byte, module string) error {
	return c.setPaused(ctx, caller, module, false)
}

func (c *Controller) setPaused(ctx context.Context, caller [20]byte, module string, paused bool) error {
	err := c.exec(ctx, "set_paused", func(int64) error {
		if err := c.requireOwner(caller); err != nil {
			return err
		}
		if !knownModule(module) {
			return fmt.Errorf("%w: %q", ErrUnknownModule, module)
		}
		return c.state.SetPaused(module, paused)
	})
	if err == nil {
		c.logger.Info("module pause switched", slog.String("module", module), slog.Bool("paused", paused))
	}
	return err
}

func knownModule(module string) bool {
	for _, name := range Modules {
		if name == module {
			return true
		}
	}
	return false
}
