package core

import (
	"context"
	"math/big"

	"meltwater/native/vesting"
)

// ClaimRewards settles caller's ICE accrual and mints the owed H2O to them.
func (c *Controller) ClaimRewards(ctx context.Context, caller [20]byte) (*big.Int, error) {
	var owed *big.Int
	err := c.exec(ctx, "claim_rewards", func(now int64) error {
		var err error
		owed, err = c.rewards.Claim(caller, c.ice.BalanceOf(caller), now)
		if err != nil {
			return err
		}
		if owed.Sign() == 0 {
			return nil
		}
		return c.h2o.Mint(caller, owed)
	})
	if err != nil {
		return nil, err
	}
	if owed.Sign() > 0 {
		c.metrics.ObserveRewardClaim()
	}
	return owed, nil
}

// ClaimableRewards previews what ClaimRewards would pay now.
func (c *Controller) ClaimableRewards(ctx context.Context, account [20]byte) (*big.Int, error) {
	var owed *big.Int
	err := c.view(ctx, "claimable_rewards", func(now int64) error {
		var err error
		owed, err = c.rewards.Claimable(account, now)
		return err
	})
	return owed, err
}

// TransferICE moves amount ICE between holders. Both accounts are settled at
// their old balances first and restart accrual at their new ones.
func (c *Controller) TransferICE(ctx context.Context, from, to [20]byte, amount *big.Int) error {
	return c.exec(ctx, "transfer_ice", func(now int64) error {
		for _, holder := range [][20]byte{from, to} {
			if err := c.syncHolder(holder, now); err != nil {
				return err
			}
		}
		if err := c.ice.Transfer(from, to, amount); err != nil {
			return err
		}
		for _, holder := range [][20]byte{from, to} {
			if err := c.syncHolder(holder, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// LockPosition burns principal ICE from creator and opens a vesting position
// for beneficiary that matures at end.
func (c *Controller) LockPosition(ctx context.Context, creator, beneficiary [20]byte, principal *big.Int, end int64) (*vesting.Position, error) {
	var position *vesting.Position
	err := c.exec(ctx, "lock_position", func(now int64) error {
		if err := c.syncHolder(creator, now); err != nil {
			return err
		}
		if err := c.ice.Burn(creator, principal); err != nil {
			return err
		}
		var err error
		if position, err = c.vesting.Lock(creator, beneficiary, principal, end, now); err != nil {
			return err
		}
		return c.syncHolder(creator, now)
	})
	return position, err
}

// ClaimPosition pays the reward accrued on a position. A matured position is
// redeemed by the same call.
func (c *Controller) ClaimPosition(ctx context.Context, caller [20]byte, id uint64) (*vesting.ClaimResult, error) {
	return c.releasePosition(ctx, "claim_position", caller, id, c.vesting.Claim)
}

// RedeemPosition returns a matured position's principal with its final reward.
func (c *Controller) RedeemPosition(ctx context.Context, caller [20]byte, id uint64) (*vesting.ClaimResult, error) {
	return c.releasePosition(ctx, "redeem_position", caller, id, c.vesting.Redeem)
}

func (c *Controller) releasePosition(ctx context.Context, op string, caller [20]byte, id uint64,
	release func(uint64, [20]byte, int64) (*vesting.ClaimResult, error)) (*vesting.ClaimResult, error) {
	var result *vesting.ClaimResult
	err := c.exec(ctx, op, func(now int64) error {
		var err error
		if result, err = release(id, caller, now); err != nil {
			return err
		}
		if result.Reward.Sign() > 0 {
			if err := c.h2o.Mint(caller, result.Reward); err != nil {
				return err
			}
		}
		if !result.Redeemed {
			return nil
		}
		if err := c.syncHolder(caller, now); err != nil {
			return err
		}
		if err := c.ice.Mint(caller, result.Principal); err != nil {
			return err
		}
		return c.syncHolder(caller, now)
	})
	if err != nil {
		return nil, err
	}
	if result.Reward.Sign() > 0 {
		c.metrics.ObserveRewardClaim()
	}
	return result, nil
}

// PreviewPositionReward returns the reward a claim on id would pay now.
func (c *Controller) PreviewPositionReward(ctx context.Context, id uint64) (*big.Int, error) {
	var reward *big.Int
	err := c.view(ctx, "preview_position_reward", func(now int64) error {
		var err error
		reward, err = c.vesting.PreviewReward(id, now)
		return err
	})
	return reward, err
}

// Position returns a stored vesting position.
func (c *Controller) Position(ctx context.Context, id uint64) (*vesting.Position, error) {
	var position *vesting.Position
	err := c.view(ctx, "position", func(int64) error {
		var err error
		position, err = c.vesting.Position(id)
		return err
	})
	return position, err
}

// CreatorPositions lists the ids of every position creator has opened.
func (c *Controller) CreatorPositions(ctx context.Context, creator [20]byte) ([]uint64, error) {
	return c.listPositions(ctx, creator, c.vesting.CreatorCount, c.vesting.CreatorPositionAt)
}

// BeneficiaryPositions lists the ids of every position held for beneficiary.
func (c *Controller) BeneficiaryPositions(ctx context.Context, beneficiary [20]byte) ([]uint64, error) {
	return c.listPositions(ctx, beneficiary, c.vesting.BeneficiaryCount, c.vesting.BeneficiaryPositionAt)
}

// CreatorPositionAt returns the id of creator's index-th position.
func (c *Controller) CreatorPositionAt(ctx context.Context, creator [20]byte, index uint64) (uint64, error) {
	var id uint64
	err := c.view(ctx, "creator_position_at", func(int64) error {
		var err error
		id, err = c.vesting.CreatorPositionAt(creator, index)
		return err
	})
	return id, err
}

func (c *Controller) listPositions(ctx context.Context, account [20]byte,
	count func([20]byte) (uint64, error), at func([20]byte, uint64) (uint64, error)) ([]uint64, error) {
	var ids []uint64
	err := c.view(ctx, "list_positions", func(int64) error {
		n, err := count(account)
		if err != nil {
			return err
		}
		ids = make([]uint64, 0, n)
		for i := uint64(0); i < n; i++ {
			id, err := at(account, i)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}
