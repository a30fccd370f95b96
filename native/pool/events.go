package pool

import (
	"math/big"

	"meltwater/core/events"
	"meltwater/core/types"
)

const (
	EventTypeSwap     = "pool.swap"
	EventTypeRescaled = "pool.rescaled"
)

func newSwapEvent(recipient [20]byte, res *SwapResult) *types.Event {
	return &types.Event{
		Type: EventTypeSwap,
		Attributes: map[string]string{
			"recipient": events.FormatAccount(recipient),
			"direction": res.Direction.String(),
			"amountIn":  res.AmountIn.String(),
			"amountOut": res.AmountOut.String(),
			"reserveA":  res.Reserves.ReserveA.String(),
			"reserveB":  res.Reserves.ReserveB.String(),
		},
	}
}

func newRescaledEvent(ratio *big.Int, state *State) *types.Event {
	return &types.Event{
		Type: EventTypeRescaled,
		Attributes: map[string]string{
			"ratio":    ratio.String(),
			"reserveA": state.ReserveA.String(),
			"reserveB": state.ReserveB.String(),
		},
	}
}
