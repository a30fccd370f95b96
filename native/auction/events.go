package auction

import (
	"math/big"
	"strconv"

	"meltwater/core/events"
	"meltwater/core/types"
)

const (
	EventTypeInitiated    = "auction.initiated"
	EventTypeBid          = "auction.bid"
	EventTypeRefundFailed = "auction.refund_failed"
	EventTypeSettled      = "auction.settled"
)

func newRoundEvent(eventType string, round Round) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"kind":          round.Kind.String(),
			"initiatedAt":   strconv.FormatInt(round.InitiatedAt, 10),
			"escrowAmount":  round.EscrowAmount.String(),
			"leadingBid":    round.LeadingBid.String(),
			"leadingBidder": events.FormatAccount(round.LeadingBidder),
		},
	}
}

func newRefundFailedEvent(effect Effect, reason error) *types.Event {
	amount := big.NewInt(0)
	if effect.Amount != nil {
		amount = effect.Amount
	}
	return &types.Event{
		Type: EventTypeRefundFailed,
		Attributes: map[string]string{
			"asset":   effect.Asset.String(),
			"account": events.FormatAccount(effect.Account),
			"amount":  amount.String(),
			"reason":  reason.Error(),
		},
	}
}
