package vesting

import (
	"math/big"
	"strconv"

	"meltwater/core/events"
	"meltwater/core/types"
)

const (
	EventTypePositionLocked   = "vesting.position.locked"
	EventTypePositionClaimed  = "vesting.position.claimed"
	EventTypePositionRedeemed = "vesting.position.redeemed"
)

func newPositionEvent(eventType string, p *Position, amount *big.Int) *types.Event {
	attrs := map[string]string{
		"id":          strconv.FormatUint(p.ID, 10),
		"creator":     events.FormatAccount(p.Creator),
		"beneficiary": events.FormatAccount(p.Beneficiary),
		"principal":   p.Principal.String(),
		"end":         strconv.FormatInt(p.End, 10),
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
