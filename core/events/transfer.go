package events

import (
	"math/big"

	"meltwater/core/types"
)

const (
	// TypeTransfer is emitted for ledger and custody balance movements.
	TypeTransfer = "transfer"
)

type Transfer struct {
	Asset  string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	if from := FormatAccount(e.From); from != "" {
		attrs["from"] = from
	}
	if to := FormatAccount(e.To); to != "" {
		attrs["to"] = to
	}
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
