package rebase

import (
	"errors"
	"math/big"
)

// Kind names a supply correction.
type Kind uint8

const (
	KindNone Kind = iota
	// KindPositive expands the unit-of-account supply.
	KindPositive
	// KindNegative contracts the unit-of-account supply.
	KindNegative
)

func (k Kind) String() string {
	switch k {
	case KindPositive:
		return "positive"
	case KindNegative:
		return "negative"
	default:
		return "none"
	}
}

var (
	ErrAuctionUnavailable = errors.New("rebase: auction not available")
	errNotConfigured      = errors.New("rebase: coordinator not configured")
)

// Unit is the fixed-point scale of anchor prices.
var Unit = big.NewInt(1_000_000_000_000_000_000)

// SupplyView exposes a token's total supply.
type SupplyView interface {
	TotalSupply() *big.Int
}

// PriceView exposes the delayed anchor price.
type PriceView interface {
	Observe() (*big.Int, error)
}

// Coordinator compares the unit-of-account supply with the supply implied by
// the growth-unit float at the anchored price.
type Coordinator struct {
	anchor PriceView
	growth SupplyView
	unit   SupplyView
}

// NewCoordinator wires the anchor and both supplies. growth is the growth
// unit ledger and unit the unit-of-account ledger.
func NewCoordinator(anchor PriceView, growth, unit SupplyView) *Coordinator {
	return &Coordinator{anchor: anchor, growth: growth, unit: unit}
}

// TargetSupply is growthSupply*anchor/Unit.
func (c *Coordinator) TargetSupply() (*big.Int, error) {
	if c == nil || c.anchor == nil || c.growth == nil || c.unit == nil {
		return nil, errNotConfigured
	}
	price, err := c.anchor.Observe()
	if err != nil {
		return nil, err
	}
	target := new(big.Int).Mul(c.growth.TotalSupply(), price)
	return target.Quo(target, Unit), nil
}

// Deviation is unitSupply-TargetSupply. Negative means the supply is short.
func (c *Coordinator) Deviation() (*big.Int, error) {
	target, err := c.TargetSupply()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(c.unit.TotalSupply(), target), nil
}

// Eligible reports which correction the current deviation allows.
func (c *Coordinator) Eligible() (Kind, error) {
	deviation, err := c.Deviation()
	if err != nil {
		return KindNone, err
	}
	switch deviation.Sign() {
	case -1:
		return KindPositive, nil
	case 1:
		return KindNegative, nil
	default:
		return KindNone, nil
	}
}

// Shortfall is the supply a positive correction would add; zero otherwise.
func (c *Coordinator) Shortfall() (*big.Int, error) {
	deviation, err := c.Deviation()
	if err != nil {
		return nil, err
	}
	if deviation.Sign() >= 0 {
		return big.NewInt(0), nil
	}
	return deviation.Neg(deviation), nil
}

// Excess is the supply a negative correction may remove; zero otherwise.
func (c *Coordinator) Excess() (*big.Int, error) {
	deviation, err := c.Deviation()
	if err != nil {
		return nil, err
	}
	if deviation.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return deviation, nil
}
