package rebase

import (
	"math/big"
	"testing"
)

type supply struct{ v *big.Int }

func (s *supply) TotalSupply() *big.Int { return new(big.Int).Set(s.v) }

type price struct{ v *big.Int }

func (p *price) Observe() (*big.Int, error) { return new(big.Int).Set(p.v), nil }

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

func TestEligibility(t *testing.T) {
	cases := []struct {
		name      string
		unit      *big.Int
		growth    *big.Int
		anchor    *big.Int
		deviation *big.Int
		kind      Kind
	}{
		{"short", units(900), units(1_000), Unit, units(-100), KindPositive},
		{"excess", units(1_200), units(1_000), Unit, units(200), KindNegative},
		{"balanced", units(2_000), units(1_000), units(2), big.NewInt(0), KindNone},
	}
	for _, tc := range cases {
		c := NewCoordinator(&price{tc.anchor}, &supply{tc.growth}, &supply{tc.unit})
		deviation, err := c.Deviation()
		if err != nil {
			t.Fatalf("%s: deviation: %v", tc.name, err)
		}
		if deviation.Cmp(tc.deviation) != 0 {
			t.Fatalf("%s: deviation %s want %s", tc.name, deviation, tc.deviation)
		}
		kind, _ := c.Eligible()
		if kind != tc.kind {
			t.Fatalf("%s: eligible %s want %s", tc.name, kind, tc.kind)
		}
	}
}

func TestShortfallAndExcess(t *testing.T) {
	short := NewCoordinator(&price{Unit}, &supply{units(1_000)}, &supply{units(900)})
	shortfall, _ := short.Shortfall()
	excess, _ := short.Excess()
	if shortfall.Cmp(units(100)) != 0 || excess.Sign() != 0 {
		t.Fatalf("unexpected magnitudes %s %s", shortfall, excess)
	}
}

func TestTargetSupplyUsesAnchor(t *testing.T) {
	half := new(big.Int).Div(Unit, big.NewInt(2))
	c := NewCoordinator(&price{half}, &supply{units(1_000)}, &supply{units(0)})
	target, err := c.TargetSupply()
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	if target.Cmp(units(500)) != 0 {
		t.Fatalf("unexpected target %s", target)
	}
}
