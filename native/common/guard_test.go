package common

import (
	"errors"
	"math/big"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "pool"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
	pauses := PauseSet{}
	pauses.Set("pool", true)
	if err := Guard(pauses, "pool"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(pauses, "auction"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pauses.Set("auction", true)
	if got := pauses.Modules(); len(got) != 2 || got[0] != "auction" || got[1] != "pool" {
		t.Fatalf("unexpected modules %v", got)
	}
	pauses.Set("pool", false)
	if pauses.IsPaused("pool") {
		t.Fatalf("unpause did not apply")
	}
}

func TestCheckAmount(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	cases := []struct {
		name string
		in   *big.Int
		want error
	}{
		{"nil", nil, ErrNilAmount},
		{"negative", big.NewInt(-1), ErrNegativeAmount},
		{"zero", big.NewInt(0), nil},
		{"max", max, nil},
		{"overflow", new(big.Int).Add(max, big.NewInt(1)), ErrAmountOverflow},
	}
	for _, tc := range cases {
		if err := CheckAmount(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if err := CheckPositive(big.NewInt(0)); err == nil {
		t.Fatalf("zero should not be positive")
	}
}
