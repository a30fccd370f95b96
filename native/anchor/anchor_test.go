package anchor

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"meltwater/core/events"
)

type mockState struct {
	sample *Sample
	window time.Duration
}

func (m *mockState) AnchorGet() (*Sample, error) { return m.sample.Clone(), nil }

func (m *mockState) AnchorPut(s *Sample) error {
	m.sample = s.Clone()
	return nil
}

func (m *mockState) AnchorWindowGet() (time.Duration, error) { return m.window, nil }

func (m *mockState) AnchorWindowPut(d time.Duration) error {
	m.window = d
	return nil
}

const day = int64(24 * 60 * 60)

func newTestAnchor(t *testing.T) (*Anchor, *mockState) {
	t.Helper()
	state := &mockState{}
	a := New()
	a.SetState(state)
	if err := a.Init(1_000, DefaultWindow); err != nil {
		t.Fatalf("init: %v", err)
	}
	return a, state
}

func TestBaselineIsUnit(t *testing.T) {
	a, _ := newTestAnchor(t)
	price, err := a.Observe()
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if price.Cmp(Unit) != 0 {
		t.Fatalf("unexpected baseline %s", price)
	}
}

func TestAnchorStableWithinWindow(t *testing.T) {
	a, _ := newTestAnchor(t)
	calls := 0
	spot := func() (*big.Int, error) {
		calls++
		return big.NewInt(5), nil
	}
	for _, offset := range []int64{0, 1, 15 * day, 30*day - 1} {
		rolled, err := a.MaybeRoll(1_000+offset, spot)
		if err != nil {
			t.Fatalf("maybe roll: %v", err)
		}
		if rolled {
			t.Fatalf("rolled at offset %d", offset)
		}
	}
	if calls != 0 {
		t.Fatalf("spot read before the window elapsed")
	}
	price, _ := a.Observe()
	if price.Cmp(Unit) != 0 {
		t.Fatalf("anchor moved inside window: %s", price)
	}
}

func TestAnchorRollsAtWindowBoundary(t *testing.T) {
	a, state := newTestAnchor(t)
	rec := &events.Recorder{}
	a.SetEmitter(rec)
	rolled, err := a.MaybeRoll(1_000+30*day, func() (*big.Int, error) { return big.NewInt(42), nil })
	if err != nil || !rolled {
		t.Fatalf("expected roll, got %v %v", rolled, err)
	}
	if state.sample.Price.Cmp(big.NewInt(42)) != 0 || state.sample.SampledAt != 1_000+30*day {
		t.Fatalf("unexpected sample %+v", state.sample)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != EventTypeRolled {
		t.Fatalf("unexpected events %v", got)
	}
	due, _ := a.ShouldRoll(1_000 + 31*day)
	if due {
		t.Fatalf("new sample should not be due one day later")
	}
}

func TestSetWindow(t *testing.T) {
	a, _ := newTestAnchor(t)
	if err := a.SetWindow(0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
	if err := a.SetWindow(time.Hour); err != nil {
		t.Fatalf("set window: %v", err)
	}
	due, _ := a.ShouldRoll(1_000 + 3_600)
	if !due {
		t.Fatalf("shorter window should make the sample due")
	}
}

func TestRollRejectsZeroPrice(t *testing.T) {
	a, _ := newTestAnchor(t)
	if err := a.Roll(big.NewInt(0), 2_000); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
}

func TestMaybeRollClampsTruncatedSpot(t *testing.T) {
	a, state := newTestAnchor(t)
	now := 1_000 + 30*day
	rolled, err := a.MaybeRoll(now, func() (*big.Int, error) { return big.NewInt(0), nil })
	if err != nil {
		t.Fatalf("maybe roll: %v", err)
	}
	if !rolled {
		t.Fatalf("expected a roll once the window elapsed")
	}
	if state.sample.Price.Cmp(big.NewInt(1)) != 0 || state.sample.SampledAt != now {
		t.Fatalf("unexpected sample %s at %d", state.sample.Price, state.sample.SampledAt)
	}
}
