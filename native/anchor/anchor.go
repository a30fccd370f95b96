package anchor

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"meltwater/core/events"
	"meltwater/core/types"
)

// DefaultWindow is the minimum age of a sample before it may be replaced.
const DefaultWindow = 30 * 24 * time.Hour

const EventTypeRolled = "anchor.rolled"

var (
	errNilState       = errors.New("anchor engine: state not configured")
	errNotInitialised = errors.New("anchor engine: sample not initialised")
	ErrInvalidWindow  = errors.New("anchor engine: window must be positive")
	ErrInvalidPrice   = errors.New("anchor engine: price must be positive")
)

// Unit is the baseline anchor price.
var Unit = big.NewInt(1_000_000_000_000_000_000)

// Sample is the delayed price reading used for supply targets.
type Sample struct {
	Price     *big.Int
	SampledAt int64
}

// Clone returns a deep copy of the sample.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}
	price := big.NewInt(0)
	if s.Price != nil {
		price = new(big.Int).Set(s.Price)
	}
	return &Sample{Price: price, SampledAt: s.SampledAt}
}

// Due reports whether the sample is old enough to be replaced at now.
func (s *Sample) Due(now int64, window time.Duration) bool {
	return now-s.SampledAt >= int64(window/time.Second)
}

type engineState interface {
	AnchorGet() (*Sample, error)
	AnchorPut(*Sample) error
	AnchorWindowGet() (time.Duration, error)
	AnchorWindowPut(time.Duration) error
}

// Anchor holds a price sample that only moves once per window.
type Anchor struct {
	state   engineState
	emitter events.Emitter
}

func New() *Anchor {
	return &Anchor{emitter: events.NoopEmitter{}}
}

// SetState wires the anchor to the external persistence layer.
func (a *Anchor) SetState(state engineState) { a.state = state }

// SetEmitter configures the event emitter used for roll notifications.
func (a *Anchor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		a.emitter = events.NoopEmitter{}
		return
	}
	a.emitter = emitter
}

// Init records the baseline sample and window when none exists yet.
func (a *Anchor) Init(now int64, window time.Duration) error {
	if a.state == nil {
		return errNilState
	}
	if window <= 0 {
		return ErrInvalidWindow
	}
	current, err := a.state.AnchorGet()
	if err != nil {
		return err
	}
	if current != nil {
		return nil
	}
	if err := a.state.AnchorWindowPut(window); err != nil {
		return err
	}
	return a.state.AnchorPut(&Sample{Price: new(big.Int).Set(Unit), SampledAt: now})
}

// Sample returns a copy of the stored sample.
func (a *Anchor) Sample() (*Sample, error) {
	if a.state == nil {
		return nil, errNilState
	}
	current, err := a.state.AnchorGet()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errNotInitialised
	}
	return current.Clone(), nil
}

// Observe returns the anchored price.
func (a *Anchor) Observe() (*big.Int, error) {
	sample, err := a.Sample()
	if err != nil {
		return nil, err
	}
	return sample.Price, nil
}

// Window returns the configured sampling window.
func (a *Anchor) Window() (time.Duration, error) {
	if a.state == nil {
		return 0, errNilState
	}
	return a.state.AnchorWindowGet()
}

// SetWindow replaces the sampling window. The stored sample is kept.
func (a *Anchor) SetWindow(window time.Duration) error {
	if a.state == nil {
		return errNilState
	}
	if window < time.Second {
		return ErrInvalidWindow
	}
	return a.state.AnchorWindowPut(window)
}

// ShouldRoll reports whether a roll at now would replace the sample.
func (a *Anchor) ShouldRoll(now int64) (bool, error) {
	sample, err := a.Sample()
	if err != nil {
		return false, err
	}
	window, err := a.Window()
	if err != nil {
		return false, err
	}
	return sample.Due(now, window), nil
}

// Roll replaces the sample with spot observed at now.
func (a *Anchor) Roll(spot *big.Int, now int64) error {
	if spot == nil || spot.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if a.state == nil {
		return errNilState
	}
	next := &Sample{Price: new(big.Int).Set(spot), SampledAt: now}
	if err := a.state.AnchorPut(next); err != nil {
		return err
	}
	a.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeRolled,
		Attributes: map[string]string{
			"price":     next.Price.String(),
			"sampledAt": strconv.FormatInt(now, 10),
		},
	}))
	return nil
}

// MaybeRoll rolls the sample when it is due, reading spot only in that case.
// Callers invoke it before mutating the market so the recorded price predates
// the triggering action. A spot that truncates to zero is recorded as the
// smallest representable price so a thin pool never blocks trading.
func (a *Anchor) MaybeRoll(now int64, spot func() (*big.Int, error)) (bool, error) {
	due, err := a.ShouldRoll(now)
	if err != nil || !due {
		return false, err
	}
	price, err := spot()
	if err != nil {
		return false, err
	}
	if price == nil || price.Sign() <= 0 {
		price = big.NewInt(1)
	}
	if err := a.Roll(price, now); err != nil {
		return false, err
	}
	return true, nil
}
