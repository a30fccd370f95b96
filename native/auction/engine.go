package auction

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"meltwater/core/events"
	nativecommon "meltwater/native/common"
)

const moduleName = "auction"

// ModuleName is the pause switch guarding auction actions.
const ModuleName = moduleName

var (
	errNilState   = errors.New("auction engine: state not configured")
	errNilSettler = errors.New("auction engine: settler not configured")
)

type engineState interface {
	AuctionGet() (State, error)
	AuctionPut(State) error
}

// Settler executes the value movements requested by transitions.
type Settler interface {
	Lock(asset Asset, from [20]byte, amount *big.Int) error
	Refund(asset Asset, to [20]byte, amount *big.Int) error
	Mint(asset Asset, to [20]byte, amount *big.Int) error
	Burn(asset Asset, amount *big.Int) error
	Pay(asset Asset, to [20]byte, amount *big.Int) error
}

// Outcome describes a committed transition.
type Outcome struct {
	Round         Round
	Settled       bool
	RefundsFailed int
	Effects       []Effect
}

// Engine applies auction transitions against persisted state.
type Engine struct {
	state   engineState
	settler Settler
	params  Params
	pauses  nativecommon.PauseView
	emitter events.Emitter
	logger  *slog.Logger
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params, emitter: events.NoopEmitter{}, logger: slog.Default()}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetSettler(settler Settler) { e.settler = settler }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used for auction notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Params returns the configured timeline.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) load() (State, error) {
	if e.state == nil {
		return State{}, errNilState
	}
	if e.settler == nil {
		return State{}, errNilSettler
	}
	return e.state.AuctionGet()
}

// Current returns the persisted auction state.
func (e *Engine) Current() (State, error) {
	if e.state == nil {
		return State{}, errNilState
	}
	return e.state.AuctionGet()
}

// Initiate opens a round.
func (e *Engine) Initiate(ev InitiateEvent) (*Outcome, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	next, effects, err := Initiate(current, ev)
	if err != nil {
		return nil, err
	}
	outcome, err := e.commit(next, effects)
	if err != nil {
		return nil, err
	}
	outcome.Round, _ = next.Round()
	e.emitter.Emit(events.Wrap(newRoundEvent(EventTypeInitiated, outcome.Round)))
	return outcome, nil
}

// Bid places a bid on the active round.
func (e *Engine) Bid(ev BidEvent) (*Outcome, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	before, _ := current.Round()
	next, effects, err := Bid(current, e.params, ev)
	if err != nil {
		return nil, err
	}
	outcome, err := e.commit(next, effects)
	if err != nil {
		return nil, err
	}
	if round, active := next.Round(); active {
		outcome.Round = round
	} else {
		before.LeadingBid = cloneBigInt(ev.Amount)
		before.LeadingBidder = ev.Bidder
		outcome.Round = before
		outcome.Settled = true
	}
	e.emitter.Emit(events.Wrap(newRoundEvent(EventTypeBid, outcome.Round)))
	if outcome.Settled {
		e.emitter.Emit(events.Wrap(newRoundEvent(EventTypeSettled, outcome.Round)))
	}
	return outcome, nil
}

// Terminate settles an expired round.
func (e *Engine) Terminate(now int64) (*Outcome, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	round, _ := current.Round()
	next, effects, err := Terminate(current, e.params, now)
	if err != nil {
		return nil, err
	}
	outcome, err := e.commit(next, effects)
	if err != nil {
		return nil, err
	}
	outcome.Round = round
	outcome.Settled = true
	e.emitter.Emit(events.Wrap(newRoundEvent(EventTypeSettled, round)))
	return outcome, nil
}

func (e *Engine) commit(next State, effects []Effect) (*Outcome, error) {
	outcome := &Outcome{Effects: effects}
	for _, effect := range effects {
		if err := e.apply(effect); err != nil {
			if effect.Kind != EffectRefund {
				return nil, fmt.Errorf("auction engine: %s %s: %w", effect.Kind, effect.Asset, err)
			}
			// A bidder that cannot receive its refund forfeits it to custody.
			outcome.RefundsFailed++
			e.logger.Warn("auction refund failed",
				slog.String("asset", effect.Asset.String()),
				slog.String("account", events.FormatAccount(effect.Account)),
				slog.String("amount", effect.Amount.String()),
				slog.Any("error", err))
			e.emitter.Emit(events.Wrap(newRefundFailedEvent(effect, err)))
		}
	}
	if err := e.state.AuctionPut(next); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) apply(effect Effect) error {
	switch effect.Kind {
	case EffectLock:
		return e.settler.Lock(effect.Asset, effect.Account, effect.Amount)
	case EffectRefund:
		return e.settler.Refund(effect.Asset, effect.Account, effect.Amount)
	case EffectMint:
		return e.settler.Mint(effect.Asset, effect.Account, effect.Amount)
	case EffectBurn:
		return e.settler.Burn(effect.Asset, effect.Amount)
	case EffectPay:
		return e.settler.Pay(effect.Asset, effect.Account, effect.Amount)
	default:
		return fmt.Errorf("unknown effect %d", effect.Kind)
	}
}
