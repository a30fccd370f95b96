package pool

import (
	"errors"
	"fmt"
	"math/big"

	"meltwater/core/events"
	nativecommon "meltwater/native/common"
)

var (
	ErrDeadlineExpired    = errors.New("pool engine: deadline expired")
	ErrSlippageExceeded   = errors.New("pool engine: output below minimum")
	ErrUnauthorized       = errors.New("pool engine: caller not authorized")
	ErrInvalidAmount      = errors.New("pool engine: amount must be positive")
	ErrEmptyPool          = errors.New("pool engine: reserves not initialised")
	ErrAlreadyInitialised = errors.New("pool engine: reserves already initialised")
	errNilState           = errors.New("pool engine: state not configured")
	errNilSettler         = errors.New("pool engine: settler not configured")
)

const moduleName = "pool"

// ModuleName is the pause switch guarding swaps.
const ModuleName = moduleName

type engineState interface {
	PoolGet() (*State, error)
	PoolPut(*State) error
}

// Settler moves the value that backs a swap. Take collects the input from the
// trader and Give delivers the output.
type Settler interface {
	Take(asset Asset, from [20]byte, amount *big.Int) error
	Give(asset Asset, to [20]byte, amount *big.Int) error
}

// Engine is a constant-product market with a single authorized caller.
type Engine struct {
	state   engineState
	settler Settler
	owner   [20]byte
	pauses  nativecommon.PauseView
	emitter events.Emitter
}

// NewEngine constructs a market that only accepts mutations from owner.
func NewEngine(owner [20]byte) *Engine {
	return &Engine{owner: owner, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetSettler configures how swap value is collected and delivered.
func (e *Engine) SetSettler(settler Settler) { e.settler = settler }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used for swap notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Owner returns the authorized caller.
func (e *Engine) Owner() [20]byte { return e.owner }

// Init seeds the reserves. It fails once reserves exist.
func (e *Engine) Init(reserveA, reserveB *big.Int) error {
	if e.state == nil {
		return errNilState
	}
	if err := nativecommon.CheckPositive(reserveA); err != nil {
		return fmt.Errorf("%w: reserve A", ErrInvalidAmount)
	}
	if err := nativecommon.CheckPositive(reserveB); err != nil {
		return fmt.Errorf("%w: reserve B", ErrInvalidAmount)
	}
	current, err := e.state.PoolGet()
	if err != nil {
		return err
	}
	if current != nil {
		return ErrAlreadyInitialised
	}
	return e.state.PoolPut(&State{ReserveA: cloneBigInt(reserveA), ReserveB: cloneBigInt(reserveB)})
}

func (e *Engine) load() (*State, error) {
	if e.state == nil {
		return nil, errNilState
	}
	current, err := e.state.PoolGet()
	if err != nil {
		return nil, err
	}
	if current == nil || current.ReserveA == nil || current.ReserveB == nil ||
		current.ReserveA.Sign() <= 0 || current.ReserveB.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	return current.Clone(), nil
}

// Reserves returns copies of both reserves.
func (e *Engine) Reserves() (*State, error) {
	return e.load()
}

// SpotPriceA is the price of A in units of B, scaled by Unit.
func (e *Engine) SpotPriceA() (*big.Int, error) {
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	return spot(current.ReserveB, current.ReserveA), nil
}

// SpotPriceB is the price of B in units of A, scaled by Unit.
func (e *Engine) SpotPriceB() (*big.Int, error) {
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	return spot(current.ReserveA, current.ReserveB), nil
}

// PreviewSwap quotes the output of a swap without mutating state.
func (e *Engine) PreviewSwap(dir Direction, amountIn *big.Int) (*big.Int, error) {
	if err := nativecommon.CheckAmount(amountIn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	return quoteOut(current.reserve(dir.input()), current.reserve(dir.output()), amountIn), nil
}

// Swap executes req on behalf of caller at time now. Every check runs before
// any reserve or balance changes.
func (e *Engine) Swap(caller [20]byte, req SwapRequest, now int64) (*SwapResult, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller != e.owner {
		return nil, ErrUnauthorized
	}
	if e.settler == nil {
		return nil, errNilSettler
	}
	if now > req.Deadline {
		return nil, ErrDeadlineExpired
	}
	if err := nativecommon.CheckPositive(req.AmountIn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	minOut := req.MinOut
	if minOut == nil {
		minOut = big.NewInt(0)
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	in, out := req.Direction.input(), req.Direction.output()
	amountOut := quoteOut(current.reserve(in), current.reserve(out), req.AmountIn)
	if amountOut.Cmp(minOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	if err := e.settler.Take(in, req.Recipient, req.AmountIn); err != nil {
		return nil, err
	}
	if err := e.settler.Give(out, req.Recipient, amountOut); err != nil {
		return nil, err
	}
	current.reserve(in).Add(current.reserve(in), req.AmountIn)
	current.reserve(out).Sub(current.reserve(out), amountOut)
	if err := e.state.PoolPut(current); err != nil {
		return nil, err
	}
	result := &SwapResult{
		Direction: req.Direction,
		AmountIn:  cloneBigInt(req.AmountIn),
		AmountOut: amountOut,
		Reserves:  current.Clone(),
	}
	e.emitter.Emit(events.Wrap(newSwapEvent(req.Recipient, result)))
	return result, nil
}

// Rescale moves both reserves halfway toward reserve*ratio/Unit. The spot
// price is unchanged up to rounding.
func (e *Engine) Rescale(caller [20]byte, ratio *big.Int) (*State, error) {
	if caller != e.owner {
		return nil, ErrUnauthorized
	}
	if err := nativecommon.CheckPositive(ratio); err != nil {
		return nil, fmt.Errorf("%w: ratio", ErrInvalidAmount)
	}
	current, err := e.load()
	if err != nil {
		return nil, err
	}
	next := &State{
		ReserveA: rescaled(current.ReserveA, ratio),
		ReserveB: rescaled(current.ReserveB, ratio),
	}
	if next.ReserveA.Sign() == 0 || next.ReserveB.Sign() == 0 {
		return nil, ErrEmptyPool
	}
	if err := e.state.PoolPut(next); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(newRescaledEvent(ratio, next)))
	return next.Clone(), nil
}
