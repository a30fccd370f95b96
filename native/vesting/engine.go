package vesting

import (
	"errors"
	"fmt"
	"math/big"

	"meltwater/core/events"
	"meltwater/native/accrual"
	nativecommon "meltwater/native/common"
)

var (
	ErrInvalidPositionID = errors.New("vesting engine: invalid position id")
	ErrNotMatured        = errors.New("vesting engine: position has not matured")
	ErrAlreadyRedeemed   = errors.New("vesting engine: position already redeemed")
	ErrNotBeneficiary    = errors.New("vesting engine: caller is not the beneficiary")
	ErrIndexOutOfRange   = errors.New("vesting engine: index out of range")
	ErrInvalidAmount     = errors.New("vesting engine: principal must be positive")
	ErrInvalidTerm       = errors.New("vesting engine: end must be after start")
	errNilState          = errors.New("vesting engine: state not configured")
	errNilRegistry       = errors.New("vesting engine: registry not configured")
	errNilRates          = errors.New("vesting engine: rate source not configured")
)

const moduleName = "vesting"

// ModuleName is the pause switch guarding position changes.
const ModuleName = moduleName

type engineState interface {
	VestingPositionGet(id uint64) (*Position, bool, error)
	VestingPositionPut(*Position) error
	VestingLastID() (uint64, error)
	VestingSetLastID(uint64) error
}

// Registry indexes positions by creator and beneficiary.
type Registry interface {
	VestingRecord(creator, beneficiary [20]byte, id uint64) error
	VestingCreatorCount(creator [20]byte) (uint64, error)
	VestingCreatorPositionAt(creator [20]byte, index uint64) (uint64, bool, error)
	VestingBeneficiaryCount(beneficiary [20]byte) (uint64, error)
	VestingBeneficiaryPositionAt(beneficiary [20]byte, index uint64) (uint64, bool, error)
}

// RateSource supplies the per-second accrual rate applied to new positions.
type RateSource interface {
	Rate() (*big.Rat, error)
}

type Engine struct {
	state    engineState
	registry Registry
	rates    RateSource
	pauses   nativecommon.PauseView
	emitter  events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetRegistry(registry Registry) { e.registry = registry }

func (e *Engine) SetRateSource(rates RateSource) { e.rates = rates }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used for position notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.rates == nil {
		return errNilRates
	}
	return nil
}

// Lock records a new position. The caller is responsible for taking custody
// of principal before calling Lock.
func (e *Engine) Lock(creator, beneficiary [20]byte, principal *big.Int, end, now int64) (*Position, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.CheckPositive(principal); err != nil {
		return nil, ErrInvalidAmount
	}
	if end <= now {
		return nil, ErrInvalidTerm
	}
	rate, err := e.rates.Rate()
	if err != nil {
		return nil, err
	}
	last, err := e.state.VestingLastID()
	if err != nil {
		return nil, err
	}
	position := &Position{
		ID:          last + 1,
		Creator:     creator,
		Beneficiary: beneficiary,
		Principal:   new(big.Int).Set(principal),
		Start:       now,
		End:         end,
		Checkpoint:  accrual.NewCheckpoint(principal, rate, now),
	}
	if err := e.state.VestingSetLastID(position.ID); err != nil {
		return nil, err
	}
	if err := e.state.VestingPositionPut(position); err != nil {
		return nil, err
	}
	if err := e.registry.VestingRecord(creator, beneficiary, position.ID); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(newPositionEvent(EventTypePositionLocked, position, nil)))
	return position.Clone(), nil
}

// Position returns a copy of the stored position.
func (e *Engine) Position(id uint64) (*Position, error) {
	if e.state == nil {
		return nil, errNilState
	}
	position, ok, err := e.state.VestingPositionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPositionID, id)
	}
	return position.Clone(), nil
}

func (e *Engine) authorize(id uint64, caller [20]byte) (*Position, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	position, err := e.Position(id)
	if err != nil {
		return nil, err
	}
	if position.Beneficiary != caller {
		return nil, ErrNotBeneficiary
	}
	if position.Redeemed {
		return nil, ErrAlreadyRedeemed
	}
	return position, nil
}

// PreviewReward returns the reward a claim at now would release.
func (e *Engine) PreviewReward(id uint64, now int64) (*big.Int, error) {
	position, err := e.Position(id)
	if err != nil {
		return nil, err
	}
	if position.Redeemed {
		return big.NewInt(0), nil
	}
	return accrual.Preview(position.Checkpoint, now, position.End), nil
}

// Claim releases the reward accrued so far. Once the position has matured the
// claim also redeems it.
func (e *Engine) Claim(id uint64, caller [20]byte, now int64) (*ClaimResult, error) {
	position, err := e.authorize(id, caller)
	if err != nil {
		return nil, err
	}
	if position.Matured(now) {
		return e.redeem(position, now)
	}
	reward, next := accrual.Settle(position.Checkpoint, now, position.End)
	position.Checkpoint = next
	if err := e.state.VestingPositionPut(position); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(newPositionEvent(EventTypePositionClaimed, position, reward)))
	return &ClaimResult{Position: position.Clone(), Reward: reward, Principal: big.NewInt(0)}, nil
}

// Redeem settles the final reward interval and releases the principal.
func (e *Engine) Redeem(id uint64, caller [20]byte, now int64) (*ClaimResult, error) {
	position, err := e.authorize(id, caller)
	if err != nil {
		return nil, err
	}
	if !position.Matured(now) {
		return nil, ErrNotMatured
	}
	return e.redeem(position, now)
}

func (e *Engine) redeem(position *Position, now int64) (*ClaimResult, error) {
	reward, next := accrual.Settle(position.Checkpoint, now, position.End)
	position.Checkpoint = next
	position.Redeemed = true
	if err := e.state.VestingPositionPut(position); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(newPositionEvent(EventTypePositionRedeemed, position, reward)))
	return &ClaimResult{
		Position:  position.Clone(),
		Reward:    reward,
		Principal: new(big.Int).Set(position.Principal),
		Redeemed:  true,
	}, nil
}

// CreatorCount returns how many positions creator has opened.
func (e *Engine) CreatorCount(creator [20]byte) (uint64, error) {
	if e.registry == nil {
		return 0, errNilRegistry
	}
	return e.registry.VestingCreatorCount(creator)
}

// CreatorPositionAt returns the id of creator's index-th position.
func (e *Engine) CreatorPositionAt(creator [20]byte, index uint64) (uint64, error) {
	if e.registry == nil {
		return 0, errNilRegistry
	}
	id, ok, err := e.registry.VestingCreatorPositionAt(creator, index)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIndexOutOfRange
	}
	return id, nil
}

// BeneficiaryCount returns how many positions name beneficiary.
func (e *Engine) BeneficiaryCount(beneficiary [20]byte) (uint64, error) {
	if e.registry == nil {
		return 0, errNilRegistry
	}
	return e.registry.VestingBeneficiaryCount(beneficiary)
}

// BeneficiaryPositionAt returns the id of beneficiary's index-th position.
func (e *Engine) BeneficiaryPositionAt(beneficiary [20]byte, index uint64) (uint64, error) {
	if e.registry == nil {
		return 0, errNilRegistry
	}
	id, ok, err := e.registry.VestingBeneficiaryPositionAt(beneficiary, index)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIndexOutOfRange
	}
	return id, nil
}
