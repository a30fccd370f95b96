package accrual

import (
	"errors"
	"math/big"
	"strconv"

	"meltwater/core/events"
	"meltwater/core/types"
	nativecommon "meltwater/native/common"
)

const moduleName = "rewards"

// ModuleName is the pause switch guarding reward claims.
const ModuleName = moduleName

const (
	EventTypeRewardsClaimed = "rewards.claimed"
	EventTypeRateUpdated    = "rewards.rate.updated"
)

var (
	errNilState  = errors.New("accrual engine: state not configured")
	ErrExempt    = errors.New("accrual engine: account does not accrue")
	ErrNoAccount = errors.New("accrual engine: account not tracked")
)

// Account is the accrual record of a live holder.
type Account struct {
	Address    [20]byte
	Checkpoint Checkpoint
	Pending    *big.Int
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{Address: a.Address, Checkpoint: a.Checkpoint.Clone(), Pending: cloneBigInt(a.Pending)}
}

type engineState interface {
	RewardAccountGet(addr [20]byte) (*Account, bool, error)
	RewardAccountPut(*Account) error
	RewardRateGet() (*big.Rat, error)
	RewardRatePut(*big.Rat) error
}

// Ledger tracks reward accrual for every live holder of the growth unit.
// Each account's principal follows its balance; callers Sync before and after
// any balance change.
type Ledger struct {
	state   engineState
	pauses  nativecommon.PauseView
	emitter events.Emitter
	exempt  map[[20]byte]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}, exempt: make(map[[20]byte]struct{})}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state engineState) { l.state = state }

func (l *Ledger) SetPauses(p nativecommon.PauseView) { l.pauses = p }

// SetEmitter configures the event emitter used for claim notifications.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Exempt excludes addr from accrual. Module-owned accounts are exempt.
func (l *Ledger) Exempt(addr [20]byte) { l.exempt[addr] = struct{}{} }

func (l *Ledger) isExempt(addr [20]byte) bool {
	_, ok := l.exempt[addr]
	return ok
}

// Rate returns the global per-second rate.
func (l *Ledger) Rate() (*big.Rat, error) {
	if l.state == nil {
		return nil, errNilState
	}
	rate, err := l.state.RewardRateGet()
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return DefaultRate(), nil
	}
	return cloneRat(rate), nil
}

// SetRate replaces the global per-second rate. Existing checkpoints keep the
// rate they were settled at until their next Sync.
func (l *Ledger) SetRate(rate *big.Rat) error {
	if rate == nil || rate.Sign() < 0 {
		return ErrInvalidRate
	}
	if l.state == nil {
		return errNilState
	}
	if err := l.state.RewardRatePut(cloneRat(rate)); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeRateUpdated,
		Attributes: map[string]string{
			"perSecond":  FixedRate(rate).String(),
			"annualRate": AnnualRate(rate).FloatString(6),
		},
	}))
	return nil
}

func (l *Ledger) load(addr [20]byte, now int64) (*Account, error) {
	if l.state == nil {
		return nil, errNilState
	}
	account, ok, err := l.state.RewardAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		rate, err := l.Rate()
		if err != nil {
			return nil, err
		}
		return &Account{Address: addr, Checkpoint: NewCheckpoint(big.NewInt(0), rate, now), Pending: big.NewInt(0)}, nil
	}
	return account.Clone(), nil
}

// Sync settles addr's accrued reward at its previous principal and then
// resets the principal to balance at the current rate. It returns the reward
// settled by this call.
func (l *Ledger) Sync(addr [20]byte, balance *big.Int, now int64) (*big.Int, error) {
	if l.isExempt(addr) {
		return big.NewInt(0), nil
	}
	if err := nativecommon.CheckAmount(balance); err != nil {
		return nil, err
	}
	account, err := l.load(addr, now)
	if err != nil {
		return nil, err
	}
	reward, next := Settle(account.Checkpoint, now, NoCeiling)
	rate, err := l.Rate()
	if err != nil {
		return nil, err
	}
	next.Principal = cloneBigInt(balance)
	next.RatePerSecond = rate
	if next.LastSettled < now {
		next.LastSettled = now
	}
	account.Checkpoint = next
	account.Pending.Add(account.Pending, reward)
	if err := l.state.RewardAccountPut(account); err != nil {
		return nil, err
	}
	return reward, nil
}

// Claimable previews pending plus unsettled reward for addr at now.
func (l *Ledger) Claimable(addr [20]byte, now int64) (*big.Int, error) {
	if l.isExempt(addr) {
		return big.NewInt(0), nil
	}
	account, err := l.load(addr, now)
	if err != nil {
		return nil, err
	}
	total := Preview(account.Checkpoint, now, NoCeiling)
	return total.Add(total, account.Pending), nil
}

// Claim settles addr, zeroes its pending reward and returns the amount owed.
// balance is the holder's current balance and becomes the new principal.
func (l *Ledger) Claim(addr [20]byte, balance *big.Int, now int64) (*big.Int, error) {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return nil, err
	}
	if l.isExempt(addr) {
		return nil, ErrExempt
	}
	if _, err := l.Sync(addr, balance, now); err != nil {
		return nil, err
	}
	account, err := l.load(addr, now)
	if err != nil {
		return nil, err
	}
	owed := cloneBigInt(account.Pending)
	account.Pending = big.NewInt(0)
	if err := l.state.RewardAccountPut(account); err != nil {
		return nil, err
	}
	if owed.Sign() > 0 {
		l.emitter.Emit(events.Wrap(&types.Event{
			Type: EventTypeRewardsClaimed,
			Attributes: map[string]string{
				"account":   events.FormatAccount(addr),
				"amount":    owed.String(),
				"claimedAt": strconv.FormatInt(now, 10),
			},
		}))
	}
	return owed, nil
}

// Account returns a copy of the stored record for addr.
func (l *Ledger) Account(addr [20]byte) (*Account, error) {
	if l.state == nil {
		return nil, errNilState
	}
	account, ok, err := l.state.RewardAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAccount
	}
	return account.Clone(), nil
}
