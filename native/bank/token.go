package bank

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"meltwater/core/events"
)

type tokenSnapshot struct {
	balances map[[20]byte]*big.Int
	supply   *big.Int
}

// TokenLedger is an in-memory Ledger with pause and mint authority switches.
type TokenLedger struct {
	mu        sync.RWMutex
	symbol    string
	balances  map[[20]byte]*big.Int
	supply    *big.Int
	paused    bool
	revoked   bool
	emitter   events.Emitter
	snapshots map[int]tokenSnapshot
	nextSnap  int
}

// NewTokenLedger returns an empty ledger for the given symbol.
func NewTokenLedger(symbol string) *TokenLedger {
	return &TokenLedger{
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		balances:  make(map[[20]byte]*big.Int),
		supply:    big.NewInt(0),
		emitter:   events.NoopEmitter{},
		snapshots: make(map[int]tokenSnapshot),
	}
}

// SetEmitter configures the event emitter used for supply and transfer events.
func (l *TokenLedger) SetEmitter(emitter events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *TokenLedger) Symbol() string { return l.symbol }

// SetPaused blocks every mutation while set.
func (l *TokenLedger) SetPaused(paused bool) {
	l.mu.Lock()
	l.paused = paused
	l.mu.Unlock()
}

// SetMintAuthority grants or revokes the engine's right to mint and burn.
func (l *TokenLedger) SetMintAuthority(granted bool) {
	l.mu.Lock()
	l.revoked = !granted
	l.mu.Unlock()
}

func (l *TokenLedger) Mint(to [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}
	if l.revoked {
		return ErrUnauthorized
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.credit(to, amount)
	l.supply.Add(l.supply, amount)
	l.emitter.Emit(events.TokenSupply{Token: l.symbol, Account: to, Total: cloneBigInt(l.supply), Delta: cloneBigInt(amount), Reason: events.SupplyReasonMint})
	return nil
}

func (l *TokenLedger) Burn(from [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}
	if l.revoked {
		return ErrUnauthorized
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.supply.Sub(l.supply, amount)
	l.emitter.Emit(events.TokenSupply{Token: l.symbol, Account: from, Total: cloneBigInt(l.supply), Delta: new(big.Int).Neg(amount), Reason: events.SupplyReasonBurn})
	return nil
}

func (l *TokenLedger) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	l.emitter.Emit(events.Transfer{Asset: l.symbol, From: from, To: to, Amount: cloneBigInt(amount)})
	return nil
}

func (l *TokenLedger) BalanceOf(account [20]byte) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneBigInt(l.balances[account])
}

func (l *TokenLedger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneBigInt(l.supply)
}

func (l *TokenLedger) credit(account [20]byte, amount *big.Int) {
	current, ok := l.balances[account]
	if !ok {
		current = big.NewInt(0)
		l.balances[account] = current
	}
	current.Add(current, amount)
}

func (l *TokenLedger) debit(account [20]byte, amount *big.Int) error {
	current := l.balances[account]
	if current == nil || current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance below %s", ErrInsufficientBalance, l.symbol, amount)
	}
	current.Sub(current, amount)
	if current.Sign() == 0 {
		delete(l.balances, account)
	}
	return nil
}

// Snapshot records the current balances and returns a handle for revert.
func (l *TokenLedger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSnap++
	l.snapshots[l.nextSnap] = tokenSnapshot{balances: cloneBalances(l.balances), supply: cloneBigInt(l.supply)}
	return l.nextSnap
}

// RevertToSnapshot restores the balances captured by id.
func (l *TokenLedger) RevertToSnapshot(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap, ok := l.snapshots[id]
	if !ok {
		return ErrUnknownSnapshot
	}
	l.balances = snap.balances
	l.supply = snap.supply
	l.dropFrom(id)
	return nil
}

// DiscardSnapshot forgets id and every later snapshot.
func (l *TokenLedger) DiscardSnapshot(id int) {
	l.mu.Lock()
	l.dropFrom(id)
	l.mu.Unlock()
}

func (l *TokenLedger) dropFrom(id int) {
	for key := range l.snapshots {
		if key >= id {
			delete(l.snapshots, key)
		}
	}
}

// Balance is one account entry of a ledger export.
type Balance struct {
	Account [20]byte
	Amount  *big.Int
}

// Export lists non-zero balances ordered by account.
func (l *TokenLedger) Export() []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return exportBalances(l.balances)
}

// Import replaces the ledger contents. Supply is recomputed from balances.
func (l *TokenLedger) Import(entries []Balance) error {
	balances := make(map[[20]byte]*big.Int, len(entries))
	supply := big.NewInt(0)
	for _, entry := range entries {
		if err := validAmount(entry.Amount); err != nil {
			return err
		}
		if entry.Amount.Sign() == 0 {
			continue
		}
		balances[entry.Account] = cloneBigInt(entry.Amount)
		supply.Add(supply, entry.Amount)
	}
	l.mu.Lock()
	l.balances = balances
	l.supply = supply
	l.snapshots = make(map[int]tokenSnapshot)
	l.mu.Unlock()
	return nil
}

func exportBalances(balances map[[20]byte]*big.Int) []Balance {
	out := make([]Balance, 0, len(balances))
	for account, amount := range balances {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		out = append(out, Balance{Account: account, Amount: cloneBigInt(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Account[:], out[j].Account[:]) < 0
	})
	return out
}
