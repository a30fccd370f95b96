package bank

import (
	"fmt"
	"math/big"
	"sync"

	"meltwater/core/events"
)

const coinSymbol = "COIN"

type vaultSnapshot struct {
	wallets map[[20]byte]*big.Int
	reserve *big.Int
}

// CoinVault is an in-memory Custody. It also tracks external wallet balances
// so deposits and payouts are observable.
type CoinVault struct {
	mu        sync.RWMutex
	wallets   map[[20]byte]*big.Int
	reserve   *big.Int
	rejecting map[[20]byte]struct{}
	emitter   events.Emitter
	snapshots map[int]vaultSnapshot
	nextSnap  int
	custodian [20]byte
}

// NewCoinVault returns an empty vault. Transfer events name custodian as the
// custody side.
func NewCoinVault(custodian [20]byte) *CoinVault {
	return &CoinVault{
		wallets:   make(map[[20]byte]*big.Int),
		reserve:   big.NewInt(0),
		rejecting: make(map[[20]byte]struct{}),
		emitter:   events.NoopEmitter{},
		snapshots: make(map[int]vaultSnapshot),
		custodian: custodian,
	}
}

// SetEmitter configures the event emitter used for transfer events.
func (v *CoinVault) SetEmitter(emitter events.Emitter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// Fund credits an external wallet.
func (v *CoinVault) Fund(account [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wallet(account).Add(v.wallet(account), amount)
	return nil
}

// FundReserve credits custody directly.
func (v *CoinVault) FundReserve(amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reserve.Add(v.reserve, amount)
	return nil
}

// Reject makes every payout to account fail until Accept is called.
func (v *CoinVault) Reject(account [20]byte) {
	v.mu.Lock()
	v.rejecting[account] = struct{}{}
	v.mu.Unlock()
}

// Accept clears a previous Reject.
func (v *CoinVault) Accept(account [20]byte) {
	v.mu.Lock()
	delete(v.rejecting, account)
	v.mu.Unlock()
}

// BalanceOf returns the external wallet balance of account.
func (v *CoinVault) BalanceOf(account [20]byte) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneBigInt(v.wallets[account])
}

func (v *CoinVault) Reserve() *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneBigInt(v.reserve)
}

func (v *CoinVault) Deposit(from [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount.Sign() == 0 {
		return nil
	}
	wallet := v.wallets[from]
	if wallet == nil || wallet.Cmp(amount) < 0 {
		return fmt.Errorf("%w: wallet holds less than %s", ErrInsufficientBalance, amount)
	}
	wallet.Sub(wallet, amount)
	v.reserve.Add(v.reserve, amount)
	v.emitter.Emit(events.Transfer{Asset: coinSymbol, From: from, To: v.custodian, Amount: cloneBigInt(amount)})
	return nil
}

func (v *CoinVault) Send(to [20]byte, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount.Sign() == 0 {
		return nil
	}
	if _, rejected := v.rejecting[to]; rejected {
		return ErrRecipientRejected
	}
	if v.reserve.Cmp(amount) < 0 {
		return fmt.Errorf("%w: reserve holds less than %s", ErrInsufficientBalance, amount)
	}
	v.reserve.Sub(v.reserve, amount)
	v.wallet(to).Add(v.wallet(to), amount)
	v.emitter.Emit(events.Transfer{Asset: coinSymbol, From: v.custodian, To: to, Amount: cloneBigInt(amount)})
	return nil
}

// TrySend has the same effect as Send. It exists so callers can mark payouts
// whose failure they tolerate.
func (v *CoinVault) TrySend(to [20]byte, amount *big.Int) error {
	return v.Send(to, amount)
}

func (v *CoinVault) wallet(account [20]byte) *big.Int {
	current, ok := v.wallets[account]
	if !ok {
		current = big.NewInt(0)
		v.wallets[account] = current
	}
	return current
}

// Snapshot records wallets and reserve and returns a handle for revert.
func (v *CoinVault) Snapshot() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextSnap++
	v.snapshots[v.nextSnap] = vaultSnapshot{wallets: cloneBalances(v.wallets), reserve: cloneBigInt(v.reserve)}
	return v.nextSnap
}

// RevertToSnapshot restores the state captured by id.
func (v *CoinVault) RevertToSnapshot(id int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap, ok := v.snapshots[id]
	if !ok {
		return ErrUnknownSnapshot
	}
	v.wallets = snap.wallets
	v.reserve = snap.reserve
	v.dropFrom(id)
	return nil
}

// DiscardSnapshot forgets id and every later snapshot.
func (v *CoinVault) DiscardSnapshot(id int) {
	v.mu.Lock()
	v.dropFrom(id)
	v.mu.Unlock()
}

func (v *CoinVault) dropFrom(id int) {
	for key := range v.snapshots {
		if key >= id {
			delete(v.snapshots, key)
		}
	}
}

// Export returns the wallet balances and the custody reserve.
func (v *CoinVault) Export() ([]Balance, *big.Int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return exportBalances(v.wallets), cloneBigInt(v.reserve)
}

// Import replaces wallets and reserve.
func (v *CoinVault) Import(wallets []Balance, reserve *big.Int) error {
	if err := validAmount(reserve); err != nil {
		return err
	}
	next := make(map[[20]byte]*big.Int, len(wallets))
	for _, entry := range wallets {
		if err := validAmount(entry.Amount); err != nil {
			return err
		}
		next[entry.Account] = cloneBigInt(entry.Amount)
	}
	v.mu.Lock()
	v.wallets = next
	v.reserve = cloneBigInt(reserve)
	v.snapshots = make(map[int]vaultSnapshot)
	v.mu.Unlock()
	return nil
}
