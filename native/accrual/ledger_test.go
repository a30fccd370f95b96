package accrual

import (
	"errors"
	"math/big"
	"testing"

	"meltwater/core/events"
	nativecommon "meltwater/native/common"
)

type mockState struct {
	accounts map[[20]byte]*Account
	rate     *big.Rat
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[[20]byte]*Account)}
}

func (m *mockState) RewardAccountGet(addr [20]byte) (*Account, bool, error) {
	account, ok := m.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	return account.Clone(), true, nil
}

func (m *mockState) RewardAccountPut(account *Account) error {
	m.accounts[account.Address] = account.Clone()
	return nil
}

func (m *mockState) RewardRateGet() (*big.Rat, error) {
	if m.rate == nil {
		return nil, nil
	}
	return new(big.Rat).Set(m.rate), nil
}

func (m *mockState) RewardRatePut(rate *big.Rat) error {
	m.rate = new(big.Rat).Set(rate)
	return nil
}

var holder = [20]byte{0x11}

func newTestLedger() (*Ledger, *mockState) {
	state := newMockState()
	ledger := NewLedger()
	ledger.SetState(state)
	return ledger, state
}

func TestLedgerAccruesOnSyncedBalance(t *testing.T) {
	ledger, _ := newTestLedger()
	if _, err := ledger.Sync(holder, big.NewInt(500_000), 0); err != nil {
		t.Fatalf("sync: %v", err)
	}
	claimable, err := ledger.Claimable(holder, SecondsPerYear)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("expected 10000 claimable, got %s", claimable)
	}
	claimed, err := ledger.Claim(holder, big.NewInt(500_000), SecondsPerYear)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("expected 10000 claimed, got %s", claimed)
	}
	again, _ := ledger.Claim(holder, big.NewInt(500_000), SecondsPerYear)
	if again.Sign() != 0 {
		t.Fatalf("double claim returned %s", again)
	}
}

func TestLedgerBalanceChangeSplitsAccrual(t *testing.T) {
	ledger, _ := newTestLedger()
	_, _ = ledger.Sync(holder, big.NewInt(500_000), 0)
	half := int64(SecondsPerYear / 2)
	settled, err := ledger.Sync(holder, big.NewInt(1_000_000), half)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if settled.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("expected 5000 settled at old principal, got %s", settled)
	}
	claimable, _ := ledger.Claimable(holder, SecondsPerYear)
	if claimable.Cmp(big.NewInt(15_000)) != 0 {
		t.Fatalf("expected 15000 claimable, got %s", claimable)
	}
}

func TestLedgerSetRate(t *testing.T) {
	ledger, state := newTestLedger()
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)
	if err := ledger.SetRate(big.NewRat(-1, 1)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	doubled := new(big.Rat).Mul(DefaultRate(), big.NewRat(2, 1))
	if err := ledger.SetRate(doubled); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if state.rate.Cmp(doubled) != 0 {
		t.Fatalf("rate not persisted")
	}
	_, _ = ledger.Sync(holder, big.NewInt(500_000), 0)
	claimable, _ := ledger.Claimable(holder, SecondsPerYear)
	if claimable.Cmp(big.NewInt(20_000)) != 0 {
		t.Fatalf("expected 20000 at doubled rate, got %s", claimable)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != EventTypeRateUpdated {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestLedgerExemptAndPaused(t *testing.T) {
	ledger, state := newTestLedger()
	module := [20]byte{0xee}
	ledger.Exempt(module)
	if _, err := ledger.Sync(module, big.NewInt(10), 0); err != nil {
		t.Fatalf("sync exempt: %v", err)
	}
	if _, ok := state.accounts[module]; ok {
		t.Fatalf("exempt account should not be tracked")
	}
	if _, err := ledger.Claim(module, big.NewInt(10), 10); !errors.Is(err, ErrExempt) {
		t.Fatalf("expected exempt error, got %v", err)
	}
	pauses := nativecommon.PauseSet{}
	pauses.Set(ModuleName, true)
	ledger.SetPauses(pauses)
	if _, err := ledger.Claim(holder, big.NewInt(10), 10); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}
