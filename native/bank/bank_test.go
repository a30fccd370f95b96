package bank

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"meltwater/core/events"
)

var (
	alice = [20]byte{1}
	bob   = [20]byte{2}
)

func TestTokenLedgerMintBurnTransfer(t *testing.T) {
	ledger := NewTokenLedger("h2o")
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)
	if err := ledger.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Burn(bob, big.NewInt(50)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := ledger.Burn(bob, big.NewInt(15)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := ledger.BalanceOf(alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice balance %s", got)
	}
	if got := ledger.BalanceOf(bob); got.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("bob balance %s", got)
	}
	if got := ledger.TotalSupply(); got.Cmp(big.NewInt(85)) != 0 {
		t.Fatalf("supply %s", got)
	}
	want := []string{events.TypeTokenSupply, events.TypeTransfer, events.TypeTokenSupply}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("unexpected events %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: want %s got %s", i, want[i], got[i])
		}
	}
}

func TestTokenLedgerSwitches(t *testing.T) {
	ledger := NewTokenLedger("ice")
	ledger.SetPaused(true)
	if err := ledger.Mint(alice, big.NewInt(1)); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	ledger.SetPaused(false)
	ledger.SetMintAuthority(false)
	if err := ledger.Mint(alice, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := ledger.Mint(alice, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestTokenLedgerSnapshotRevert(t *testing.T) {
	ledger := NewTokenLedger("h2o")
	if err := ledger.Mint(alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	snap := ledger.Snapshot()
	if err := ledger.Mint(bob, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if ledger.BalanceOf(bob).Sign() != 0 || ledger.TotalSupply().Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("revert did not restore state")
	}
	if err := ledger.RevertToSnapshot(snap); !errors.Is(err, ErrUnknownSnapshot) {
		t.Fatalf("snapshot should be consumed, got %v", err)
	}
}

func TestTokenLedgerExportImport(t *testing.T) {
	ledger := NewTokenLedger("ice")
	_ = ledger.Mint(bob, big.NewInt(3))
	_ = ledger.Mint(alice, big.NewInt(7))
	exported := ledger.Export()
	if len(exported) != 2 || exported[0].Account != alice {
		t.Fatalf("export should be sorted by account: %+v", exported)
	}
	restored := NewTokenLedger("ice")
	if err := restored.Import(exported); err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.TotalSupply().Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected supply %s", restored.TotalSupply())
	}
}

func TestCoinVaultFlows(t *testing.T) {
	vault := NewCoinVault([20]byte{0xff})
	if err := vault.Fund(alice, big.NewInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := vault.Deposit(alice, big.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := vault.Deposit(alice, big.NewInt(60)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if vault.Reserve().Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("reserve %s", vault.Reserve())
	}
	vault.Reject(bob)
	if err := vault.TrySend(bob, big.NewInt(10)); !errors.Is(err, ErrRecipientRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	vault.Accept(bob)
	if err := vault.Send(bob, big.NewInt(10)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := vault.Send(bob, big.NewInt(100)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected reserve shortfall, got %v", err)
	}
	if vault.BalanceOf(bob).Cmp(big.NewInt(10)) != 0 || vault.Reserve().Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected balances bob=%s reserve=%s", vault.BalanceOf(bob), vault.Reserve())
	}
	snap := vault.Snapshot()
	_ = vault.Send(alice, big.NewInt(50))
	if err := vault.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if vault.Reserve().Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("revert did not restore reserve")
	}
}

func TestManualClock(t *testing.T) {
	clock := NewManualClock(1_000)
	clock.Advance(90 * time.Second)
	if clock.Now() != 1_090 {
		t.Fatalf("unexpected now %d", clock.Now())
	}
	if err := clock.Set(1_000); !errors.Is(err, ErrClockRewind) {
		t.Fatalf("expected rewind error, got %v", err)
	}
	if err := clock.Set(2_000); err != nil || clock.Now() != 2_000 {
		t.Fatalf("set failed: %v", err)
	}
}
