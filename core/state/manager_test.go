package state

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meltwater/native/accrual"
	"meltwater/native/anchor"
	"meltwater/native/auction"
	"meltwater/native/bank"
	"meltwater/native/pool"
	"meltwater/native/rebase"
	"meltwater/native/vesting"
	"meltwater/storage"
)

func newTestManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func TestKVRoundTrip(t *testing.T) {
	m := newTestManager()
	ok, err := m.KVGet([]byte("missing"), new(uint64))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.KVPut([]byte("n"), uint64(42)))
	var n uint64
	ok, err = m.KVGet([]byte("n"), &n)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), n)

	require.Error(t, m.KVPut(nil, uint64(1)))
}

func TestSnapshotRevert(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.KVPut([]byte("a"), uint64(1)))

	snap := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("a"), uint64(2)))
	require.NoError(t, m.KVPut([]byte("b"), uint64(3)))
	require.NoError(t, m.RevertToSnapshot(snap))

	var a uint64
	ok, err := m.KVGet([]byte("a"), &a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), a)
	ok, err = m.KVGet([]byte("b"), new(uint64))
	require.NoError(t, err)
	require.False(t, ok, "key created after the snapshot must be removed")

	snap = m.Snapshot()
	require.NoError(t, m.KVPut([]byte("a"), uint64(5)))
	m.DiscardSnapshot(snap)
	require.Empty(t, m.journal)
	require.ErrorIs(t, m.RevertToSnapshot(snap), bank.ErrUnknownSnapshot)
}

func TestEngineRecordsRoundTrip(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.PoolPut(&pool.State{ReserveA: big.NewInt(10), ReserveB: big.NewInt(20)}))
	p, err := m.PoolGet()
	require.NoError(t, err)
	require.Equal(t, int64(20), p.ReserveB.Int64())

	require.NoError(t, m.AnchorPut(&anchor.Sample{Price: big.NewInt(7), SampledAt: 99}))
	sample, err := m.AnchorGet()
	require.NoError(t, err)
	require.Equal(t, int64(99), sample.SampledAt)
	window, err := m.AnchorWindowGet()
	require.NoError(t, err)
	require.Equal(t, anchor.DefaultWindow, window)
	require.NoError(t, m.AnchorWindowPut(time.Hour))
	window, _ = m.AnchorWindowGet()
	require.Equal(t, time.Hour, window)

	rate := accrual.DefaultRate()
	require.NoError(t, m.RewardRatePut(rate))
	stored, err := m.RewardRateGet()
	require.NoError(t, err)
	require.Zero(t, stored.Cmp(rate))

	account := &accrual.Account{Address: [20]byte{1}, Checkpoint: accrual.NewCheckpoint(big.NewInt(5), rate, 3), Pending: big.NewInt(2)}
	require.NoError(t, m.RewardAccountPut(account))
	loaded, ok, err := m.RewardAccountGet([20]byte{1})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(3), loaded.Checkpoint.LastSettled)
	require.Zero(t, loaded.Checkpoint.RatePerSecond.Cmp(rate))

	position := &vesting.Position{ID: 1, Creator: [20]byte{2}, Beneficiary: [20]byte{3}, Principal: big.NewInt(9), Start: 1, End: 100, Checkpoint: accrual.NewCheckpoint(big.NewInt(9), rate, 1)}
	require.NoError(t, m.VestingPositionPut(position))
	got, ok, err := m.VestingPositionGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), got.End)
	require.False(t, got.Redeemed)

	require.NoError(t, m.VestingRecord([20]byte{2}, [20]byte{3}, 1))
	require.NoError(t, m.VestingRecord([20]byte{2}, [20]byte{4}, 2))
	count, err := m.VestingCreatorCount([20]byte{2})
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
	id, ok, err := m.VestingCreatorPositionAt([20]byte{2}, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), id)
	_, ok, _ = m.VestingBeneficiaryPositionAt([20]byte{3}, 1)
	require.False(t, ok)

	idle, err := m.AuctionGet()
	require.NoError(t, err)
	require.True(t, idle.IsIdle())
	require.NoError(t, m.AuctionPut(auction.Active(auction.Round{Kind: rebase.KindNegative, InitiatedAt: 5, EscrowAmount: big.NewInt(3), LeadingBid: big.NewInt(4), LeadingBidder: [20]byte{9}})))
	active, err := m.AuctionGet()
	require.NoError(t, err)
	round, ok := active.Round()
	require.True(t, ok)
	require.Equal(t, rebase.KindNegative, round.Kind)
	require.Equal(t, [20]byte{9}, round.LeadingBidder)
	require.NoError(t, m.AuctionPut(auction.Idle()))
	idle, _ = m.AuctionGet()
	require.True(t, idle.IsIdle())
}

func TestPauses(t *testing.T) {
	m := newTestManager()
	require.False(t, m.IsPaused("pool"))
	require.NoError(t, m.SetPaused("pool", true))
	require.NoError(t, m.SetPaused("auction", true))
	require.True(t, m.IsPaused("pool"))
	modules, err := m.PausedModules()
	require.NoError(t, err)
	require.Equal(t, []string{"auction", "pool"}, modules)
	require.NoError(t, m.SetPaused("pool", false))
	require.False(t, m.IsPaused("pool"))
	modules, err = m.PausedModules()
	require.NoError(t, err)
	require.Equal(t, []string{"auction"}, modules)
}

func TestBankPersistence(t *testing.T) {
	m := newTestManager()
	balances := []bank.Balance{{Account: [20]byte{1}, Amount: big.NewInt(10)}}
	require.NoError(t, m.SaveLedger("h2o", balances))
	loaded, ok, err := m.LoadLedger("H2O")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	require.Equal(t, int64(10), loaded[0].Amount.Int64())

	require.NoError(t, m.SaveVault(nil, big.NewInt(77)))
	_, reserve, ok, err := m.LoadVault()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(77), reserve.Int64())
}
