package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"meltwater/config"
	"meltwater/observability/logging"
	"meltwater/observability/metrics"
	"meltwater/storage"
)

const genesisTime = int64(1_700_000_000)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = backend
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state")
	cfg.Storage.JournalPath = ""
	cfg.Genesis.CustodyReserve = "50"
	cfg.Genesis.Accounts = []config.GenesisAccount{
		{Address: "alice", H2O: "1000", ICE: "1000", Coin: "100"},
		{Address: "bob", Coin: "100"},
	}
	return cfg
}

func whole(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

func account(t *testing.T, label string) [20]byte {
	t.Helper()
	addr, err := config.ResolveAccount(label)
	require.NoError(t, err)
	return addr.Raw()
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestOpenEngineAppliesGenesisOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, storage.BackendLevelDB)

	e, err := openEngine(ctx, cfg, logging.Discard(), engineOptions{genesisTime: genesisTime})
	require.NoError(t, err)
	alice := account(t, "alice")
	require.Zero(t, e.h2o.BalanceOf(alice).Cmp(whole(1000)))
	require.Zero(t, e.vault.Reserve().Cmp(whole(50)))
	e.Close()

	e, err = openEngine(ctx, cfg, logging.Discard(), engineOptions{genesisTime: genesisTime + 500})
	require.NoError(t, err)
	defer e.Close()
	require.Equal(t, genesisTime, e.clock.Now())
	require.Zero(t, e.h2o.BalanceOf(alice).Cmp(whole(1000)))
	require.Zero(t, e.vault.BalanceOf(account(t, "bob")).Cmp(whole(100)))
}

func TestReplayPersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, storage.BackendLevelDB)
	path := writeScenario(t, `
name: swap and pause
steps:
  - op: swap_h2o_for_ice
    caller: alice
    amount: "1000"
  - op: swap_ice_for_h2o
    caller: alice
    amount: "10"
    min_out: "1000"
    expect_error: output below minimum
  - advance: 24h
  - op: pause
    caller: bob
    module: pool
    expect_error: not authorized
  - op: pause
    module: pool
  - op: swap_ice_for_h2o
    caller: alice
    amount: "10"
    expect_error: module paused
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, scenario.Steps, 6)

	e, err := openEngine(ctx, cfg, logging.Discard(), engineOptions{genesisTime: genesisTime})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, e.replay(ctx, scenario, &out))
	require.Contains(t, out.String(), "rejected")
	e.Close()

	e, err = openEngine(ctx, cfg, logging.Discard(), engineOptions{})
	require.NoError(t, err)
	defer e.Close()
	alice := account(t, "alice")
	require.Zero(t, e.h2o.BalanceOf(alice).Sign())
	require.Positive(t, e.ice.BalanceOf(alice).Cmp(whole(1000)))
	require.Equal(t, genesisTime+86_400, e.clock.Now())

	snap, err := e.ctrl.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"pool"}, snap.Paused)
	require.Zero(t, snap.Reserves.ReserveA.Cmp(whole(101_000)))
}

func TestReplayStopsOnUnexpectedResult(t *testing.T) {
	ctx := context.Background()
	e, err := openEngine(ctx, testConfig(t, storage.BackendMemory), logging.Discard(), engineOptions{genesisTime: genesisTime})
	require.NoError(t, err)
	defer e.Close()

	err = e.replay(ctx, &Scenario{Steps: []Step{
		{Op: "swap_h2o_for_ice", Caller: "alice", Amount: "1", ExpectError: "deadline"},
	}}, &bytes.Buffer{})
	require.ErrorIs(t, err, errExpectation)

	err = e.replay(ctx, &Scenario{Steps: []Step{{Op: "mint_everything", Caller: "alice"}}}, &bytes.Buffer{})
	require.ErrorIs(t, err, errUsage)

	err = e.replay(ctx, &Scenario{Steps: []Step{{Op: "claim_rewards"}}}, &bytes.Buffer{})
	require.ErrorIs(t, err, errUsage)
}

func TestReplayAuctionAndPositions(t *testing.T) {
	ctx := context.Background()
	e, err := openEngine(ctx, testConfig(t, storage.BackendMemory), logging.Discard(), engineOptions{genesisTime: genesisTime})
	require.NoError(t, err)
	defer e.Close()

	var out bytes.Buffer
	err = e.replay(ctx, &Scenario{Steps: []Step{
		{Op: "lock_position", Caller: "alice", Beneficiary: "bob", Amount: "100", Term: "8760h"},
		{Advance: "4380h", Op: "claim_position", Caller: "bob", ID: 1},
		{Op: "transfer_ice", Caller: "alice", To: "carol", Amount: "50"},
		{Op: "set_annual_rate", Rate: "0.05"},
		{Op: "initiate_positive", Caller: "alice", Amount: "1", ExpectError: "not available"},
	}}, &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "position=1")

	bob := account(t, "bob")
	require.Positive(t, e.h2o.BalanceOf(bob).Sign())
	require.Zero(t, e.ice.BalanceOf(account(t, "alice")).Cmp(whole(850)))
	require.Zero(t, e.ice.BalanceOf(account(t, "carol")).Cmp(whole(50)))
}

func TestRouterServesStatus(t *testing.T) {
	ctx := context.Background()
	e, err := openEngine(ctx, testConfig(t, storage.BackendMemory), logging.Discard(), engineOptions{genesisTime: genesisTime})
	require.NoError(t, err)
	defer e.Close()
	srv := httptest.NewServer(newRouter(e, metrics.NewEngineMetrics(prometheus.NewRegistry())))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view statusView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, genesisTime, view.Time)
	require.Equal(t, "100000.000000", view.ReserveH2O)
	require.Equal(t, "1.000000", view.AnchorPrice)
	require.Nil(t, view.Auction)

	auctionResp, err := http.Get(srv.URL + "/auction")
	require.NoError(t, err)
	defer auctionResp.Body.Close()
	var idle map[string]string
	require.NoError(t, json.NewDecoder(auctionResp.Body).Decode(&idle))
	require.Equal(t, "idle", idle["state"])
}

func TestParseDirection(t *testing.T) {
	_, err := parseDirection("sideways")
	require.ErrorIs(t, err, errUsage)
	dir, err := parseDirection("ice-h2o")
	require.NoError(t, err)
	require.Equal(t, "b_to_a", dir.String())
}
