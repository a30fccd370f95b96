package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"meltwater/config"
	"meltwater/core"
	corestate "meltwater/core/state"
	"meltwater/crypto"
	"meltwater/native/accrual"
	"meltwater/native/bank"
	"meltwater/observability/logging"
	"meltwater/observability/metrics"
	"meltwater/storage"
	"meltwater/storage/journal"
)

const (
	symbolH2O = "H2O"
	symbolICE = "ICE"
)

// moduleAccount is the controller's custody account.
var moduleAccount = crypto.LabelAddress(crypto.ModulePrefix, "settlement")

// engine is a controller bound to persisted state. Ledgers and the clock live
// in the same store so consecutive invocations continue where the last one
// stopped.
type engine struct {
	cfg     *config.Config
	db      storage.Database
	state   *corestate.Manager
	h2o     *bank.TokenLedger
	ice     *bank.TokenLedger
	vault   *bank.CoinVault
	clock   *bank.ManualClock
	journal *journal.Journal
	ctrl    *core.Controller
	owner   crypto.Address
	logger  *slog.Logger
}

type engineOptions struct {
	// genesisTime is used when the store is empty. Zero means wall time.
	genesisTime int64
	metrics     *metrics.EngineMetrics
}

func openEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts engineOptions) (*engine, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	owner, err := config.ResolveAccount(cfg.Engine.Owner)
	if err != nil {
		return nil, fmt.Errorf("engine owner: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	e := &engine{
		cfg:    cfg,
		db:     db,
		state:  corestate.NewManager(db),
		h2o:    bank.NewTokenLedger(symbolH2O),
		ice:    bank.NewTokenLedger(symbolICE),
		vault:  bank.NewCoinVault(moduleAccount.Raw()),
		owner:  owner,
		logger: logger,
	}
	if err := e.load(opts.genesisTime); err != nil {
		e.Close()
		return nil, err
	}
	if cfg.Storage.JournalPath != "" {
		if e.journal, err = journal.Open(cfg.Storage.JournalPath); err != nil {
			e.Close()
			return nil, err
		}
		e.journal.SetLogger(logger)
	}

	ctrlCfg, err := controllerConfig(cfg, owner)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.ctrl, err = core.New(ctrlCfg, core.Collaborators{State: e.state, H2O: e.h2o, ICE: e.ice, Custody: e.vault, Clock: e.clock})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.ctrl.SetLogger(logger)
	e.ctrl.SetMetrics(opts.metrics)
	if e.journal != nil {
		e.ctrl.SetEmitter(e.journal)
	}
	if err := e.genesis(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func controllerConfig(cfg *config.Config, owner crypto.Address) (core.Config, error) {
	out := core.DefaultConfig(owner.Raw(), moduleAccount.Raw())
	out.AuctionParams = cfg.Engine.AuctionParams()
	out.AnchorWindow = cfg.Engine.Window()
	out.RescaleOnSettlement = cfg.Engine.RescaleOnSettlement
	var err error
	if out.InitialReserveA, err = config.ParseAmount(cfg.Engine.InitialReserveH2O); err != nil {
		return out, err
	}
	if out.InitialReserveB, err = config.ParseAmount(cfg.Engine.InitialReserveICE); err != nil {
		return out, err
	}
	return out, nil
}

// load restores ledgers, custody and the clock from the store.
func (e *engine) load(genesisTime int64) error {
	if balances, ok, err := e.state.LoadLedger(symbolH2O); err != nil {
		return err
	} else if ok {
		if err := e.h2o.Import(balances); err != nil {
			return err
		}
	}
	if balances, ok, err := e.state.LoadLedger(symbolICE); err != nil {
		return err
	} else if ok {
		if err := e.ice.Import(balances); err != nil {
			return err
		}
	}
	if wallets, reserve, ok, err := e.state.LoadVault(); err != nil {
		return err
	} else if ok {
		if err := e.vault.Import(wallets, reserve); err != nil {
			return err
		}
	}
	now, ok, err := e.state.ClockTime()
	if err != nil {
		return err
	}
	if !ok {
		now = genesisTime
		if now == 0 {
			now = bank.SystemClock{}.Now()
		}
	}
	e.clock = bank.NewManualClock(now)
	return nil
}

// genesis seeds configured balances and runs controller genesis on an empty
// store.
func (e *engine) genesis(ctx context.Context) error {
	if _, done, err := e.state.GenesisTime(); err != nil || done {
		return err
	}
	accounts, err := e.cfg.Genesis.SeededAccounts()
	if err != nil {
		return err
	}
	holders := make([][20]byte, 0, len(accounts))
	for _, account := range accounts {
		raw := account.Address.Raw()
		if account.H2O.Sign() > 0 {
			if err := e.h2o.Mint(raw, account.H2O); err != nil {
				return err
			}
		}
		if account.ICE.Sign() > 0 {
			if err := e.ice.Mint(raw, account.ICE); err != nil {
				return err
			}
			holders = append(holders, raw)
		}
		if account.Coin.Sign() > 0 {
			if err := e.vault.Fund(raw, account.Coin); err != nil {
				return err
			}
		}
	}
	reserve, err := config.ParseAmount(e.cfg.Genesis.CustodyReserve)
	if err != nil {
		return err
	}
	if reserve.Sign() > 0 {
		if err := e.vault.FundReserve(reserve); err != nil {
			return err
		}
	}
	if err := e.ctrl.Genesis(ctx, holders); err != nil {
		return err
	}
	rate, err := config.ParseRate(e.cfg.Engine.AnnualRate)
	if err != nil {
		return err
	}
	if rate.Cmp(accrual.AnnualRate(accrual.DefaultRate())) != 0 {
		if err := e.ctrl.SetAnnualRate(ctx, e.owner.Raw(), rate); err != nil {
			return err
		}
	}
	e.logger.Info("genesis applied",
		slog.Int("accounts", len(accounts)),
		slog.Int64("time", e.clock.Now()),
		slog.String("owner", e.owner.String()))
	return e.persist()
}

// persist writes ledgers, custody and the clock back to the store.
func (e *engine) persist() error {
	if err := e.state.SaveLedger(symbolH2O, e.h2o.Export()); err != nil {
		return err
	}
	if err := e.state.SaveLedger(symbolICE, e.ice.Export()); err != nil {
		return err
	}
	wallets, reserve := e.vault.Export()
	if err := e.state.SaveVault(wallets, reserve); err != nil {
		return err
	}
	return e.state.SetClockTime(e.clock.Now())
}

func (e *engine) Close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("close journal", slog.Any("error", err))
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Warn("close state", slog.Any("error", err))
		}
	}
}

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// formatUnits renders an 18 decimal amount in whole units.
func formatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return new(big.Rat).SetFrac(v, unit).FloatString(6)
}
