package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"meltwater/core/events"
	corestate "meltwater/core/state"
	"meltwater/native/accrual"
	"meltwater/native/anchor"
	"meltwater/native/auction"
	"meltwater/native/bank"
	"meltwater/native/pool"
	"meltwater/native/rebase"
	"meltwater/native/vesting"
	"meltwater/observability/logging"
	"meltwater/observability/metrics"
	telemetry "meltwater/observability/otel"
)

var (
	// ErrUnauthorized is returned when a non-owner calls an administrative operation.
	ErrUnauthorized = errors.New("controller: caller not authorized")
	// ErrUnknownModule is returned when a pause targets a module that has no switch.
	ErrUnknownModule = errors.New("controller: unknown module")
	// ErrAlreadyInitialised is returned by a second genesis.
	ErrAlreadyInitialised = errors.New("controller: genesis already applied")
	// ErrNotInitialised is returned before genesis has run.
	ErrNotInitialised = errors.New("controller: genesis not applied")
	errMissingCollaborator = errors.New("controller: missing collaborator")
)

// Modules lists the pause switches the controller recognises.
var Modules = []string{pool.ModuleName, auction.ModuleName, accrual.ModuleName, vesting.ModuleName}

// Config holds the fixed parameters of a controller.
type Config struct {
	// Owner may call the administrative operations.
	Owner [20]byte
	// Module is the controller's own account. It holds escrowed H2O and is the
	// only caller the pool accepts.
	Module              [20]byte
	AuctionParams       auction.Params
	AnchorWindow        time.Duration
	RescaleOnSettlement bool
	InitialReserveA     *big.Int
	InitialReserveB     *big.Int
}

// DefaultConfig returns the standard parameters with 100000 units on each side
// of the pool.
func DefaultConfig(owner, module [20]byte) Config {
	seed := new(big.Int).Mul(big.NewInt(100_000), pool.Unit)
	return Config{
		Owner:               owner,
		Module:              module,
		AuctionParams:       auction.DefaultParams(),
		AnchorWindow:        anchor.DefaultWindow,
		RescaleOnSettlement: true,
		InitialReserveA:     seed,
		InitialReserveB:     new(big.Int).Set(seed),
	}
}

// Collaborators are the external ledgers and services the engine drives.
type Collaborators struct {
	State   *corestate.Manager
	H2O     bank.Ledger
	ICE     bank.Ledger
	Custody bank.Custody
	Clock   bank.Clock
}

// Controller is the single entry point into the settlement engine. Every
// operation runs under one lock and either commits fully or leaves no trace.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	state   *corestate.Manager
	h2o     bank.Ledger
	ice     bank.Ledger
	custody bank.Custody
	clock   bank.Clock

	pool     *pool.Engine
	anchor   *anchor.Anchor
	rewards  *accrual.Ledger
	vesting  *vesting.Engine
	rebase   *rebase.Coordinator
	auctions *auction.Engine

	snapshotters []bank.Snapshotter
	buffer       *events.Buffer
	emitter      events.Emitter
	logger       *slog.Logger
	metrics      *metrics.EngineMetrics
	tracer       trace.Tracer
}

type emitterSetter interface {
	SetEmitter(events.Emitter)
}

// New wires the engines to the collaborators. Ledgers and custody that accept
// an emitter are pointed at the controller's commit buffer so their events
// are dropped together with a rolled back operation.
func New(cfg Config, deps Collaborators) (*Controller, error) {
	if deps.State == nil || deps.H2O == nil || deps.ICE == nil || deps.Custody == nil || deps.Clock == nil {
		return nil, errMissingCollaborator
	}
	if cfg.AnchorWindow <= 0 {
		cfg.AnchorWindow = anchor.DefaultWindow
	}
	if cfg.AuctionParams.BiddingWindow <= 0 {
		cfg.AuctionParams = auction.DefaultParams()
	}
	c := &Controller{
		cfg:     cfg,
		state:   deps.State,
		h2o:     deps.H2O,
		ice:     deps.ICE,
		custody: deps.Custody,
		clock:   deps.Clock,
		buffer:  &events.Buffer{},
		emitter: events.NoopEmitter{},
		logger:  logging.Discard(),
		tracer:  telemetry.Tracer(),
	}

	c.pool = pool.NewEngine(cfg.Module)
	c.pool.SetState(c.state)
	c.pool.SetSettler(poolSettler{h2o: c.h2o, ice: c.ice})
	c.pool.SetPauses(c.state)
	c.pool.SetEmitter(c.buffer)

	c.anchor = anchor.New()
	c.anchor.SetState(c.state)
	c.anchor.SetEmitter(c.buffer)

	c.rewards = accrual.NewLedger()
	c.rewards.SetState(c.state)
	c.rewards.SetPauses(c.state)
	c.rewards.SetEmitter(c.buffer)
	c.rewards.Exempt(cfg.Module)

	c.vesting = vesting.NewEngine()
	c.vesting.SetState(c.state)
	c.vesting.SetRegistry(c.state)
	c.vesting.SetRateSource(c.rewards)
	c.vesting.SetPauses(c.state)
	c.vesting.SetEmitter(c.buffer)

	c.rebase = rebase.NewCoordinator(c.anchor, c.ice, c.h2o)

	c.auctions = auction.NewEngine(cfg.AuctionParams)
	c.auctions.SetState(c.state)
	c.auctions.SetSettler(auctionSettler{h2o: c.h2o, custody: c.custody, module: cfg.Module})
	c.auctions.SetPauses(c.state)
	c.auctions.SetEmitter(c.buffer)
	c.auctions.SetLogger(c.logger)

	c.snapshotters = []bank.Snapshotter{c.state}
	for _, collaborator := range []any{c.h2o, c.ice, c.custody} {
		if s, ok := collaborator.(bank.Snapshotter); ok {
			c.snapshotters = append(c.snapshotters, s)
		}
		if s, ok := collaborator.(emitterSetter); ok {
			s.SetEmitter(c.buffer)
		}
	}
	return c, nil
}

// SetEmitter configures where committed events are delivered.
func (c *Controller) SetEmitter(emitter events.Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	c.emitter = emitter
}

func (c *Controller) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger == nil {
		logger = logging.Discard()
	}
	c.logger = logger
	c.auctions.SetLogger(logger)
}

func (c *Controller) SetMetrics(m *metrics.EngineMetrics) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

func (c *Controller) SetTracer(tracer trace.Tracer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tracer == nil {
		tracer = telemetry.Tracer()
	}
	c.tracer = tracer
}

// Config returns the controller parameters.
func (c *Controller) Config() Config { return c.cfg }

// exec runs fn as one atomic operation. On error every snapshotter is rolled
// back and buffered events are dropped; on success the events are delivered.
func (c *Controller) exec(ctx context.Context, op string, fn func(now int64) error) error {
	_, span := c.tracer.Start(ctx, "controller."+op)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	span.SetAttributes(attribute.Int64("meltwater.now", now))
	ids := make([]int, len(c.snapshotters))
	for i, s := range c.snapshotters {
		ids[i] = s.Snapshot()
	}
	c.buffer.Reset()

	if err := fn(now); err != nil {
		for i := len(c.snapshotters) - 1; i >= 0; i-- {
			if revertErr := c.snapshotters[i].RevertToSnapshot(ids[i]); revertErr != nil {
				c.logger.Error("rollback failed", slog.String("op", op), slog.Any("error", revertErr))
			}
		}
		c.buffer.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveRejected(op)
		c.logger.Info("operation rejected", slog.String("op", op), slog.Any("error", err))
		return err
	}

	for i, s := range c.snapshotters {
		s.DiscardSnapshot(ids[i])
	}
	committed := c.buffer.Drain()
	for _, evt := range committed {
		c.emitter.Emit(evt)
	}
	span.SetAttributes(attribute.Int("meltwater.events", len(committed)))
	c.logger.Debug("operation committed", slog.String("op", op), slog.Int("events", len(committed)))
	return nil
}

// view runs a read-only fn under the controller lock.
func (c *Controller) view(ctx context.Context, op string, fn func(now int64) error) error {
	_, span := c.tracer.Start(ctx, "controller."+op)
	defer span.End()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.clock.Now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Controller) requireOwner(caller [20]byte) error {
	if caller != c.cfg.Owner {
		return ErrUnauthorized
	}
	return nil
}

// syncHolder re-settles the ICE holder's accrual at their current balance.
func (c *Controller) syncHolder(addr [20]byte, now int64) error {
	_, err := c.rewards.Sync(addr, c.ice.BalanceOf(addr), now)
	return err
}

// rollAnchor refreshes a due anchor from the current spot price. Every path
// that moves pool reserves calls it before the move.
func (c *Controller) rollAnchor(now int64) (bool, error) {
	return c.anchor.MaybeRoll(now, c.pool.SpotPriceB)
}

// Genesis seeds the pool, the anchor baseline and the accrual checkpoints of
// the given ICE holders. It runs once.
func (c *Controller) Genesis(ctx context.Context, holders [][20]byte) error {
	return c.exec(ctx, "genesis", func(now int64) error {
		if _, done, err := c.state.GenesisTime(); err != nil {
			return err
		} else if done {
			return ErrAlreadyInitialised
		}
		if err := c.pool.Init(c.cfg.InitialReserveA, c.cfg.InitialReserveB); err != nil {
			return fmt.Errorf("seed pool: %w", err)
		}
		if err := c.anchor.Init(now, c.cfg.AnchorWindow); err != nil {
			return fmt.Errorf("seed anchor: %w", err)
		}
		for _, holder := range holders {
			if err := c.syncHolder(holder, now); err != nil {
				return err
			}
		}
		return c.state.SetGenesisTime(now)
	})
}

func (c *Controller) requireGenesis() error {
	_, done, err := c.state.GenesisTime()
	if err != nil {
		return err
	}
	if !done {
		return ErrNotInitialised
	}
	return nil
}
