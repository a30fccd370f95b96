package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meltwater/core"
	"meltwater/observability/logging"
	"meltwater/observability/metrics"
	telemetry "meltwater/observability/otel"
)

// statusView is the JSON rendering of a controller snapshot.
type statusView struct {
	Time           int64        `json:"time"`
	ReserveH2O     string       `json:"reserve_h2o"`
	ReserveICE     string       `json:"reserve_ice"`
	SpotPrice      string       `json:"spot_price"`
	AnchorPrice    string       `json:"anchor_price"`
	AnchorSampled  int64        `json:"anchor_sampled_at"`
	AnchorWindow   string       `json:"anchor_window"`
	H2OSupply      string       `json:"h2o_supply"`
	ICESupply      string       `json:"ice_supply"`
	TargetSupply   string       `json:"target_supply"`
	Deviation      string       `json:"deviation"`
	Eligible       string       `json:"eligible"`
	AnnualRate     string       `json:"annual_rate"`
	CustodyReserve string       `json:"custody_reserve"`
	Auction        *auctionView `json:"auction,omitempty"`
	Paused         []string     `json:"paused,omitempty"`
}

type auctionView struct {
	Kind          string `json:"kind"`
	InitiatedAt   int64  `json:"initiated_at"`
	EscrowAmount  string `json:"escrow_amount"`
	LeadingBid    string `json:"leading_bid"`
	LeadingBidder string `json:"leading_bidder"`
}

func newStatusView(snap *core.Snapshot) statusView {
	view := statusView{
		Time:           snap.Now,
		ReserveH2O:     formatUnits(snap.Reserves.ReserveA),
		ReserveICE:     formatUnits(snap.Reserves.ReserveB),
		SpotPrice:      formatUnits(snap.SpotPriceB),
		AnchorPrice:    formatUnits(snap.Anchor.Price),
		AnchorSampled:  snap.Anchor.SampledAt,
		AnchorWindow:   snap.AnchorWindow.String(),
		H2OSupply:      formatUnits(snap.H2OSupply),
		ICESupply:      formatUnits(snap.ICESupply),
		TargetSupply:   formatUnits(snap.TargetSupply),
		Deviation:      formatUnits(snap.Deviation),
		Eligible:       snap.Eligible.String(),
		AnnualRate:     snap.AnnualRate.FloatString(6),
		CustodyReserve: formatUnits(snap.CustodyReserve),
		Paused:         snap.Paused,
	}
	if snap.Auction != nil {
		view.Auction = &auctionView{
			Kind:          snap.Auction.Kind.String(),
			InitiatedAt:   snap.Auction.InitiatedAt,
			EscrowAmount:  formatUnits(snap.Auction.EscrowAmount),
			LeadingBid:    formatUnits(snap.Auction.LeadingBid),
			LeadingBidder: accountString(snap.Auction.LeadingBidder),
		}
	}
	return view
}

// newRouter exposes read-only engine state and the Prometheus registry.
func newRouter(e *engine, m *metrics.EngineMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		snap, err := e.ctrl.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		m.SetReserves(snap.Reserves.ReserveA, snap.Reserves.ReserveB)
		writeJSON(w, http.StatusOK, newStatusView(snap))
	})
	r.Get("/auction", func(w http.ResponseWriter, r *http.Request) {
		snap, err := e.ctrl.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		view := newStatusView(snap)
		if view.Auction == nil {
			writeJSON(w, http.StatusOK, map[string]string{"state": "idle", "eligible": view.Eligible})
			return
		}
		writeJSON(w, http.StatusOK, view.Auction)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(serveCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	listen := fs.String("listen", "", "Listen address (defaults to metrics.listen_address)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.Engine()
	e, closer, err := loadEngine(ctx, *configPath, engineOptions{metrics: m})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer e.Close()

	headers := telemetry.ParseHeaders(e.cfg.Telemetry.Headers)
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "settlectl",
		Environment: e.cfg.Logging.Env,
		Endpoint:    e.cfg.Telemetry.Endpoint,
		Insecure:    e.cfg.Telemetry.Insecure,
		Headers:     headers,
		Metrics:     e.cfg.Telemetry.Metrics,
		Traces:      e.cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			e.logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()
	e.ctrl.SetTracer(telemetry.Tracer())
	if e.cfg.Telemetry.Endpoint != "" {
		e.logger.Info("telemetry configured",
			slog.String("endpoint", e.cfg.Telemetry.Endpoint),
			logging.MaskHeaders(headers))
	}

	addr := *listen
	if addr == "" {
		addr = e.cfg.Metrics.ListenAddress
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(e, m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("serving settlement status", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
