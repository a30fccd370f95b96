package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"meltwater/config"
	"meltwater/core"
	"meltwater/crypto"
	"meltwater/observability/logging"
	"meltwater/native/pool"
)

const (
	initCommand    = "init"
	statusCommand  = "status"
	previewCommand = "preview"
	replayCommand  = "replay"
	serveCommand   = "serve"
	defaultConfig  = "./config.toml"
)

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case initCommand:
		err = runInit(ctx, os.Args[2:], os.Stdout)
	case statusCommand:
		err = runStatus(ctx, os.Args[2:], os.Stdout)
	case previewCommand:
		err = runPreview(ctx, os.Args[2:], os.Stdout)
	case replayCommand:
		err = runReplay(ctx, os.Args[2:], os.Stdout)
	case serveCommand:
		err = runServe(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("settlectl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s     Write the default config and apply genesis\n", initCommand)
	fmt.Printf("  %s   Print pool, anchor, supply and auction state\n", statusCommand)
	fmt.Printf("  %s  Quote a swap without executing it\n", previewCommand)
	fmt.Printf("  %s   Execute a YAML scenario against the engine\n", replayCommand)
	fmt.Printf("  %s    Serve status and Prometheus metrics over HTTP\n", serveCommand)
}

// loadEngine reads the config and opens the engine with logging set up from
// it.
func loadEngine(ctx context.Context, path string, opts engineOptions) (*engine, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, closer := logging.SetupWithOptions(logging.Options{
		Service:    "settlectl",
		Env:        cfg.Logging.Env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     os.Stderr,
	})
	e, err := openEngine(ctx, cfg, logger, opts)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return e, closer, nil
}

func runInit(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(initCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	genesisTime := fs.Int64("time", 0, "Genesis unix time (defaults to now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, closer, err := loadEngine(ctx, *configPath, engineOptions{genesisTime: *genesisTime})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer e.Close()
	genesis, _, err := e.state.GenesisTime()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "genesis: %s\n", time.Unix(genesis, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "owner:   %s\n", e.owner)
	fmt.Fprintf(out, "module:  %s\n", moduleAccount)
	return nil
}

func runStatus(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(statusCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	asJSON := fs.Bool("json", false, "Print the snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, closer, err := loadEngine(ctx, *configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer e.Close()
	snap, err := e.ctrl.Snapshot(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newStatusView(snap))
	}
	writeStatus(out, snap)
	return nil
}

func writeStatus(out io.Writer, snap *core.Snapshot) {
	fmt.Fprintf(out, "time:           %s\n", time.Unix(snap.Now, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "pool H2O:       %s\n", formatUnits(snap.Reserves.ReserveA))
	fmt.Fprintf(out, "pool ICE:       %s\n", formatUnits(snap.Reserves.ReserveB))
	fmt.Fprintf(out, "spot ICE/H2O:   %s\n", formatUnits(snap.SpotPriceB))
	fmt.Fprintf(out, "anchor:         %s (sampled %s, window %s)\n", formatUnits(snap.Anchor.Price),
		time.Unix(snap.Anchor.SampledAt, 0).UTC().Format(time.RFC3339), snap.AnchorWindow)
	fmt.Fprintf(out, "H2O supply:     %s\n", formatUnits(snap.H2OSupply))
	fmt.Fprintf(out, "ICE supply:     %s\n", formatUnits(snap.ICESupply))
	fmt.Fprintf(out, "target supply:  %s\n", formatUnits(snap.TargetSupply))
	fmt.Fprintf(out, "deviation:      %s\n", formatUnits(snap.Deviation))
	fmt.Fprintf(out, "eligible:       %s\n", snap.Eligible)
	fmt.Fprintf(out, "annual rate:    %s\n", snap.AnnualRate.FloatString(6))
	fmt.Fprintf(out, "custody:        %s\n", formatUnits(snap.CustodyReserve))
	if snap.Auction != nil {
		fmt.Fprintf(out, "auction:        %s escrow=%s leading=%s by %s since %s\n",
			snap.Auction.Kind, formatUnits(snap.Auction.EscrowAmount), formatUnits(snap.Auction.LeadingBid),
			accountString(snap.Auction.LeadingBidder), time.Unix(snap.Auction.InitiatedAt, 0).UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "auction:        idle")
	}
	if len(snap.Paused) > 0 {
		fmt.Fprintf(out, "paused:         %v\n", snap.Paused)
	}
}

func runPreview(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(previewCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	direction := fs.String("direction", "h2o-ice", "Swap direction: h2o-ice or ice-h2o")
	amount := fs.String("amount", "", "Input amount in whole units")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amountIn, err := config.ParseAmount(*amount)
	if err != nil {
		return err
	}
	dir, err := parseDirection(*direction)
	if err != nil {
		return err
	}
	e, closer, err := loadEngine(ctx, *configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer e.Close()

	quote := e.ctrl.PreviewSwapH2OForICE
	in, outSymbol := symbolH2O, symbolICE
	if dir == pool.BToA {
		quote = e.ctrl.PreviewSwapICEForH2O
		in, outSymbol = symbolICE, symbolH2O
	}
	amountOut, err := quote(ctx, amountIn)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s -> %s %s\n", formatUnits(amountIn), in, formatUnits(amountOut), outSymbol)
	return nil
}

func parseDirection(value string) (pool.Direction, error) {
	switch value {
	case "h2o-ice", "h2o_for_ice":
		return pool.AToB, nil
	case "ice-h2o", "ice_for_h2o":
		return pool.BToA, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", errUsage, value)
	}
}

func accountString(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return "-"
	}
	return crypto.FromRaw(raw).String()
}
