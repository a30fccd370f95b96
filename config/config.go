package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"meltwater/native/anchor"
	"meltwater/native/auction"
)

type Config struct {
	Engine    Engine    `toml:"engine"`
	Storage   Storage   `toml:"storage"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
	Metrics   Metrics   `toml:"metrics"`
	Genesis   Genesis   `toml:"genesis"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		Engine: Engine{
			Owner:               "owner",
			BiddingWindow:       Duration{auction.DefaultBiddingWindow},
			GracePeriod:         Duration{auction.DefaultGracePeriod},
			AnchorWindow:        Duration{anchor.DefaultWindow},
			AnnualRate:          "0.02",
			InitialReserveH2O:   "100000",
			InitialReserveICE:   "100000",
			RescaleOnSettlement: true,
		},
		Storage: Storage{
			Backend:     "leveldb",
			Path:        "./meltwater-data/state",
			JournalPath: "./meltwater-data/journal.db",
		},
		Logging: Logging{
			Env:   "local",
			Level: "info",
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
			Insecure: true,
		},
		Metrics: Metrics{
			ListenAddress: "127.0.0.1:9464",
		},
		Genesis: Genesis{
			CustodyReserve: "0",
			Accounts:       []GenesisAccount{},
		},
	}
}

// Load loads the configuration from the given path, writing the defaults there
// first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Genesis.Accounts == nil {
		cfg.Genesis.Accounts = []GenesisAccount{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// AuctionParams returns the configured auction timeline.
func (e Engine) AuctionParams() auction.Params {
	return auction.Params{BiddingWindow: e.BiddingWindow.Duration, GracePeriod: e.GracePeriod.Duration}
}

// Window returns the anchor window, falling back to the default.
func (e Engine) Window() time.Duration {
	if e.AnchorWindow.Duration <= 0 {
		return anchor.DefaultWindow
	}
	return e.AnchorWindow.Duration
}
