package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration written as a Go duration string ("720h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Engine holds the settlement parameters.
type Engine struct {
	// Owner may call administrative operations. Bech32, hex, or a label that
	// is hashed into an address.
	Owner               string   `toml:"Owner"`
	BiddingWindow       Duration `toml:"BiddingWindow"`
	GracePeriod         Duration `toml:"GracePeriod"`
	AnchorWindow        Duration `toml:"AnchorWindow"`
	AnnualRate          string   `toml:"AnnualRate"`
	InitialReserveH2O   string   `toml:"InitialReserveH2O"`
	InitialReserveICE   string   `toml:"InitialReserveICE"`
	RescaleOnSettlement bool     `toml:"RescaleOnSettlement"`
}

// Storage selects the state backend and the event journal.
type Storage struct {
	Backend     string `toml:"Backend"`
	Path        string `toml:"Path"`
	JournalPath string `toml:"JournalPath"`
}

// Logging mirrors logging.Options.
type Logging struct {
	Env        string `toml:"Env"`
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	// Headers is a comma separated key=value list.
	Headers string `toml:"Headers"`
	Traces  bool   `toml:"Traces"`
	Metrics bool   `toml:"Metrics"`
}

// Metrics configures the status and Prometheus listener.
type Metrics struct {
	ListenAddress string `toml:"ListenAddress"`
}

// GenesisAccount seeds balances on first start. Amounts are whole units with
// an optional fraction ("12.5").
type GenesisAccount struct {
	Address string `toml:"Address"`
	H2O     string `toml:"H2O"`
	ICE     string `toml:"ICE"`
	Coin    string `toml:"Coin"`
}

// Genesis lists the seeded accounts and the Coin held in custody.
type Genesis struct {
	CustodyReserve string           `toml:"CustodyReserve"`
	Accounts       []GenesisAccount `toml:"accounts"`
}
