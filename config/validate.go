package config

import (
	"fmt"
	"strings"

	"meltwater/storage"
)

var (
	MinAnchorWindow = int64(1)
)

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	e := c.Engine
	if e.BiddingWindow.Duration <= 0 {
		return fmt.Errorf("engine: BiddingWindow must be positive")
	}
	if e.GracePeriod.Duration < 0 {
		return fmt.Errorf("engine: GracePeriod must not be negative")
	}
	if e.AnchorWindow.Duration != 0 && int64(e.AnchorWindow.Seconds()) < MinAnchorWindow {
		return fmt.Errorf("engine: AnchorWindow below %ds", MinAnchorWindow)
	}
	if _, err := ParseRate(e.AnnualRate); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	for name, value := range map[string]string{"InitialReserveH2O": e.InitialReserveH2O, "InitialReserveICE": e.InitialReserveICE} {
		amount, err := ParseAmount(value)
		if err != nil {
			return fmt.Errorf("engine: %s: %w", name, err)
		}
		if amount.Sign() <= 0 {
			return fmt.Errorf("engine: %s must be positive", name)
		}
	}
	if _, err := ResolveAccount(e.Owner); err != nil {
		return fmt.Errorf("engine: Owner: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "", storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if _, err := ParseAmount(c.Genesis.CustodyReserve); err != nil {
		return fmt.Errorf("genesis: CustodyReserve: %w", err)
	}
	if _, err := c.Genesis.SeededAccounts(); err != nil {
		return err
	}
	return nil
}
