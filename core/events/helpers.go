package events

import (
	"math/big"
	"strings"

	"meltwater/crypto"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FormatAccount renders a raw account for event attributes. The zero account
// renders as an empty string.
func FormatAccount(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return ""
	}
	return crypto.FromRaw(raw).String()
}
