// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// HongKongSuffix is appended to short numeric codes.
const HongKongSuffix = ".HK"

// NormalizeTicker maps raw user input to the canonical ticker used as the cache key.
// Rules, in order:
//   - "  aapl " -> "AAPL" (upper-case, trimmed)
//   - "0700.hk" -> "0700.HK" (anything with a suffix is kept as given)
//   - "700" -> "0700.HK" (1 to 4 digits are zero-padded and get the Hong Kong suffix)
//   - "601899" -> "601899" (5+ digits are left for the symbol search prefix match)
//
// Normalizing an already canonical ticker returns it unchanged.
func NormalizeTicker(raw string) string {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" || strings.Contains(ticker, ".") {
		return ticker
	}

	if !isDigits(ticker) {
		return ticker
	}

	if len(ticker) <= 4 {
		return strings.Repeat("0", 4-len(ticker)) + ticker + HongKongSuffix
	}
	return ticker
}

// CacheKey is the storage key for an already canonical ticker. Backends apply it so
// lookups stay case-insensitive without re-running the numeric padding rules.
func CacheKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// TickerDirName converts a canonical ticker into a filesystem-safe directory name.
// The mapping is lossy: "BRK.B" and "BRK_B" share a name.
func TickerDirName(ticker string) string {
	return strings.ReplaceAll(strings.ToUpper(ticker), ".", "_")
}

// TickerBase returns the code before the suffix ("0700.HK" -> "0700").
func TickerBase(ticker string) string {
	if idx := strings.Index(ticker, "."); idx >= 0 {
		return ticker[:idx]
	}
	return ticker
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
