package common

import (
	"testing"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// Letters pass through, upper-cased
		{"AAPL", "AAPL"},
		{"aapl", "AAPL"},
		{"  nvda  ", "NVDA"},
		{"BRK-B", "BRK-B"},

		// Short numeric codes become Hong Kong tickers
		{"700", "0700.HK"},
		{"5", "0005.HK"},
		{"0700", "0700.HK"},
		{"9988", "9988.HK"},

		// 5+ digit codes are left bare for prefix matching
		{"601899", "601899"},
		{"000001", "000001"},
		{"00700", "00700"},

		// Suffixed tickers are authoritative
		{"0700.HK", "0700.HK"},
		{"0700.hk", "0700.HK"},
		{"601899.ss", "601899.SS"},
		{"700.HK", "700.HK"},

		// Edge cases
		{"", ""},
		{"   ", ""},
		{"12AB", "12AB"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeTicker(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTicker_Idempotent(t *testing.T) {
	inputs := []string{
		"AAPL", "aapl", "700", "0700.hk", "601899", "1", "12345", "x.y", " 42 ", "", "BRK.B", "٣", "ＡＢＣ",
	}

	for _, input := range inputs {
		once := NormalizeTicker(input)
		twice := NormalizeTicker(once)
		if once != twice {
			t.Errorf("NormalizeTicker not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestTickerDirName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700_HK"},
		{"601899.SS", "601899_SS"},
		{"0700.hk", "0700_HK"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := TickerDirName(tt.input); got != tt.want {
				t.Errorf("TickerDirName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTickerBase(t *testing.T) {
	if got := TickerBase("0700.HK"); got != "0700" {
		t.Errorf("TickerBase(0700.HK) = %q", got)
	}
	if got := TickerBase("AAPL"); got != "AAPL" {
		t.Errorf("TickerBase(AAPL) = %q", got)
	}
}

func TestCacheKey(t *testing.T) {
	// Unlike NormalizeTicker, CacheKey never pads numeric codes
	if got := CacheKey(" 0700.hk "); got != "0700.HK" {
		t.Errorf("CacheKey(0700.hk) = %q", got)
	}
	if got := CacheKey("700"); got != "700" {
		t.Errorf("CacheKey(700) = %q", got)
	}
}
