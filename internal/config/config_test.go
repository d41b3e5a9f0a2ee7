package config

import (
	"testing"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateWrapsConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"lookback too small", func(c *Config) { c.Pattern.Lookback = 3 }},
		{"inverted decline band", func(c *Config) { c.Pattern.DeclineMaxPct = c.Pattern.DeclineMinPct }},
		{"inverted range band", func(c *Config) { c.ORB.MaxRangeRatio = c.ORB.MinRangeRatio }},
		{"unreachable min score", func(c *Config) { c.Scorer.MinScore = 1000 }},
		{"weak quorum out of range", func(c *Config) { c.Filters.WeakSignalMin = 5 }},
		{"bad session time", func(c *Config) { c.Session.BuyEnd = "2:50pm" }},
		{"zero balance", func(c *Config) { c.Risk.InitialBalance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("err = %v, want ErrConfigInvalid", err)
			}
		})
	}
}
