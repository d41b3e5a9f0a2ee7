// Package config provides configuration management for the signal engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Pattern PatternConfig `mapstructure:"pattern"`
	Scorer  ScorerConfig  `mapstructure:"scorer"`
	ORB     ORBConfig     `mapstructure:"orb"`
	Filters FilterConfig  `mapstructure:"filters"`
	Risk    RiskConfig    `mapstructure:"risk"`
	ML      MLConfig      `mapstructure:"ml"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Session SessionConfig `mapstructure:"session"`
	Store   StoreConfig   `mapstructure:"store"`
}

// PatternConfig holds the four-stage pattern classifier thresholds.
type PatternConfig struct {
	Lookback               int     `mapstructure:"lookback"`         // bars scanned for a pattern
	UptrendMinGain         float64 `mapstructure:"uptrend_min_gain"` // cumulative close-to-close gain
	UptrendMinCandles      int     `mapstructure:"uptrend_min_candles"`
	DeclineMinPct          float64 `mapstructure:"decline_min_pct"` // vs uptrend peak close
	DeclineMaxPct          float64 `mapstructure:"decline_max_pct"` // deeper declines disqualify
	DeclineMinCandles      int     `mapstructure:"decline_min_candles"`
	SupportMaxVolatility   float64 `mapstructure:"support_max_volatility"`    // stdev(close)/mean(close)
	SupportMaxVolumeRatio  float64 `mapstructure:"support_max_volume_ratio"`  // vs uptrend peak volume
	BreakoutMinVolumeRatio float64 `mapstructure:"breakout_min_volume_ratio"` // vs previous bar
	BreakoutBaselineRatio  float64 `mapstructure:"breakout_baseline_ratio"`   // vs uptrend peak volume
	BreakoutMinBodyGain    float64 `mapstructure:"breakout_min_body_gain"`    // vs support average body
}

// ScorerRuleWeights enumerates every candidate scoring rule explicitly.
type ScorerRuleWeights struct {
	NewHigh200d      int `mapstructure:"new_high_200d"`
	NewHigh100d      int `mapstructure:"new_high_100d"`
	NewHighOther     int `mapstructure:"new_high_other"`
	EnvelopeBreakout int `mapstructure:"envelope_breakout"`
	PositiveCandle   int `mapstructure:"positive_candle"`
	AboveMidPrice    int `mapstructure:"above_mid_price"`
	VolumeSurge3x    int `mapstructure:"volume_surge_3x"`
	VolumeSurge2x    int `mapstructure:"volume_surge_2x"`
	Turnover         int `mapstructure:"turnover"`
	IntradayRise     int `mapstructure:"intraday_rise"`
}

// Sum returns the maximum attainable score.
func (w ScorerRuleWeights) Sum() int {
	return w.NewHigh200d + w.EnvelopeBreakout + w.PositiveCandle + w.AboveMidPrice +
		w.VolumeSurge3x + w.Turnover + w.IntradayRise
}

// ScorerConfig holds the pre-market candidate scoring thresholds.
type ScorerConfig struct {
	MinScore              int               `mapstructure:"min_score"`
	NewHighThreshold      float64           `mapstructure:"new_high_threshold"` // close vs max weekly close
	EnvelopeMAPeriod      int               `mapstructure:"envelope_ma_period"`
	EnvelopeUpperRatio    float64           `mapstructure:"envelope_upper_ratio"`
	VolumeAvgPeriod       int               `mapstructure:"volume_avg_period"`
	VolumeSurgeHigh       float64           `mapstructure:"volume_surge_high"` // x3 tier
	VolumeSurgeMid        float64           `mapstructure:"volume_surge_mid"`  // x2 tier
	MinTradingAmount      float64           `mapstructure:"min_trading_amount"`
	MinAvgTradingAmount5d float64           `mapstructure:"min_avg_trading_amount_5d"`
	MaxOpenGapRatio       float64           `mapstructure:"max_open_gap_ratio"`
	MaxCloseChangeRatio   float64           `mapstructure:"max_close_change_ratio"`
	IntradayRiseThreshold float64           `mapstructure:"intraday_rise_threshold"`
	Weights               ScorerRuleWeights `mapstructure:"weights"`
}

// ORBConfig holds the opening-range breakout parameters.
type ORBConfig struct {
	MinBars              int     `mapstructure:"min_bars"`
	MinRangeRatio        float64 `mapstructure:"min_range_ratio"`
	MaxRangeRatio        float64 `mapstructure:"max_range_ratio"`
	BreakoutBuffer       float64 `mapstructure:"breakout_buffer"`
	VolumeSurgeRatio     float64 `mapstructure:"volume_surge_ratio"`
	TakeProfitMultiplier float64 `mapstructure:"take_profit_multiplier"`
}

// FilterConfig holds the quality-filter thresholds.
type FilterConfig struct {
	MinCloseRatio        float64 `mapstructure:"min_close_ratio"`        // close position within breakout range
	MinConfidence        float64 `mapstructure:"min_confidence"`         // hard floor
	MaxLeadUpVolatility  float64 `mapstructure:"max_leadup_volatility"`  // percent
	SupportBreakRatio    float64 `mapstructure:"support_break_ratio"`    // recent low vs earlier low
	WeakVolatilityPct    float64 `mapstructure:"weak_volatility_pct"`    // percent, weak-signal heuristic
	WeakVolumeDeclinePct float64 `mapstructure:"weak_volume_decline_pct"`
	WeakBreakoutVolRatio float64 `mapstructure:"weak_breakout_vol_ratio"`
	WeakSignalMin        int     `mapstructure:"weak_signal_min"` // heuristics required to veto
	FiltersBeforeML      bool    `mapstructure:"filters_before_ml"`
}

// RiskConfig holds the ledger risk limits.
type RiskConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	PerSymbolCap   float64 `mapstructure:"per_symbol_cap"`
	MaxPositions   int     `mapstructure:"max_positions"`
}

// MLConfig holds the optional ML gate configuration.
type MLConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Threshold   float64 `mapstructure:"threshold"`
	PassOnError bool    `mapstructure:"pass_on_error"`
}

// ScanConfig holds the pre-market scan scheduling parameters.
type ScanConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	BatchSize   int           `mapstructure:"batch_size"`
	BatchPause  time.Duration `mapstructure:"batch_pause"`
}

// SessionConfig holds the intraday time windows, as "HH:MM" local times.
type SessionConfig struct {
	MarketOpen      string `mapstructure:"market_open"`
	ORBEnd          string `mapstructure:"orb_end"`
	BuyStart        string `mapstructure:"buy_start"`
	BuyEnd          string `mapstructure:"buy_end"`
	LiquidationTime string `mapstructure:"liquidation_time"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/robotrader"
	}
	return filepath.Join(home, ".config", "robotrader")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. A missing config file is not
// an error; defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Pattern classifier
	v.SetDefault("pattern.lookback", 30)
	v.SetDefault("pattern.uptrend_min_gain", 0.03)
	v.SetDefault("pattern.uptrend_min_candles", 2)
	v.SetDefault("pattern.decline_min_pct", 0.005)
	v.SetDefault("pattern.decline_max_pct", 0.05)
	v.SetDefault("pattern.decline_min_candles", 1)
	v.SetDefault("pattern.support_max_volatility", 0.015)
	v.SetDefault("pattern.support_max_volume_ratio", 0.25)
	v.SetDefault("pattern.breakout_min_volume_ratio", 1.0)
	v.SetDefault("pattern.breakout_baseline_ratio", 0.5)
	v.SetDefault("pattern.breakout_min_body_gain", 0.1)

	// Candidate scorer
	v.SetDefault("scorer.min_score", 50)
	v.SetDefault("scorer.new_high_threshold", 0.98)
	v.SetDefault("scorer.envelope_ma_period", 10)
	v.SetDefault("scorer.envelope_upper_ratio", 1.10)
	v.SetDefault("scorer.volume_avg_period", 20)
	v.SetDefault("scorer.volume_surge_high", 3.0)
	v.SetDefault("scorer.volume_surge_mid", 2.0)
	v.SetDefault("scorer.min_trading_amount", 5_000_000_000.0)
	v.SetDefault("scorer.min_avg_trading_amount_5d", 5_000_000_000.0)
	v.SetDefault("scorer.max_open_gap_ratio", 0.07)
	v.SetDefault("scorer.max_close_change_ratio", 0.10)
	v.SetDefault("scorer.intraday_rise_threshold", 0.03)
	v.SetDefault("scorer.weights.new_high_200d", 25)
	v.SetDefault("scorer.weights.new_high_100d", 20)
	v.SetDefault("scorer.weights.new_high_other", 15)
	v.SetDefault("scorer.weights.envelope_breakout", 15)
	v.SetDefault("scorer.weights.positive_candle", 10)
	v.SetDefault("scorer.weights.above_mid_price", 10)
	v.SetDefault("scorer.weights.volume_surge_3x", 25)
	v.SetDefault("scorer.weights.volume_surge_2x", 15)
	v.SetDefault("scorer.weights.turnover", 15)
	v.SetDefault("scorer.weights.intraday_rise", 20)

	// Opening range
	v.SetDefault("orb.min_bars", 5)
	v.SetDefault("orb.min_range_ratio", 0.003)
	v.SetDefault("orb.max_range_ratio", 0.025)
	v.SetDefault("orb.breakout_buffer", 0.0)
	v.SetDefault("orb.volume_surge_ratio", 2.0)
	v.SetDefault("orb.take_profit_multiplier", 2.5)

	// Quality filters
	v.SetDefault("filters.min_close_ratio", 0.55)
	v.SetDefault("filters.min_confidence", 30.0)
	v.SetDefault("filters.max_leadup_volatility", 7.0)
	v.SetDefault("filters.support_break_ratio", 0.98)
	v.SetDefault("filters.weak_volatility_pct", 3.0)
	v.SetDefault("filters.weak_volume_decline_pct", -50.0)
	v.SetDefault("filters.weak_breakout_vol_ratio", 0.8)
	v.SetDefault("filters.weak_signal_min", 2)
	v.SetDefault("filters.filters_before_ml", true)

	// Risk
	v.SetDefault("risk.initial_balance", 10_000_000.0)
	v.SetDefault("risk.per_symbol_cap", 1_000_000.0)
	v.SetDefault("risk.max_positions", 10)

	// ML gate
	v.SetDefault("ml.enabled", false)
	v.SetDefault("ml.threshold", 0.5)
	v.SetDefault("ml.pass_on_error", true)

	// Scan
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.batch_size", 20)
	v.SetDefault("scan.batch_pause", 500*time.Millisecond)

	// Session times
	v.SetDefault("session.market_open", "09:00")
	v.SetDefault("session.orb_end", "09:10")
	v.SetDefault("session.buy_start", "09:10")
	v.SetDefault("session.buy_end", "14:50")
	v.SetDefault("session.liquidation_time", "15:00")

	// Store
	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "trader.db"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROBOTRADER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate validates the configuration. All failures wrap ErrConfigInvalid.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Pattern.Lookback < 5 {
		return fmt.Errorf("pattern.lookback must be at least 5")
	}
	if c.Pattern.UptrendMinGain <= 0 {
		return fmt.Errorf("pattern.uptrend_min_gain must be positive")
	}
	if c.Pattern.DeclineMinPct <= 0 || c.Pattern.DeclineMaxPct <= c.Pattern.DeclineMinPct {
		return fmt.Errorf("pattern decline band [%.4f, %.4f] is invalid",
			c.Pattern.DeclineMinPct, c.Pattern.DeclineMaxPct)
	}
	if c.ORB.MinRangeRatio <= 0 || c.ORB.MaxRangeRatio <= c.ORB.MinRangeRatio {
		return fmt.Errorf("orb range band [%.4f, %.4f] is invalid",
			c.ORB.MinRangeRatio, c.ORB.MaxRangeRatio)
	}
	if c.ORB.VolumeSurgeRatio < 1 {
		return fmt.Errorf("orb.volume_surge_ratio must be at least 1")
	}
	if sum := c.Scorer.Weights.Sum(); sum < c.Scorer.MinScore {
		return fmt.Errorf("scorer weights sum %d below min_score %d: no symbol can qualify", sum, c.Scorer.MinScore)
	}
	if c.Filters.MinCloseRatio < 0 || c.Filters.MinCloseRatio > 1 {
		return fmt.Errorf("filters.min_close_ratio must be within [0, 1]")
	}
	if c.Filters.WeakSignalMin < 1 || c.Filters.WeakSignalMin > 4 {
		return fmt.Errorf("filters.weak_signal_min must be within [1, 4]")
	}
	if c.ML.Threshold < 0 || c.ML.Threshold > 1 {
		return fmt.Errorf("ml.threshold must be within [0, 1]")
	}
	if c.Risk.InitialBalance <= 0 {
		return fmt.Errorf("risk.initial_balance must be positive")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be positive")
	}
	for _, t := range []struct {
		name, value string
	}{
		{"session.market_open", c.Session.MarketOpen},
		{"session.orb_end", c.Session.ORBEnd},
		{"session.buy_start", c.Session.BuyStart},
		{"session.buy_end", c.Session.BuyEnd},
		{"session.liquidation_time", c.Session.LiquidationTime},
	} {
		if _, err := time.Parse("15:04", t.value); err != nil {
			return fmt.Errorf("%s: invalid time %q", t.name, t.value)
		}
	}
	return nil
}
