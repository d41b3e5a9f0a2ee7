// Package mlgate applies an optional machine-learned probability gate to
// buy signals before they reach the ledger.
package mlgate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/pattern"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
)

// Features is the model input built from a classified pattern. The gate
// only forwards fields; it computes nothing itself.
type Features struct {
	Symbol             string
	Confidence         float64
	UptrendGainPct     float64
	DeclinePct         float64
	SupportVolatility  float64
	SupportVolumeRatio float64
	BreakoutVolRatio   float64
	BreakoutBodyGain   float64
}

// FeaturesFrom builds model features from a classified pattern.
func FeaturesFrom(stages *pattern.Stages) Features {
	return Features{
		Symbol:             stages.Symbol,
		Confidence:         stages.Confidence,
		UptrendGainPct:     stages.Uptrend.PriceGainPct,
		DeclinePct:         stages.Decline.DeclinePct,
		SupportVolatility:  stages.Support.PriceVolatilityPct,
		SupportVolumeRatio: stages.Support.AvgVolumeRatio,
		BreakoutVolRatio:   stages.Breakout.VolumeRatioVsPrev,
		BreakoutBodyGain:   stages.Breakout.BodyGainVsSupport,
	}
}

// Predictor scores features with a probability in [0, 1].
type Predictor interface {
	Predict(ctx context.Context, features Features) (float64, error)
}

// Gate vetoes signals whose predicted probability falls under the
// threshold. A prediction failure passes or vetoes according to
// configuration; the default passes, keeping the model advisory.
type Gate struct {
	predictor Predictor
	cfg       config.MLConfig
	logger    zerolog.Logger
}

// New creates a gate. A nil predictor disables the gate entirely.
func New(predictor Predictor, cfg config.MLConfig, logger zerolog.Logger) *Gate {
	return &Gate{predictor: predictor, cfg: cfg, logger: logger}
}

// Allow reports whether the signal may proceed.
func (g *Gate) Allow(ctx context.Context, stages *pattern.Stages) bool {
	if !g.cfg.Enabled || g.predictor == nil {
		return true
	}

	probability, err := g.predictor.Predict(ctx, FeaturesFrom(stages))
	if err != nil {
		g.logger.Warn().Err(err).Str("symbol", stages.Symbol).
			Bool("pass_on_error", g.cfg.PassOnError).
			Msg("ML prediction failed")
		return g.cfg.PassOnError
	}

	if probability < g.cfg.Threshold {
		g.logger.Info().
			Str("symbol", stages.Symbol).
			Float64("probability", probability).
			Float64("threshold", g.cfg.Threshold).
			Msg("Signal vetoed by ML gate")
		return false
	}
	return true
}
