// Package orb computes and validates the opening-range for the opening
// range breakout strategy.
package orb

import (
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// Range is the validated opening range for one symbol and session.
// Immutable once computed.
type Range struct {
	Symbol    string
	High      float64
	Low       float64
	RangeSize float64
	AvgVolume float64
	BarCount  int
}

// Midpoint returns the midpoint of the range.
func (r Range) Midpoint() float64 {
	return (r.High + r.Low) / 2
}

// RangeRatio returns rangeSize relative to the midpoint.
func (r Range) RangeRatio() float64 {
	mid := r.Midpoint()
	if mid <= 0 {
		return 0
	}
	return r.RangeSize / mid
}

// TakeProfit returns the take-profit level for the configured multiplier.
func (r Range) TakeProfit(multiplier float64) float64 {
	return r.High + r.RangeSize*multiplier
}

// Calculator computes opening ranges. Pure and stateless.
type Calculator struct {
	cfg config.ORBConfig
}

// NewCalculator creates a calculator with the given parameters.
func NewCalculator(cfg config.ORBConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// ComputeRange computes the opening range from the bars of the opening
// window. Returns ErrInsufficientBars when fewer than the minimum bar count
// is present, and ErrRangeOutOfBounds when rangeSize relative to the
// midpoint falls outside the configured band. A rejected symbol is excluded
// from intraday monitoring for the day.
func (c *Calculator) ComputeRange(window *models.BarWindow) (Range, error) {
	bars := window.Bars()
	if len(bars) < c.cfg.MinBars {
		return Range{}, apperrors.NewDataError("orb", window.Symbol(),
			"opening window too short", apperrors.ErrInsufficientBars)
	}

	r := Range{
		Symbol:   window.Symbol(),
		Low:      bars[0].Low,
		BarCount: len(bars),
	}
	var volSum int64
	for _, b := range bars {
		if b.High > r.High {
			r.High = b.High
		}
		if b.Low < r.Low {
			r.Low = b.Low
		}
		volSum += b.Volume
	}
	r.RangeSize = r.High - r.Low
	r.AvgVolume = float64(volSum) / float64(len(bars))

	ratio := r.RangeRatio()
	if ratio < c.cfg.MinRangeRatio || ratio > c.cfg.MaxRangeRatio {
		return Range{}, apperrors.NewDataError("orb", window.Symbol(),
			"range ratio outside band", apperrors.ErrRangeOutOfBounds)
	}
	return r, nil
}
