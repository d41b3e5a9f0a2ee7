// Package pattern implements the four-stage pullback pattern classifier:
// an uptrend, a shallow decline, a low-volume support consolidation, and a
// breakout candle.
package pattern

import (
	"math"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// UptrendStage describes the initial advance of a pullback pattern.
type UptrendStage struct {
	StartIdx     int
	EndIdx       int
	CandleCount  int
	PriceGainPct float64 // fractional, e.g. 0.059 for +5.9%
	MaxVolume    int64   // volume baseline for the later stages
}

// DeclineStage describes the pullback leg after the uptrend peak.
type DeclineStage struct {
	StartIdx       int
	EndIdx         int
	CandleCount    int
	DeclinePct     float64 // fractional drop from the uptrend peak close
	AvgVolumeRatio float64 // vs uptrend peak volume
}

// SupportStage describes the consolidation leg before the breakout.
type SupportStage struct {
	StartIdx           int
	EndIdx             int
	CandleCount        int
	PriceVolatilityPct float64 // stdev(close)/mean(close)
	AvgVolumeRatio     float64 // vs uptrend peak volume
	AvgBody            float64
	High               float64 // top of the consolidation range
}

// BreakoutStage describes the candle that resolves the pattern.
type BreakoutStage struct {
	Idx              int
	Candle           models.Bar
	VolumeRatioVsPrev float64
	BodySize         float64
	BodyGainVsSupport float64 // fractional increase vs support average body
}

// Stages is a fully classified four-stage pattern instance. Immutable after
// creation; indexes refer to positions within the scanned lookback slice.
type Stages struct {
	Symbol     string
	Uptrend    UptrendStage
	Decline    DeclineStage
	Support    SupportStage
	Breakout   BreakoutStage
	Confidence float64 // 0..100
}

// EntryPrice returns the suggested limit entry for the breakout candle,
// four fifths of the way from open to close. Buying the full close chases
// the candle; the discount keeps fills realistic on the next tick.
func (s *Stages) EntryPrice() float64 {
	c := s.Breakout.Candle
	return c.Open + 0.8*(c.Close-c.Open)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func avgVolume(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum int64
	for _, b := range bars {
		sum += b.Volume
	}
	return float64(sum) / float64(len(bars))
}
