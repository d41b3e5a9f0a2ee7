// Package filters implements quality vetoes applied to classified pullback
// patterns before a signal is emitted. Filters are pure and stateless; a
// short or missing window always passes rather than erroring.
package filters

import (
	"fmt"
	"math"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/pattern"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// insufficientData is the pass-through reason for short windows.
const insufficientData = "insufficient data"

// leadUpBars is the number of bars before the breakout examined by the
// weak-signal heuristics.
const leadUpBars = 10

// StageFilter vetoes a classified pattern. Implementations must be pure:
// identical inputs always produce identical verdicts.
type StageFilter interface {
	Name() string
	ShouldExclude(stages *pattern.Stages, window *models.BarWindow) (bool, string)
}

// Chain runs filters in sequence and stops at the first veto.
type Chain []StageFilter

// ShouldExclude returns the first veto among the chained filters, naming
// the filter that produced it.
func (c Chain) ShouldExclude(stages *pattern.Stages, window *models.BarWindow) (bool, string) {
	for _, f := range c {
		if excluded, reason := f.ShouldExclude(stages, window); excluded {
			return true, fmt.Sprintf("%s: %s", f.Name(), reason)
		}
	}
	return false, ""
}

// NewChain builds the default filter chain from configuration.
func NewChain(cfg config.FilterConfig) Chain {
	return Chain{
		NewClosePositionFilter(cfg),
		NewSimplePatternFilter(cfg),
	}
}

// ClosePositionFilter rejects breakout candles that close in the lower
// portion of their own high-low range. A breakout closing near its low was
// rejected at the high, a leading indicator of failure.
type ClosePositionFilter struct {
	minCloseRatio float64
}

// NewClosePositionFilter creates the filter from configuration.
func NewClosePositionFilter(cfg config.FilterConfig) *ClosePositionFilter {
	return &ClosePositionFilter{minCloseRatio: cfg.MinCloseRatio}
}

// Name returns the filter name.
func (f *ClosePositionFilter) Name() string { return "close_position" }

// ShouldExclude vetoes when (close-low)/(high-low) falls under the
// configured floor. A degenerate range passes.
func (f *ClosePositionFilter) ShouldExclude(stages *pattern.Stages, _ *models.BarWindow) (bool, string) {
	if stages == nil {
		return false, insufficientData
	}
	candle := stages.Breakout.Candle
	barRange := candle.High - candle.Low
	if barRange <= 0 {
		return false, ""
	}
	position := (candle.Close - candle.Low) / barRange
	if position < f.minCloseRatio {
		return true, fmt.Sprintf("close position %.2f below %.2f", position, f.minCloseRatio)
	}
	return false, ""
}

// SimplePatternFilter rejects patterns whose lead-up window shows signs of
// a failing support leg: low confidence, excessive volatility, a broken
// support low, or a quorum of weak-signal heuristics.
type SimplePatternFilter struct {
	cfg config.FilterConfig
}

// NewSimplePatternFilter creates the filter from configuration.
func NewSimplePatternFilter(cfg config.FilterConfig) *SimplePatternFilter {
	return &SimplePatternFilter{cfg: cfg}
}

// Name returns the filter name.
func (f *SimplePatternFilter) Name() string { return "simple_pattern" }

// ShouldExclude applies the confidence floor, the hard volatility ceiling,
// and the weak-signal quorum over the bars leading up to the breakout.
func (f *SimplePatternFilter) ShouldExclude(stages *pattern.Stages, window *models.BarWindow) (bool, string) {
	if stages == nil || window == nil {
		return false, insufficientData
	}
	if stages.Confidence < f.cfg.MinConfidence {
		return true, fmt.Sprintf("confidence %.0f below %.0f", stages.Confidence, f.cfg.MinConfidence)
	}

	bars := window.Bars()
	if len(bars) < leadUpBars+1 {
		return false, insufficientData
	}
	leadUp := bars[len(bars)-1-leadUpBars : len(bars)-1]

	volatility := volatilityPct(leadUp)
	if volatility > f.cfg.MaxLeadUpVolatility {
		return true, fmt.Sprintf("lead-up volatility %.1f%% above %.1f%%", volatility, f.cfg.MaxLeadUpVolatility)
	}

	weak := 0
	var reasons []string

	if volatility > f.cfg.WeakVolatilityPct {
		weak++
		reasons = append(reasons, "volatility")
	}
	if trend := volumeTrendPct(leadUp); trend < f.cfg.WeakVolumeDeclinePct {
		weak++
		reasons = append(reasons, "volume decline")
	}
	if supportBroken(leadUp, f.cfg.SupportBreakRatio) {
		weak++
		reasons = append(reasons, "support break")
	}
	breakoutVol := float64(stages.Breakout.Candle.Volume)
	if avg := avgVolume(leadUp); avg > 0 && breakoutVol < f.cfg.WeakBreakoutVolRatio*avg {
		weak++
		reasons = append(reasons, "weak breakout volume")
	}

	if weak >= f.cfg.WeakSignalMin {
		return true, fmt.Sprintf("%d weak signals: %v", weak, reasons)
	}
	return false, ""
}

// volatilityPct returns stdev(close)/mean(close) as a percentage.
func volatilityPct(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += b.Close
	}
	m := sum / float64(len(bars))
	if m <= 0 {
		return 0
	}
	var ss float64
	for _, b := range bars {
		d := b.Close - m
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(bars))) / m * 100
}

// volumeTrendPct compares the second half of the window against the first
// half, as a percent change in average volume.
func volumeTrendPct(bars []models.Bar) float64 {
	if len(bars) < 4 {
		return 0
	}
	half := len(bars) / 2
	first := avgVolume(bars[:half])
	second := avgVolume(bars[half:])
	if first <= 0 {
		return 0
	}
	return (second - first) / first * 100
}

// supportBroken reports whether the most recent three bars undercut the low
// established by the earlier bars, beyond the given tolerance ratio.
func supportBroken(bars []models.Bar, ratio float64) bool {
	if len(bars) < 5 {
		return false
	}
	split := len(bars) - 3
	earlierLow := math.MaxFloat64
	for _, b := range bars[:split] {
		if b.Low < earlierLow {
			earlierLow = b.Low
		}
	}
	recentLow := math.MaxFloat64
	for _, b := range bars[split:] {
		if b.Low < recentLow {
			recentLow = b.Low
		}
	}
	return recentLow < earlierLow*ratio
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
