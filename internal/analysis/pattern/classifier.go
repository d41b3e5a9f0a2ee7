package pattern

import (
	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// Classifier detects four-stage pullback patterns in a bar window. It is a
// pure function of the window contents and its configuration: no I/O, and
// identical windows always produce identical results.
type Classifier struct {
	cfg    config.PatternConfig
	logger zerolog.Logger
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg config.PatternConfig, logger zerolog.Logger) *Classifier {
	return &Classifier{cfg: cfg, logger: logger}
}

// Classify scans the most recent bars of the window for a complete pullback
// pattern ending at the last bar. Returns nil when no pattern is present.
//
// Stages are located by a backward scan from the last bar: the breakout is
// the last bar itself, the support run is the maximal run of non-falling
// closes before it, the decline is the maximal run of falling closes before
// the support, and the uptrend is the maximal run of rising closes before
// the decline. Boundaries are therefore contiguous, non-overlapping, and
// each run is the longest one ending closest to the breakout.
func (c *Classifier) Classify(window *models.BarWindow) *Stages {
	bars := window.Tail(c.cfg.Lookback)
	n := len(bars)

	// breakout + support + decline + uptrend at their minimum counts
	minBars := 1 + 1 + c.cfg.DeclineMinCandles + c.cfg.UptrendMinCandles
	if n < minBars {
		return nil
	}

	breakoutIdx := n - 1
	breakout := bars[breakoutIdx]
	prev := bars[breakoutIdx-1]
	if !c.breakoutShape(breakout, prev) {
		return nil
	}

	// Support: the maximal run of non-falling closes walking backward from
	// the bar before the breakout. A falling close belongs to the decline.
	i := breakoutIdx - 1
	for i >= 1 && bars[i].Close >= bars[i-1].Close {
		i--
	}
	supportStart := i + 1
	if supportStart > breakoutIdx-1 {
		// The bar before the breakout fell; there is no consolidation.
		return nil
	}
	supportBars := bars[supportStart:breakoutIdx]

	// Decline: the maximal run of falling closes before the support run.
	// bars[i] fell by construction of the loop above.
	if i < 1 {
		return nil
	}
	declineEnd := i
	for i >= 1 && bars[i].Close < bars[i-1].Close {
		i--
	}
	declineStart := i + 1
	declineBars := bars[declineStart : declineEnd+1]
	if len(declineBars) < c.cfg.DeclineMinCandles {
		return nil
	}

	// Uptrend: rising closes before the decline. bars[i] is the peak the
	// first decline bar fell from, so it closes the uptrend.
	uptrendEnd := i
	for i >= 1 && bars[i].Close > bars[i-1].Close {
		i--
	}
	uptrendStart := i
	uptrendBars := bars[uptrendStart : uptrendEnd+1]
	if len(uptrendBars) < c.cfg.UptrendMinCandles {
		return nil
	}

	uptrend, ok := c.buildUptrend(uptrendStart, uptrendEnd, uptrendBars)
	if !ok {
		return nil
	}
	decline, ok := c.buildDecline(declineStart, declineEnd, declineBars, uptrend, uptrendBars[len(uptrendBars)-1].Close)
	if !ok {
		return nil
	}
	support, ok := c.buildSupport(supportStart, breakoutIdx-1, supportBars, uptrend)
	if !ok {
		return nil
	}
	bk, ok := c.buildBreakout(breakoutIdx, breakout, prev, uptrend, support)
	if !ok {
		return nil
	}

	stages := &Stages{
		Symbol:   window.Symbol(),
		Uptrend:  uptrend,
		Decline:  decline,
		Support:  support,
		Breakout: bk,
	}
	stages.Confidence = confidence(stages)

	logging.LogPattern(c.logger, stages.Symbol, stages.Confidence,
		uptrend.CandleCount, decline.CandleCount, support.CandleCount)

	return stages
}

// breakoutShape checks the structural requirements of the breakout candle
// against its predecessor. Threshold requirements come later; a candle that
// fails these is not a breakout at all.
func (c *Classifier) breakoutShape(breakout, prev models.Bar) bool {
	if !breakout.Bullish() {
		return false
	}
	if breakout.Close <= prev.Close || breakout.High <= prev.High {
		return false
	}
	return breakout.Volume > prev.Volume
}

func (c *Classifier) buildUptrend(start, end int, bars []models.Bar) (UptrendStage, bool) {
	first := bars[0]
	last := bars[len(bars)-1]
	if first.Open <= 0 {
		return UptrendStage{}, false
	}
	gain := (last.Close - first.Open) / first.Open
	if gain < c.cfg.UptrendMinGain {
		return UptrendStage{}, false
	}
	var maxVol int64
	for _, b := range bars {
		if b.Volume > maxVol {
			maxVol = b.Volume
		}
	}
	return UptrendStage{
		StartIdx:     start,
		EndIdx:       end,
		CandleCount:  len(bars),
		PriceGainPct: gain,
		MaxVolume:    maxVol,
	}, true
}

// buildDecline measures the pullback depth from the uptrend peak close to
// the decline end close.
func (c *Classifier) buildDecline(start, end int, bars []models.Bar, uptrend UptrendStage, peakClose float64) (DeclineStage, bool) {
	endClose := bars[len(bars)-1].Close
	if peakClose <= 0 {
		return DeclineStage{}, false
	}
	drop := (peakClose - endClose) / peakClose
	if drop < c.cfg.DeclineMinPct || drop > c.cfg.DeclineMaxPct {
		return DeclineStage{}, false
	}
	ratio := 0.0
	if uptrend.MaxVolume > 0 {
		ratio = avgVolume(bars) / float64(uptrend.MaxVolume)
	}
	return DeclineStage{
		StartIdx:       start,
		EndIdx:         end,
		CandleCount:    len(bars),
		DeclinePct:     drop,
		AvgVolumeRatio: ratio,
	}, true
}

func (c *Classifier) buildSupport(start, end int, bars []models.Bar, uptrend UptrendStage) (SupportStage, bool) {
	cs := closes(bars)
	m := mean(cs)
	if m <= 0 {
		return SupportStage{}, false
	}
	vol := stdev(cs) / m
	if vol > c.cfg.SupportMaxVolatility {
		return SupportStage{}, false
	}
	ratio := 1.0
	if uptrend.MaxVolume > 0 {
		ratio = avgVolume(bars) / float64(uptrend.MaxVolume)
	}
	if ratio > c.cfg.SupportMaxVolumeRatio {
		return SupportStage{}, false
	}
	var bodies float64
	high := 0.0
	for _, b := range bars {
		bodies += b.Body()
		if b.High > high {
			high = b.High
		}
	}
	return SupportStage{
		StartIdx:           start,
		EndIdx:             end,
		CandleCount:        len(bars),
		PriceVolatilityPct: vol,
		AvgVolumeRatio:     ratio,
		AvgBody:            bodies / float64(len(bars)),
		High:               high,
	}, true
}

func (c *Classifier) buildBreakout(idx int, breakout, prev models.Bar, uptrend UptrendStage, support SupportStage) (BreakoutStage, bool) {
	if breakout.Close <= support.High {
		return BreakoutStage{}, false
	}
	volRatio := 0.0
	if prev.Volume > 0 {
		volRatio = float64(breakout.Volume) / float64(prev.Volume)
	}
	if volRatio < c.cfg.BreakoutMinVolumeRatio {
		return BreakoutStage{}, false
	}
	// A breakout on a fraction of the uptrend's peak volume lacks the
	// participation to carry through.
	if uptrend.MaxVolume > 0 &&
		float64(breakout.Volume) < c.cfg.BreakoutBaselineRatio*float64(uptrend.MaxVolume) {
		return BreakoutStage{}, false
	}
	bodyGain := 0.0
	if support.AvgBody > 0 {
		bodyGain = breakout.Body()/support.AvgBody - 1
		if bodyGain < c.cfg.BreakoutMinBodyGain {
			return BreakoutStage{}, false
		}
	}
	return BreakoutStage{
		Idx:               idx,
		Candle:            breakout,
		VolumeRatioVsPrev: volRatio,
		BodySize:          breakout.Body(),
		BodyGainVsSupport: bodyGain,
	}, true
}

// confidence scores a classified pattern on a 0..100 scale. The base of 80
// reflects that every structural requirement already passed; bonuses reward
// textbook proportions in each stage.
func confidence(s *Stages) float64 {
	score := 80.0

	switch gain := s.Uptrend.PriceGainPct; {
	case gain >= 0.03 && gain <= 0.05:
		score += 5
	case gain > 0.05 && gain <= 0.08:
		score += 3
	case gain > 0.08:
		score += 1
	}

	switch drop := s.Decline.DeclinePct; {
	case drop >= 0.015 && drop <= 0.03:
		score += 5
	case drop >= 0.005 && drop < 0.015:
		score += 3
	case drop > 0.03:
		score += 2
	}

	if s.Decline.AvgVolumeRatio > 0 && s.Decline.AvgVolumeRatio <= 0.25 {
		score += 2
	}

	switch ratio := s.Support.AvgVolumeRatio; {
	case ratio >= 0.15 && ratio <= 0.25:
		score += 3
	case ratio < 0.15:
		score += 2
	}

	switch vol := s.Support.PriceVolatilityPct; {
	case vol >= 0.005 && vol <= 0.015:
		score += 2
	case vol < 0.005:
		score += 1
	}

	if g := s.Breakout.BodyGainVsSupport; g >= 0.3 && g <= 0.6 {
		score += 3
	}

	if r := s.Breakout.VolumeRatioVsPrev; r >= 1.1 && r <= 1.3 {
		score += 2
	}

	if score > 100 {
		score = 100
	}
	return score
}
