// Package scoring implements the pre-market candidate scan: a weighted
// rule table over daily and weekly bars that selects the symbols worth
// monitoring for intraday breakouts.
package scoring

import (
	"strings"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// Minimum history required before a symbol can be scored.
const (
	minDailyBars  = 10
	minWeeklyBars = 5
)

// MarketData bundles everything the scorer needs for one symbol.
type MarketData struct {
	Symbol     string
	Name       string
	Market     models.Market
	DailyBars  []models.Bar // oldest first, most recent completed day last
	WeeklyBars []models.Bar // oldest first
	Quote      models.Quote
}

// Scorer applies the candidate rule table. Pure and stateless; every
// threshold and weight comes from configuration.
type Scorer struct {
	cfg config.ScorerConfig
}

// NewScorer creates a scorer with the given rule table.
func NewScorer(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates one symbol. Returns nil when the symbol is hard-excluded
// or its total score falls below the configured minimum. The returned
// reason is a human-readable join of the triggered rule names, for audit.
func (s *Scorer) Score(data MarketData) *models.CandidateStock {
	if s.excluded(data) {
		return nil
	}

	score := 0
	var reasons []string
	addRule := func(weight int, name string) {
		score += weight
		reasons = append(reasons, name)
	}

	price := data.Quote.Price

	if w, name := s.newHighRule(price, data.WeeklyBars); w > 0 {
		addRule(w, name)
	}
	if ma := movingAverage(data.DailyBars, s.cfg.EnvelopeMAPeriod); ma > 0 && price >= ma*s.cfg.EnvelopeUpperRatio {
		addRule(s.cfg.Weights.EnvelopeBreakout, "envelope breakout")
	}
	if price > data.Quote.Open {
		addRule(s.cfg.Weights.PositiveCandle, "positive candle")
	}
	if mid := (data.Quote.High + data.Quote.Low) / 2; mid > 0 && price >= mid {
		addRule(s.cfg.Weights.AboveMidPrice, "above mid price")
	}
	if w, name := s.volumeSurgeRule(data); w > 0 {
		addRule(w, name)
	}
	if s.sufficientTurnover(data.DailyBars) {
		addRule(s.cfg.Weights.Turnover, "sufficient turnover")
	}
	if open := data.Quote.Open; open > 0 && (price-open)/open >= s.cfg.IntradayRiseThreshold {
		addRule(s.cfg.Weights.IntradayRise, "intraday rise")
	}

	if score < s.cfg.MinScore {
		return nil
	}

	prevClose := data.DailyBars[len(data.DailyBars)-1].Close
	return &models.CandidateStock{
		Code:      data.Symbol,
		Name:      data.Name,
		Market:    data.Market,
		Score:     score,
		Reason:    strings.Join(reasons, ", "),
		PrevClose: prevClose,
	}
}

// Name markers for instrument classes that are never breakout candidates:
// preferred shares, SPACs, and exchange-traded products.
var excludedNameMarkers = []string{
	"우B", "우C", "전환", "스팩", "ETF", "ETN", "KODEX", "TIGER", "레버리지", "인버스",
}

// excluded applies the hard exclusions that short-circuit scoring.
func (s *Scorer) excluded(data MarketData) bool {
	if !data.Market.Primary() {
		return true
	}
	if strings.HasSuffix(data.Name, "우") {
		return true
	}
	for _, marker := range excludedNameMarkers {
		if strings.Contains(data.Name, marker) {
			return true
		}
	}
	if len(data.DailyBars) < minDailyBars || len(data.WeeklyBars) < minWeeklyBars {
		return true
	}

	prevClose := data.DailyBars[len(data.DailyBars)-1].Close
	if prevClose <= 0 {
		return true
	}
	// A large opening gap or an already-extended daily move signals an
	// exhausted move, unsuitable for breakout entry.
	if gap := (data.Quote.Open - prevClose) / prevClose; gap >= s.cfg.MaxOpenGapRatio {
		return true
	}
	if change := (data.Quote.Price - prevClose) / prevClose; change >= s.cfg.MaxCloseChangeRatio {
		return true
	}
	return data.Quote.TurnoverAmount() < s.cfg.MinTradingAmount
}

// newHighRule checks proximity to the historic high, weighted by how much
// history backs the high.
func (s *Scorer) newHighRule(price float64, weekly []models.Bar) (int, string) {
	var maxClose float64
	for _, b := range weekly {
		if b.Close > maxClose {
			maxClose = b.Close
		}
	}
	if maxClose <= 0 || price < s.cfg.NewHighThreshold*maxClose {
		return 0, ""
	}
	switch days := len(weekly) * 7; {
	case days >= 200:
		return s.cfg.Weights.NewHigh200d, "new high (200d)"
	case days >= 100:
		return s.cfg.Weights.NewHigh100d, "new high (100d)"
	default:
		return s.cfg.Weights.NewHighOther, "new high"
	}
}

func (s *Scorer) volumeSurgeRule(data MarketData) (int, string) {
	avg := avgDailyVolume(data.DailyBars, s.cfg.VolumeAvgPeriod)
	if avg <= 0 {
		return 0, ""
	}
	ratio := float64(data.Quote.Volume) / avg
	switch {
	case ratio >= s.cfg.VolumeSurgeHigh:
		return s.cfg.Weights.VolumeSurge3x, "volume surge x3"
	case ratio >= s.cfg.VolumeSurgeMid:
		return s.cfg.Weights.VolumeSurge2x, "volume surge x2"
	default:
		return 0, ""
	}
}

// sufficientTurnover checks the five-day average of volume times close
// against the configured floor.
func (s *Scorer) sufficientTurnover(daily []models.Bar) bool {
	n := len(daily)
	if n < 5 {
		return false
	}
	var sum float64
	for _, b := range daily[n-5:] {
		sum += float64(b.Volume) * b.Close
	}
	return sum/5 >= s.cfg.MinAvgTradingAmount5d
}

func movingAverage(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period)
}

func avgDailyVolume(bars []models.Bar, period int) float64 {
	if period <= 0 {
		return 0
	}
	if len(bars) < period {
		period = len(bars)
	}
	if period == 0 {
		return 0
	}
	var sum int64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return float64(sum) / float64(period)
}
