// Package trading drives the intraday pipeline: the per-symbol breakout
// state machine, the entry decision engine, and the session orchestrator.
package trading

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/orb"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// State is the lifecycle state of a symbol's breakout monitor.
type State int

const (
	// StateAwaitingRange buffers opening bars until a range exists.
	StateAwaitingRange State = iota
	// StateRangeEstablished evaluates each bar for a breakout.
	StateRangeEstablished
	// StateArmed is the transient state inside the atomic breakout check.
	StateArmed
	// StateSignaled holds a position and monitors for the exit.
	StateSignaled
	// StateClosed is terminal; exactly one SELL has been emitted.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingRange:
		return "awaiting_range"
	case StateRangeEstablished:
		return "range_established"
	case StateArmed:
		return "armed"
	case StateSignaled:
		return "signaled"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Generator is the per-symbol breakout state machine. Bars must arrive in
// non-decreasing timestamp order; the generator itself is single-threaded
// per symbol and holds no shared state.
type Generator struct {
	symbol string
	cfg    config.ORBConfig
	clock  *utils.SessionClock
	logger zerolog.Logger

	state      State
	orbRange   orb.Range
	entryPrice float64
	stopLoss   float64
	takeProfit float64
}

// NewGenerator creates a generator in StateAwaitingRange.
func NewGenerator(symbol string, cfg config.ORBConfig, clock *utils.SessionClock, logger zerolog.Logger) *Generator {
	return &Generator{
		symbol: symbol,
		cfg:    cfg,
		clock:  clock,
		logger: logging.WithSymbol(logger, symbol),
	}
}

// State returns the current state.
func (g *Generator) State() State { return g.state }

// Range returns the established opening range; valid only after SetRange.
func (g *Generator) Range() orb.Range { return g.orbRange }

// SetRange installs a validated opening range and moves the generator to
// StateRangeEstablished. Ignored outside StateAwaitingRange.
func (g *Generator) SetRange(r orb.Range) {
	if g.state != StateAwaitingRange {
		return
	}
	g.orbRange = r
	g.state = StateRangeEstablished
	g.logger.Debug().
		Float64("high", r.High).
		Float64("low", r.Low).
		Float64("range", r.RangeSize).
		Msg("Opening range established")
}

// OnBar advances the state machine with one bar and returns the signal it
// produces, if any. A malformed bar is skipped and logged as recoverable,
// never propagated.
func (g *Generator) OnBar(bar models.Bar) *models.Signal {
	if !bar.Valid() {
		g.logger.Warn().Err(apperrors.ErrMalformedBar).Time("timestamp", bar.Timestamp).Msg("Bar skipped")
		return nil
	}

	switch g.state {
	case StateRangeEstablished:
		return g.evaluateEntry(bar)
	case StateSignaled:
		return g.evaluateExit(bar)
	default:
		return nil
	}
}

// evaluateEntry performs the atomic Armed -> Signaled transition when both
// breakout conditions hold inside the buy window.
func (g *Generator) evaluateEntry(bar models.Bar) *models.Signal {
	if g.clock.AtOrAfterLiquidation(bar.Timestamp) {
		g.state = StateClosed
		return nil
	}
	if !g.clock.InBuyWindow(bar.Timestamp) {
		return nil
	}

	breakoutLevel := g.orbRange.High * (1 + g.cfg.BreakoutBuffer)
	if bar.Close < breakoutLevel {
		return nil
	}
	g.state = StateArmed
	if float64(bar.Volume) < g.orbRange.AvgVolume*g.cfg.VolumeSurgeRatio {
		g.state = StateRangeEstablished
		return nil
	}

	g.entryPrice = bar.Close
	g.stopLoss = g.orbRange.Low
	g.takeProfit = g.orbRange.TakeProfit(g.cfg.TakeProfitMultiplier)
	g.state = StateSignaled

	volumeRatio := 0.0
	if g.orbRange.AvgVolume > 0 {
		volumeRatio = float64(bar.Volume) / g.orbRange.AvgVolume
	}
	return &models.Signal{
		Code:       g.symbol,
		Kind:       models.SignalBuy,
		Reason:     "orb_breakout",
		Timestamp:  bar.Timestamp,
		Meta: models.SignalMeta{
			EntryPrice:  g.entryPrice,
			StopLoss:    g.stopLoss,
			TakeProfit:  g.takeProfit,
			RangeSize:   g.orbRange.RangeSize,
			VolumeRatio: volumeRatio,
		},
	}
}

// evaluateExit checks the exit conditions. The time-based liquidation has
// the highest priority and overrides the price checks.
func (g *Generator) evaluateExit(bar models.Bar) *models.Signal {
	var reason models.SellReason
	switch {
	case g.clock.AtOrAfterLiquidation(bar.Timestamp):
		reason = models.SellTimeBased
	case bar.Close <= g.stopLoss:
		reason = models.SellStopLoss
	case bar.Close >= g.takeProfit:
		reason = models.SellTakeProfit
	default:
		return nil
	}

	g.state = StateClosed
	return &models.Signal{
		Code:       g.symbol,
		Kind:       models.SignalSell,
		Reason:     string(reason),
		SellReason: reason,
		Timestamp:  bar.Timestamp,
		Meta: models.SignalMeta{
			EntryPrice: g.entryPrice,
			StopLoss:   g.stopLoss,
			TakeProfit: g.takeProfit,
			RangeSize:  g.orbRange.RangeSize,
		},
	}
}

// Abort abandons monitoring for the day without a position, used when the
// decision engine rejects the breakout. Re-entry is not permitted.
func (g *Generator) Abort() {
	if g.state != StateClosed {
		g.state = StateClosed
	}
}

// ForceTimeExit emits the forced time-based SELL at the liquidation cutoff
// when the generator still holds a position. Returns nil otherwise.
func (g *Generator) ForceTimeExit() *models.Signal {
	if g.state != StateSignaled {
		g.state = StateClosed
		return nil
	}
	g.state = StateClosed
	return &models.Signal{
		Code:       g.symbol,
		Kind:       models.SignalSell,
		Reason:     string(models.SellTimeBased),
		SellReason: models.SellTimeBased,
		Meta: models.SignalMeta{
			EntryPrice: g.entryPrice,
			StopLoss:   g.stopLoss,
			TakeProfit: g.takeProfit,
			RangeSize:  g.orbRange.RangeSize,
		},
	}
}
