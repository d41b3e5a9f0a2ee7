package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/orb"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/feed"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// Session runs one trading day: it monitors every candidate concurrently,
// establishes opening ranges, routes generated signals through the
// decision engine, and forces time-based liquidation at the cutoff. The
// ledger behind the engine is the only state the monitors share.
type Session struct {
	cfg     *config.Config
	clock   *utils.SessionClock
	calc    *orb.Calculator
	engine  *DecisionEngine
	barFeed feed.BarFeed
	logger  zerolog.Logger
}

// NewSession creates a session orchestrator.
func NewSession(cfg *config.Config, clock *utils.SessionClock, calc *orb.Calculator, engine *DecisionEngine, barFeed feed.BarFeed, logger zerolog.Logger) *Session {
	return &Session{
		cfg:     cfg,
		clock:   clock,
		calc:    calc,
		engine:  engine,
		barFeed: barFeed,
		logger:  logger,
	}
}

// Run monitors all candidates for the session date until their streams end
// or the context is cancelled. Per-symbol failures are logged and do not
// stop the other monitors; the first integrity error is returned.
func (s *Session) Run(ctx context.Context, date time.Time, candidates []models.CandidateStock) error {
	cutoff := s.clock.LiquidationAt(date)
	s.logger.Info().
		Time("market_open", s.clock.MarketOpen(date)).
		Time("liquidation", cutoff).
		Int("candidates", len(candidates)).
		Msg("Session started")

	// Live runs stop evaluating at the liquidation cutoff. Replays of past
	// dates drive time from bar timestamps instead.
	if time.Now().Before(cutoff) {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, cutoff)
		defer cancel()
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(candidates))

	for _, candidate := range candidates {
		wg.Add(1)
		go func(c models.CandidateStock) {
			defer wg.Done()
			if err := s.monitorSymbol(ctx, date, c); err != nil {
				errCh <- err
			}
		}(candidate)
	}
	wg.Wait()
	close(errCh)

	var firstIntegrity error
	for err := range errCh {
		var integrity *apperrors.IntegrityError
		if apperrors.As(err, &integrity) && firstIntegrity == nil {
			firstIntegrity = err
		}
		s.logger.Error().Err(err).Msg("Symbol monitor failed")
	}
	return firstIntegrity
}

// monitorSymbol drives one symbol's state machine over its bar stream.
// Bars arrive in timestamp order; everything here is single-threaded.
func (s *Session) monitorSymbol(ctx context.Context, date time.Time, candidate models.CandidateStock) error {
	log := logging.WithSymbol(s.logger, candidate.Code)

	bars, err := s.barFeed.Bars(ctx, candidate.Code, date)
	if err != nil {
		log.Warn().Err(err).Msg("Bar feed unavailable, symbol skipped")
		return nil
	}

	window := models.NewBarWindow(candidate.Code, date)
	gen := NewGenerator(candidate.Code, s.cfg.ORB, s.clock, log)
	orbEnd := s.clock.ORBEnd(date)

	var lastPrice float64
	for bar := range bars {
		if err := window.Append(bar); err != nil {
			log.Warn().Err(err).Msg("Bar rejected, skipped")
			continue
		}
		lastPrice = bar.Close

		if gen.State() == StateAwaitingRange && !bar.Timestamp.Before(orbEnd) {
			if !s.establishRange(window, gen, orbEnd, log) {
				return nil // excluded from monitoring for the day
			}
		}

		sig := gen.OnBar(bar)
		if sig == nil {
			continue
		}
		switch sig.Kind {
		case models.SignalBuy:
			opened, err := s.engine.HandleBuy(ctx, candidate.Name, sig, window)
			if err != nil {
				return err
			}
			if !opened {
				gen.Abort()
				return nil
			}
		case models.SignalSell:
			if err := s.engine.HandleSell(ctx, sig, bar.Close); err != nil {
				return err
			}
			return nil
		}
	}

	// Stream ended or cutoff hit with a position still open: suppress any
	// in-flight evaluation and liquidate.
	if sig := gen.ForceTimeExit(); sig != nil && lastPrice > 0 {
		return s.engine.HandleSell(ctx, sig, lastPrice)
	}
	return nil
}

// establishRange computes the opening range from the bars inside the
// opening window. Pre-open bars never count toward the range. Returns
// false when the symbol is rejected for the day.
func (s *Session) establishRange(window *models.BarWindow, gen *Generator, orbEnd time.Time, log zerolog.Logger) bool {
	opening := models.NewBarWindow(window.Symbol(), window.Date())
	for _, b := range window.Before(orbEnd) {
		if !s.clock.InORBWindow(b.Timestamp) {
			continue
		}
		if err := opening.Append(b); err != nil {
			log.Warn().Err(err).Msg("Opening bar rejected")
		}
	}

	r, err := s.calc.ComputeRange(opening)
	if err != nil {
		log.Info().Err(err).Msg("Opening range rejected, symbol excluded for the day")
		return false
	}
	gen.SetRange(r)
	return true
}
