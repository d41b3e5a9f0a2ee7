package trading

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/filters"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/pattern"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/ledger"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/mlgate"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// DecisionEngine approves or rejects the signals produced by the breakout
// generators and settles approved ones against the ledger. A breakout only
// becomes a position when the bar window confirms a pullback pattern that
// survives the quality filters and the ML gate.
type DecisionEngine struct {
	classifier *pattern.Classifier
	filters    filters.Chain
	gate       *mlgate.Gate
	ledger     *ledger.Ledger
	cfg        config.FilterConfig
	logger     zerolog.Logger
}

// NewDecisionEngine creates a decision engine.
func NewDecisionEngine(
	classifier *pattern.Classifier,
	chain filters.Chain,
	gate *mlgate.Gate,
	book *ledger.Ledger,
	cfg config.FilterConfig,
	logger zerolog.Logger,
) *DecisionEngine {
	return &DecisionEngine{
		classifier: classifier,
		filters:    chain,
		gate:       gate,
		ledger:     book,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleBuy confirms a buy signal against the bar window and opens the
// position when every gate passes. Returns false with no error when the
// signal is rejected; rejection is an expected outcome, not a failure.
func (e *DecisionEngine) HandleBuy(ctx context.Context, name string, sig *models.Signal, window *models.BarWindow) (bool, error) {
	log := logging.WithSymbol(e.logger, sig.Code)

	stages := e.classifier.Classify(window)
	if stages == nil {
		log.Info().Msg("Breakout without pullback confirmation, rejected")
		return false, nil
	}
	sig.Confidence = stages.Confidence / 100

	if e.cfg.FiltersBeforeML {
		if ok := e.runFilters(ctx, stages, window, log); !ok {
			return false, nil
		}
		if !e.gate.Allow(ctx, stages) {
			return false, nil
		}
	} else {
		if !e.gate.Allow(ctx, stages) {
			return false, nil
		}
		if ok := e.runFilters(ctx, stages, window, log); !ok {
			return false, nil
		}
	}

	quantity := e.ledger.QuantityFor(sig.Meta.EntryPrice)
	if quantity <= 0 {
		log.Warn().Float64("price", sig.Meta.EntryPrice).Msg("No affordable quantity, rejected")
		return false, nil
	}

	if _, err := e.ledger.OpenPosition(ctx, sig.Code, name, sig.Meta.EntryPrice, quantity, sig.Reason); err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientBalance) || apperrors.Is(err, apperrors.ErrPositionLimit) {
			log.Warn().Err(err).Msg("Buy rejected by risk limit")
			return false, nil
		}
		return false, err
	}

	logging.LogBuySignal(e.logger, sig.Code,
		sig.Meta.EntryPrice, sig.Meta.StopLoss, sig.Meta.TakeProfit, sig.Confidence, quantity)
	return true, nil
}

func (e *DecisionEngine) runFilters(_ context.Context, stages *pattern.Stages, window *models.BarWindow, log zerolog.Logger) bool {
	if excluded, reason := e.filters.ShouldExclude(stages, window); excluded {
		logging.LogFilterVeto(log, stages.Symbol, reason)
		return false
	}
	return true
}

// HandleSell settles a sell signal. A time-based liquidation that finds no
// open position indicates a lost BUY record and is escalated as a
// data-integrity alert; other ledger errors are surfaced to the caller.
func (e *DecisionEngine) HandleSell(ctx context.Context, sig *models.Signal, price float64) error {
	profit, rate, err := e.ledger.ClosePosition(ctx, sig.Code, price, sig.Reason)
	if err != nil {
		if sig.SellReason == models.SellTimeBased && apperrors.Is(err, apperrors.ErrNoOpenPosition) {
			return apperrors.NewIntegrityError(sig.Code,
				"time-based liquidation found no open position", err)
		}
		return err
	}

	logging.LogSellSignal(e.logger, sig.Code, sig.Reason, price, profit, rate)
	return nil
}
