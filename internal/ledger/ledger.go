// Package ledger implements the position ledger: the single shared mutable
// resource of the engine. Every open and close settles against a cash
// balance and appends an immutable record to the store.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/store"
)

// Ledger tracks cash balance and open positions. All writes are serialized
// behind one lock; balance snapshots take the read side so they always see
// a fully committed state, never a partial record.
type Ledger struct {
	store  store.LedgerStore
	cfg    config.RiskConfig
	logger zerolog.Logger

	mu        sync.RWMutex
	balance   float64
	initial   float64
	openCount int
}

// New creates a ledger with the configured initial balance.
func New(st store.LedgerStore, cfg config.RiskConfig, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:   st,
		cfg:     cfg,
		logger:  logger,
		balance: cfg.InitialBalance,
		initial: cfg.InitialBalance,
	}
}

// QuantityFor returns the purchase quantity for a symbol at the given
// price, honoring the per-symbol investment cap and the available balance.
// Returns 0 when no affordable quantity exists.
func (l *Ledger) QuantityFor(price float64) int {
	if price <= 0 {
		return 0
	}
	l.mu.RLock()
	budget := l.balance
	l.mu.RUnlock()
	if l.cfg.PerSymbolCap > 0 && budget > l.cfg.PerSymbolCap {
		budget = l.cfg.PerSymbolCap
	}
	return int(budget / price)
}

// OpenPosition debits the balance and appends a BUY record. Fails with
// ErrInsufficientBalance when the cost exceeds the available balance.
func (l *Ledger) OpenPosition(ctx context.Context, symbol, name string, price float64, quantity int, reason string) (int64, error) {
	if price <= 0 || quantity <= 0 {
		return 0, apperrors.NewLedgerError("open", symbol,
			fmt.Errorf("invalid order: price %f quantity %d", price, quantity))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.MaxPositions > 0 && l.openCount >= l.cfg.MaxPositions {
		return 0, apperrors.NewLedgerError("open", symbol, apperrors.ErrPositionLimit)
	}
	cost := price * float64(quantity)
	if cost > l.balance {
		return 0, apperrors.NewLedgerError("open", symbol, apperrors.ErrInsufficientBalance)
	}

	id, err := l.store.InsertBuy(ctx, models.PositionRecord{
		Symbol:    symbol,
		Name:      name,
		Side:      models.SideBuy,
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	if err != nil {
		return 0, apperrors.NewLedgerError("open", symbol, err)
	}

	l.balance -= cost
	l.openCount++
	logging.LogSettlement(l.logger, symbol, string(models.SideBuy), quantity, price, 0, 0, l.balance)
	return id, nil
}

// ClosePosition settles the oldest open BUY for symbol at the given price.
// Fails with ErrNoOpenPosition when no unsettled BUY exists, and with
// ErrAlreadyClosed when a concurrent close won the race. The duplicate
// re-check happens inside the same critical section as the SELL insert.
func (l *Ledger) ClosePosition(ctx context.Context, symbol string, price float64, reason string) (profit, profitRate float64, err error) {
	if price <= 0 {
		return 0, 0, apperrors.NewLedgerError("close", symbol, fmt.Errorf("invalid price %f", price))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buy, err := l.store.FindUnmatchedBuy(ctx, symbol)
	if err != nil {
		return 0, 0, apperrors.NewLedgerError("close", symbol, err)
	}
	if buy == nil {
		return 0, 0, apperrors.NewLedgerError("close", symbol, apperrors.ErrNoOpenPosition)
	}

	profit = (price - buy.Price) * float64(buy.Quantity)
	profitRate = (price - buy.Price) / buy.Price * 100

	// The store re-checks for an existing SELL on this BUY id atomically
	// with the insert.
	_, err = l.store.InsertSell(ctx, models.PositionRecord{
		Symbol:      symbol,
		Name:        buy.Name,
		Side:        models.SideSell,
		Price:       price,
		Quantity:    buy.Quantity,
		Timestamp:   time.Now(),
		Reason:      reason,
		LinkedBuyID: buy.ID,
		ProfitLoss:  profit,
		ProfitRate:  profitRate,
	})
	if err != nil {
		return 0, 0, err
	}

	l.balance += price * float64(buy.Quantity)
	l.openCount--
	logging.LogSettlement(l.logger, symbol, string(models.SideSell), buy.Quantity, price, profit, profitRate, l.balance)
	return profit, profitRate, nil
}

// BalanceSnapshot returns a consistent point-in-time view of the balance.
func (l *Ledger) BalanceSnapshot() models.BalanceSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rate := 0.0
	if l.initial > 0 {
		rate = (l.balance - l.initial) / l.initial * 100
	}
	return models.BalanceSnapshot{
		Current:    l.balance,
		Initial:    l.initial,
		ProfitRate: rate,
	}
}

// HasOpenPosition reports whether symbol has an unsettled BUY.
func (l *Ledger) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	buy, err := l.store.FindUnmatchedBuy(ctx, symbol)
	if err != nil {
		return false, err
	}
	return buy != nil, nil
}

// VerifyConservation replays the full record list and checks that the sum
// of BUY debits minus SELL credits equals initial minus current balance.
func (l *Ledger) VerifyConservation(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records, err := l.store.Records(ctx)
	if err != nil {
		return err
	}

	var buys, sells float64
	for _, r := range records {
		switch r.Side {
		case models.SideBuy:
			buys += r.Amount()
		case models.SideSell:
			sells += r.Amount()
		}
	}

	expected := l.initial - l.balance
	diff := buys - sells - expected
	if diff > 1e-6 || diff < -1e-6 {
		return apperrors.NewIntegrityError("", fmt.Sprintf(
			"balance conservation violated: buys %.2f - sells %.2f != initial %.2f - current %.2f",
			buys, sells, l.initial, l.balance), nil)
	}
	return nil
}
