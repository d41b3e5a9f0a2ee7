// Package feed supplies ordered streams of minute bars to the per-symbol
// breakout monitors.
package feed

import (
	"context"
	"time"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/store"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// BarFeed streams the bars for one symbol and session date in
// non-decreasing timestamp order. The channel is closed when the stream
// ends or the context is cancelled.
type BarFeed interface {
	Bars(ctx context.Context, symbol string, date time.Time) (<-chan models.Bar, error)
}

// StoreFeed replays persisted bars from a BarStore.
type StoreFeed struct {
	store store.BarStore
	retry utils.RetryConfig
}

// NewStoreFeed creates a replay feed over the given store.
func NewStoreFeed(st store.BarStore) *StoreFeed {
	return &StoreFeed{store: st, retry: utils.DefaultRetryConfig()}
}

// Bars streams the stored bars for the symbol and date. Transient store
// failures (a busy database under concurrent monitors) are retried.
func (f *StoreFeed) Bars(ctx context.Context, symbol string, date time.Time) (<-chan models.Bar, error) {
	var bars []models.Bar
	err := utils.Retry(ctx, f.retry, func() error {
		var err error
		bars, err = f.store.GetBars(ctx, symbol, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan models.Bar)
	go func() {
		defer close(ch)
		for _, b := range bars {
			select {
			case <-ctx.Done():
				return
			case ch <- b:
			}
		}
	}()
	return ch, nil
}

// SliceFeed serves in-memory bars, mainly for tests.
type SliceFeed map[string][]models.Bar

// Bars streams the bars registered for the symbol.
func (f SliceFeed) Bars(ctx context.Context, symbol string, _ time.Time) (<-chan models.Bar, error) {
	ch := make(chan models.Bar)
	go func() {
		defer close(ch)
		for _, b := range f[symbol] {
			select {
			case <-ctx.Done():
				return
			case ch <- b:
			}
		}
	}()
	return ch, nil
}
