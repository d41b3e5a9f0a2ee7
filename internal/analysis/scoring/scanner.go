package scoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/logging"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// MarketDataProvider supplies the bars and quote needed to score a symbol.
// Implementations talk to the broker API or a replay store; errors for one
// symbol never abort the scan of the others.
type MarketDataProvider interface {
	FetchMarketData(ctx context.Context, symbol string) (MarketData, error)
}

// Scanner fans the candidate scan out over a bounded worker pool. Batches
// are paced to respect the data provider's rate limit; this is the only
// bulk-parallel stage of the pipeline.
type Scanner struct {
	scorer   *Scorer
	provider MarketDataProvider
	cfg      config.ScanConfig
	retry    utils.RetryConfig
	logger   zerolog.Logger
}

// NewScanner creates a scanner.
func NewScanner(scorer *Scorer, provider MarketDataProvider, cfg config.ScanConfig, logger zerolog.Logger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Scanner{
		scorer:   scorer,
		provider: provider,
		cfg:      cfg,
		retry:    utils.DefaultRetryConfig(),
		logger:   logger,
	}
}

// Scan scores the given symbols and returns the qualifying candidates
// ordered by score descending, then symbol code ascending.
func (s *Scanner) Scan(ctx context.Context, symbols []string) ([]models.CandidateStock, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	resultChan := make(chan models.CandidateStock, len(symbols))
	workChan := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if candidate := s.scanSymbol(ctx, symbol); candidate != nil {
					resultChan <- *candidate
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i, symbol := range symbols {
			if s.cfg.BatchSize > 0 && i > 0 && i%s.cfg.BatchSize == 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.cfg.BatchPause):
				}
			}
			select {
			case <-ctx.Done():
				return
			case workChan <- symbol:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var candidates []models.CandidateStock
	for candidate := range resultChan {
		candidates = append(candidates, candidate)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Code < candidates[j].Code
	})

	if err := ctx.Err(); err != nil {
		return candidates, err
	}
	return candidates, nil
}

// scanSymbol fetches and scores one symbol. Transient fetch failures are
// retried with backoff; a symbol that still fails degrades to "no
// candidate" with a warning and the scan continues.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) *models.CandidateStock {
	data, err := utils.RetryWithResult(ctx, s.retry, func() (MarketData, error) {
		return s.provider.FetchMarketData(ctx, symbol)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Market data fetch failed, skipping symbol")
		return nil
	}
	candidate := s.scorer.Score(data)
	if candidate != nil {
		logging.LogCandidate(s.logger, candidate.Code, candidate.Name, candidate.Score, candidate.Reason)
	}
	return candidate
}
