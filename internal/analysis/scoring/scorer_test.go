package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// strongMarketData returns a symbol that trips the new-high, envelope,
// positive-candle, mid-price, volume-surge, turnover, and intraday-rise
// rules all at once.
func strongMarketData(symbol, name string) MarketData {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.Local)

	daily := make([]models.Bar, 20)
	for i := range daily {
		daily[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: base.AddDate(0, 0, i),
			Open:      10000, High: 10100, Low: 9900, Close: 10000,
			Volume: 600000, // turnover 6e9/day
		}
	}

	weekly := make([]models.Bar, 30) // 210 days of history
	for i := range weekly {
		weekly[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: base.AddDate(0, 0, -210+i*7),
			Open:      9800, High: 10200, Low: 9700, Close: 10100,
			Volume: 3000000,
		}
	}

	return MarketData{
		Symbol:     symbol,
		Name:       name,
		Market:     models.MarketKOSPI,
		DailyBars:  daily,
		WeeklyBars: weekly,
		Quote: models.Quote{
			Symbol: symbol,
			Open:   10200,
			Price:  10600, // +3.9% intraday, above the weekly high zone
			High:   10650,
			Low:    10150,
			Volume: 2000000, // >3x the 600k daily average
		},
	}
}

func TestScoreStrongCandidate(t *testing.T) {
	s := NewScorer(config.Default().Scorer)

	candidate := s.Score(strongMarketData("005930", "삼성전자"))
	if candidate == nil {
		t.Fatal("expected a candidate, got nil")
	}
	if candidate.Score < config.Default().Scorer.MinScore {
		t.Errorf("score = %d, want at least %d", candidate.Score, config.Default().Scorer.MinScore)
	}
	if candidate.Reason == "" {
		t.Error("reason should name the triggered rules")
	}
	if candidate.PrevClose != 10000 {
		t.Errorf("prev close = %f, want 10000", candidate.PrevClose)
	}
}

func TestScoreHardExclusions(t *testing.T) {
	s := NewScorer(config.Default().Scorer)

	tests := []struct {
		name   string
		mutate func(*MarketData)
	}{
		{
			name:   "non-primary market",
			mutate: func(d *MarketData) { d.Market = models.MarketKONEX },
		},
		{
			name:   "preferred share suffix",
			mutate: func(d *MarketData) { d.Name = "삼성전자우" },
		},
		{
			name:   "ETF name marker",
			mutate: func(d *MarketData) { d.Name = "KODEX 200" },
		},
		{
			name:   "SPAC name marker",
			mutate: func(d *MarketData) { d.Name = "하나금융스팩" },
		},
		{
			name: "opening gap too wide",
			mutate: func(d *MarketData) {
				d.Quote.Open = 10800 // +8% vs prev close 10000
			},
		},
		{
			name: "daily change already extended",
			mutate: func(d *MarketData) {
				d.Quote.Price = 11100 // +11% vs prev close
			},
		},
		{
			name: "turnover below floor",
			mutate: func(d *MarketData) {
				d.Quote.Volume = 1000
				d.Quote.VolumeAmount = 0
			},
		},
		{
			name: "short daily history",
			mutate: func(d *MarketData) {
				d.DailyBars = d.DailyBars[:5]
			},
		},
		{
			name: "short weekly history",
			mutate: func(d *MarketData) {
				d.WeeklyBars = d.WeeklyBars[:3]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strongMarketData("005930", "삼성전자")
			tt.mutate(&data)
			if candidate := s.Score(data); candidate != nil {
				t.Errorf("expected exclusion, got candidate with score %d", candidate.Score)
			}
		})
	}
}

func TestScoreBelowMinimum(t *testing.T) {
	s := NewScorer(config.Default().Scorer)

	data := strongMarketData("005930", "삼성전자")
	// A quiet day: no surge, no rise, below the weekly high.
	data.Quote = models.Quote{
		Symbol: "005930",
		Open:   10000,
		Price:  9950,
		High:   10050,
		Low:    9940,
		Volume: 600000,
	}
	if candidate := s.Score(data); candidate != nil {
		t.Errorf("expected nil, got candidate with score %d (%s)", candidate.Score, candidate.Reason)
	}
}

func TestVolumeSurgeTiers(t *testing.T) {
	s := NewScorer(config.Default().Scorer)

	tests := []struct {
		name   string
		volume int64
		weight int
	}{
		{"three times average", 1900000, config.Default().Scorer.Weights.VolumeSurge3x},
		{"two times average", 1300000, config.Default().Scorer.Weights.VolumeSurge2x},
		{"no surge", 700000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strongMarketData("005930", "삼성전자")
			data.Quote.Volume = tt.volume
			w, _ := s.volumeSurgeRule(data)
			if w != tt.weight {
				t.Errorf("weight = %d, want %d", w, tt.weight)
			}
		})
	}
}

type stubProvider struct {
	data map[string]MarketData
}

func (p *stubProvider) FetchMarketData(_ context.Context, symbol string) (MarketData, error) {
	d, ok := p.data[symbol]
	if !ok {
		return MarketData{}, errors.New("no data")
	}
	return d, nil
}

func TestScanOrdering(t *testing.T) {
	cfg := config.Default()
	provider := &stubProvider{data: map[string]MarketData{
		"005930": strongMarketData("005930", "삼성전자"),
		"000660": strongMarketData("000660", "SK하이닉스"),
		"035720": strongMarketData("035720", "카카오"),
	}}
	// 035720 scores lower: no intraday rise, no surge.
	weak := provider.data["035720"]
	weak.Quote.Price = 10250
	weak.Quote.Volume = 700000
	provider.data["035720"] = weak

	scanner := NewScanner(NewScorer(cfg.Scorer), provider, cfg.Scan, zerolog.Nop())

	// "999999" has no data; its failure must not abort the scan.
	candidates, err := scanner.Scan(context.Background(), []string{"035720", "999999", "005930", "000660"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) < 2 {
		t.Fatalf("got %d candidates, want at least 2", len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		prev, cur := candidates[i-1], candidates[i]
		if cur.Score > prev.Score {
			t.Errorf("candidates not sorted by score: %d before %d", prev.Score, cur.Score)
		}
		if cur.Score == prev.Score && cur.Code < prev.Code {
			t.Errorf("tie not broken by code: %s before %s", prev.Code, cur.Code)
		}
	}
}

// flakyProvider fails a configured number of fetches per symbol before
// delegating to the stub.
type flakyProvider struct {
	stub     *stubProvider
	mu       sync.Mutex
	failures map[string]int
}

func (p *flakyProvider) FetchMarketData(ctx context.Context, symbol string) (MarketData, error) {
	p.mu.Lock()
	if p.failures[symbol] > 0 {
		p.failures[symbol]--
		p.mu.Unlock()
		return MarketData{}, errors.New("transient fetch failure")
	}
	p.mu.Unlock()
	return p.stub.FetchMarketData(ctx, symbol)
}

func TestScanRetriesTransientFetch(t *testing.T) {
	cfg := config.Default()
	provider := &flakyProvider{
		stub:     &stubProvider{data: map[string]MarketData{"005930": strongMarketData("005930", "삼성전자")}},
		failures: map[string]int{"005930": 2},
	}
	scanner := NewScanner(NewScorer(cfg.Scorer), provider, cfg.Scan, zerolog.Nop())
	scanner.retry = utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	// Two transient failures, three attempts: the symbol still qualifies.
	candidates, err := scanner.Scan(context.Background(), []string{"005930"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 after retries", len(candidates))
	}

	// More failures than attempts: the symbol degrades to no candidate
	// without aborting the scan.
	provider.failures["005930"] = 3
	candidates, err = scanner.Scan(context.Background(), []string{"005930"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0 after exhausted retries", len(candidates))
	}
}

func TestScanEmptySymbols(t *testing.T) {
	cfg := config.Default()
	scanner := NewScanner(NewScorer(cfg.Scorer), &stubProvider{}, cfg.Scan, zerolog.Nop())
	candidates, err := scanner.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil, got %v", candidates)
	}
}
