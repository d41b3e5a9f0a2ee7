package trading

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/filters"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/orb"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/pattern"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/config"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/feed"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/ledger"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/mlgate"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/store"
)

var sessionDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)

func minuteBar(hhmm string, open, high, low, close float64, volume int64) models.Bar {
	ts, _ := time.Parse("15:04", hhmm)
	return models.Bar{
		Symbol:    "005930",
		Timestamp: time.Date(2026, 8, 28, ts.Hour(), ts.Minute(), 0, 0, time.Local),
		Open:      open, High: high, Low: low, Close: close,
		Volume: volume,
	}
}

// sessionBars builds a full day for one symbol: a valid opening range
// (high 10,200, low 10,000), then a pullback pattern whose breakout candle
// also crosses the opening-range high with a volume surge, then an exit.
func sessionBars(exitClose float64, withExitBar bool) []models.Bar {
	bars := []models.Bar{
		// Opening range 09:00-09:04, avg volume 10,000.
		minuteBar("09:00", 10100, 10200, 10050, 10150, 10000),
		minuteBar("09:01", 10150, 10180, 10040, 10100, 10000),
		minuteBar("09:02", 10100, 10120, 10000, 10060, 10000),
		minuteBar("09:03", 10060, 10110, 10020, 10080, 10000),
		minuteBar("09:04", 10080, 10090, 10030, 10050, 10000),
	}

	// Uptrend: nine bars starting when the opening window ends, +3.1%
	// from the base open.
	closes := []float64{9830, 9865, 9900, 9934, 9969, 10004, 10039, 10074, 10109}
	open := 9800.0
	for i, c := range closes {
		hh := time.Date(2026, 8, 28, 9, 10+i, 0, 0, time.Local)
		bars = append(bars, models.Bar{
			Symbol: "005930", Timestamp: hh,
			Open: open, High: c * 1.0005, Low: open * 0.9995, Close: c,
			Volume: 30000 + int64(i)*1250, // peaks at 40,000
		})
		open = c
	}

	// Decline: four bars, cumulative -0.75% from the peak close.
	declineCloses := []float64{10090, 10071, 10052, 10033}
	for i, c := range declineCloses {
		hh := time.Date(2026, 8, 28, 9, 19+i, 0, 0, time.Local)
		bars = append(bars, models.Bar{
			Symbol: "005930", Timestamp: hh,
			Open: open, High: open * 1.0002, Low: c * 0.9998, Close: c,
			Volume: 9000,
		})
		open = c
	}

	// Support: one flat doji on a fifth of the uptrend's peak volume.
	bars = append(bars, minuteBar("09:23", 10033, 10033, 10033, 10033, 8000))

	// Breakout: crosses the range high of 10,200 on 2.2x opening volume
	// and closes near its own high.
	bars = append(bars, minuteBar("09:24", 10033, 10290, 10030, 10280, 22000))

	if withExitBar {
		bars = append(bars, minuteBar("09:30", 10700, exitClose*1.001, 10690, exitClose, 9000))
	}
	return bars
}

func newTestSession(t *testing.T, barFeed feed.BarFeed) (*Session, *ledger.Ledger) {
	t.Helper()
	cfg := config.Default()
	logger := zerolog.Nop()

	book := ledger.New(store.NewMemoryStore(), cfg.Risk, logger)
	engine := NewDecisionEngine(
		pattern.NewClassifier(cfg.Pattern, logger),
		filters.NewChain(cfg.Filters),
		mlgate.New(nil, cfg.ML, logger),
		book,
		cfg.Filters,
		logger,
	)
	session := NewSession(cfg, testClock(t), orb.NewCalculator(cfg.ORB), engine, barFeed, logger)
	return session, book
}

func TestSessionFullRoundTrip(t *testing.T) {
	barFeed := feed.SliceFeed{"005930": sessionBars(10750, true)}
	session, book := newTestSession(t, barFeed)

	candidates := []models.CandidateStock{{Code: "005930", Name: "삼성전자", Score: 80}}
	if err := session.Run(context.Background(), sessionDate, candidates); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Take profit at 10,700 was crossed by the 10,750 close.
	snap := book.BalanceSnapshot()
	if snap.Current <= snap.Initial {
		t.Errorf("balance = %f, want a profit over %f", snap.Current, snap.Initial)
	}
	if err := book.VerifyConservation(context.Background()); err != nil {
		t.Errorf("VerifyConservation: %v", err)
	}
	open, err := book.HasOpenPosition(context.Background(), "005930")
	if err != nil {
		t.Fatalf("HasOpenPosition: %v", err)
	}
	if open {
		t.Error("position still open after take profit")
	}
}

func TestSessionForcedLiquidation(t *testing.T) {
	// No exit bar: the stream ends with the position open, forcing a
	// time-based sell at the last seen price.
	barFeed := feed.SliceFeed{"005930": sessionBars(0, false)}
	session, book := newTestSession(t, barFeed)

	candidates := []models.CandidateStock{{Code: "005930", Name: "삼성전자", Score: 80}}
	if err := session.Run(context.Background(), sessionDate, candidates); err != nil {
		t.Fatalf("Run: %v", err)
	}

	open, err := book.HasOpenPosition(context.Background(), "005930")
	if err != nil {
		t.Fatalf("HasOpenPosition: %v", err)
	}
	if open {
		t.Error("forced liquidation left the position open")
	}
	if err := book.VerifyConservation(context.Background()); err != nil {
		t.Errorf("VerifyConservation: %v", err)
	}
}

func TestSessionRejectsBreakoutWithoutPattern(t *testing.T) {
	// Opening range plus a lone breakout bar: price and volume qualify,
	// but no pullback pattern backs the move.
	bars := sessionBars(0, false)[:5]
	bars = append(bars, minuteBar("09:15", 10210, 10290, 10200, 10280, 25000))
	barFeed := feed.SliceFeed{"005930": bars}
	session, book := newTestSession(t, barFeed)

	candidates := []models.CandidateStock{{Code: "005930", Name: "삼성전자", Score: 80}}
	if err := session.Run(context.Background(), sessionDate, candidates); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := book.BalanceSnapshot()
	if snap.Current != snap.Initial {
		t.Errorf("balance = %f, want untouched %f", snap.Current, snap.Initial)
	}
}

func TestSessionIgnoresPreOpenBars(t *testing.T) {
	// A wild pre-open print must not count toward the opening range; with
	// it included the range would blow past the ratio ceiling and the
	// symbol would be excluded for the day.
	bars := append(
		[]models.Bar{minuteBar("08:50", 10100, 12000, 9000, 10150, 50000)},
		sessionBars(10750, true)...,
	)
	barFeed := feed.SliceFeed{"005930": bars}
	session, book := newTestSession(t, barFeed)

	candidates := []models.CandidateStock{{Code: "005930", Name: "삼성전자", Score: 80}}
	if err := session.Run(context.Background(), sessionDate, candidates); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := book.BalanceSnapshot()
	if snap.Current <= snap.Initial {
		t.Errorf("balance = %f, want a profit over %f", snap.Current, snap.Initial)
	}
}

func TestSessionExcludesOutOfBoundsRange(t *testing.T) {
	// Opening range of 2,000 on a ~50,000 midpoint: ~4%, above the 2.5%
	// ceiling. The symbol must be dropped without signals.
	bars := []models.Bar{
		minuteBar("09:00", 50000, 51500, 49500, 51000, 10000),
		minuteBar("09:01", 51000, 51400, 50000, 50500, 10000),
		minuteBar("09:02", 50500, 51000, 49800, 50200, 10000),
		minuteBar("09:03", 50200, 50900, 49600, 50400, 10000),
		minuteBar("09:04", 50400, 51100, 49700, 50800, 10000),
		minuteBar("09:15", 50800, 52100, 50700, 52000, 30000),
	}
	barFeed := feed.SliceFeed{"005930": bars}
	session, book := newTestSession(t, barFeed)

	candidates := []models.CandidateStock{{Code: "005930", Name: "삼성전자", Score: 80}}
	if err := session.Run(context.Background(), sessionDate, candidates); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap := book.BalanceSnapshot(); snap.Current != snap.Initial {
		t.Errorf("balance = %f, want untouched %f", snap.Current, snap.Initial)
	}
}
