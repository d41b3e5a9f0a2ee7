package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testBuy(symbol string, price float64, quantity int) models.PositionRecord {
	return models.PositionRecord{
		Symbol:    symbol,
		Name:      symbol,
		Side:      models.SideBuy,
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now(),
		Reason:    "orb_breakout",
	}
}

func TestNewSQLiteStoreBadPath(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := NewSQLiteStore(t.TempDir())
	if !apperrors.Is(err, apperrors.ErrDatabaseError) {
		t.Errorf("err = %v, want ErrDatabaseError", err)
	}
}

func TestInsertSellRejectsDuplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	buyID, err := st.InsertBuy(ctx, testBuy("005930", 50000, 10))
	if err != nil {
		t.Fatalf("InsertBuy: %v", err)
	}

	sell := models.PositionRecord{
		Symbol: "005930", Side: models.SideSell,
		Price: 51000, Quantity: 10,
		Timestamp: time.Now(), Reason: "take_profit",
		LinkedBuyID: buyID,
	}
	if _, err := st.InsertSell(ctx, sell); err != nil {
		t.Fatalf("first InsertSell: %v", err)
	}
	_, err = st.InsertSell(ctx, sell)
	if !apperrors.Is(err, apperrors.ErrAlreadyClosed) {
		t.Errorf("second InsertSell error = %v, want ErrAlreadyClosed", err)
	}
}

func TestFindUnmatchedBuyOldestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.InsertBuy(ctx, testBuy("005930", 50000, 10))
	if err != nil {
		t.Fatalf("InsertBuy: %v", err)
	}
	second, err := st.InsertBuy(ctx, testBuy("005930", 50500, 5))
	if err != nil {
		t.Fatalf("InsertBuy: %v", err)
	}

	buy, err := st.FindUnmatchedBuy(ctx, "005930")
	if err != nil {
		t.Fatalf("FindUnmatchedBuy: %v", err)
	}
	if buy == nil || buy.ID != first {
		t.Fatalf("unmatched buy = %+v, want id %d", buy, first)
	}

	_, err = st.InsertSell(ctx, models.PositionRecord{
		Symbol: "005930", Side: models.SideSell,
		Price: 51000, Quantity: 10,
		Timestamp: time.Now(), LinkedBuyID: first,
	})
	if err != nil {
		t.Fatalf("InsertSell: %v", err)
	}

	buy, err = st.FindUnmatchedBuy(ctx, "005930")
	if err != nil {
		t.Fatalf("FindUnmatchedBuy: %v", err)
	}
	if buy == nil || buy.ID != second {
		t.Fatalf("unmatched buy after settle = %+v, want id %d", buy, second)
	}

	// Other symbols never match.
	buy, err = st.FindUnmatchedBuy(ctx, "000660")
	if err != nil {
		t.Fatalf("FindUnmatchedBuy: %v", err)
	}
	if buy != nil {
		t.Errorf("unexpected unmatched buy for other symbol: %+v", buy)
	}
}

func TestGetBarsFiltersByDay(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	bars := []models.Bar{
		{Symbol: "005930", Timestamp: day.Add(9 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000},
		{Symbol: "005930", Timestamp: day.Add(9*time.Hour + time.Minute), Open: 100, High: 102, Low: 100, Close: 101, Volume: 1100},
		// Next day, must not be returned.
		{Symbol: "005930", Timestamp: day.AddDate(0, 0, 1).Add(9 * time.Hour), Open: 100, High: 101, Low: 99, Close: 100, Volume: 900},
	}
	if err := st.SaveBars(ctx, "005930", bars); err != nil {
		t.Fatalf("SaveBars: %v", err)
	}

	got, err := st.GetBars(ctx, "005930", day)
	if err != nil {
		t.Fatalf("GetBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("bars not in timestamp order")
	}
}

func TestSaveCandidatesReplacesDay(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)

	err := st.SaveCandidates(ctx, day, []models.CandidateStock{
		{Code: "005930", Name: "삼성전자", Market: models.MarketKOSPI, Score: 70},
	})
	if err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}
	err = st.SaveCandidates(ctx, day, []models.CandidateStock{
		{Code: "000660", Name: "SK하이닉스", Market: models.MarketKOSPI, Score: 80},
		{Code: "035720", Name: "카카오", Market: models.MarketKOSPI, Score: 80},
	})
	if err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}

	got, err := st.GetCandidates(ctx, day)
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(candidates) = %d, want 2 after replace", len(got))
	}
	// Equal scores break ties by code.
	if got[0].Code != "000660" || got[1].Code != "035720" {
		t.Errorf("order = %s, %s; want 000660, 035720", got[0].Code, got[1].Code)
	}
}

// Property: saving bars and reading them back for the same day preserves
// OHLCV values and timestamp order.
func TestBarRoundTripProperty(t *testing.T) {
	st := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(1)

	properties := gopter.NewProperties(parameters)

	properties.Property("bar round-trip preserves values", prop.ForAll(
		func(symbolN int, count int, base float64) bool {
			ctx := context.Background()
			symbol := fmt.Sprintf("%06d", symbolN)
			day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)

			bars := make([]models.Bar, count)
			for i := range bars {
				price := base + float64(i)
				bars[i] = models.Bar{
					Symbol:    symbol,
					Timestamp: day.Add(9*time.Hour + time.Duration(i)*time.Minute),
					Open:      price,
					High:      price * 1.01,
					Low:       price * 0.99,
					Close:     price * 1.005,
					Volume:    1000 + int64(i),
				}
			}
			if err := st.SaveBars(ctx, symbol, bars); err != nil {
				return false
			}

			got, err := st.GetBars(ctx, symbol, day)
			if err != nil || len(got) != len(bars) {
				return false
			}
			for i := range got {
				if !got[i].Timestamp.Equal(bars[i].Timestamp) ||
					got[i].Open != bars[i].Open ||
					got[i].High != bars[i].High ||
					got[i].Low != bars[i].Low ||
					got[i].Close != bars[i].Close ||
					got[i].Volume != bars[i].Volume {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 999999),
		gen.IntRange(1, 30),
		gen.Float64Range(1000, 100000),
	))

	properties.TestingRun(t)
}
