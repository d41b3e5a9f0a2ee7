package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// MemoryStore is an in-memory Store used by tests and dry runs.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	records    []models.PositionRecord
	bars       map[string][]models.Bar
	candidates map[string][]models.CandidateStock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		bars:       make(map[string][]models.Bar),
		candidates: make(map[string][]models.CandidateStock),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// InsertBuy appends a BUY record and returns its id.
func (s *MemoryStore) InsertBuy(_ context.Context, rec models.PositionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	rec.Side = models.SideBuy
	s.nextID++
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// InsertSell appends a SELL record, failing atomically when a SELL already
// references the same BUY id.
func (s *MemoryStore) InsertSell(_ context.Context, rec models.PositionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Side == models.SideSell && r.LinkedBuyID == rec.LinkedBuyID {
			return 0, apperrors.NewLedgerError("close", rec.Symbol, apperrors.ErrAlreadyClosed)
		}
	}
	rec.ID = s.nextID
	rec.Side = models.SideSell
	s.nextID++
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// FindUnmatchedBuy returns the oldest BUY for symbol with no linked SELL.
func (s *MemoryStore) FindUnmatchedBuy(_ context.Context, symbol string) (*models.PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settled := make(map[int64]bool)
	for _, r := range s.records {
		if r.Side == models.SideSell {
			settled[r.LinkedBuyID] = true
		}
	}
	for _, r := range s.records {
		if r.Side == models.SideBuy && r.Symbol == symbol && !settled[r.ID] {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

// Records returns all ledger records in insertion order.
func (s *MemoryStore) Records(_ context.Context) ([]models.PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PositionRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// SaveBars stores minute bars for a symbol.
func (s *MemoryStore) SaveBars(_ context.Context, symbol string, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars[symbol] = append(s.bars[symbol], bars...)
	sort.Slice(s.bars[symbol], func(i, j int) bool {
		return s.bars[symbol][i].Timestamp.Before(s.bars[symbol][j].Timestamp)
	})
	return nil
}

// GetBars returns the bars for symbol on the given session date.
func (s *MemoryStore) GetBars(_ context.Context, symbol string, date time.Time) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []models.Bar
	for _, b := range s.bars[symbol] {
		if !b.Timestamp.Before(dayStart) && b.Timestamp.Before(dayEnd) {
			out = append(out, b)
		}
	}
	return out, nil
}

// SaveCandidates replaces the candidate list for a date.
func (s *MemoryStore) SaveCandidates(_ context.Context, date time.Time, candidates []models.CandidateStock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CandidateStock, len(candidates))
	copy(out, candidates)
	s.candidates[date.Format("2006-01-02")] = out
	return nil
}

// GetCandidates returns the candidate list for a date.
func (s *MemoryStore) GetCandidates(_ context.Context, date time.Time) ([]models.CandidateStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.candidates[date.Format("2006-01-02")]
	out := make([]models.CandidateStock, len(stored))
	copy(out, stored)
	return out, nil
}
