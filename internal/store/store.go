// Package store provides data persistence for the signal engine.
package store

import (
	"context"
	"time"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// LedgerStore persists the append-only position ledger. Records are never
// updated or deleted.
type LedgerStore interface {
	// InsertBuy appends a BUY record and returns its id.
	InsertBuy(ctx context.Context, rec models.PositionRecord) (int64, error)
	// InsertSell appends a SELL record linked to a BUY. It must fail with
	// ErrAlreadyClosed, atomically, when a SELL already references the
	// same BUY id.
	InsertSell(ctx context.Context, rec models.PositionRecord) (int64, error)
	// FindUnmatchedBuy returns the oldest BUY record for symbol with no
	// linked SELL, or nil when every BUY is settled.
	FindUnmatchedBuy(ctx context.Context, symbol string) (*models.PositionRecord, error)
	// Records returns all ledger records in insertion order.
	Records(ctx context.Context) ([]models.PositionRecord, error)
	Close() error
}

// BarStore persists minute bars for replay and audit.
type BarStore interface {
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error
	// GetBars returns the bars for symbol on the given session date in
	// timestamp order.
	GetBars(ctx context.Context, symbol string, date time.Time) ([]models.Bar, error)
	Close() error
}

// CandidateStore persists the daily candidate list for audit.
type CandidateStore interface {
	SaveCandidates(ctx context.Context, date time.Time, candidates []models.CandidateStock) error
	GetCandidates(ctx context.Context, date time.Time) ([]models.CandidateStock, error)
	Close() error
}

// Store combines every persistence concern behind one handle.
type Store interface {
	LedgerStore
	BarStore
	CandidateStore
}
