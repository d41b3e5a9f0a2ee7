package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS position_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	price REAL NOT NULL,
	quantity INTEGER NOT NULL,
	timestamp DATETIME NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	linked_buy_id INTEGER,
	profit_loss REAL NOT NULL DEFAULT 0,
	profit_rate REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_position_symbol ON position_records(symbol, side);
CREATE INDEX IF NOT EXISTS idx_position_linked_buy ON position_records(linked_buy_id);

CREATE TABLE IF NOT EXISTS minute_bars (
	symbol TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (symbol, timestamp)
);

CREATE TABLE IF NOT EXISTS candidates (
	date TEXT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	market TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	prev_close REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (date, code)
);
`

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", apperrors.ErrDatabaseError, dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %v", apperrors.ErrDatabaseError, dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing schema: %v", apperrors.ErrDatabaseError, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertBuy appends a BUY record and returns its id.
func (s *SQLiteStore) InsertBuy(ctx context.Context, rec models.PositionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO position_records (symbol, name, side, price, quantity, timestamp, reason)
		VALUES (?, ?, 'BUY', ?, ?, ?, ?)`,
		rec.Symbol, rec.Name, rec.Price, rec.Quantity, rec.Timestamp, rec.Reason)
	if err != nil {
		return 0, apperrors.Wrap(err, "inserting buy record")
	}
	return res.LastInsertId()
}

// InsertSell appends a SELL record linked to a BUY. The duplicate check and
// the insert run in one transaction, so at most one SELL can ever reference
// a given BUY id.
func (s *SQLiteStore) InsertSell(ctx context.Context, rec models.PositionRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(err, "beginning sell transaction")
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM position_records WHERE side = 'SELL' AND linked_buy_id = ?`,
		rec.LinkedBuyID).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "checking for duplicate sell")
	}
	if count > 0 {
		return 0, apperrors.NewLedgerError("close", rec.Symbol, apperrors.ErrAlreadyClosed)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO position_records
			(symbol, name, side, price, quantity, timestamp, reason, linked_buy_id, profit_loss, profit_rate)
		VALUES (?, ?, 'SELL', ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, rec.Name, rec.Price, rec.Quantity, rec.Timestamp, rec.Reason,
		rec.LinkedBuyID, rec.ProfitLoss, rec.ProfitRate)
	if err != nil {
		return 0, apperrors.Wrap(err, "inserting sell record")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, "committing sell transaction")
	}
	return id, nil
}

// FindUnmatchedBuy returns the oldest BUY for symbol with no linked SELL.
func (s *SQLiteStore) FindUnmatchedBuy(ctx context.Context, symbol string) (*models.PositionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, name, side, price, quantity, timestamp, reason
		FROM position_records b
		WHERE b.symbol = ? AND b.side = 'BUY'
		  AND NOT EXISTS (
			SELECT 1 FROM position_records s
			WHERE s.side = 'SELL' AND s.linked_buy_id = b.id
		  )
		ORDER BY b.id ASC
		LIMIT 1`, symbol)

	var rec models.PositionRecord
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Name, &rec.Side, &rec.Price,
		&rec.Quantity, &rec.Timestamp, &rec.Reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "finding unmatched buy")
	}
	return &rec, nil
}

// Records returns all ledger records in insertion order.
func (s *SQLiteStore) Records(ctx context.Context) ([]models.PositionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, name, side, price, quantity, timestamp, reason,
		       COALESCE(linked_buy_id, 0), profit_loss, profit_rate
		FROM position_records
		ORDER BY id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying ledger records")
	}
	defer rows.Close()

	var records []models.PositionRecord
	for rows.Next() {
		var rec models.PositionRecord
		err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Name, &rec.Side, &rec.Price,
			&rec.Quantity, &rec.Timestamp, &rec.Reason,
			&rec.LinkedBuyID, &rec.ProfitLoss, &rec.ProfitRate)
		if err != nil {
			return nil, apperrors.Wrap(err, "scanning ledger record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveBars upserts minute bars for a symbol.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "beginning bar transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO minute_bars (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(err, "preparing bar insert")
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return apperrors.Wrapf(err, "inserting bar for %s at %s", symbol, b.Timestamp)
		}
	}
	return tx.Commit()
}

// GetBars returns the bars for symbol on the given session date.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, date time.Time) ([]models.Bar, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM minute_bars
		WHERE symbol = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`, symbol, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying bars")
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		b := models.Bar{Symbol: symbol}
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, apperrors.Wrap(err, "scanning bar")
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveCandidates replaces the candidate list for a date.
func (s *SQLiteStore) SaveCandidates(ctx context.Context, date time.Time, candidates []models.CandidateStock) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "beginning candidate transaction")
	}
	defer tx.Rollback()

	day := date.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE date = ?`, day); err != nil {
		return apperrors.Wrap(err, "clearing candidates")
	}
	for _, c := range candidates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO candidates (date, code, name, market, score, reason, prev_close)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			day, c.Code, c.Name, string(c.Market), c.Score, c.Reason, c.PrevClose)
		if err != nil {
			return apperrors.Wrapf(err, "inserting candidate %s", c.Code)
		}
	}
	return tx.Commit()
}

// GetCandidates returns the candidate list for a date, highest score first.
func (s *SQLiteStore) GetCandidates(ctx context.Context, date time.Time) ([]models.CandidateStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, market, score, reason, prev_close
		FROM candidates
		WHERE date = ?
		ORDER BY score DESC, code ASC`, date.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.Wrap(err, "querying candidates")
	}
	defer rows.Close()

	var candidates []models.CandidateStock
	for rows.Next() {
		var c models.CandidateStock
		var market string
		if err := rows.Scan(&c.Code, &c.Name, &market, &c.Score, &c.Reason, &c.PrevClose); err != nil {
			return nil, apperrors.Wrap(err, "scanning candidate")
		}
		c.Market = models.Market(market)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
