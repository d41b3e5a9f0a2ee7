package models

import (
	"fmt"
	"time"

	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
)

// BarWindow is a bounded, time-ordered sequence of bars for one symbol on
// one trading day. The window only ever grows; historical bars are never
// mutated. It is owned by the caller driving replay or live ticks and is
// not safe for concurrent use.
type BarWindow struct {
	symbol string
	date   time.Time
	bars   []Bar
}

// NewBarWindow creates an empty window for the given symbol and session date.
func NewBarWindow(symbol string, date time.Time) *BarWindow {
	return &BarWindow{symbol: symbol, date: date}
}

// Symbol returns the symbol the window belongs to.
func (w *BarWindow) Symbol() string { return w.symbol }

// Date returns the session date of the window.
func (w *BarWindow) Date() time.Time { return w.date }

// Len returns the number of bars in the window.
func (w *BarWindow) Len() int { return len(w.bars) }

// Append adds a bar to the window. Timestamps must be strictly increasing;
// out-of-order delivery is a caller contract violation.
func (w *BarWindow) Append(bar Bar) error {
	if !bar.Valid() {
		return fmt.Errorf("appending bar for %s at %s: %w", w.symbol, bar.Timestamp, apperrors.ErrMalformedBar)
	}
	if n := len(w.bars); n > 0 && !bar.Timestamp.After(w.bars[n-1].Timestamp) {
		return fmt.Errorf("appending bar for %s: timestamp %s not after %s",
			w.symbol, bar.Timestamp, w.bars[n-1].Timestamp)
	}
	w.bars = append(w.bars, bar)
	return nil
}

// At returns the bar at index i.
func (w *BarWindow) At(i int) Bar { return w.bars[i] }

// Last returns the most recent bar, or false when the window is empty.
func (w *BarWindow) Last() (Bar, bool) {
	if len(w.bars) == 0 {
		return Bar{}, false
	}
	return w.bars[len(w.bars)-1], true
}

// Bars returns a copy of all bars in the window.
func (w *BarWindow) Bars() []Bar {
	out := make([]Bar, len(w.bars))
	copy(out, w.bars)
	return out
}

// Tail returns a copy of the most recent n bars, or all bars when fewer
// than n exist.
func (w *BarWindow) Tail(n int) []Bar {
	if n > len(w.bars) {
		n = len(w.bars)
	}
	out := make([]Bar, n)
	copy(out, w.bars[len(w.bars)-n:])
	return out
}

// Slice returns a copy of bars in [from, to).
func (w *BarWindow) Slice(from, to int) []Bar {
	out := make([]Bar, to-from)
	copy(out, w.bars[from:to])
	return out
}

// Before returns a copy of the bars strictly before the given timestamp.
func (w *BarWindow) Before(t time.Time) []Bar {
	var out []Bar
	for _, b := range w.bars {
		if !b.Timestamp.Before(t) {
			break
		}
		out = append(out, b)
	}
	return out
}
