package utils

import (
	"fmt"
	"time"
)

// SessionClock resolves the intraday time windows of a trading session
// against concrete dates. Times are wall-clock "HH:MM" in the exchange's
// local time.
type SessionClock struct {
	open        time.Duration
	orbEnd      time.Duration
	buyStart    time.Duration
	buyEnd      time.Duration
	liquidation time.Duration
}

// NewSessionClock parses the window boundaries. All five must be valid
// "HH:MM" strings in non-decreasing order.
func NewSessionClock(open, orbEnd, buyStart, buyEnd, liquidation string) (*SessionClock, error) {
	parse := func(name, v string) (time.Duration, error) {
		t, err := time.Parse("15:04", v)
		if err != nil {
			return 0, fmt.Errorf("parsing %s time %q: %w", name, v, err)
		}
		return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
	}

	c := &SessionClock{}
	var err error
	if c.open, err = parse("open", open); err != nil {
		return nil, err
	}
	if c.orbEnd, err = parse("orb end", orbEnd); err != nil {
		return nil, err
	}
	if c.buyStart, err = parse("buy start", buyStart); err != nil {
		return nil, err
	}
	if c.buyEnd, err = parse("buy end", buyEnd); err != nil {
		return nil, err
	}
	if c.liquidation, err = parse("liquidation", liquidation); err != nil {
		return nil, err
	}

	if c.orbEnd < c.open || c.buyStart < c.orbEnd || c.buyEnd < c.buyStart || c.liquidation < c.buyEnd {
		return nil, fmt.Errorf("session windows out of order: open %s, orb end %s, buy %s-%s, liquidation %s",
			open, orbEnd, buyStart, buyEnd, liquidation)
	}
	return c, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MarketOpen returns the session open on the given date.
func (c *SessionClock) MarketOpen(date time.Time) time.Time {
	return midnight(date).Add(c.open)
}

// ORBEnd returns the end of the opening-range window on the given date.
func (c *SessionClock) ORBEnd(date time.Time) time.Time {
	return midnight(date).Add(c.orbEnd)
}

// LiquidationAt returns the forced-liquidation cutoff on the given date.
func (c *SessionClock) LiquidationAt(date time.Time) time.Time {
	return midnight(date).Add(c.liquidation)
}

// InORBWindow reports whether t falls inside the opening-range window.
func (c *SessionClock) InORBWindow(t time.Time) bool {
	d := t.Sub(midnight(t))
	return d >= c.open && d < c.orbEnd
}

// InBuyWindow reports whether new entries are allowed at t.
func (c *SessionClock) InBuyWindow(t time.Time) bool {
	d := t.Sub(midnight(t))
	return d >= c.buyStart && d < c.buyEnd
}

// AtOrAfterLiquidation reports whether t has reached the forced-liquidation
// cutoff.
func (c *SessionClock) AtOrAfterLiquidation(t time.Time) bool {
	return t.Sub(midnight(t)) >= c.liquidation
}
