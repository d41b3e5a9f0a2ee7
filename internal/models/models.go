// Package models provides domain models for the signal engine.
package models

import (
	"time"
)

// Market represents the listing market of a symbol.
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
	MarketKONEX  Market = "KONEX"
)

// Primary reports whether the market is eligible for intraday monitoring.
func (m Market) Primary() bool {
	return m == MarketKOSPI || m == MarketKOSDAQ
}

// Side represents the side of a ledger record.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Bar represents minute OHLCV data for one symbol.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Body returns the absolute candle body size.
func (b Bar) Body() float64 {
	body := b.Close - b.Open
	if body < 0 {
		body = -body
	}
	return body
}

// Valid reports whether the bar carries usable price data. Bars failing this
// check are skipped by consumers, never propagated as fatal errors.
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	if b.High < b.Low {
		return false
	}
	return !b.Timestamp.IsZero()
}

// Quote represents a current market quote for a symbol.
type Quote struct {
	Symbol       string
	Price        float64
	Open         float64
	High         float64
	Low          float64
	Volume       int64
	VolumeAmount float64 // turnover; derived from Volume*Price when zero
	Timestamp    time.Time
}

// TurnoverAmount returns the quote turnover, deriving it from volume and
// price when the feed did not supply one.
func (q Quote) TurnoverAmount() float64 {
	if q.VolumeAmount > 0 {
		return q.VolumeAmount
	}
	return float64(q.Volume) * q.Price
}

// CandidateStock is a symbol pre-screened for intraday monitoring. Created
// once per trading day during the pre-market scan and read-only afterward.
type CandidateStock struct {
	Code      string
	Name      string
	Market    Market
	Score     int
	Reason    string
	PrevClose float64
}
