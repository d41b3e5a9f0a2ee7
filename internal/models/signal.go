package models

import "time"

// SignalKind represents the direction of a trading signal.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
)

// SellReason classifies why a sell signal was produced.
type SellReason string

const (
	SellStopLoss   SellReason = "stop_loss"
	SellTakeProfit SellReason = "take_profit"
	SellTimeBased  SellReason = "time_based"
)

// SignalMeta carries the risk levels embedded in a buy signal.
type SignalMeta struct {
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	RangeSize   float64
	VolumeRatio float64
}

// Signal is a transient buy/sell decision produced by the breakout
// generator. It is the input to the position ledger and is not persisted
// directly.
type Signal struct {
	Code       string
	Kind       SignalKind
	Reason     string
	SellReason SellReason // set for SELL signals only
	Confidence float64    // 0..1
	Timestamp  time.Time
	Meta       SignalMeta
}
