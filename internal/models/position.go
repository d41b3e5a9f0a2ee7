package models

import "time"

// PositionRecord is an immutable, append-only ledger entry. A BUY record is
// open until exactly one SELL record references it via LinkedBuyID.
type PositionRecord struct {
	ID          int64
	Symbol      string
	Name        string
	Side        Side
	Price       float64
	Quantity    int
	Timestamp   time.Time
	Reason      string
	LinkedBuyID int64 // SELL only; the BUY record this sell settles
	ProfitLoss  float64
	ProfitRate  float64
}

// Amount returns the cash value of the record.
func (r PositionRecord) Amount() float64 {
	return r.Price * float64(r.Quantity)
}

// BalanceSnapshot is a consistent point-in-time view of the ledger balance.
type BalanceSnapshot struct {
	Current    float64
	Initial    float64
	ProfitRate float64 // percent vs initial
}
