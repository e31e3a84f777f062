package model

import "time"

// Side is the direction of a transaction. Settlements are recorded as sells.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome labels used when the source does not name one.
const (
	// DefaultOutcome is assigned to CSV rows without an outcome column or value.
	DefaultOutcome = "Yes"
	// DefaultSettlementOutcome is assigned to a settlement whose outcome cannot be inferred.
	DefaultSettlementOutcome = "__REDEEM__"
)

// Transaction is a single acquisition or disposal of outcome shares.
// Produced by the activity fetcher or the CSV importer and never mutated afterwards.
type Transaction struct {
	SourceID   string    `json:"sourceId"`
	Timestamp  time.Time `json:"timestamp"`
	Market     string    `json:"market"`
	Title      string    `json:"title"`
	Outcome    string    `json:"outcome"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	Notional   float64   `json:"notional"`
	Fees       float64   `json:"fees"`
	Settlement bool      `json:"settlement"`
}

// PositionKey identifies one tradable outcome of one market.
type PositionKey struct {
	Market  string
	Outcome string
}

// PositionKey returns the grouping key of the transaction.
func (t Transaction) PositionKey() PositionKey {
	return PositionKey{Market: t.Market, Outcome: t.Outcome}
}

// DisplayName is the human readable market name, falling back to the market key.
func (t Transaction) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Market
}
