package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/repository"
)

// TestWallet is a syntactically valid wallet address used across tests.
const TestWallet = "0xabcdefabcdefabcdefabcdefabcdefabcdef0001"

// Day returns midnight UTC of the given day offset from 2024-01-01.
func Day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// TxBuilder builds model.Transaction values with sensible defaults.
type TxBuilder struct {
	tx model.Transaction
}

// NewTx starts a buy of one share of "Yes" in market "m" on day 0.
func NewTx() *TxBuilder {
	return &TxBuilder{tx: model.Transaction{
		SourceID:  "tx",
		Timestamp: Day(0),
		Market:    "m",
		Title:     "Test Market",
		Outcome:   "Yes",
		Side:      model.SideBuy,
		Price:     0.5,
		Quantity:  1,
		Notional:  0.5,
	}}
}

func (b *TxBuilder) WithID(id string) *TxBuilder {
	b.tx.SourceID = id
	return b
}

func (b *TxBuilder) WithMarket(market, outcome string) *TxBuilder {
	b.tx.Market = market
	b.tx.Outcome = outcome
	return b
}

func (b *TxBuilder) OnDay(n int) *TxBuilder {
	b.tx.Timestamp = Day(n)
	return b
}

// Buy sets side, quantity and price; notional follows.
func (b *TxBuilder) Buy(quantity, price float64) *TxBuilder {
	b.tx.Side = model.SideBuy
	b.tx.Quantity = quantity
	b.tx.Price = price
	b.tx.Notional = quantity * price
	return b
}

// Sell sets side, quantity and price; notional follows.
func (b *TxBuilder) Sell(quantity, price float64) *TxBuilder {
	b.tx.Side = model.SideSell
	b.tx.Quantity = quantity
	b.tx.Price = price
	b.tx.Notional = quantity * price
	return b
}

func (b *TxBuilder) WithFees(fees float64) *TxBuilder {
	b.tx.Fees = fees
	return b
}

func (b *TxBuilder) Build() model.Transaction {
	return b.tx
}

// SampleHistory returns a buy of 100@0.40 on day 0 and a sale of 100@0.70 on day 10.
func SampleHistory() []model.Transaction {
	return []model.Transaction{
		NewTx().WithID("buy-1").OnDay(0).Buy(100, 0.40).Build(),
		NewTx().WithID("sell-1").OnDay(10).Sell(100, 0.70).Build(),
	}
}

// StoreHistory saves transactions as a complete run for wallet and returns the run.
func StoreHistory(t *testing.T, db *sql.DB, wallet string, fetchedAt time.Time, txns []model.Transaction) model.FetchRun {
	t.Helper()

	run, err := repository.NewHistoryRepository(db).SaveSnapshot(context.Background(), model.History{
		Run:          model.FetchRun{Wallet: wallet, FetchedAt: fetchedAt, WindowCount: 1},
		Transactions: txns,
		Complete:     true,
	})
	if err != nil {
		t.Fatalf("Failed to store history: %v", err)
	}
	return run
}
