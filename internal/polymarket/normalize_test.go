package polymarket

import (
	"testing"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

func TestTaxable(t *testing.T) {
	tests := []struct {
		name string
		a    Activity
		want bool
	}{
		{"trade", Activity{Type: TypeTrade}, true},
		{"redeem with payout", Activity{Type: TypeRedeem, UsdcSize: 3}, true},
		{"redeem of a losing outcome", Activity{Type: TypeRedeem, UsdcSize: 0}, false},
		{"split", Activity{Type: "SPLIT", UsdcSize: 10}, false},
		{"reward", Activity{Type: "REWARD", UsdcSize: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Taxable(tt.a); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestToTransaction(t *testing.T) {
	t.Run("maps a trade", func(t *testing.T) {
		tx := ToTransaction(Activity{
			Type: TypeTrade, Side: "buy", Size: 100, Price: 0.4, UsdcSize: 40,
			ConditionID: "0xcond", Title: "Will it rain?", Outcome: "Yes",
			Timestamp: 1700000000, TransactionHash: "0xhash", Asset: "123",
		})

		if tx.Side != model.SideBuy || tx.Quantity != 100 || tx.Price != 0.4 || tx.Notional != 40 {
			t.Errorf("Unexpected transaction %+v", tx)
		}
		if tx.Market != "0xcond" || tx.Title != "Will it rain?" || tx.Outcome != "Yes" {
			t.Errorf("Unexpected identity %+v", tx)
		}
		if !tx.Timestamp.Equal(time.Unix(1700000000, 0)) {
			t.Errorf("Unexpected timestamp %s", tx.Timestamp)
		}
		if tx.SourceID != "0xhash:123" {
			t.Errorf("Expected source id 0xhash:123, got %s", tx.SourceID)
		}
	})

	t.Run("remaps a redemption to a full-value sell", func(t *testing.T) {
		tx := ToTransaction(Activity{Type: TypeRedeem, UsdcSize: 25, Size: 0, ConditionID: "0xcond"})

		if tx.Side != model.SideSell || tx.Price != RedeemPrice || tx.Quantity != 25 || !tx.Settlement {
			t.Errorf("Unexpected settlement %+v", tx)
		}
		if tx.Outcome != "" {
			t.Errorf("Expected outcome left for inference, got %q", tx.Outcome)
		}
	})

	t.Run("falls back to slug for the market key", func(t *testing.T) {
		tx := ToTransaction(Activity{Type: TypeTrade, Side: "SELL", Slug: "rain-tomorrow"})
		if tx.Market != "rain-tomorrow" {
			t.Errorf("Expected slug market key, got %q", tx.Market)
		}
	})
}

func TestCollector(t *testing.T) {
	trade := func(hash string, ts int64, side, outcome string, size float64) Activity {
		return Activity{
			Type: TypeTrade, TransactionHash: hash, Asset: outcome, Timestamp: ts,
			Side: side, Outcome: outcome, Size: size, Price: 0.5, ConditionID: "m",
		}
	}

	t.Run("drops duplicates across pages", func(t *testing.T) {
		c := NewCollector()
		c.Add([]Activity{trade("a", 3, "BUY", "Yes", 1), trade("b", 2, "BUY", "Yes", 1)})
		added := c.Add([]Activity{trade("b", 2, "BUY", "Yes", 1), trade("c", 1, "BUY", "Yes", 1)})

		if added != 1 {
			t.Errorf("Expected 1 new transaction, got %d", added)
		}
		if c.Len() != 3 || c.Raw() != 4 {
			t.Errorf("Expected 3 kept of 4 raw, got %d of %d", c.Len(), c.Raw())
		}
	})

	t.Run("keeps same-hash entries for different assets", func(t *testing.T) {
		c := NewCollector()
		c.Add([]Activity{trade("a", 1, "BUY", "Yes", 1), trade("a", 1, "BUY", "No", 1)})
		if c.Len() != 2 {
			t.Errorf("Expected 2 transactions, got %d", c.Len())
		}
	})

	t.Run("returns transactions oldest first", func(t *testing.T) {
		c := NewCollector()
		c.Add([]Activity{trade("a", 30, "SELL", "Yes", 1), trade("b", 20, "BUY", "Yes", 1)})
		c.Add([]Activity{trade("c", 10, "BUY", "Yes", 1)})

		txns := c.Transactions()
		for i := 1; i < len(txns); i++ {
			if txns[i].Timestamp.Before(txns[i-1].Timestamp) {
				t.Fatalf("Transactions out of order at %d", i)
			}
		}
	})

	t.Run("filters non-taxable entries", func(t *testing.T) {
		c := NewCollector()
		c.Add([]Activity{
			trade("a", 1, "BUY", "Yes", 1),
			{Type: TypeRedeem, TransactionHash: "r", Timestamp: 2},
			{Type: "MERGE", TransactionHash: "m", Timestamp: 3, UsdcSize: 5},
		})
		if c.Len() != 1 {
			t.Errorf("Expected 1 transaction, got %d", c.Len())
		}
	})
}

func TestInferSettlementOutcomes(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }

	t.Run("picks the outcome with the largest net holding", func(t *testing.T) {
		txns := []model.Transaction{
			{Market: "m", Outcome: "Yes", Side: model.SideBuy, Quantity: 30, Timestamp: at(1)},
			{Market: "m", Outcome: "No", Side: model.SideBuy, Quantity: 50, Timestamp: at(2)},
			{Market: "m", Outcome: "No", Side: model.SideSell, Quantity: 40, Timestamp: at(3)},
			{Market: "m", Side: model.SideSell, Quantity: 30, Settlement: true, Timestamp: at(4)},
		}

		InferSettlementOutcomes(txns)

		if txns[3].Outcome != "Yes" {
			t.Errorf("Expected Yes, got %q", txns[3].Outcome)
		}
	})

	t.Run("ignores other markets and later buys", func(t *testing.T) {
		txns := []model.Transaction{
			{Market: "other", Outcome: "Yes", Side: model.SideBuy, Quantity: 10, Timestamp: at(1)},
			{Market: "m", Side: model.SideSell, Quantity: 5, Settlement: true, Timestamp: at(2)},
			{Market: "m", Outcome: "Yes", Side: model.SideBuy, Quantity: 10, Timestamp: at(3)},
		}

		InferSettlementOutcomes(txns)

		if txns[1].Outcome != model.DefaultSettlementOutcome {
			t.Errorf("Expected %q, got %q", model.DefaultSettlementOutcome, txns[1].Outcome)
		}
	})

	t.Run("keeps explicit outcomes", func(t *testing.T) {
		txns := []model.Transaction{
			{Market: "m", Outcome: "Yes", Side: model.SideBuy, Quantity: 10, Timestamp: at(1)},
			{Market: "m", Outcome: "No", Side: model.SideSell, Quantity: 5, Settlement: true, Timestamp: at(2)},
		}

		InferSettlementOutcomes(txns)

		if txns[1].Outcome != "No" {
			t.Errorf("Expected No, got %q", txns[1].Outcome)
		}
	})

	t.Run("inferred settlements reduce the holding", func(t *testing.T) {
		txns := []model.Transaction{
			{Market: "m", Outcome: "Yes", Side: model.SideBuy, Quantity: 10, Timestamp: at(1)},
			{Market: "m", Side: model.SideSell, Quantity: 10, Settlement: true, Timestamp: at(2)},
			{Market: "m", Side: model.SideSell, Quantity: 10, Settlement: true, Timestamp: at(3)},
		}

		InferSettlementOutcomes(txns)

		if txns[1].Outcome != "Yes" || txns[2].Outcome != model.DefaultSettlementOutcome {
			t.Errorf("Expected Yes then %q, got %q then %q", model.DefaultSettlementOutcome, txns[1].Outcome, txns[2].Outcome)
		}
	})
}
