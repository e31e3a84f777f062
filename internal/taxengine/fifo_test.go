package taxengine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

func buy(market, outcome string, qty, price float64, at time.Time) model.Transaction {
	return model.Transaction{Market: market, Title: market, Outcome: outcome, Side: model.SideBuy, Price: price, Quantity: qty, Notional: qty * price, Timestamp: at}
}

func sell(market, outcome string, qty, price float64, at time.Time) model.Transaction {
	return model.Transaction{Market: market, Title: market, Outcome: outcome, Side: model.SideSell, Price: price, Quantity: qty, Notional: qty * price, Timestamp: at}
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Errorf("Expected %s %s, got %s", field, want, got.StringFixed(2))
	}
}

func TestCalculateFIFO(t *testing.T) {
	t.Run("single buy and sell produces one short-term lot", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			buy("m1", "Yes", 100, 0.40, day(0)),
			sell("m1", "Yes", 100, 0.70, day(10)),
		})

		if len(lots) != 1 {
			t.Fatalf("Expected 1 lot, got %d", len(lots))
		}
		lot := lots[0]
		assertAmount(t, "proceeds", lot.Proceeds, "70.00")
		assertAmount(t, "costBasis", lot.CostBasis, "40.00")
		assertAmount(t, "gainLoss", lot.GainLoss, "30.00")
		if lot.Term != model.ShortTerm {
			t.Errorf("Expected Short-term, got %s", lot.Term)
		}
		if !lot.DateAcquired.Equal(day(0)) || !lot.DateSold.Equal(day(10)) {
			t.Errorf("Unexpected dates: acquired %s, sold %s", lot.DateAcquired, lot.DateSold)
		}
		if lot.Quantity != 100 {
			t.Errorf("Expected quantity 100, got %v", lot.Quantity)
		}
	})

	t.Run("sell spanning two buys splits into two lots and leaves remainder queued", func(t *testing.T) {
		result := Match([]model.Transaction{
			buy("m1", "Yes", 50, 0.30, day(0)),
			buy("m1", "Yes", 50, 0.50, day(5)),
			sell("m1", "Yes", 80, 0.60, day(400)),
		})

		if len(result.Lots) != 2 {
			t.Fatalf("Expected 2 lots, got %d", len(result.Lots))
		}

		first, second := result.Lots[0], result.Lots[1]
		if first.Quantity != 50 || !first.DateAcquired.Equal(day(0)) {
			t.Errorf("Expected first lot of 50 from day 0, got %v from %s", first.Quantity, first.DateAcquired)
		}
		assertAmount(t, "first proceeds", first.Proceeds, "30.00")
		assertAmount(t, "first costBasis", first.CostBasis, "15.00")
		if first.Term != model.LongTerm {
			t.Errorf("Expected first lot Long-term, got %s", first.Term)
		}

		// 395 days held, still on the long-term side of the boundary
		if second.Quantity != 30 || !second.DateAcquired.Equal(day(5)) {
			t.Errorf("Expected second lot of 30 from day 5, got %v from %s", second.Quantity, second.DateAcquired)
		}
		assertAmount(t, "second proceeds", second.Proceeds, "18.00")
		assertAmount(t, "second costBasis", second.CostBasis, "15.00")
		assertAmount(t, "second gainLoss", second.GainLoss, "3.00")
		if second.Term != model.LongTerm {
			t.Errorf("Expected second lot Long-term, got %s", second.Term)
		}

		if len(result.Open) != 1 {
			t.Fatalf("Expected 1 open lot, got %d", len(result.Open))
		}
		if math.Abs(result.Open[0].Quantity-20) > Epsilon {
			t.Errorf("Expected 20 shares left open, got %v", result.Open[0].Quantity)
		}
		if result.Open[0].UnitCost != 0.50 {
			t.Errorf("Expected open unit cost 0.50, got %v", result.Open[0].UnitCost)
		}
	})

	t.Run("sell with empty queue gets zero basis and unknown acquisition", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			sell("m1", "Yes", 10, 1.00, day(3)),
		})

		if len(lots) != 1 {
			t.Fatalf("Expected 1 lot, got %d", len(lots))
		}
		lot := lots[0]
		assertAmount(t, "costBasis", lot.CostBasis, "0.00")
		assertAmount(t, "proceeds", lot.Proceeds, "10.00")
		if !lot.GainLoss.Equal(lot.Proceeds) {
			t.Errorf("Expected gainLoss to equal proceeds, got %s vs %s", lot.GainLoss, lot.Proceeds)
		}
		if lot.AcquisitionKnown() {
			t.Errorf("Expected unknown acquisition, got %s", lot.DateAcquired)
		}
		if model.FormatDate(lot.DateAcquired) != model.UnknownDate {
			t.Errorf("Expected dateAcquired rendered as Unknown, got %s", model.FormatDate(lot.DateAcquired))
		}
	})

	t.Run("oversized sell matches what exists then emits zero-basis remainder", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			buy("m1", "No", 5, 0.20, day(0)),
			sell("m1", "No", 8, 0.50, day(1)),
		})

		if len(lots) != 2 {
			t.Fatalf("Expected 2 lots, got %d", len(lots))
		}
		if lots[0].Quantity != 5 || !lots[0].AcquisitionKnown() {
			t.Errorf("Expected matched lot of 5, got %v", lots[0].Quantity)
		}
		if math.Abs(lots[1].Quantity-3) > Epsilon || lots[1].AcquisitionKnown() {
			t.Errorf("Expected unmatched lot of 3, got %v", lots[1].Quantity)
		}
		assertAmount(t, "unmatched costBasis", lots[1].CostBasis, "0.00")
		assertAmount(t, "unmatched proceeds", lots[1].Proceeds, "1.50")
	})

	t.Run("fees raise cost basis and lower proceeds per unit", func(t *testing.T) {
		b := buy("m1", "Yes", 10, 0.50, day(0))
		b.Fees = 1.00
		s := sell("m1", "Yes", 10, 0.80, day(1))
		s.Fees = 0.50

		lots := CalculateFIFO([]model.Transaction{b, s})

		if len(lots) != 1 {
			t.Fatalf("Expected 1 lot, got %d", len(lots))
		}
		assertAmount(t, "costBasis", lots[0].CostBasis, "6.00")
		assertAmount(t, "proceeds", lots[0].Proceeds, "7.50")
		assertAmount(t, "gainLoss", lots[0].GainLoss, "1.50")
	})

	t.Run("different outcomes of one market are separate positions", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			buy("m1", "Yes", 10, 0.40, day(0)),
			buy("m1", "No", 10, 0.60, day(0)),
			sell("m1", "No", 10, 0.70, day(2)),
		})

		if len(lots) != 1 {
			t.Fatalf("Expected 1 lot, got %d", len(lots))
		}
		assertAmount(t, "costBasis", lots[0].CostBasis, "6.00")
		if lots[0].Outcome != "No" {
			t.Errorf("Expected outcome No, got %s", lots[0].Outcome)
		}
	})

	t.Run("fractional drift below epsilon does not leave a phantom lot", func(t *testing.T) {
		result := Match([]model.Transaction{
			buy("m1", "Yes", 0.1+0.2, 0.50, day(0)),
			sell("m1", "Yes", 0.3, 0.60, day(1)),
		})

		if len(result.Lots) != 1 {
			t.Errorf("Expected 1 lot, got %d", len(result.Lots))
		}
		if len(result.Open) != 0 {
			t.Errorf("Expected empty queue, got %d open lots", len(result.Open))
		}
	})

	t.Run("zero-quantity buy does not produce a lot", func(t *testing.T) {
		result := Match([]model.Transaction{
			buy("m1", "Yes", 0, 0.40, day(0)),
			buy("m1", "Yes", 10, 0.40, day(1)),
			sell("m1", "Yes", 10, 0.70, day(2)),
		})

		if len(result.Lots) != 1 {
			t.Fatalf("Expected 1 lot, got %d", len(result.Lots))
		}
		if result.Lots[0].Quantity != 10 {
			t.Errorf("Expected 10 shares matched, got %v", result.Lots[0].Quantity)
		}
		assertAmount(t, "costBasis", result.Lots[0].CostBasis, "4.00")
		if len(result.Open) != 0 {
			t.Errorf("Expected empty queue, got %d open lots", len(result.Open))
		}
	})

	t.Run("lots are sorted globally by sale date", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			buy("a", "Yes", 10, 0.10, day(0)),
			buy("b", "Yes", 10, 0.10, day(0)),
			sell("b", "Yes", 5, 0.20, day(1)),
			sell("a", "Yes", 5, 0.20, day(2)),
			sell("b", "Yes", 5, 0.20, day(3)),
		})

		for i := 1; i < len(lots); i++ {
			if lots[i].DateSold.Before(lots[i-1].DateSold) {
				t.Fatalf("Lot %d sold %s before lot %d sold %s", i, lots[i].DateSold, i-1, lots[i-1].DateSold)
			}
		}
	})

	t.Run("gainLoss equals proceeds minus costBasis exactly", func(t *testing.T) {
		lots := CalculateFIFO([]model.Transaction{
			buy("m1", "Yes", 33.333, 0.337, day(0)),
			buy("m1", "Yes", 17.1, 0.41, day(1)),
			sell("m1", "Yes", 40.5, 0.293, day(2)),
		})

		for i, lot := range lots {
			if !lot.GainLoss.Equal(lot.Proceeds.Sub(lot.CostBasis)) {
				t.Errorf("Lot %d: gainLoss %s != %s - %s", i, lot.GainLoss, lot.Proceeds, lot.CostBasis)
			}
			if lot.Proceeds.Exponent() < -2 || lot.CostBasis.Exponent() < -2 {
				t.Errorf("Lot %d: amounts not rounded to cents: %s / %s", i, lot.Proceeds, lot.CostBasis)
			}
		}
	})
}

func TestClassifyTerm(t *testing.T) {
	t.Run("exactly 365 days is long-term", func(t *testing.T) {
		if got := ClassifyTerm(day(0), day(365)); got != model.LongTerm {
			t.Errorf("Expected Long-term, got %s", got)
		}
	})

	t.Run("364 days is short-term", func(t *testing.T) {
		if got := ClassifyTerm(day(0), day(364)); got != model.ShortTerm {
			t.Errorf("Expected Short-term, got %s", got)
		}
	})

	t.Run("one second short of 365 days is short-term", func(t *testing.T) {
		if got := ClassifyTerm(day(0), day(365).Add(-time.Second)); got != model.ShortTerm {
			t.Errorf("Expected Short-term, got %s", got)
		}
	})

	t.Run("unknown acquisition is short-term", func(t *testing.T) {
		if got := ClassifyTerm(time.Time{}, day(1000)); got != model.ShortTerm {
			t.Errorf("Expected Short-term, got %s", got)
		}
	})
}

func TestMatchProperties(t *testing.T) {
	history := []model.Transaction{
		buy("m1", "Yes", 12.5, 0.31, day(0)),
		buy("m2", "No", 40, 0.62, day(1)),
		buy("m1", "Yes", 7.25, 0.35, day(2)),
		sell("m1", "Yes", 15, 0.50, day(3)),
		sell("m2", "No", 10, 0.55, day(4)),
		buy("m1", "Yes", 3, 0.20, day(5)),
		sell("m2", "No", 45, 1.00, day(380)),
		sell("m1", "Yes", 6, 0.10, day(400)),
	}

	t.Run("shares are conserved per position", func(t *testing.T) {
		result := Match(history)

		bought := map[model.PositionKey]float64{}
		for _, tx := range history {
			if tx.Side == model.SideBuy {
				bought[tx.PositionKey()] += tx.Quantity
			}
		}
		accounted := map[model.PositionKey]float64{}
		for _, lot := range result.Lots {
			if lot.AcquisitionKnown() {
				accounted[model.PositionKey{Market: lot.Market, Outcome: lot.Outcome}] += lot.Quantity
			}
		}
		for _, open := range result.Open {
			accounted[model.PositionKey{Market: open.Market, Outcome: open.Outcome}] += open.Quantity
		}

		for key, want := range bought {
			if math.Abs(accounted[key]-want) > Epsilon {
				t.Errorf("Position %v: bought %v, accounted %v", key, want, accounted[key])
			}
		}
	})

	t.Run("no lot is acquired after it is sold", func(t *testing.T) {
		for i, lot := range CalculateFIFO(history) {
			if lot.AcquisitionKnown() && lot.DateAcquired.After(lot.DateSold) {
				t.Errorf("Lot %d acquired %s after sold %s", i, lot.DateAcquired, lot.DateSold)
			}
		}
	})

	t.Run("matching is deterministic", func(t *testing.T) {
		first := Match(history)
		second := Match(history)

		if !reflect.DeepEqual(first, second) {
			t.Error("Expected identical results for identical input")
		}
	})
}

func TestGroupPositions(t *testing.T) {
	positions := GroupPositions([]model.Transaction{
		buy("b", "Yes", 1, 0.1, day(0)),
		buy("a", "Yes", 1, 0.1, day(1)),
		sell("b", "Yes", 1, 0.2, day(2)),
		buy("b", "No", 1, 0.1, day(3)),
	})

	if len(positions) != 3 {
		t.Fatalf("Expected 3 positions, got %d", len(positions))
	}
	if positions[0].Key != (model.PositionKey{Market: "b", Outcome: "Yes"}) {
		t.Errorf("Expected first position b/Yes, got %v", positions[0].Key)
	}
	if len(positions[0].Transactions) != 2 || positions[0].Transactions[1].Side != model.SideSell {
		t.Errorf("Expected b/Yes to keep buy then sell order, got %+v", positions[0].Transactions)
	}
}
