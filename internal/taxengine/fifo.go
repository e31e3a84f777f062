// Package taxengine turns an ordered transaction history into FIFO-matched tax lots.
//
// All functions are pure: no I/O, and the same input order always produces the
// same output.
package taxengine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// Epsilon absorbs floating-point drift from fractional share sizes. Remaining
// quantities at or below it count as exhausted.
const Epsilon = 0.001

// LongTermHolding is the minimum holding period for long-term treatment.
// A disposal exactly this long after acquisition is long-term.
const LongTermHolding = 365 * 24 * time.Hour

// buyLot is the unconsumed part of one acquisition inside a position queue.
type buyLot struct {
	acquiredAt time.Time
	unitCost   float64
	remaining  float64
}

// Position is the transactions of one market outcome in their original order.
type Position struct {
	Key          model.PositionKey
	Transactions []model.Transaction
}

// MatchResult holds the emitted tax lots and the acquisitions left unconsumed.
type MatchResult struct {
	Lots []model.TaxLot
	Open []model.OpenLot
}

// GroupPositions partitions transactions by position key. Positions are
// returned in order of first appearance and keep the input order internally.
func GroupPositions(transactions []model.Transaction) []Position {
	index := make(map[model.PositionKey]int)
	var positions []Position

	for _, tx := range transactions {
		key := tx.PositionKey()
		i, ok := index[key]
		if !ok {
			i = len(positions)
			index[key] = i
			positions = append(positions, Position{Key: key})
		}
		positions[i].Transactions = append(positions[i].Transactions, tx)
	}

	return positions
}

// CalculateFIFO matches disposals against the oldest acquisitions of the same
// position and returns the resulting tax lots sorted by sale date.
func CalculateFIFO(transactions []model.Transaction) []model.TaxLot {
	return Match(transactions).Lots
}

// Match is CalculateFIFO that also reports the acquisitions still held.
func Match(transactions []model.Transaction) MatchResult {
	var result MatchResult

	for _, position := range GroupPositions(transactions) {
		lots, queue := matchPosition(position)
		result.Lots = append(result.Lots, lots...)
		for _, b := range queue {
			result.Open = append(result.Open, model.OpenLot{
				Market:     position.Key.Market,
				Outcome:    position.Key.Outcome,
				AcquiredAt: b.acquiredAt,
				UnitCost:   b.unitCost,
				Quantity:   b.remaining,
			})
		}
	}

	// Stable keeps per-position order for lots sold at the same instant.
	sort.SliceStable(result.Lots, func(i, j int) bool {
		return result.Lots[i].DateSold.Before(result.Lots[j].DateSold)
	})

	return result
}

func matchPosition(position Position) ([]model.TaxLot, []*buyLot) {
	var lots []model.TaxLot
	var queue []*buyLot

	for _, tx := range position.Transactions {
		if tx.Side == model.SideBuy {
			if tx.Quantity <= Epsilon {
				continue
			}
			queue = append(queue, &buyLot{
				acquiredAt: tx.Timestamp,
				unitCost:   tx.Price + perUnit(tx.Fees, tx.Quantity),
				remaining:  tx.Quantity,
			})
			continue
		}

		remaining := tx.Quantity
		unitProceeds := tx.Price - perUnit(tx.Fees, tx.Quantity)

		for remaining > Epsilon && len(queue) > 0 {
			oldest := queue[0]
			matched := min(remaining, oldest.remaining)

			lots = append(lots, newLot(tx, oldest.acquiredAt, matched, matched*unitProceeds, matched*oldest.unitCost))

			remaining -= matched
			oldest.remaining -= matched
			if oldest.remaining <= Epsilon {
				queue = queue[1:]
			}
		}

		// Disposals without a recorded acquisition (history truncated, shares
		// received by transfer) get a zero basis rather than being dropped.
		if remaining > Epsilon {
			lots = append(lots, newLot(tx, time.Time{}, remaining, remaining*unitProceeds, 0))
		}
	}

	return lots, queue
}

// newLot rounds proceeds and basis here, once, so partial matches do not
// accumulate rounding error.
func newLot(sale model.Transaction, acquiredAt time.Time, quantity, proceeds, costBasis float64) model.TaxLot {
	p := decimal.NewFromFloat(proceeds).Round(2)
	c := decimal.NewFromFloat(costBasis).Round(2)

	return model.TaxLot{
		Description:  describe(sale, quantity),
		Market:       sale.DisplayName(),
		Outcome:      sale.Outcome,
		DateAcquired: acquiredAt,
		DateSold:     sale.Timestamp,
		Proceeds:     p,
		CostBasis:    c,
		GainLoss:     p.Sub(c),
		Term:         ClassifyTerm(acquiredAt, sale.Timestamp),
		Quantity:     quantity,
	}
}

// ClassifyTerm returns LongTerm when the holding period is at least
// LongTermHolding. Unknown acquisitions are short-term.
func ClassifyTerm(acquired, sold time.Time) model.Term {
	if acquired.IsZero() {
		return model.ShortTerm
	}
	if sold.Sub(acquired) >= LongTermHolding {
		return model.LongTerm
	}
	return model.ShortTerm
}

func describe(sale model.Transaction, quantity float64) string {
	return fmt.Sprintf("%s %s shares - %s", decimal.NewFromFloat(quantity).Round(6).String(), sale.Outcome, sale.DisplayName())
}

func perUnit(total, quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}
	return total / quantity
}
