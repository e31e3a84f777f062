package taxengine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// Summarize reduces tax lots into per-term gain and loss totals.
// A zero gainLoss counts toward gains.
func Summarize(lots []model.TaxLot) model.TaxSummary {
	stGain, stLoss := decimal.Zero, decimal.Zero
	ltGain, ltLoss := decimal.Zero, decimal.Zero

	for _, l := range lots {
		switch {
		case l.Term == model.LongTerm && l.GainLoss.IsNegative():
			ltLoss = ltLoss.Add(l.GainLoss)
		case l.Term == model.LongTerm:
			ltGain = ltGain.Add(l.GainLoss)
		case l.GainLoss.IsNegative():
			stLoss = stLoss.Add(l.GainLoss)
		default:
			stGain = stGain.Add(l.GainLoss)
		}
	}

	netShort := stGain.Add(stLoss)
	netLong := ltGain.Add(ltLoss)

	return model.TaxSummary{
		TotalLots:     len(lots),
		ShortTermGain: stGain,
		ShortTermLoss: stLoss,
		LongTermGain:  ltGain,
		LongTermLoss:  ltLoss,
		NetShortTerm:  netShort,
		NetLongTerm:   netLong,
		NetTotal:      netShort.Add(netLong),
	}
}

// FilterByYear keeps the lots sold in the given calendar year (UTC).
// Year 0 keeps everything.
func FilterByYear(lots []model.TaxLot, year int) []model.TaxLot {
	if year == 0 {
		return lots
	}

	filtered := make([]model.TaxLot, 0, len(lots))
	for _, l := range lots {
		if l.DateSold.UTC().Year() == year {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// Years lists the distinct sale years present in the lots, ascending.
// Lots with an unknown sale date are skipped.
func Years(lots []model.TaxLot) []int {
	seen := make(map[int]bool)
	var years []int
	for _, l := range lots {
		if l.DateSold.IsZero() || l.DateSold.Unix() == 0 {
			continue
		}
		y := l.DateSold.UTC().Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}
