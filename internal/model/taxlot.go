package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Term is the holding-period classification of a disposal.
type Term string

const (
	ShortTerm Term = "Short-term"
	LongTerm  Term = "Long-term"
)

// UnknownDate is how a zero time is rendered in reports.
const UnknownDate = "Unknown"

// DateLayout is the date format used in all reports.
const DateLayout = "01/02/2006"

// FormatDate renders a report date, or UnknownDate for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return UnknownDate
	}
	return t.UTC().Format(DateLayout)
}

// TaxLot is one disposal matched against one acquisition batch.
// DateAcquired is the zero time when the disposal had no matching acquisition.
type TaxLot struct {
	Description  string
	Market       string
	Outcome      string
	DateAcquired time.Time
	DateSold     time.Time
	Proceeds     decimal.Decimal
	CostBasis    decimal.Decimal
	GainLoss     decimal.Decimal
	Term         Term
	Quantity     float64
}

// AcquisitionKnown reports whether the lot was matched to a recorded acquisition.
func (l TaxLot) AcquisitionKnown() bool {
	return !l.DateAcquired.IsZero()
}

// TaxLotResponse is the API representation of a TaxLot with report-formatted dates.
type TaxLotResponse struct {
	Description  string          `json:"description"`
	Market       string          `json:"market"`
	Outcome      string          `json:"outcome"`
	DateAcquired string          `json:"dateAcquired"`
	DateSold     string          `json:"dateSold"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	Term         Term            `json:"term"`
	Quantity     float64         `json:"quantity"`
}

// Response converts the lot into its API representation.
func (l TaxLot) Response() TaxLotResponse {
	return TaxLotResponse{
		Description:  l.Description,
		Market:       l.Market,
		Outcome:      l.Outcome,
		DateAcquired: FormatDate(l.DateAcquired),
		DateSold:     FormatDate(l.DateSold),
		Proceeds:     l.Proceeds,
		CostBasis:    l.CostBasis,
		GainLoss:     l.GainLoss,
		Term:         l.Term,
		Quantity:     l.Quantity,
	}
}

// OpenLot is the unconsumed remainder of an acquisition after matching.
type OpenLot struct {
	Market     string    `json:"market"`
	Outcome    string    `json:"outcome"`
	AcquiredAt time.Time `json:"acquiredAt"`
	UnitCost   float64   `json:"unitCost"`
	Quantity   float64   `json:"quantity"`
}

// TaxSummary aggregates gains and losses per term.
// Losses are negative; gains and losses are never offset within a bucket.
type TaxSummary struct {
	TotalLots     int             `json:"totalLots"`
	ShortTermGain decimal.Decimal `json:"shortTermGain"`
	ShortTermLoss decimal.Decimal `json:"shortTermLoss"`
	LongTermGain  decimal.Decimal `json:"longTermGain"`
	LongTermLoss  decimal.Decimal `json:"longTermLoss"`
	NetShortTerm  decimal.Decimal `json:"netShortTerm"`
	NetLongTerm   decimal.Decimal `json:"netLongTerm"`
	NetTotal      decimal.Decimal `json:"netTotal"`
}
