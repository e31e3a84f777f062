// Package csvimport normalizes user-exported trade CSVs with unpredictable
// column names into transactions.
package csvimport

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// unknownMarket names rows whose market cell is empty.
const unknownMarket = "Unknown"

var lineBreak = regexp.MustCompile(`\r?\n`)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04PM",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006 15:04",
}

// columnIndex holds the position of each canonical column, -1 when absent.
type columnIndex map[string]int

func (c columnIndex) get(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

// Parse converts delimited text into transactions sorted by timestamp.
// The delimiter is a tab when the header line contains one, otherwise a comma.
// Rows with an unrecognized type are skipped.
func Parse(text string) ([]model.Transaction, error) {
	var lines []string
	for _, l := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil, &apperrors.FormatError{Reason: "CSV must have a header row and at least one data row"}
	}

	delim := ','
	if strings.Contains(lines[0], "\t") {
		delim = '\t'
	}

	cols := columnIndex{}
	for i, h := range splitLine(lines[0], delim) {
		name := normalizeColumn(h)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	mi, ti := cols.get(colMarket), cols.get(colType)
	if mi == -1 {
		return nil, &apperrors.FormatError{Column: "Market"}
	}
	if ti == -1 {
		return nil, &apperrors.FormatError{Column: "Type"}
	}

	var txns []model.Transaction
	for n, line := range lines[1:] {
		cells := splitLine(line, delim)
		if len(cells) <= max(mi, ti) {
			continue
		}

		kind := parseRowType(cells[ti])
		if kind == rowUnknown {
			continue
		}

		tx := buildTransaction(cells, cols, kind)
		tx.SourceID = "csv:" + strconv.Itoa(n+2)
		txns = append(txns, tx)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Timestamp.Before(txns[j].Timestamp)
	})

	return txns, nil
}

func buildTransaction(cells []string, cols columnIndex, kind rowType) model.Transaction {
	cell := func(name string) string {
		i := cols.get(name)
		if i == -1 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	market := unknownMarket
	if v := cell(colMarket); v != "" {
		market = v
	}

	outcome := model.DefaultOutcome
	if v := cell(colOutcome); v != "" {
		outcome = v
	}

	price := number(cell(colPrice))
	quantity := number(cell(colQuantity))

	total := price * quantity
	if cols.get(colTotal) != -1 {
		total = number(cell(colTotal))
	}

	side := model.SideSell
	if kind == rowBuy {
		side = model.SideBuy
	}

	return model.Transaction{
		Timestamp:  parseTimestamp(cell(colTimestamp)),
		Market:     market,
		Title:      market,
		Outcome:    outcome,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		Notional:   total,
		Fees:       number(cell(colFees)),
		Settlement: kind == rowSettle,
	}
}

// splitLine splits on delim outside double quotes. Quotes toggle quoting and
// are dropped; there is no escape for an embedded quote.
func splitLine(line string, delim rune) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

// number parses a numeric cell leniently: currency symbols, thousands
// separators and other noise are stripped, and anything unparsable is 0.
func number(s string) float64 {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if clean == "" {
		return 0
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseTimestamp accepts the common export layouts and unix seconds.
// Unparsable values yield the zero time, rendered as Unknown downstream.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// ParseBytes is Parse for raw upload bodies.
func ParseBytes(data []byte) ([]model.Transaction, error) {
	txns, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToParseCSV, err)
	}
	return txns, nil
}
