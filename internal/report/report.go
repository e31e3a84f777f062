// Package report renders tax lots and summaries into downloadable text layouts.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// Format names a report layout.
type Format string

const (
	FormatForm8949  Format = "form8949"
	FormatScheduleD Format = "schedule-d"
	FormatImport    Format = "import"
	FormatSummary   Format = "summary"
)

// Formats lists every supported layout in a stable order.
var Formats = []Format{FormatForm8949, FormatScheduleD, FormatImport, FormatSummary}

// ImportNameLimit is the longest market name written to the import layout.
const ImportNameLimit = 50

// ImportNamePrefix is prepended to market names in the import layout.
const ImportNamePrefix = "Polymarket: "

var (
	form8949Header = []string{"Description of Property", "Date Acquired", "Date Sold or Disposed", "Proceeds", "Cost or Other Basis", "Gain or (Loss)", "Short-term or Long-term"}
	importHeader   = []string{"Currency Name", "Purchase Date", "Cost Basis", "Date Sold", "Proceeds"}
	lotsHeader     = []string{"Description", "Date Acquired", "Date Sold", "Proceeds", "Cost Basis", "Gain/Loss", "Term"}
)

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", apperrors.ErrInvalidFormat, name)
}

// Filename is the suggested download name for a format.
func (f Format) Filename() string {
	return string(f) + ".csv"
}

// Render produces the given layout. generatedAt only appears in the summary layout.
func Render(format Format, lots []model.TaxLot, summary model.TaxSummary, generatedAt time.Time) (string, error) {
	switch format {
	case FormatForm8949:
		return Form8949(lots)
	case FormatScheduleD:
		return ScheduleD(summary), nil
	case FormatImport:
		return ImportCSV(lots)
	case FormatSummary:
		return SummaryReport(lots, summary, generatedAt)
	}
	return "", fmt.Errorf("%w: %s", apperrors.ErrInvalidFormat, format)
}

// Form8949 renders one row per lot in Form 8949 column order.
func Form8949(lots []model.TaxLot) (string, error) {
	rows := make([][]string, 0, len(lots)+1)
	rows = append(rows, form8949Header)
	for _, l := range lots {
		rows = append(rows, []string{
			l.Description,
			model.FormatDate(l.DateAcquired),
			model.FormatDate(l.DateSold),
			money(l.Proceeds),
			money(l.CostBasis),
			money(l.GainLoss),
			string(l.Term),
		})
	}
	return writeCSV(rows)
}

// ScheduleD renders the summary as a labeled key/value block.
func ScheduleD(s model.TaxSummary) string {
	return strings.Join([]string{
		"IRS Schedule D Summary",
		"",
		"Part I: Short-Term Capital Gains and Losses",
		"Total Short-Term Gains," + dollars(s.ShortTermGain),
		"Total Short-Term Losses," + dollars(s.ShortTermLoss),
		"Net Short-Term," + dollars(s.NetShortTerm),
		"",
		"Part II: Long-Term Capital Gains and Losses",
		"Total Long-Term Gains," + dollars(s.LongTermGain),
		"Total Long-Term Losses," + dollars(s.LongTermLoss),
		"Net Long-Term," + dollars(s.NetLongTerm),
		"",
		"Summary",
		"Net Capital Gain/Loss," + dollars(s.NetTotal),
		"Total Disposed Lots," + strconv.Itoa(s.TotalLots),
	}, "\n") + "\n"
}

// ImportCSV renders the five-column layout accepted by consumer tax software imports.
func ImportCSV(lots []model.TaxLot) (string, error) {
	rows := make([][]string, 0, len(lots)+1)
	rows = append(rows, importHeader)
	for _, l := range lots {
		rows = append(rows, []string{
			ImportNamePrefix + truncate(l.Market, ImportNameLimit),
			model.FormatDate(l.DateAcquired),
			money(l.CostBasis),
			model.FormatDate(l.DateSold),
			money(l.Proceeds),
		})
	}
	return writeCSV(rows)
}

// SummaryReport renders the overview, per-term breakdown and every lot in one file.
func SummaryReport(lots []model.TaxLot, s model.TaxSummary, generatedAt time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(strings.Join([]string{
		"Polymarket Tax Summary Report",
		"Generated," + generatedAt.UTC().Format(time.RFC3339),
		"",
		"Overview",
		"Total Disposed Lots," + strconv.Itoa(s.TotalLots),
		"Net Short-Term Gain/Loss," + dollars(s.NetShortTerm),
		"Net Long-Term Gain/Loss," + dollars(s.NetLongTerm),
		"Net Total Gain/Loss," + dollars(s.NetTotal),
		"",
		"Short-Term Breakdown",
		"Gains," + dollars(s.ShortTermGain),
		"Losses," + dollars(s.ShortTermLoss),
		"",
		"Long-Term Breakdown",
		"Gains," + dollars(s.LongTermGain),
		"Losses," + dollars(s.LongTermLoss),
		"",
		"All Lots",
	}, "\n"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(lots)+1)
	rows = append(rows, lotsHeader)
	for _, l := range lots {
		rows = append(rows, []string{
			l.Description,
			model.FormatDate(l.DateAcquired),
			model.FormatDate(l.DateSold),
			money(l.Proceeds),
			money(l.CostBasis),
			money(l.GainLoss),
			string(l.Term),
		})
	}
	table, err := writeCSV(rows)
	if err != nil {
		return "", err
	}
	b.WriteString(table)

	return b.String(), nil
}

func writeCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrFailedToGenerateReport, err)
	}
	return buf.String(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func dollars(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
