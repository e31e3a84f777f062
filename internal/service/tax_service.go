package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/csvimport"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/report"
	"github.com/titancoder666/polymarket-tax-engine/internal/taxengine"
)

// Calculation is the outcome of matching one transaction history.
// Year is 0 when lots from every year are included.
type Calculation struct {
	Run              *model.FetchRun
	Year             int
	Years            []int
	TransactionCount int
	Lots             []model.TaxLot
	Open             []model.OpenLot
	Summary          model.TaxSummary
	Complete         bool
}

// TaxService computes tax lots and reports for wallet histories and uploads.
// Results for stored histories are cached per fetch run and year.
type TaxService struct {
	history *HistoryService
	cache   *cache.Cache
	now     func() time.Time
}

// NewTaxService creates a new TaxService caching results for ttl.
// A ttl of zero or less disables caching.
func NewTaxService(history *HistoryService, ttl time.Duration) *TaxService {
	s := &TaxService{
		history: history,
		now:     time.Now,
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Calculate matches the full history and then restricts lots to year.
// Matching always sees every transaction so that earlier acquisitions
// provide the cost basis for disposals in the selected year.
func (s *TaxService) Calculate(transactions []model.Transaction, year int) Calculation {
	result := taxengine.Match(transactions)
	lots := taxengine.FilterByYear(result.Lots, year)

	return Calculation{
		Year:             year,
		Years:            taxengine.Years(result.Lots),
		TransactionCount: len(transactions),
		Lots:             lots,
		Open:             result.Open,
		Summary:          taxengine.Summarize(lots),
		Complete:         true,
	}
}

// ForHistory calculates a history, caching results of stored runs.
func (s *TaxService) ForHistory(history model.History, year int) Calculation {
	stored := history.Run.ID != "" && s.cache != nil
	key := history.Run.ID + ":" + strconv.Itoa(year)
	if stored {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(Calculation)
		}
	}

	calc := s.Calculate(history.Transactions, year)
	run := history.Run
	calc.Run = &run
	calc.Complete = history.Complete

	if stored {
		s.cache.SetDefault(key, calc)
	}
	return calc
}

// ForWallet loads the wallet's history and calculates it.
func (s *TaxService) ForWallet(ctx context.Context, wallet string, year int, refresh bool) (Calculation, error) {
	history, err := s.history.Load(ctx, wallet, refresh)
	if err != nil {
		return Calculation{}, err
	}
	return s.ForHistory(history, year), nil
}

// ForUpload parses an uploaded CSV and calculates it. Uploads are never cached.
// Returns ErrNoTransactions when no row is a buy, sell or settlement.
func (s *TaxService) ForUpload(data []byte, year int) (Calculation, error) {
	transactions, err := csvimport.ParseBytes(data)
	if err != nil {
		return Calculation{}, err
	}
	if len(transactions) == 0 {
		return Calculation{}, fmt.Errorf("%w: no taxable events in upload", apperrors.ErrNoTransactions)
	}
	return s.Calculate(transactions, year), nil
}

// Render produces a report of the calculation, stamped with the current time.
func (s *TaxService) Render(format report.Format, calc Calculation) (string, error) {
	return report.Render(format, calc.Lots, calc.Summary, s.now())
}
