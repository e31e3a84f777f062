package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/logging"
	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
	"github.com/titancoder666/polymarket-tax-engine/internal/repository"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
)

// TestHistoryTTL is the snapshot lifetime used by test services.
const TestHistoryTTL = 15 * time.Minute

// NewTestFetcher creates a Fetcher with production page limits and no inter-page delay.
func NewTestFetcher(client polymarket.Client) *polymarket.Fetcher {
	return polymarket.NewFetcher(client, polymarket.Options{
		PageSize:   500,
		MaxOffset:  3000,
		MaxWindows: 200,
	}, logging.Discard())
}

func NewTestHistoryService(t *testing.T, db *sql.DB, client polymarket.Client) *service.HistoryService {
	t.Helper()

	return service.NewHistoryService(
		repository.NewHistoryRepository(db),
		NewTestFetcher(client),
		TestHistoryTTL,
		0,
		logging.Discard(),
	)
}

func NewTestTaxService(t *testing.T, db *sql.DB, client polymarket.Client) *service.TaxService {
	t.Helper()

	return service.NewTaxService(
		NewTestHistoryService(t, db, client),
		time.Minute,
	)
}

func NewTestRefreshService(t *testing.T, db *sql.DB, client polymarket.Client, concurrency int) *service.RefreshService {
	t.Helper()

	return service.NewRefreshService(
		NewTestHistoryService(t, db, client),
		repository.NewHistoryRepository(db),
		concurrency,
		logging.Discard(),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}
