// Package polymarket retrieves a wallet's complete trade history from the
// public activity API and normalizes it into transactions.
package polymarket

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// Options configures a Fetcher.
type Options struct {
	PageSize   int
	MaxOffset  int
	MaxWindows int
	PageDelay  time.Duration
}

// Progress describes the state of a running fetch after each page.
type Progress struct {
	Window       int `json:"window"`
	Offset       int `json:"offset"`
	Entries      int `json:"entries"`
	Transactions int `json:"transactions"`
}

// ProgressFunc receives progress updates from Stream. Returning an error stops the fetch.
type ProgressFunc func(Progress) error

// Fetcher retrieves complete wallet histories.
type Fetcher struct {
	client Client
	opts   Options
	logger *logrus.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher reading through client.
func NewFetcher(client Client, opts Options, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// FetchHistory retrieves every trade and redemption of wallet, oldest first.
// Any failure aborts the retrieval with a *apperrors.FetchError carrying the
// number of transactions collected so far.
func (f *Fetcher) FetchHistory(ctx context.Context, wallet string) (model.History, error) {
	history, err := f.run(ctx, wallet, nil)
	if err != nil {
		return model.History{}, err
	}
	return history, nil
}

// Stream is FetchHistory with progress reporting. On failure it returns the
// partial history, marked incomplete, together with the error.
func (f *Fetcher) Stream(ctx context.Context, wallet string, progress ProgressFunc) (model.History, error) {
	return f.run(ctx, wallet, progress)
}

func (f *Fetcher) run(ctx context.Context, wallet string, progress ProgressFunc) (model.History, error) {
	pager := NewPager(f.client, wallet, PagerOptions{
		PageSize:   f.opts.PageSize,
		MaxOffset:  f.opts.MaxOffset,
		MaxWindows: f.opts.MaxWindows,
	}, f.limiter())
	collector := NewCollector()
	log := f.logger.WithField("wallet", wallet)
	started := f.now()

	window := 0
	for {
		page, err := pager.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.WithError(err).WithField("fetched", collector.Len()).Warn("history fetch failed")
			return f.partial(wallet, pager, collector), &apperrors.FetchError{
				Wallet:  wallet,
				Fetched: collector.Len(),
				Err:     err,
			}
		}

		if page.Window != window {
			window = page.Window
			log.WithFields(logrus.Fields{"window": window, "end": endField(page.End)}).Info("fetching activity window")
		}
		added := collector.Add(page.Activities)
		log.WithFields(logrus.Fields{
			"window":  page.Window,
			"offset":  page.Offset,
			"entries": len(page.Activities),
			"kept":    added,
		}).Debug("fetched activity page")

		if progress != nil {
			if err := progress(Progress{
				Window:       page.Window,
				Offset:       page.Offset,
				Entries:      collector.Raw(),
				Transactions: collector.Len(),
			}); err != nil {
				return f.partial(wallet, pager, collector), &apperrors.FetchError{
					Wallet:  wallet,
					Fetched: collector.Len(),
					Err:     err,
				}
			}
		}
	}

	if pager.Truncated() {
		log.WithField("windows", pager.Windows()).Warn("window limit reached, older history may be missing")
	}

	history := f.partial(wallet, pager, collector)
	history.Complete = true
	log.WithFields(logrus.Fields{
		"transactions": history.Run.TransactionCount,
		"windows":      history.Run.WindowCount,
		"duration":     f.now().Sub(started).String(),
	}).Info("history fetch complete")
	return history, nil
}

func (f *Fetcher) partial(wallet string, pager *Pager, collector *Collector) model.History {
	txns := collector.Transactions()
	return model.History{
		Run: model.FetchRun{
			Wallet:           wallet,
			FetchedAt:        f.now().UTC(),
			TransactionCount: len(txns),
			WindowCount:      pager.Windows(),
		},
		Transactions: txns,
	}
}

func (f *Fetcher) limiter() *rate.Limiter {
	if f.opts.PageDelay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(f.opts.PageDelay), 1)
}

func endField(end *int64) any {
	if end == nil {
		return "latest"
	}
	return *end
}
