package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/repository"
)

// RefreshResult counts the outcome of one refresh pass.
type RefreshResult struct {
	Wallets   int
	Refreshed int
	Failed    int
}

// RefreshService periodically re-fetches every stored wallet.
type RefreshService struct {
	history     *HistoryService
	repo        *repository.HistoryRepository
	concurrency int
	logger      *logrus.Logger
	cron        *cron.Cron
}

// NewRefreshService creates a RefreshService refreshing at most concurrency wallets at a time.
func NewRefreshService(history *HistoryService, repo *repository.HistoryRepository, concurrency int, logger *logrus.Logger) *RefreshService {
	return &RefreshService{
		history:     history,
		repo:        repo,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RefreshAll refreshes every tracked wallet. A failing wallet is logged and
// does not stop the others; only listing the wallets can fail the pass.
func (s *RefreshService) RefreshAll(ctx context.Context) (RefreshResult, error) {
	wallets, err := s.repo.TrackedWallets(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToRefreshWallets, err)
	}

	var refreshed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			history, err := s.history.Refresh(gctx, wallet)
			if err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithField("wallet", wallet).Warn("scheduled refresh failed")
				return nil
			}
			refreshed.Add(1)
			s.logger.WithFields(logrus.Fields{
				"wallet":       wallet,
				"transactions": history.Run.TransactionCount,
			}).Info("wallet refreshed")
			return nil
		})
	}
	_ = g.Wait()

	result := RefreshResult{
		Wallets:   len(wallets),
		Refreshed: int(refreshed.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.WithFields(logrus.Fields{
		"wallets":   result.Wallets,
		"refreshed": result.Refreshed,
		"failed":    result.Failed,
	}).Info("refresh pass finished")
	return result, nil
}

// Start schedules RefreshAll with a standard five-field cron expression.
// Overlapping runs are skipped.
func (s *RefreshService) Start(schedule string) error {
	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	_, err := c.AddFunc(schedule, func() {
		if _, err := s.RefreshAll(context.Background()); err != nil {
			s.logger.WithError(err).Error("refresh pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	s.cron = c
	c.Start()
	s.logger.WithField("schedule", schedule).Info("scheduled wallet refresh enabled")
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (s *RefreshService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
