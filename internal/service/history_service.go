package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
	"github.com/titancoder666/polymarket-tax-engine/internal/repository"
)

// HistoryService provides wallet trade histories, reusing the stored
// snapshot while it is younger than the TTL and fetching otherwise.
type HistoryService struct {
	repo         *repository.HistoryRepository
	fetcher      *polymarket.Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	logger       *logrus.Logger
	inflight     singleflight.Group
	now          func() time.Time
}

// NewHistoryService creates a new HistoryService.
// fetchTimeout bounds a whole batch retrieval; zero means no bound.
func NewHistoryService(
	repo *repository.HistoryRepository,
	fetcher *polymarket.Fetcher,
	ttl time.Duration,
	fetchTimeout time.Duration,
	logger *logrus.Logger,
) *HistoryService {
	return &HistoryService{
		repo:         repo,
		fetcher:      fetcher,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Load returns the wallet's history. The stored snapshot is used unless
// refresh is set, none exists, or it has expired.
func (s *HistoryService) Load(ctx context.Context, wallet string, refresh bool) (model.History, error) {
	if !refresh {
		history, err := s.Stored(ctx, wallet)
		switch {
		case err == nil && s.now().Sub(history.Run.FetchedAt) < s.ttl:
			return history, nil
		case err != nil && !errors.Is(err, apperrors.ErrFetchRunNotFound):
			return model.History{}, err
		}
	}
	return s.Refresh(ctx, wallet)
}

// Stored returns the stored snapshot regardless of age.
// Returns ErrFetchRunNotFound when the wallet has none.
func (s *HistoryService) Stored(ctx context.Context, wallet string) (model.History, error) {
	run, err := s.repo.LatestRun(ctx, wallet)
	if err != nil {
		if errors.Is(err, apperrors.ErrFetchRunNotFound) {
			return model.History{}, err
		}
		return model.History{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadHistory, err)
	}

	txns, err := s.repo.GetTransactions(ctx, run.ID)
	if err != nil {
		return model.History{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToLoadHistory, err)
	}

	return model.History{Run: run, Transactions: txns, Complete: true}, nil
}

// Refresh fetches the wallet's full history and stores it. Concurrent
// refreshes of the same wallet share one fetch, which is detached from any
// single caller's cancellation and bounded by the fetch timeout. A caller
// whose ctx ends stops waiting; the shared fetch carries on for the others.
func (s *HistoryService) Refresh(ctx context.Context, wallet string) (model.History, error) {
	ch := s.inflight.DoChan(wallet, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if s.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, s.fetchTimeout)
			defer cancel()
		}

		history, err := s.fetcher.FetchHistory(fetchCtx, wallet)
		if err != nil {
			return model.History{}, err
		}
		return s.store(fetchCtx, history)
	})

	select {
	case <-ctx.Done():
		return model.History{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.WithField("wallet", wallet).Debug("joined in-flight history fetch")
		}
		if res.Err != nil {
			return model.History{}, res.Err
		}
		return res.Val.(model.History), nil
	}
}

// Stream fetches the wallet's history while reporting progress. A complete
// result is stored; an incomplete one is returned with the error and never stored.
func (s *HistoryService) Stream(ctx context.Context, wallet string, progress polymarket.ProgressFunc) (model.History, error) {
	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	history, err := s.fetcher.Stream(fetchCtx, wallet, progress)
	if err != nil {
		return history, err
	}

	stored, err := s.store(ctx, history)
	if err != nil {
		// The fetched data is still valid for this caller.
		s.logger.WithError(err).WithField("wallet", wallet).Error("failed to store streamed history")
		return history, nil
	}
	return stored, nil
}

func (s *HistoryService) store(ctx context.Context, history model.History) (model.History, error) {
	run, err := s.repo.SaveSnapshot(ctx, history)
	if err != nil {
		return model.History{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToStoreHistory, err)
	}
	history.Run = run
	return history, nil
}
