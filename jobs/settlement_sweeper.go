package jobs

import (
	"context"
	"errors"
	"fmt"

	"betledger/infrastructure/observability"
	"betledger/models"
	"betledger/service"

	log "github.com/sirupsen/logrus"
)

// SettlementSweeper re-dispatches concluded matches that still have pending
// bets. It covers result messages that were lost or gave up after retries.
type SettlementSweeper struct {
	uowFactory service.UnitOfWorkFactory
	dispatcher service.SettlementDispatcher
	metrics    *observability.LedgerMetrics
}

// NewSettlementSweeper creates a sweeper; metrics may be nil
func NewSettlementSweeper(uowFactory service.UnitOfWorkFactory, dispatcher service.SettlementDispatcher, metrics *observability.LedgerMetrics) *SettlementSweeper {
	return &SettlementSweeper{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Sweep runs one pass and returns how many matches were re-dispatched
func (s *SettlementSweeper) Sweep(ctx context.Context) (int, error) {
	matches, err := s.concludedWithPendingBets(ctx)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		s.metrics.SweepCompleted(0)
		return 0, nil
	}

	var errs []error
	for _, match := range matches {
		event := models.MatchResultEvent{
			MatchID: match.ID,
			Status:  match.Status,
			Result:  match.Result,
		}

		summary, err := s.dispatcher.HandleMatchResult(ctx, event)
		if err != nil {
			log.WithFields(log.Fields{
				"matchID": match.ID,
				"error":   err,
			}).Error("Settlement sweep could not settle every bet of match")
			errs = append(errs, fmt.Errorf("match %s: %w", match.ID, err))
			continue
		}

		log.WithFields(log.Fields{
			"matchID":  match.ID,
			"pending":  summary.Pending,
			"won":      summary.Won,
			"lost":     summary.Lost,
			"refunded": summary.Refunded,
		}).Info("Settlement sweep settled stranded bets")
	}

	s.metrics.SweepCompleted(len(matches))
	return len(matches), errors.Join(errs...)
}

func (s *SettlementSweeper) concludedWithPendingBets(ctx context.Context) ([]*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("%w: begin sweep: %w", service.ErrStoreUnavailable, err)
	}
	defer uow.Rollback()

	matches, err := uow.MatchRepository().ListConcludedWithPendingBets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list concluded matches: %w", service.ErrStoreUnavailable, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit sweep: %w", service.ErrStoreUnavailable, err)
	}
	return matches, nil
}
