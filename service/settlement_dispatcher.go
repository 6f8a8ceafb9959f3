package service

import (
	"context"
	"errors"
	"fmt"

	"betledger/config"
	"betledger/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// replayAwareSettler is satisfied by engines that report ErrAlreadySettled
// instead of hiding it, which lets the summary tell replays apart
type replayAwareSettler interface {
	settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, error)
}

// settlementDispatcher implements the SettlementDispatcher interface
type settlementDispatcher struct {
	uowFactory UnitOfWorkFactory
	engine     BettingEngine
	policy     OutcomePolicy
	config     *config.Config
}

// NewSettlementDispatcher creates a dispatcher. A nil policy selects the default rules.
func NewSettlementDispatcher(uowFactory UnitOfWorkFactory, engine BettingEngine, policy OutcomePolicy) SettlementDispatcher {
	if policy == nil {
		policy = NewDefaultOutcomePolicy()
	}
	return &settlementDispatcher{
		uowFactory: uowFactory,
		engine:     engine,
		policy:     policy,
		config:     config.Get(),
	}
}

// HandleMatchResult records the match result and settles each pending bet on it.
// Safe to call repeatedly for the same match: settled bets are left alone.
func (d *settlementDispatcher) HandleMatchResult(ctx context.Context, event models.MatchResultEvent) (*DispatchSummary, error) {
	if err := validateResultEvent(event); err != nil {
		return nil, err
	}

	pending, err := d.recordResult(ctx, event)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{
		MatchID: event.MatchID,
		Pending: len(pending),
	}

	var errs []error
	for _, bet := range pending {
		logger := log.WithFields(log.Fields{
			"betID":   bet.ID,
			"matchID": event.MatchID,
		})

		outcome, err := d.policy.Outcome(event, bet.Selection)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("bet %s: %w", bet.ID, err))
			logger.WithError(err).Warn("Could not derive outcome, bet stays pending")
			continue
		}

		settled, replayed, err := d.settle(ctx, bet.ID, outcome)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("bet %s: %w", bet.ID, err))
			logger.WithError(err).Error("Failed to settle bet")
			continue
		}
		if replayed {
			summary.AlreadySettled++
			continue
		}

		switch settled.Status {
		case models.BetStatusWon:
			summary.Won++
		case models.BetStatusLost:
			summary.Lost++
		case models.BetStatusRefunded:
			summary.Refunded++
		}
	}

	log.WithFields(log.Fields{
		"matchID":        event.MatchID,
		"status":         event.Status,
		"pending":        summary.Pending,
		"won":            summary.Won,
		"lost":           summary.Lost,
		"refunded":       summary.Refunded,
		"alreadySettled": summary.AlreadySettled,
		"failed":         summary.Failed,
	}).Info("Match result dispatched")

	return summary, errors.Join(errs...)
}

// recordResult stores the final status and returns the bets still waiting on it
func (d *settlementDispatcher) recordResult(ctx context.Context, event models.MatchResultEvent) ([]*models.Bet, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.OperationTimeout)
	defer cancel()

	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, event.MatchID)
	if err != nil {
		return nil, storeErr("get match", err)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: unknown match %s", ErrInvalidResultEvent, event.MatchID)
	}

	if err := uow.MatchRepository().UpdateStatus(ctx, event.MatchID, event.Status, event.Result); err != nil {
		return nil, storeErr("update match status", err)
	}

	pending, err := uow.BetRepository().ListPendingByMatch(ctx, event.MatchID)
	if err != nil {
		return nil, storeErr("list pending bets", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}

	return pending, nil
}

func (d *settlementDispatcher) settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, bool, error) {
	if r, ok := d.engine.(replayAwareSettler); ok && outcome.IsValid() {
		bet, err := r.settle(ctx, betID, outcome)
		if errors.Is(err, ErrAlreadySettled) {
			return bet, true, nil
		}
		return bet, false, err
	}

	bet, err := d.engine.Settle(ctx, betID, outcome)
	if err != nil {
		return nil, false, err
	}
	return bet, bet.Status != outcome.Status(), nil
}

func validateResultEvent(event models.MatchResultEvent) error {
	if event.MatchID == uuid.Nil {
		return fmt.Errorf("%w: missing match id", ErrInvalidResultEvent)
	}
	if !event.Status.IsConcluded() {
		return fmt.Errorf("%w: match %s is %q, not concluded", ErrInvalidResultEvent, event.MatchID, event.Status)
	}
	if event.Status == models.MatchStatusFinished {
		if event.Result == nil {
			return fmt.Errorf("%w: finished match %s has no result", ErrInvalidResultEvent, event.MatchID)
		}
		if event.Result.HomeScore < 0 || event.Result.AwayScore < 0 {
			return fmt.Errorf("%w: negative score for match %s", ErrInvalidResultEvent, event.MatchID)
		}
	}
	return nil
}
