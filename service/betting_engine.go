package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"betledger/config"
	"betledger/events"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// bettingEngine implements the BettingEngine interface
type bettingEngine struct {
	uowFactory UnitOfWorkFactory
	ledger     WalletLedger
	config     *config.Config
	now        func() time.Time
}

// NewBettingEngine creates a new betting engine that moves money through ledger
func NewBettingEngine(uowFactory UnitOfWorkFactory, ledger WalletLedger) BettingEngine {
	return &bettingEngine{
		uowFactory: uowFactory,
		ledger:     ledger,
		config:     config.Get(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PlaceBet snapshots the live odds, debits the stake and records the bet in one transaction
func (s *bettingEngine) PlaceBet(ctx context.Context, userID string, matchID, oddsID uuid.UUID, stake decimal.Decimal) (*models.Bet, error) {
	if !models.IsPositiveMoney(stake, s.config.MoneyScale()) {
		return nil, fmt.Errorf("%w: %s must be positive with at most %d decimal places",
			ErrInvalidStake, stake.String(), s.config.MoneyScale())
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback() // No-op if already committed

	snapshot, err := s.takeSnapshot(ctx, uow, matchID, oddsID)
	if err != nil {
		return nil, err
	}

	bet := models.NewBet(uuid.New(), userID, stake, snapshot, s.config.MoneyScale())

	// The ledger row references the bet; the foreign key is checked at commit
	if _, err := s.ledger.ApplyWithin(ctx, uow, LedgerEntry{
		UserID: userID,
		Kind:   models.TransactionKindStake,
		Amount: stake,
		BetID:  &bet.ID,
		Metadata: map[string]any{
			"match_id":   snapshot.MatchID.String(),
			"odds_id":    snapshot.OddsID.String(),
			"selection":  snapshot.Selection.String(),
			"odds_value": snapshot.Value.String(),
		},
	}); err != nil {
		return nil, err
	}

	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, storeErr("create bet", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:           bet.ID,
		UserID:          bet.UserID,
		MatchID:         bet.MatchID,
		Selection:       bet.Selection,
		Stake:           bet.Stake,
		OddsValue:       bet.OddsValue,
		PotentialPayout: bet.PotentialPayout,
		PlacedAt:        bet.CreatedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"betID":           bet.ID,
		"userID":          userID,
		"matchID":         matchID,
		"stake":           stake.String(),
		"potentialPayout": bet.PotentialPayout.String(),
	}).Info("Bet placed")

	return bet, nil
}

// takeSnapshot reads the match and the odds row as they are right now
func (s *bettingEngine) takeSnapshot(ctx context.Context, uow UnitOfWork, matchID, oddsID uuid.UUID) (models.OddsSnapshot, error) {
	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return models.OddsSnapshot{}, storeErr("get match", err)
	}
	if match == nil {
		return models.OddsSnapshot{}, fmt.Errorf("%w: match %s not found", ErrOddsUnavailable, matchID)
	}

	now := s.now()
	if !match.IsOpenForBetting(now) {
		return models.OddsSnapshot{}, fmt.Errorf("%w: match %s is %s, starts %s",
			ErrMatchClosed, matchID, match.Status, match.StartTime.Format(time.RFC3339))
	}

	odds, err := uow.OddsRepository().GetByID(ctx, oddsID)
	if err != nil {
		return models.OddsSnapshot{}, storeErr("get odds", err)
	}
	if odds == nil || odds.MatchID != matchID {
		return models.OddsSnapshot{}, fmt.Errorf("%w: odds %s not offered on match %s", ErrOddsUnavailable, oddsID, matchID)
	}
	if !odds.IsPriced() {
		return models.OddsSnapshot{}, fmt.Errorf("%w: odds %s priced at %s", ErrOddsUnavailable, oddsID, odds.Multiplier.String())
	}

	return models.NewOddsSnapshot(odds, now), nil
}

// Settle moves a pending bet to its terminal status and credits any payout or refund
func (s *bettingEngine) Settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, error) {
	if !outcome.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	bet, err := s.settle(ctx, betID, outcome)
	if errors.Is(err, ErrAlreadySettled) {
		log.WithFields(log.Fields{
			"betID":   betID,
			"outcome": outcome,
			"status":  bet.Status,
		}).Debug("Bet already settled, nothing to do")
		return bet, nil
	}
	if err != nil {
		return nil, err
	}

	return bet, nil
}

// settle returns the stored bet together with ErrAlreadySettled when the bet
// was settled before this call
func (s *bettingEngine) settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	// Concurrent settles of the same bet queue here
	bet, err := uow.BetRepository().GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, storeErr("lock bet", err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: %s", ErrBetNotFound, betID)
	}
	if bet.IsSettled() {
		return bet, ErrAlreadySettled
	}

	credited := decimal.Zero
	if kind, amount, ok := bet.SettlementCredit(outcome); ok {
		if _, err := s.ledger.ApplyWithin(ctx, uow, LedgerEntry{
			UserID: bet.UserID,
			Kind:   kind,
			Amount: amount,
			BetID:  &bet.ID,
			Metadata: map[string]any{
				"match_id": bet.MatchID.String(),
				"outcome":  string(outcome),
			},
		}); err != nil {
			return nil, fmt.Errorf("failed to credit %s: %w", kind, err)
		}
		credited = amount
	}

	settled := *bet
	if err := settled.Settle(outcome, s.now()); err != nil {
		return nil, fmt.Errorf("failed to settle bet %s: %w", betID, err)
	}

	if err := uow.BetRepository().MarkSettled(ctx, &settled); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return bet, err
		}
		return nil, storeErr("mark bet settled", err)
	}

	uow.EventBus().Publish(events.BetSettledEvent{
		BetID:     settled.ID,
		UserID:    settled.UserID,
		MatchID:   settled.MatchID,
		Outcome:   outcome,
		Status:    settled.Status,
		Stake:     settled.Stake,
		Credited:  credited,
		Net:       settled.NetResult(),
		SettledAt: *settled.SettledAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"betID":    betID,
		"userID":   settled.UserID,
		"status":   settled.Status,
		"credited": credited.String(),
		"net":      settled.NetResult().String(),
	}).Info("Bet settled")

	return &settled, nil
}

// GetBet returns a single bet
func (s *bettingEngine) GetBet(ctx context.Context, betID uuid.UUID) (*models.Bet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, storeErr("get bet", err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: %s", ErrBetNotFound, betID)
	}

	return bet, nil
}

// ListBets returns a user's bets, newest first
func (s *bettingEngine) ListBets(ctx context.Context, userID string, limit int) ([]*models.Bet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeErr("list bets", err)
	}

	return bets, nil
}
