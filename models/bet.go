package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus represents the settlement state of a bet
type BetStatus string

const (
	BetStatusPending  BetStatus = "pending"
	BetStatusWon      BetStatus = "won"
	BetStatusLost     BetStatus = "lost"
	BetStatusRefunded BetStatus = "refunded"
)

// IsTerminal returns true for statuses a bet can never leave
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusWon || s == BetStatusLost || s == BetStatusRefunded
}

// SettlementOutcome is the verdict applied to a pending bet
type SettlementOutcome string

const (
	OutcomeWon       SettlementOutcome = "won"
	OutcomeLost      SettlementOutcome = "lost"
	OutcomeCancelled SettlementOutcome = "cancelled"
)

// IsValid returns true for outcomes the settlement state machine accepts
func (o SettlementOutcome) IsValid() bool {
	return o == OutcomeWon || o == OutcomeLost || o == OutcomeCancelled
}

// Status returns the terminal bet status the outcome leads to
func (o SettlementOutcome) Status() BetStatus {
	switch o {
	case OutcomeWon:
		return BetStatusWon
	case OutcomeLost:
		return BetStatusLost
	case OutcomeCancelled:
		return BetStatusRefunded
	}
	return ""
}

var (
	errBetAlreadySettled = errors.New("bet is already settled")
	errUnknownOutcome    = errors.New("unknown settlement outcome")
)

// Bet is a wager funded by a stake debit. PotentialPayout is fixed at
// placement from the odds snapshot.
type Bet struct {
	ID              uuid.UUID       `db:"id"`
	UserID          string          `db:"user_id"`
	MatchID         uuid.UUID       `db:"match_id"`
	OddsID          uuid.UUID       `db:"odds_id"`
	Stake           decimal.Decimal `db:"stake"`
	Selection       Selection       `db:"-"`
	OddsValue       decimal.Decimal `db:"odds_value"`
	PotentialPayout decimal.Decimal `db:"potential_payout"`
	Status          BetStatus       `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	SettledAt       *time.Time      `db:"settled_at"`
}

// NewBet builds a pending bet from a snapshot taken at placement time
func NewBet(id uuid.UUID, userID string, stake decimal.Decimal, snapshot OddsSnapshot, scale int32) *Bet {
	return &Bet{
		ID:              id,
		UserID:          userID,
		MatchID:         snapshot.MatchID,
		OddsID:          snapshot.OddsID,
		Stake:           stake,
		Selection:       snapshot.Selection,
		OddsValue:       snapshot.Value,
		PotentialPayout: snapshot.PotentialPayout(stake, scale),
		Status:          BetStatusPending,
		CreatedAt:       snapshot.TakenAt,
	}
}

// IsSettled returns true once the bet has left pending
func (b *Bet) IsSettled() bool {
	return b.SettledAt != nil || b.Status.IsTerminal()
}

// SettlementCredit returns the ledger credit an outcome produces, if any.
// Won pays the potential payout, cancelled refunds the stake, lost pays nothing.
func (b *Bet) SettlementCredit(outcome SettlementOutcome) (TransactionKind, decimal.Decimal, bool) {
	switch outcome {
	case OutcomeWon:
		return TransactionKindPayout, b.PotentialPayout, true
	case OutcomeCancelled:
		return TransactionKindRefund, b.Stake, true
	}
	return "", decimal.Zero, false
}

// Settle moves the bet from pending to the outcome's terminal status.
// It fails if the bet has already been settled.
func (b *Bet) Settle(outcome SettlementOutcome, at time.Time) error {
	if b.IsSettled() {
		return errBetAlreadySettled
	}
	if !outcome.IsValid() {
		return errUnknownOutcome
	}

	b.Status = outcome.Status()
	b.SettledAt = &at
	return nil
}

// NetResult returns the profit or loss of a settled bet; zero while pending
func (b *Bet) NetResult() decimal.Decimal {
	switch b.Status {
	case BetStatusWon:
		return b.PotentialPayout.Sub(b.Stake)
	case BetStatusLost:
		return b.Stake.Neg()
	}
	return decimal.Zero
}
