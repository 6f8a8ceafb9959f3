package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SelectionType identifies the market an odds row prices
type SelectionType string

const (
	SelectionTypeWin   SelectionType = "win"   // value 1 = home side, 2 = away side
	SelectionTypeDraw  SelectionType = "draw"
	SelectionTypeOver  SelectionType = "over"  // value = total goals line
	SelectionTypeUnder SelectionType = "under" // value = total goals line
)

// Win selection values
var (
	SelectionHome = decimal.NewFromInt(1)
	SelectionAway = decimal.NewFromInt(2)
)

// Selection is what a bet backs: a market type and its parameter
type Selection struct {
	Type  SelectionType   `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// String renders the selection for logs and metadata
func (s Selection) String() string {
	switch s.Type {
	case SelectionTypeDraw:
		return "draw"
	case SelectionTypeWin:
		if s.Value.Equal(SelectionHome) {
			return "win home"
		}
		if s.Value.Equal(SelectionAway) {
			return "win away"
		}
	}
	return fmt.Sprintf("%s %s", s.Type, s.Value.String())
}

// Odds is a live price row owned by the feed. Multiplier may change until kickoff.
type Odds struct {
	ID         uuid.UUID       `db:"id"`
	MatchID    uuid.UUID       `db:"match_id"`
	Selection  Selection       `db:"-"`
	Multiplier decimal.Decimal `db:"multiplier"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// IsPriced returns true if the multiplier pays more than the stake back
func (o *Odds) IsPriced() bool {
	return o.Multiplier.GreaterThan(decimal.NewFromInt(1))
}

// OddsSnapshot freezes the odds a bet was accepted at. It is a value:
// later changes to the Odds row never reach a bet's snapshot.
type OddsSnapshot struct {
	MatchID   uuid.UUID       `json:"match_id"`
	OddsID    uuid.UUID       `json:"odds_id"`
	Selection Selection       `json:"selection"`
	Value     decimal.Decimal `json:"value"`
	TakenAt   time.Time       `json:"taken_at"`
}

// NewOddsSnapshot captures the current price of odds
func NewOddsSnapshot(odds *Odds, takenAt time.Time) OddsSnapshot {
	return OddsSnapshot{
		MatchID:   odds.MatchID,
		OddsID:    odds.ID,
		Selection: odds.Selection,
		Value:     odds.Multiplier,
		TakenAt:   takenAt,
	}
}

// PotentialPayout returns stake × snapshot value rounded half-even to the minor unit
func (s OddsSnapshot) PotentialPayout(stake decimal.Decimal, scale int32) decimal.Decimal {
	return RoundMinor(stake.Mul(s.Value), scale)
}
