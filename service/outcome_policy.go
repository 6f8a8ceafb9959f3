package service

import (
	"fmt"

	"betledger/models"

	"github.com/shopspring/decimal"
)

// defaultOutcomePolicy settles the built-in selection types against a final score.
// A cancelled match refunds every bet, and an over/under total landing exactly
// on the line is a push and is refunded too.
type defaultOutcomePolicy struct{}

// NewDefaultOutcomePolicy returns the standard win/draw/over/under rules
func NewDefaultOutcomePolicy() OutcomePolicy {
	return defaultOutcomePolicy{}
}

func (defaultOutcomePolicy) Outcome(event models.MatchResultEvent, selection models.Selection) (models.SettlementOutcome, error) {
	switch event.Status {
	case models.MatchStatusCancelled:
		return models.OutcomeCancelled, nil
	case models.MatchStatusFinished:
		if event.Result == nil {
			return "", fmt.Errorf("%w: finished match %s has no result", ErrInvalidResultEvent, event.MatchID)
		}
	default:
		return "", fmt.Errorf("%w: match %s is %s", ErrInvalidResultEvent, event.MatchID, event.Status)
	}

	result := *event.Result

	switch selection.Type {
	case models.SelectionTypeWin:
		switch {
		case selection.Value.Equal(models.SelectionHome):
			return wonIf(result.HomeScore > result.AwayScore), nil
		case selection.Value.Equal(models.SelectionAway):
			return wonIf(result.AwayScore > result.HomeScore), nil
		}
	case models.SelectionTypeDraw:
		return wonIf(result.HomeScore == result.AwayScore), nil
	case models.SelectionTypeOver, models.SelectionTypeUnder:
		cmp := decimal.NewFromInt(int64(result.TotalGoals())).Cmp(selection.Value)
		if cmp == 0 {
			return models.OutcomeCancelled, nil
		}
		if selection.Type == models.SelectionTypeOver {
			return wonIf(cmp > 0), nil
		}
		return wonIf(cmp < 0), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownSelection, selection)
}

func wonIf(won bool) models.SettlementOutcome {
	if won {
		return models.OutcomeWon
	}
	return models.OutcomeLost
}
