package testutil

import (
	"time"

	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestMatch creates a scheduled football match kicking off at startTime
func CreateTestMatch(startTime time.Time) *models.Match {
	return &models.Match{
		ID:        uuid.New(),
		Sport:     "football",
		HomeTeam:  "Northside",
		AwayTeam:  "Southbank",
		StartTime: startTime.UTC().Truncate(time.Microsecond),
		Status:    models.MatchStatusScheduled,
	}
}

// CreateTestOdds creates an odds row for the given selection
func CreateTestOdds(matchID uuid.UUID, selection models.Selection, multiplier string) *models.Odds {
	return &models.Odds{
		ID:         uuid.New(),
		MatchID:    matchID,
		Selection:  selection,
		Multiplier: decimal.RequireFromString(multiplier),
	}
}

// HomeWin is the selection backing the home side
func HomeWin() models.Selection {
	return models.Selection{Type: models.SelectionTypeWin, Value: models.SelectionHome}
}

// AwayWin is the selection backing the away side
func AwayWin() models.Selection {
	return models.Selection{Type: models.SelectionTypeWin, Value: models.SelectionAway}
}

// Draw is the selection backing a level score
func Draw() models.Selection {
	return models.Selection{Type: models.SelectionTypeDraw, Value: decimal.Zero}
}

// Over is the selection backing more total goals than line
func Over(line string) models.Selection {
	return models.Selection{Type: models.SelectionTypeOver, Value: decimal.RequireFromString(line)}
}

// FinishedResult builds a result event for a completed match
func FinishedResult(matchID uuid.UUID, home, away int) models.MatchResultEvent {
	return models.MatchResultEvent{
		MatchID: matchID,
		Status:  models.MatchStatusFinished,
		Result:  &models.MatchResult{HomeScore: home, AwayScore: away},
	}
}

// CancelledResult builds a result event for a called-off match
func CancelledResult(matchID uuid.UUID) models.MatchResultEvent {
	return models.MatchResultEvent{
		MatchID: matchID,
		Status:  models.MatchStatusCancelled,
	}
}
