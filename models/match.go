package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state reported by the match feed
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// IsConcluded returns true once no further play will happen
func (s MatchStatus) IsConcluded() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled
}

// MatchResult is the final score delivered by the feed
type MatchResult struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

// TotalGoals returns the combined score of both sides
func (r MatchResult) TotalGoals() int {
	return r.HomeScore + r.AwayScore
}

// Match is a fixture owned by the feed
type Match struct {
	ID        uuid.UUID    `db:"id"`
	Sport     string       `db:"sport"`
	HomeTeam  string       `db:"team_home"`
	AwayTeam  string       `db:"team_away"`
	StartTime time.Time    `db:"start_time"`
	Status    MatchStatus  `db:"status"`
	Result    *MatchResult `db:"result"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// IsOpenForBetting returns true while the match is scheduled and has not kicked off
func (m *Match) IsOpenForBetting(now time.Time) bool {
	return m.Status == MatchStatusScheduled && now.Before(m.StartTime)
}

// MatchResultEvent is delivered by the feed, at least once, when a match concludes
type MatchResultEvent struct {
	MatchID uuid.UUID    `json:"match_id"`
	Status  MatchStatus  `json:"status"`
	Result  *MatchResult `json:"result,omitempty"`
}
