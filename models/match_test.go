package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatus_IsConcluded(t *testing.T) {
	assert.True(t, MatchStatusFinished.IsConcluded())
	assert.True(t, MatchStatusCancelled.IsConcluded())
	assert.False(t, MatchStatusScheduled.IsConcluded())
	assert.False(t, MatchStatusLive.IsConcluded())
	assert.False(t, MatchStatus("").IsConcluded())
}

func TestMatch_IsOpenForBetting(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	match := &Match{Status: MatchStatusScheduled, StartTime: now.Add(time.Minute)}

	assert.True(t, match.IsOpenForBetting(now))
	assert.False(t, match.IsOpenForBetting(now.Add(time.Minute)))

	match.Status = MatchStatusLive
	assert.False(t, match.IsOpenForBetting(now))
}
