package repository

import (
	"context"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id, sport, team_home, team_away, start_time, status, result, created_at, updated_at`

// GetByID retrieves a match by its ID
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return match, nil
}

// Create inserts a match as delivered by the feed
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, sport, team_home, team_away, start_time, status, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}

	err := r.q.QueryRow(ctx, query,
		match.ID,
		match.Sport,
		match.HomeTeam,
		match.AwayTeam,
		match.StartTime,
		string(match.Status),
		match.Result,
	).Scan(&match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", match.ID, err)
	}
	return nil
}

// UpdateStatus records a status change. A nil result keeps the stored one.
func (r *MatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus, result *models.MatchResult) error {
	query := `
		UPDATE matches
		SET status = $2, result = COALESCE($3, result), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, string(status), result)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not found", id)
	}
	return nil
}

// ListConcludedWithPendingBets returns finished or cancelled matches that still have pending bets
func (r *MatchRepository) ListConcludedWithPendingBets(ctx context.Context) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches m
		WHERE m.status IN ('finished', 'cancelled')
		  AND EXISTS (
			SELECT 1 FROM bets b
			WHERE b.match_id = m.id AND b.status = 'pending'
		  )
		ORDER BY m.start_time
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query concluded matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID,
		&match.Sport,
		&match.HomeTeam,
		&match.AwayTeam,
		&match.StartTime,
		&match.Status,
		&match.Result,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}
