package repository

import (
	"context"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OddsRepository implements the OddsRepository interface
type OddsRepository struct {
	q queryable
}

// NewOddsRepository creates a new odds repository
func NewOddsRepository(db *database.DB) *OddsRepository {
	return &OddsRepository{q: db.Pool}
}

func newOddsRepositoryWithTx(tx queryable) *OddsRepository {
	return &OddsRepository{q: tx}
}

// GetByID reads the live odds row
func (r *OddsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Odds, error) {
	query := `
		SELECT id, match_id, selection_type, selection_value, multiplier, created_at, updated_at
		FROM odds
		WHERE id = $1
	`

	var odds models.Odds
	err := r.q.QueryRow(ctx, query, id).Scan(
		&odds.ID,
		&odds.MatchID,
		&odds.Selection.Type,
		&odds.Selection.Value,
		&odds.Multiplier,
		&odds.CreatedAt,
		&odds.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get odds %s: %w", id, err)
	}

	return &odds, nil
}

// Create inserts an odds row for a match
func (r *OddsRepository) Create(ctx context.Context, odds *models.Odds) error {
	query := `
		INSERT INTO odds (id, match_id, selection_type, selection_value, multiplier)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		odds.ID,
		odds.MatchID,
		string(odds.Selection.Type),
		odds.Selection.Value,
		odds.Multiplier,
	).Scan(&odds.CreatedAt, &odds.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create odds for match %s: %w", odds.MatchID, err)
	}
	return nil
}

// UpdateMultiplier reprices an odds row. Bets already placed keep their snapshot.
func (r *OddsRepository) UpdateMultiplier(ctx context.Context, id uuid.UUID, multiplier decimal.Decimal) error {
	query := `
		UPDATE odds
		SET multiplier = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, multiplier)
	if err != nil {
		return fmt.Errorf("failed to update odds %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("odds %s not found", id)
	}
	return nil
}
