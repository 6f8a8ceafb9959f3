package repository

import (
	"context"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/models"
	"betledger/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `
	id, user_id, match_id, odds_id, stake, selection_type, selection_value,
	odds_value, potential_payout, status, created_at, settled_at
`

// Create persists a freshly placed bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (` + betColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		bet.ID,
		bet.UserID,
		bet.MatchID,
		bet.OddsID,
		bet.Stake,
		string(bet.Selection.Type),
		bet.Selection.Value,
		bet.OddsValue,
		bet.PotentialPayout,
		string(bet.Status),
		bet.CreatedAt,
		bet.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bet %s: %w", bet.ID, err)
	}
	return nil
}

// GetByID retrieves a bet by its ID
func (r *BetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	return r.getByID(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a bet and locks it until the transaction ends
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	return r.getByID(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
}

func (r *BetRepository) getByID(ctx context.Context, query string, id uuid.UUID) (*models.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %s: %w", id, err)
	}
	return bet, nil
}

// MarkSettled stores the terminal status, but only over a pending row
func (r *BetRepository) MarkSettled(ctx context.Context, bet *models.Bet) error {
	if bet.SettledAt == nil || !bet.Status.IsTerminal() {
		return fmt.Errorf("bet %s has no terminal status to store", bet.ID)
	}

	query := `
		UPDATE bets
		SET status = $2, settled_at = $3
		WHERE id = $1 AND settled_at IS NULL
	`

	tag, err := r.q.Exec(ctx, query, bet.ID, string(bet.Status), *bet.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to settle bet %s: %w", bet.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet %s: %w", bet.ID, service.ErrAlreadySettled)
	}
	return nil
}

// ListByUser returns a user's bets newest first
func (r *BetRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limitArg(limit))
}

// ListPendingByMatch returns every unsettled bet on a match, oldest first
func (r *BetRepository) ListPendingByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE match_id = $1 AND status = 'pending'
		ORDER BY created_at
	`
	return r.list(ctx, query, matchID)
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	var bet models.Bet
	err := row.Scan(
		&bet.ID,
		&bet.UserID,
		&bet.MatchID,
		&bet.OddsID,
		&bet.Stake,
		&bet.Selection.Type,
		&bet.Selection.Value,
		&bet.OddsValue,
		&bet.PotentialPayout,
		&bet.Status,
		&bet.CreatedAt,
		&bet.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &bet, nil
}
