package repository

import (
	"context"
	"fmt"

	"betledger/database"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the TransactionRepository interface.
// Rows are never updated or deleted; the table trigger rejects both.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Append inserts the entry and fills in its sequence and creation time
func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (id, wallet_id, user_id, kind, amount, balance_after, bet_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`

	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := r.q.QueryRow(ctx, query,
		tx.ID,
		tx.WalletID,
		tx.UserID,
		string(tx.Kind),
		tx.Amount,
		tx.BalanceAfter,
		tx.BetID,
		metadata,
	).Scan(&tx.Sequence, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append %s transaction for user %s: %w", tx.Kind, tx.UserID, err)
	}

	return nil
}

// ListByUser returns a user's entries newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT seq, id, wallet_id, user_id, kind, amount, balance_after, bet_id, metadata, created_at
		FROM ledger_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(
			&tx.Sequence,
			&tx.ID,
			&tx.WalletID,
			&tx.UserID,
			&tx.Kind,
			&tx.Amount,
			&tx.BalanceAfter,
			&tx.BetID,
			&tx.Metadata,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// SumByWallet returns the sum of every signed amount recorded for a wallet
func (r *TransactionRepository) SumByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_transactions WHERE wallet_id = $1`,
		walletID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions for wallet %s: %w", walletID, err)
	}
	return total, nil
}
