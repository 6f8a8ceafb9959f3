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
	"github.com/shopspring/decimal"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

const walletColumns = `id, user_id, balance, version, created_at, updated_at`

// GetByUserID retrieves a wallet without locking it
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

// GetOrCreateForUpdate returns the wallet row locked until the transaction ends.
// Must run inside a transaction; the lock is released immediately otherwise.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	insert := `
		INSERT INTO wallets (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

// UpdateBalance writes the new balance only if nobody bumped the version first
func (r *WalletRepository) UpdateBalance(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING version, updated_at
	`

	err := r.q.QueryRow(ctx, query, newBalance, wallet.ID, wallet.Version).Scan(&wallet.Version, &wallet.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("wallet %s at version %d: %w", wallet.ID, wallet.Version, service.ErrConcurrentUpdate)
	}
	if err != nil {
		return fmt.Errorf("failed to update balance for wallet %s: %w", wallet.ID, err)
	}

	wallet.Balance = newBalance
	return nil
}

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var wallet models.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.Version,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
