package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's balance. Every change to Balance is mirrored by
// exactly one Transaction row and bumps Version.
type Wallet struct {
	ID        uuid.UUID       `db:"id"`
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CanApply reports whether a signed change keeps the balance non-negative
func (w *Wallet) CanApply(change decimal.Decimal) bool {
	return !w.Balance.Add(change).IsNegative()
}

// BalanceAfter returns what the balance would be after a signed change
func (w *Wallet) BalanceAfter(change decimal.Decimal) decimal.Decimal {
	return w.Balance.Add(change)
}
