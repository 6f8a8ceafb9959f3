package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the type of balance change
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
	TransactionKindStake      TransactionKind = "stake"
	TransactionKindPayout     TransactionKind = "payout"
	TransactionKindRefund     TransactionKind = "refund"
)

// IsValid returns true for the kinds the ledger knows how to apply
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdrawal, TransactionKindStake,
		TransactionKindPayout, TransactionKindRefund:
		return true
	}
	return false
}

// IsDebit returns true if the kind takes money out of the wallet
func (k TransactionKind) IsDebit() bool {
	return k == TransactionKindWithdrawal || k == TransactionKindStake
}

// RequiresBet returns true if a transaction of this kind must reference a bet
func (k TransactionKind) RequiresBet() bool {
	return k == TransactionKindStake || k == TransactionKindPayout || k == TransactionKindRefund
}

// Signed converts a positive magnitude into the ledger's signed amount
func (k TransactionKind) Signed(magnitude decimal.Decimal) decimal.Decimal {
	if k.IsDebit() {
		return magnitude.Neg()
	}
	return magnitude
}

// String returns the string representation of the transaction kind
func (k TransactionKind) String() string {
	return string(k)
}

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID           uuid.UUID       `db:"id"`
	Sequence     int64           `db:"seq"`
	WalletID     uuid.UUID       `db:"wallet_id"`
	UserID       string          `db:"user_id"`
	Kind         TransactionKind `db:"kind"`
	Amount       decimal.Decimal `db:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	BetID        *uuid.UUID      `db:"bet_id"`
	Metadata     map[string]any  `db:"metadata"`
	CreatedAt    time.Time       `db:"created_at"`
}

// BalanceBefore returns the wallet balance immediately before this entry
func (t *Transaction) BalanceBefore() decimal.Decimal {
	return t.BalanceAfter.Sub(t.Amount)
}

// Validate checks the entry's internal consistency before it is written
func (t *Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return errors.New("unknown transaction kind")
	}
	if t.Amount.IsZero() {
		return errors.New("transaction amount cannot be zero")
	}
	if t.Kind.IsDebit() != t.Amount.IsNegative() {
		return errors.New("transaction amount sign does not match its kind")
	}
	if t.BalanceAfter.IsNegative() {
		return errors.New("transaction would leave a negative balance")
	}
	if t.Kind.RequiresBet() != (t.BetID != nil) {
		return errors.New("bet reference does not match transaction kind")
	}
	return nil
}
