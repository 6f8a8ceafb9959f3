package service

import (
	"context"

	"betledger/events"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository reads accounts owned by the identity collaborator
type AccountRepository interface {
	// Exists reports whether the account is known
	Exists(ctx context.Context, userID string) (bool, error)

	// Create registers an account, doing nothing if it already exists
	Create(ctx context.Context, userID string) error
}

// WalletRepository defines the interface for wallet data access
type WalletRepository interface {
	// GetByUserID retrieves a wallet without locking it, nil if none exists
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)

	// GetOrCreateForUpdate returns the user's wallet locked for the rest of
	// the transaction, creating it with a zero balance on first use
	GetOrCreateForUpdate(ctx context.Context, userID string) (*models.Wallet, error)

	// UpdateBalance writes a new balance if the wallet version is unchanged.
	// Returns ErrConcurrentUpdate otherwise.
	UpdateBalance(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Append inserts the entry and fills in its sequence and creation time
	Append(ctx context.Context, tx *models.Transaction) error

	// ListByUser returns a user's entries newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)

	// SumByWallet returns the sum of all signed amounts for a wallet
	SumByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	Create(ctx context.Context, match *models.Match) error

	// UpdateStatus records a status change and the final result, if any
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus, result *models.MatchResult) error

	// ListConcludedWithPendingBets returns finished or cancelled matches that still have pending bets
	ListConcludedWithPendingBets(ctx context.Context) ([]*models.Match, error)
}

// OddsRepository defines the interface for odds data access
type OddsRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Odds, error)
	Create(ctx context.Context, odds *models.Odds) error
	UpdateMultiplier(ctx context.Context, id uuid.UUID, multiplier decimal.Decimal) error
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	Create(ctx context.Context, bet *models.Bet) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)

	// GetByIDForUpdate locks the bet row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error)

	// MarkSettled persists a terminal status. Returns ErrAlreadySettled if
	// the stored bet was settled in the meantime.
	MarkSettled(ctx context.Context, bet *models.Bet) error

	// ListByUser returns a user's bets newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Bet, error)

	// ListPendingByMatch returns every unsettled bet on a match
	ListPendingByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Bet, error)
}

// UnitOfWork groups repository calls into a single database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	WalletRepository() WalletRepository
	TransactionRepository() TransactionRepository
	MatchRepository() MatchRepository
	OddsRepository() OddsRepository
	BetRepository() BetRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates a fresh UnitOfWork per operation
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// EventPublisher buffers domain events until the unit of work commits
type EventPublisher interface {
	Publish(event events.Event)
}

// LedgerEntry describes one movement of money requested from the ledger
type LedgerEntry struct {
	UserID string
	Kind   models.TransactionKind
	// Amount is always a positive magnitude; Kind decides the sign
	Amount   decimal.Decimal
	BetID    *uuid.UUID
	Metadata map[string]any
}

// Reconciliation compares a wallet's stored balance with its ledger
type Reconciliation struct {
	UserID      string
	WalletID    uuid.UUID
	Balance     decimal.Decimal
	LedgerTotal decimal.Decimal
}

// Drift is the stored balance minus the ledger total
func (r *Reconciliation) Drift() decimal.Decimal {
	return r.Balance.Sub(r.LedgerTotal)
}

// Balanced reports whether the balance equals the sum of its transactions
func (r *Reconciliation) Balanced() bool {
	return r.Drift().IsZero()
}

// WalletLedger is the only component allowed to move money
type WalletLedger interface {
	// Apply records one entry in its own transaction
	Apply(ctx context.Context, entry LedgerEntry) (*models.Transaction, error)

	// ApplyWithin records one entry inside a unit of work the caller already began.
	// The caller commits.
	ApplyWithin(ctx context.Context, uow UnitOfWork, entry LedgerEntry) (*models.Transaction, error)

	Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	Reconcile(ctx context.Context, userID string) (*Reconciliation, error)
}

// BettingEngine places bets and drives them through settlement
type BettingEngine interface {
	PlaceBet(ctx context.Context, userID string, matchID, oddsID uuid.UUID, stake decimal.Decimal) (*models.Bet, error)

	// Settle applies an outcome once. Settling a settled bet returns it unchanged.
	Settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, error)

	GetBet(ctx context.Context, betID uuid.UUID) (*models.Bet, error)
	ListBets(ctx context.Context, userID string, limit int) ([]*models.Bet, error)
}

// OutcomePolicy decides how a concluded match settles a single selection
type OutcomePolicy interface {
	Outcome(event models.MatchResultEvent, selection models.Selection) (models.SettlementOutcome, error)
}

// DispatchSummary counts what happened to each pending bet of a match
type DispatchSummary struct {
	MatchID        uuid.UUID
	Pending        int
	Won            int
	Lost           int
	Refunded       int
	AlreadySettled int
	Failed         int
}

// SettlementDispatcher settles every pending bet of a concluded match
type SettlementDispatcher interface {
	HandleMatchResult(ctx context.Context, event models.MatchResultEvent) (*DispatchSummary, error)
}
