package service

import (
	"context"
	"fmt"

	"betledger/config"
	"betledger/events"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// walletLedger implements the WalletLedger interface
type walletLedger struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewWalletLedger creates a new wallet ledger
func NewWalletLedger(uowFactory UnitOfWorkFactory) WalletLedger {
	return &walletLedger{
		uowFactory: uowFactory,
		config:     config.Get(),
	}
}

// Apply records one ledger entry in its own database transaction
func (s *walletLedger) Apply(ctx context.Context, entry LedgerEntry) (*models.Transaction, error) {
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback() // No-op if already committed

	tx, err := s.ApplyWithin(ctx, uow, entry)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}

	return tx, nil
}

// ApplyWithin performs the locked check-then-write on the wallet inside uow
func (s *walletLedger) ApplyWithin(ctx context.Context, uow UnitOfWork, entry LedgerEntry) (*models.Transaction, error) {
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}

	exists, err := uow.AccountRepository().Exists(ctx, entry.UserID)
	if err != nil {
		return nil, storeErr("check account", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: no account for user %s", ErrWalletNotFound, entry.UserID)
	}

	// Holds the wallet row lock until the surrounding transaction ends
	wallet, err := uow.WalletRepository().GetOrCreateForUpdate(ctx, entry.UserID)
	if err != nil {
		return nil, storeErr("lock wallet", err)
	}

	change := entry.Kind.Signed(entry.Amount)
	if !wallet.CanApply(change) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds,
			wallet.Balance.StringFixed(s.config.MoneyScale()), entry.Amount.StringFixed(s.config.MoneyScale()))
	}

	newBalance := wallet.BalanceAfter(change)
	tx := &models.Transaction{
		ID:           uuid.New(),
		WalletID:     wallet.ID,
		UserID:       entry.UserID,
		Kind:         entry.Kind,
		Amount:       change,
		BalanceAfter: newBalance,
		BetID:        entry.BetID,
		Metadata:     entry.Metadata,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s entry: %w", entry.Kind, err)
	}

	if err := uow.TransactionRepository().Append(ctx, tx); err != nil {
		return nil, storeErr("append transaction", err)
	}

	balanceBefore := wallet.Balance
	if err := uow.WalletRepository().UpdateBalance(ctx, wallet, newBalance); err != nil {
		return nil, storeErr("update wallet balance", err)
	}

	uow.EventBus().Publish(events.TransactionRecordedEvent{
		TransactionID: tx.ID,
		Sequence:      tx.Sequence,
		WalletID:      tx.WalletID,
		UserID:        tx.UserID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		BetID:         tx.BetID,
		RecordedAt:    tx.CreatedAt,
	})

	log.WithFields(log.Fields{
		"userID":       tx.UserID,
		"kind":         tx.Kind,
		"amount":       tx.Amount.String(),
		"balanceAfter": tx.BalanceAfter.String(),
	}).Debug("Ledger entry applied")

	return tx, nil
}

// Deposit credits a user's wallet
func (s *walletLedger) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error) {
	return s.Apply(ctx, LedgerEntry{
		UserID: userID,
		Kind:   models.TransactionKindDeposit,
		Amount: amount,
	})
}

// Withdraw debits a user's wallet, failing with ErrInsufficientFunds rather than going negative
func (s *walletLedger) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error) {
	return s.Apply(ctx, LedgerEntry{
		UserID: userID,
		Kind:   models.TransactionKindWithdrawal,
		Amount: amount,
	})
}

// GetBalance returns the current balance. Accounts without a wallet yet hold zero.
func (s *walletLedger) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	wallet, err := s.findWallet(ctx, uow, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if wallet == nil {
		return decimal.Zero, nil
	}

	return wallet.Balance, nil
}

// ListTransactions returns a user's ledger entries, newest first
func (s *walletLedger) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	txs, err := uow.TransactionRepository().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	return txs, nil
}

// Reconcile compares the stored balance against the sum of the wallet's ledger
func (s *walletLedger) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer uow.Rollback()

	wallet, err := s.findWallet(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	result := &Reconciliation{
		UserID:      userID,
		Balance:     decimal.Zero,
		LedgerTotal: decimal.Zero,
	}
	if wallet == nil {
		return result, nil
	}

	total, err := uow.TransactionRepository().SumByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, storeErr("sum transactions", err)
	}

	result.WalletID = wallet.ID
	result.Balance = wallet.Balance
	result.LedgerTotal = total

	if !result.Balanced() {
		log.WithFields(log.Fields{
			"userID":      userID,
			"walletID":    wallet.ID,
			"balance":     wallet.Balance.String(),
			"ledgerTotal": total.String(),
		}).Error("Wallet balance does not match its ledger")
	}

	return result, nil
}

// findWallet returns nil without error for an account that has never used its wallet
func (s *walletLedger) findWallet(ctx context.Context, uow UnitOfWork, userID string) (*models.Wallet, error) {
	wallet, err := uow.WalletRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr("get wallet", err)
	}
	if wallet != nil {
		return wallet, nil
	}

	exists, err := uow.AccountRepository().Exists(ctx, userID)
	if err != nil {
		return nil, storeErr("check account", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: no account for user %s", ErrWalletNotFound, userID)
	}

	return nil, nil
}

func (s *walletLedger) validateEntry(entry LedgerEntry) error {
	if !entry.Kind.IsValid() {
		return fmt.Errorf("unknown transaction kind %q", entry.Kind)
	}
	if !models.IsPositiveMoney(entry.Amount, s.config.MoneyScale()) {
		return fmt.Errorf("%w: %s must be positive with at most %d decimal places",
			ErrInvalidAmount, entry.Amount.String(), s.config.MoneyScale())
	}
	if entry.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrWalletNotFound)
	}
	return nil
}
