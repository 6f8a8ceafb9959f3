package service

import (
	"context"

	"betledger/events"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Exists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetOrCreateForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error {
	args := m.Called(ctx, wallet, newBalance)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus, result *models.MatchResult) error {
	args := m.Called(ctx, id, status, result)
	return args.Error(0)
}

func (m *MockMatchRepository) ListConcludedWithPendingBets(ctx context.Context) ([]*models.Match, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

// MockOddsRepository is a mock implementation of OddsRepository
type MockOddsRepository struct {
	mock.Mock
}

func (m *MockOddsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Odds, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Odds), args.Error(1)
}

func (m *MockOddsRepository) Create(ctx context.Context, odds *models.Odds) error {
	args := m.Called(ctx, odds)
	return args.Error(0)
}

func (m *MockOddsRepository) UpdateMultiplier(ctx context.Context, id uuid.UUID, multiplier decimal.Decimal) error {
	args := m.Called(ctx, id, multiplier)
	return args.Error(0)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) MarkSettled(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListPendingByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Bet, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever SetRepositories installed and are not recorded as calls.
type MockUnitOfWork struct {
	mock.Mock

	accountRepo     AccountRepository
	walletRepo      WalletRepository
	transactionRepo TransactionRepository
	matchRepo       MatchRepository
	oddsRepo        OddsRepository
	betRepo         BetRepository
	eventBus        EventPublisher
}

// MockRepositories bundles the repositories a MockUnitOfWork hands out
type MockRepositories struct {
	Accounts     *MockAccountRepository
	Wallets      *MockWalletRepository
	Transactions *MockTransactionRepository
	Matches      *MockMatchRepository
	Odds         *MockOddsRepository
	Bets         *MockBetRepository
	Events       *MockEventPublisher
}

// NewMockRepositories returns a fresh set of repository mocks
func NewMockRepositories() *MockRepositories {
	return &MockRepositories{
		Accounts:     new(MockAccountRepository),
		Wallets:      new(MockWalletRepository),
		Transactions: new(MockTransactionRepository),
		Matches:      new(MockMatchRepository),
		Odds:         new(MockOddsRepository),
		Bets:         new(MockBetRepository),
		Events:       new(MockEventPublisher),
	}
}

// SetRepositories installs the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(repos *MockRepositories) {
	m.accountRepo = repos.Accounts
	m.walletRepo = repos.Wallets
	m.transactionRepo = repos.Transactions
	m.matchRepo = repos.Matches
	m.oddsRepo = repos.Odds
	m.betRepo = repos.Bets
	m.eventBus = repos.Events
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository         { return m.accountRepo }
func (m *MockUnitOfWork) WalletRepository() WalletRepository           { return m.walletRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.transactionRepo }
func (m *MockUnitOfWork) MatchRepository() MatchRepository             { return m.matchRepo }
func (m *MockUnitOfWork) OddsRepository() OddsRepository               { return m.oddsRepo }
func (m *MockUnitOfWork) BetRepository() BetRepository                 { return m.betRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockBettingEngine is a mock implementation of BettingEngine
type MockBettingEngine struct {
	mock.Mock
}

func (m *MockBettingEngine) PlaceBet(ctx context.Context, userID string, matchID, oddsID uuid.UUID, stake decimal.Decimal) (*models.Bet, error) {
	args := m.Called(ctx, userID, matchID, oddsID, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBettingEngine) Settle(ctx context.Context, betID uuid.UUID, outcome models.SettlementOutcome) (*models.Bet, error) {
	args := m.Called(ctx, betID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBettingEngine) GetBet(ctx context.Context, betID uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBettingEngine) ListBets(ctx context.Context, userID string, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockSettlementDispatcher is a mock implementation of SettlementDispatcher
type MockSettlementDispatcher struct {
	mock.Mock
}

func (m *MockSettlementDispatcher) HandleMatchResult(ctx context.Context, event models.MatchResultEvent) (*DispatchSummary, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DispatchSummary), args.Error(1)
}
