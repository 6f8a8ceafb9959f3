package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"betledger/events"
	"betledger/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestEngine(factory UnitOfWorkFactory) *bettingEngine {
	engine := NewBettingEngine(factory, NewWalletLedger(factory)).(*bettingEngine)
	engine.now = func() time.Time { return engineNow }
	return engine
}

func openMatch() *models.Match {
	return &models.Match{
		ID:        uuid.New(),
		Sport:     "football",
		HomeTeam:  "Home FC",
		AwayTeam:  "Away United",
		StartTime: engineNow.Add(2 * time.Hour),
		Status:    models.MatchStatusScheduled,
	}
}

func homeWinOdds(matchID uuid.UUID, multiplier string) *models.Odds {
	return &models.Odds{
		ID:         uuid.New(),
		MatchID:    matchID,
		Selection:  models.Selection{Type: models.SelectionTypeWin, Value: models.SelectionHome},
		Multiplier: dec(multiplier),
	}
}

func pendingBet(userID, stake, multiplier string) *models.Bet {
	match := openMatch()
	snapshot := models.NewOddsSnapshot(homeWinOdds(match.ID, multiplier), engineNow.Add(-time.Hour))
	return models.NewBet(uuid.New(), userID, dec(stake), snapshot, models.DefaultCurrencyScale)
}

func TestBettingEngine_PlaceBet(t *testing.T) {
	ctx := context.Background()
	factory, uow, repos := setupUoW()
	match := openMatch()
	odds := homeWinOdds(match.ID, "2.00")
	wallet := testWallet("user-1", "100")

	repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
	repos.Odds.On("GetByID", mock.Anything, odds.ID).Return(odds, nil)
	repos.Accounts.On("Exists", mock.Anything, "user-1").Return(true, nil)
	repos.Wallets.On("GetOrCreateForUpdate", mock.Anything, "user-1").Return(wallet, nil)
	repos.Transactions.On("Append", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Kind == models.TransactionKindStake &&
			tx.Amount.Equal(dec("-30")) &&
			tx.BalanceAfter.Equal(dec("70")) &&
			tx.BetID != nil &&
			tx.Metadata["odds_value"] == "2"
	})).Return(nil)
	repos.Wallets.On("UpdateBalance", mock.Anything, wallet, decEq("70")).Return(nil)
	repos.Bets.On("Create", mock.Anything, mock.MatchedBy(func(b *models.Bet) bool {
		return b.Status == models.BetStatusPending &&
			b.PotentialPayout.Equal(dec("60")) &&
			b.OddsID == odds.ID
	})).Return(nil)
	repos.Events.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).Return()
	repos.Events.On("Publish", mock.AnythingOfType("events.BetPlacedEvent")).Return()
	uow.On("Commit").Return(nil)

	engine := newTestEngine(factory)
	bet, err := engine.PlaceBet(ctx, "user-1", match.ID, odds.ID, dec("30"))

	require.NoError(t, err)
	assert.Equal(t, models.BetStatusPending, bet.Status)
	assert.True(t, bet.PotentialPayout.Equal(dec("60")))
	assert.True(t, bet.OddsValue.Equal(dec("2.00")))
	assert.Equal(t, engineNow, bet.CreatedAt)
	assert.Nil(t, bet.SettledAt)

	// Only one unit of work: the stake debit shares the bet's transaction
	factory.AssertNumberOfCalls(t, "Create", 1)
	uow.AssertExpectations(t)
	repos.Bets.AssertExpectations(t)
	repos.Transactions.AssertExpectations(t)
	repos.Events.AssertExpectations(t)
}

func TestBettingEngine_PlaceBet_InsufficientFunds(t *testing.T) {
	factory, uow, repos := setupUoW()
	match := openMatch()
	odds := homeWinOdds(match.ID, "2.00")

	repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
	repos.Odds.On("GetByID", mock.Anything, odds.ID).Return(odds, nil)
	repos.Accounts.On("Exists", mock.Anything, "user-1").Return(true, nil)
	repos.Wallets.On("GetOrCreateForUpdate", mock.Anything, "user-1").Return(testWallet("user-1", "20"), nil)

	engine := newTestEngine(factory)
	bet, err := engine.PlaceBet(context.Background(), "user-1", match.ID, odds.ID, dec("25"))

	assert.Nil(t, bet)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	repos.Bets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	repos.Transactions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertCalled(t, "Rollback")
}

func TestBettingEngine_PlaceBet_BetInsertFailsAfterDebit(t *testing.T) {
	factory, uow, repos := setupUoW()
	match := openMatch()
	odds := homeWinOdds(match.ID, "2.00")
	wallet := testWallet("user-1", "100")

	repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
	repos.Odds.On("GetByID", mock.Anything, odds.ID).Return(odds, nil)
	repos.Accounts.On("Exists", mock.Anything, "user-1").Return(true, nil)
	repos.Wallets.On("GetOrCreateForUpdate", mock.Anything, "user-1").Return(wallet, nil)
	repos.Transactions.On("Append", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil)
	repos.Wallets.On("UpdateBalance", mock.Anything, wallet, decEq("70")).Return(nil)
	repos.Events.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).Return()
	repos.Bets.On("Create", mock.Anything, mock.AnythingOfType("*models.Bet")).
		Return(errors.New("connection reset by peer"))

	engine := newTestEngine(factory)
	bet, err := engine.PlaceBet(context.Background(), "user-1", match.ID, odds.ID, dec("30"))

	assert.Nil(t, bet)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// The debit happened inside the unit of work, which is rolled back, never committed
	repos.Transactions.AssertNumberOfCalls(t, "Append", 1)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertCalled(t, "Rollback")
	repos.Events.AssertNotCalled(t, "Publish", mock.AnythingOfType("events.BetPlacedEvent"))
}

func TestBettingEngine_PlaceBet_Rejections(t *testing.T) {
	t.Run("invalid stake", func(t *testing.T) {
		factory := new(MockUnitOfWorkFactory)
		engine := newTestEngine(factory)

		for _, stake := range []string{"0", "-10", "0.001"} {
			_, err := engine.PlaceBet(context.Background(), "user-1", uuid.New(), uuid.New(), dec(stake))
			assert.ErrorIs(t, err, ErrInvalidStake, stake)
		}
		factory.AssertNotCalled(t, "Create")
	})

	t.Run("match already started", func(t *testing.T) {
		factory, _, repos := setupUoW()
		match := openMatch()
		match.StartTime = engineNow.Add(-time.Minute)
		repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)

		_, err := newTestEngine(factory).PlaceBet(context.Background(), "user-1", match.ID, uuid.New(), dec("10"))

		assert.ErrorIs(t, err, ErrMatchClosed)
		repos.Odds.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("match live", func(t *testing.T) {
		factory, _, repos := setupUoW()
		match := openMatch()
		match.Status = models.MatchStatusLive
		repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)

		_, err := newTestEngine(factory).PlaceBet(context.Background(), "user-1", match.ID, uuid.New(), dec("10"))

		assert.ErrorIs(t, err, ErrMatchClosed)
	})

	t.Run("odds missing", func(t *testing.T) {
		factory, _, repos := setupUoW()
		match := openMatch()
		oddsID := uuid.New()
		repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
		repos.Odds.On("GetByID", mock.Anything, oddsID).Return(nil, nil)

		_, err := newTestEngine(factory).PlaceBet(context.Background(), "user-1", match.ID, oddsID, dec("10"))

		assert.ErrorIs(t, err, ErrOddsUnavailable)
	})

	t.Run("odds belong to another match", func(t *testing.T) {
		factory, _, repos := setupUoW()
		match := openMatch()
		odds := homeWinOdds(uuid.New(), "1.80")
		repos.Matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
		repos.Odds.On("GetByID", mock.Anything, odds.ID).Return(odds, nil)

		_, err := newTestEngine(factory).PlaceBet(context.Background(), "user-1", match.ID, odds.ID, dec("10"))

		assert.ErrorIs(t, err, ErrOddsUnavailable)
		repos.Accounts.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	})

	t.Run("unknown match", func(t *testing.T) {
		factory, _, repos := setupUoW()
		matchID := uuid.New()
		repos.Matches.On("GetByID", mock.Anything, matchID).Return(nil, nil)

		_, err := newTestEngine(factory).PlaceBet(context.Background(), "user-1", matchID, uuid.New(), dec("10"))

		assert.ErrorIs(t, err, ErrOddsUnavailable)
	})
}

func TestBettingEngine_Settle_Won(t *testing.T) {
	factory, uow, repos := setupUoW()
	bet := pendingBet("user-1", "30", "2.00")
	wallet := testWallet("user-1", "70")

	repos.Bets.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)
	repos.Accounts.On("Exists", mock.Anything, "user-1").Return(true, nil)
	repos.Wallets.On("GetOrCreateForUpdate", mock.Anything, "user-1").Return(wallet, nil)
	repos.Transactions.On("Append", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Kind == models.TransactionKindPayout &&
			tx.Amount.Equal(dec("60")) &&
			*tx.BetID == bet.ID
	})).Return(nil)
	repos.Wallets.On("UpdateBalance", mock.Anything, wallet, decEq("130")).Return(nil)
	repos.Bets.On("MarkSettled", mock.Anything, mock.MatchedBy(func(b *models.Bet) bool {
		return b.ID == bet.ID && b.Status == models.BetStatusWon && b.SettledAt != nil
	})).Return(nil)
	repos.Events.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).Return()
	repos.Events.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		settled, ok := e.(events.BetSettledEvent)
		return ok && settled.Credited.Equal(dec("60")) && settled.Net.Equal(dec("30"))
	})).Return()
	uow.On("Commit").Return(nil)

	settled, err := newTestEngine(factory).Settle(context.Background(), bet.ID, models.OutcomeWon)

	require.NoError(t, err)
	assert.Equal(t, models.BetStatusWon, settled.Status)
	require.NotNil(t, settled.SettledAt)
	assert.Equal(t, engineNow, *settled.SettledAt)
	repos.Transactions.AssertExpectations(t)
	repos.Bets.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestBettingEngine_Settle_Lost(t *testing.T) {
	factory, uow, repos := setupUoW()
	bet := pendingBet("user-1", "30", "2.00")

	repos.Bets.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)
	repos.Bets.On("MarkSettled", mock.Anything, mock.Anything).Return(nil)
	repos.Events.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		settled, ok := e.(events.BetSettledEvent)
		return ok && settled.Credited.IsZero() && settled.Net.Equal(dec("-30"))
	})).Return()
	uow.On("Commit").Return(nil)

	settled, err := newTestEngine(factory).Settle(context.Background(), bet.ID, models.OutcomeLost)

	require.NoError(t, err)
	assert.Equal(t, models.BetStatusLost, settled.Status)
	repos.Events.AssertExpectations(t)
	repos.Accounts.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	repos.Transactions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestBettingEngine_Settle_Cancelled_Refunds(t *testing.T) {
	factory, uow, repos := setupUoW()
	bet := pendingBet("user-1", "30", "2.00")
	wallet := testWallet("user-1", "70")

	repos.Bets.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)
	repos.Accounts.On("Exists", mock.Anything, "user-1").Return(true, nil)
	repos.Wallets.On("GetOrCreateForUpdate", mock.Anything, "user-1").Return(wallet, nil)
	repos.Transactions.On("Append", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Kind == models.TransactionKindRefund && tx.Amount.Equal(dec("30"))
	})).Return(nil)
	repos.Wallets.On("UpdateBalance", mock.Anything, wallet, decEq("100")).Return(nil)
	repos.Bets.On("MarkSettled", mock.Anything, mock.Anything).Return(nil)
	repos.Events.On("Publish", mock.Anything).Return()
	uow.On("Commit").Return(nil)

	settled, err := newTestEngine(factory).Settle(context.Background(), bet.ID, models.OutcomeCancelled)

	require.NoError(t, err)
	assert.Equal(t, models.BetStatusRefunded, settled.Status)
	repos.Transactions.AssertExpectations(t)
}

func TestBettingEngine_Settle_AlreadySettled(t *testing.T) {
	factory, uow, repos := setupUoW()
	bet := pendingBet("user-1", "30", "2.00")
	require.NoError(t, bet.Settle(models.OutcomeWon, engineNow.Add(-time.Minute)))

	repos.Bets.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)

	settled, err := newTestEngine(factory).Settle(context.Background(), bet.ID, models.OutcomeWon)

	require.NoError(t, err)
	assert.Equal(t, bet, settled)
	repos.Transactions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	repos.Bets.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}

func TestBettingEngine_Settle_LostRaceOnMarkSettled(t *testing.T) {
	factory, uow, repos := setupUoW()
	bet := pendingBet("user-1", "30", "2.00")

	repos.Bets.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)
	repos.Bets.On("MarkSettled", mock.Anything, mock.Anything).Return(ErrAlreadySettled)

	settled, err := newTestEngine(factory).Settle(context.Background(), bet.ID, models.OutcomeLost)

	require.NoError(t, err)
	assert.Equal(t, bet.ID, settled.ID)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertCalled(t, "Rollback")
}

func TestBettingEngine_Settle_Errors(t *testing.T) {
	t.Run("invalid outcome", func(t *testing.T) {
		factory := new(MockUnitOfWorkFactory)

		_, err := newTestEngine(factory).Settle(context.Background(), uuid.New(), models.SettlementOutcome("void"))

		assert.ErrorIs(t, err, ErrInvalidOutcome)
		factory.AssertNotCalled(t, "Create")
	})

	t.Run("bet not found", func(t *testing.T) {
		factory, _, repos := setupUoW()
		betID := uuid.New()
		repos.Bets.On("GetByIDForUpdate", mock.Anything, betID).Return(nil, nil)

		_, err := newTestEngine(factory).Settle(context.Background(), betID, models.OutcomeWon)

		assert.ErrorIs(t, err, ErrBetNotFound)
	})
}

func TestBettingEngine_ListBets(t *testing.T) {
	factory, _, repos := setupUoW()
	bets := []*models.Bet{pendingBet("user-1", "10", "1.50"), pendingBet("user-1", "5", "3.00")}
	repos.Bets.On("ListByUser", mock.Anything, "user-1", 20).Return(bets, nil)

	result, err := newTestEngine(factory).ListBets(context.Background(), "user-1", 20)

	require.NoError(t, err)
	assert.Len(t, result, 2)
}
