package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"betledger/models"
	"betledger/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resultMessage(t *testing.T, event models.MatchResultEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestResultListener_HandleMessage(t *testing.T) {
	ctx := context.Background()
	matchID := uuid.New()
	event := models.MatchResultEvent{
		MatchID: matchID,
		Status:  models.MatchStatusFinished,
		Result:  &models.MatchResult{HomeScore: 2, AwayScore: 1},
	}

	t.Run("dispatches decoded event", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)
		dispatcher.On("HandleMatchResult", mock.Anything, event).
			Return(&service.DispatchSummary{MatchID: matchID, Pending: 2, Won: 1, Lost: 1}, nil)

		listener := NewResultListener("nats", dispatcher, nil)
		err := listener.HandleMessage(ctx, resultMessage(t, event))

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("acks undecodable message without dispatching", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)

		listener := NewResultListener("nats", dispatcher, nil)
		err := listener.HandleMessage(ctx, []byte("{not json"))

		require.NoError(t, err)
		dispatcher.AssertNotCalled(t, "HandleMatchResult", mock.Anything, mock.Anything)
	})

	t.Run("acks invalid result event", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)
		dispatcher.On("HandleMatchResult", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: result missing", service.ErrInvalidResultEvent))

		listener := NewResultListener("kafka", dispatcher, nil)
		err := listener.HandleMessage(ctx, resultMessage(t, models.MatchResultEvent{
			MatchID: matchID,
			Status:  models.MatchStatusFinished,
		}))

		require.NoError(t, err)
	})

	t.Run("requests redelivery on store failure", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)
		storeErr := fmt.Errorf("%w: begin: connection refused", service.ErrStoreUnavailable)
		dispatcher.On("HandleMatchResult", mock.Anything, event).Return(nil, storeErr)

		listener := NewResultListener("nats", dispatcher, nil)
		err := listener.HandleMessage(ctx, resultMessage(t, event))

		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	})

	t.Run("requests redelivery when one bet hit a store failure", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)
		joined := errors.Join(
			service.ErrUnknownSelection,
			fmt.Errorf("%w: update wallet: timeout", service.ErrStoreUnavailable),
		)
		dispatcher.On("HandleMatchResult", mock.Anything, event).
			Return(&service.DispatchSummary{MatchID: matchID, Pending: 3, Won: 1, Failed: 2}, joined)

		listener := NewResultListener("nats", dispatcher, nil)
		err := listener.HandleMessage(ctx, resultMessage(t, event))

		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	})

	t.Run("acks per bet failures that redelivery cannot fix", func(t *testing.T) {
		dispatcher := new(service.MockSettlementDispatcher)
		dispatcher.On("HandleMatchResult", mock.Anything, event).
			Return(&service.DispatchSummary{MatchID: matchID, Pending: 1, Failed: 1}, service.ErrUnknownSelection)

		listener := NewResultListener("nats", dispatcher, nil)
		err := listener.HandleMessage(ctx, resultMessage(t, event))

		assert.NoError(t, err)
	})
}
