package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	txBus := NewTransactionalBus(bus)

	received := make(chan TransactionRecordedEvent, 1)
	bus.Subscribe(EventTypeTransactionRecorded, func(ctx context.Context, event Event) {
		if e, ok := event.(TransactionRecordedEvent); ok {
			received <- e
		}
	})

	sent := TransactionRecordedEvent{
		TransactionID: uuid.New(),
		UserID:        "user-1",
		Kind:          models.TransactionKindDeposit,
		Amount:        decimal.NewFromInt(100),
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.NewFromInt(100),
	}
	txBus.Publish(sent)
	assert.Equal(t, 1, txBus.Pending())

	txBus.Flush(context.Background())
	assert.Equal(t, 0, txBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent.TransactionID, got.TransactionID)
		assert.True(t, sent.Amount.Equal(got.Amount))
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	bus := NewBus()
	txBus := NewTransactionalBus(bus)

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, event Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	txBus.Publish(BetPlacedEvent{BetID: uuid.New()})
	txBus.Discard()
	txBus.Flush(context.Background())

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventTypeBetSettled, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeBetSettled, func(ctx context.Context, event Event) {
		wg.Done()
	})

	bus.Emit(context.Background(), BetSettledEvent{BetID: uuid.New()})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "second handler was not called")
	}
}
