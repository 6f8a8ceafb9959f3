package events

import (
	"context"
	"sync"
	"time"

	"betledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTransactionRecorded EventType = "transaction_recorded"
	EventTypeBetPlaced           EventType = "bet_placed"
	EventTypeBetSettled          EventType = "bet_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TransactionRecordedEvent is emitted once per committed ledger entry
type TransactionRecordedEvent struct {
	TransactionID uuid.UUID              `json:"transaction_id"`
	Sequence      int64                  `json:"sequence"`
	WalletID      uuid.UUID              `json:"wallet_id"`
	UserID        string                 `json:"user_id"`
	Kind          models.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	BalanceBefore decimal.Decimal        `json:"balance_before"`
	BalanceAfter  decimal.Decimal        `json:"balance_after"`
	BetID         *uuid.UUID             `json:"bet_id,omitempty"`
	RecordedAt    time.Time              `json:"recorded_at"`
}

func (e TransactionRecordedEvent) Type() EventType {
	return EventTypeTransactionRecorded
}

// BetPlacedEvent represents a bet accepted against an odds snapshot
type BetPlacedEvent struct {
	BetID           uuid.UUID        `json:"bet_id"`
	UserID          string           `json:"user_id"`
	MatchID         uuid.UUID        `json:"match_id"`
	Selection       models.Selection `json:"selection"`
	Stake           decimal.Decimal  `json:"stake"`
	OddsValue       decimal.Decimal  `json:"odds_value"`
	PotentialPayout decimal.Decimal  `json:"potential_payout"`
	PlacedAt        time.Time        `json:"placed_at"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetSettledEvent represents a pending bet reaching its terminal status
type BetSettledEvent struct {
	BetID     uuid.UUID                `json:"bet_id"`
	UserID    string                   `json:"user_id"`
	MatchID   uuid.UUID                `json:"match_id"`
	Outcome   models.SettlementOutcome `json:"outcome"`
	Status    models.BetStatus         `json:"status"`
	Stake     decimal.Decimal          `json:"stake"`
	Credited  decimal.Decimal          `json:"credited"`
	Net       decimal.Decimal          `json:"net"` // profit or loss for the user
	SettledAt time.Time                `json:"settled_at"`
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit hands the event to every registered handler on its own goroutine
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// database commit succeeds. Rolled back work never reaches subscribers.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	if b.real == nil {
		b.pending = nil
		return
	}

	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing committed events")

	// Subscribers outlive the request that produced the event
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
