package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"betledger/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LedgerEventsStream holds every outbound ledger event
const LedgerEventsStream = "LEDGER_EVENTS"

// LedgerEventSubjects are the subjects the ledger stream captures
var LedgerEventSubjects = []string{"ledger.>"}

var eventSubjects = map[events.EventType]string{
	events.EventTypeTransactionRecorded: "ledger.transaction.recorded",
	events.EventTypeBetPlaced:           "ledger.bet.placed",
	events.EventTypeBetSettled:          "ledger.bet.settled",
}

// messagePublisher is satisfied by *NATSClient
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every outbound event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards committed ledger events to NATS
type NATSEventPublisher struct {
	publisher messagePublisher
	source    string
}

// NewNATSEventPublisher creates a publisher that stamps source on every envelope
func NewNATSEventPublisher(publisher messagePublisher, source string) *NATSEventPublisher {
	return &NATSEventPublisher{
		publisher: publisher,
		source:    source,
	}
}

// Subscribe forwards every ledger event type raised on bus
func (p *NATSEventPublisher) Subscribe(bus *events.Bus) {
	for eventType := range eventSubjects {
		bus.Subscribe(eventType, p.handleEvent)
	}
}

func (p *NATSEventPublisher) handleEvent(ctx context.Context, event events.Event) {
	if err := p.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward ledger event")
	}
}

// Publish wraps event in an envelope and publishes it on its subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject, ok := eventSubjects[event.Type()]
	if !ok {
		return fmt.Errorf("no subject for event type %s", event.Type())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: p.source,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"subject":   subject,
		"eventID":   envelope.EventID,
	}).Debug("Forwarded ledger event")
	return nil
}
