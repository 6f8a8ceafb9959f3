package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"betledger/infrastructure/observability"
	"betledger/models"
	"betledger/service"

	log "github.com/sirupsen/logrus"
)

// ResultListener turns match result messages from the feed into settlement runs
type ResultListener struct {
	transport  string
	dispatcher service.SettlementDispatcher
	metrics    *observability.LedgerMetrics
}

// NewResultListener creates a listener; metrics may be nil
func NewResultListener(transport string, dispatcher service.SettlementDispatcher, metrics *observability.LedgerMetrics) *ResultListener {
	return &ResultListener{
		transport:  transport,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// HandleMessage decodes and dispatches one match result. Messages that can
// never succeed are logged and acknowledged; only store failures are
// returned so the transport redelivers them.
func (l *ResultListener) HandleMessage(ctx context.Context, data []byte) error {
	var event models.MatchResultEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.WithFields(log.Fields{
			"transport": l.transport,
			"size":      len(data),
			"error":     err,
		}).Warn("Dropping undecodable match result message")
		l.metrics.FeedMessage(l.transport, observability.FeedResultDropped)
		return nil
	}

	logger := log.WithFields(log.Fields{
		"transport": l.transport,
		"matchID":   event.MatchID,
		"status":    event.Status,
	})

	summary, err := l.dispatcher.HandleMatchResult(ctx, event)
	switch {
	case err == nil:
		l.metrics.FeedMessage(l.transport, observability.FeedResultProcessed)
		return nil

	case errors.Is(err, service.ErrStoreUnavailable):
		logger.WithError(err).Error("Match result dispatch hit a store failure, requesting redelivery")
		l.metrics.FeedMessage(l.transport, observability.FeedResultRetry)
		return fmt.Errorf("dispatch match result %s: %w", event.MatchID, err)

	case errors.Is(err, service.ErrInvalidResultEvent):
		logger.WithError(err).Warn("Dropping invalid match result")
		l.metrics.FeedMessage(l.transport, observability.FeedResultDropped)
		return nil

	default:
		// Remaining failures are per bet and will not change on redelivery
		fields := log.Fields{"error": err}
		if summary != nil {
			fields["failed"] = summary.Failed
			fields["pending"] = summary.Pending
		}
		logger.WithFields(fields).Error("Match result dispatched with failures")
		l.metrics.FeedMessage(l.transport, observability.FeedResultProcessed)
		return nil
	}
}
