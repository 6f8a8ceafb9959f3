package observability

import (
	"context"

	"betledger/events"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Feed message outcomes recorded by FeedMessage
const (
	FeedResultProcessed = "processed"
	FeedResultDropped   = "dropped"
	FeedResultRetry     = "retry"
)

// LedgerMetrics exposes ledger activity as prometheus counters
type LedgerMetrics struct {
	transactions *prometheus.CounterVec
	volume       *prometheus.CounterVec
	betsPlaced   prometheus.Counter
	betsSettled  *prometheus.CounterVec
	feedMessages *prometheus.CounterVec
	sweepsRun    prometheus.Counter
	sweptMatches prometheus.Counter
}

// NewLedgerMetrics creates the counters and registers them with reg
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betledger_transactions_total",
			Help: "Ledger entries committed, by kind.",
		}, []string{"kind"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betledger_transaction_volume_total",
			Help: "Sum of committed ledger entry amounts, by kind.",
		}, []string{"kind"}),
		betsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betledger_bets_placed_total",
			Help: "Bets accepted.",
		}),
		betsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betledger_bets_settled_total",
			Help: "Bets settled, by terminal status.",
		}, []string{"status"}),
		feedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betledger_feed_messages_total",
			Help: "Match result messages received, by transport and outcome.",
		}, []string{"transport", "result"}),
		sweepsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betledger_settlement_sweeps_total",
			Help: "Settlement sweep runs.",
		}),
		sweptMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betledger_settlement_swept_matches_total",
			Help: "Concluded matches re-dispatched by the settlement sweep.",
		}),
	}

	reg.MustRegister(
		m.transactions,
		m.volume,
		m.betsPlaced,
		m.betsSettled,
		m.feedMessages,
		m.sweepsRun,
		m.sweptMatches,
	)
	return m
}

// Subscribe wires the counters to committed ledger events
func (m *LedgerMetrics) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTransactionRecorded, m.handleEvent)
	bus.Subscribe(events.EventTypeBetPlaced, m.handleEvent)
	bus.Subscribe(events.EventTypeBetSettled, m.handleEvent)
}

func (m *LedgerMetrics) handleEvent(_ context.Context, event events.Event) {
	switch e := event.(type) {
	case events.TransactionRecordedEvent:
		m.transactions.WithLabelValues(string(e.Kind)).Inc()
		m.volume.WithLabelValues(string(e.Kind)).Add(e.Amount.InexactFloat64())
	case events.BetPlacedEvent:
		m.betsPlaced.Inc()
	case events.BetSettledEvent:
		m.betsSettled.WithLabelValues(string(e.Status)).Inc()
	default:
		log.WithField("eventType", event.Type()).Warn("Metrics received unexpected event type")
	}
}

// FeedMessage counts one match result message
func (m *LedgerMetrics) FeedMessage(transport, result string) {
	if m == nil {
		return
	}
	m.feedMessages.WithLabelValues(transport, result).Inc()
}

// SweepCompleted counts one sweep run and the matches it re-dispatched
func (m *LedgerMetrics) SweepCompleted(matches int) {
	if m == nil {
		return
	}
	m.sweepsRun.Inc()
	m.sweptMatches.Add(float64(matches))
}
