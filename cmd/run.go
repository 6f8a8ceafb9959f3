package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betledger/config"
	"betledger/database"
	"betledger/events"
	"betledger/infrastructure"
	"betledger/infrastructure/observability"
	"betledger/jobs"
	"betledger/repository"
	"betledger/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

const serviceName = "betledger"

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting betledger...")

	// Initialize database connection
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.Options{
		ConnectTimeout:   cfg.DBConnectTimeout,
		LockTimeout:      cfg.DBLockTimeout,
		StatementTimeout: cfg.DBStatementTimeout,
		MaxConns:         cfg.DBMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	eventBus := events.NewBus()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewLedgerMetrics(registry)
	metrics.Subscribe(eventBus)

	// Initialize services
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	ledger := service.NewWalletLedger(uowFactory)
	engine := service.NewBettingEngine(uowFactory, ledger)
	dispatcher := service.NewSettlementDispatcher(uowFactory, engine, service.NewDefaultOutcomePolicy())
	log.Info("Services initialized")

	adminServer := observability.StartAdminServer(cfg.AdminAddr, registry, func(ctx context.Context) error {
		return db.Ping(ctx)
	})

	var natsClient *infrastructure.NATSClient
	if cfg.FeedTransport == config.FeedTransportNATS || cfg.PublishLedgerEvents {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers, serviceName)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := natsClient.Connect(connectCtx)
		cancel()
		if err != nil {
			return err
		}
		defer natsClient.Close()
	}

	if cfg.PublishLedgerEvents {
		if err := natsClient.EnsureStream(infrastructure.LedgerEventsStream, infrastructure.LedgerEventSubjects, "Committed ledger events"); err != nil {
			return err
		}
		infrastructure.NewNATSEventPublisher(natsClient, serviceName).Subscribe(eventBus)
		log.Info("Forwarding ledger events to NATS")
	}

	var workers sync.WaitGroup
	var kafkaConsumer *infrastructure.KafkaResultConsumer

	switch cfg.FeedTransport {
	case config.FeedTransportNATS:
		listener := infrastructure.NewResultListener(config.FeedTransportNATS, dispatcher, metrics)
		if err := natsClient.EnsureStream("MATCH_RESULTS", []string{cfg.NATSResultSubject}, "Match results from the feed"); err != nil {
			return err
		}
		if err := natsClient.Subscribe(cfg.NATSResultSubject, listener.HandleMessage); err != nil {
			return err
		}

	case config.FeedTransportKafka:
		listener := infrastructure.NewResultListener(config.FeedTransportKafka, dispatcher, metrics)
		kafkaConsumer = infrastructure.NewKafkaResultConsumer(cfg.KafkaBrokers, cfg.KafkaResultTopic, cfg.KafkaGroupID, listener.HandleMessage)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := kafkaConsumer.Run(ctx); err != nil {
				log.WithError(err).Error("Kafka match result consumer failed")
			}
		}()

	default:
		log.Warn("No match result feed configured, relying on the settlement sweep")
	}

	var scheduler *jobs.Scheduler
	if cfg.SettlementSweepSchedule != "" {
		sweeper := jobs.NewSettlementSweeper(uowFactory, dispatcher, metrics)
		scheduler = jobs.NewScheduler(sweeper, cfg.SettlementSweepSchedule)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"feed":      cfg.FeedTransport,
		"adminAddr": cfg.AdminAddr,
	}).Info("betledger is running")
	<-ctx.Done()

	log.Info("Shutting down betledger...")

	if scheduler != nil {
		scheduler.Stop()
	}

	workers.Wait()
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Close(); err != nil {
			log.WithError(err).Error("Error closing Kafka reader")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down admin server")
	}

	log.Info("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
