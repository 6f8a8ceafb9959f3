package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"betledger/database"
	"betledger/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Feed transports understood by FeedTransport
const (
	FeedTransportNATS  = "nats"
	FeedTransportKafka = "kafka"
	FeedTransportNone  = "none"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	DatabaseName       string        `envconfig:"DATABASE_NAME"`
	DBConnectTimeout   time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	DBLockTimeout      time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"3s"`
	DBStatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"5s"`
	DBMaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"25"`

	// Ledger configuration
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" default:"5s"`
	CurrencyScale    int32         `envconfig:"CURRENCY_SCALE" default:"2"` // digits of the currency's minor unit

	// Match result feed
	FeedTransport     string `envconfig:"FEED_TRANSPORT" default:"nats"`
	NATSServers       string `envconfig:"NATS_SERVERS" default:"nats://nats:4222"`
	NATSResultSubject string `envconfig:"NATS_RESULT_SUBJECT" default:"feed.match.result"`
	KafkaBrokers      string `envconfig:"KAFKA_BROKERS" default:"kafka:9092"`
	KafkaResultTopic  string `envconfig:"KAFKA_RESULT_TOPIC" default:"match-results"`
	KafkaGroupID      string `envconfig:"KAFKA_GROUP_ID" default:"betledger-settlement"`

	// Outbound ledger events
	PublishLedgerEvents bool `envconfig:"PUBLISH_LEDGER_EVENTS" default:"false"`

	// Background jobs
	SettlementSweepSchedule string `envconfig:"SETTLEMENT_SWEEP_SCHEDULE" default:"@every 5m"`

	// Admin server (metrics + health)
	AdminAddr string `envconfig:"ADMIN_ADDR" default:":9090"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// MoneyScale returns the currency scale capped at what the money columns
// can hold, so an amount is never rounded again by the store
func (c *Config) MoneyScale() int32 {
	switch {
	case c.CurrencyScale < 0:
		return 0
	case c.CurrencyScale > models.StoreScale:
		return models.StoreScale
	}
	return c.CurrencyScale
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from the environment, reading a .env file first when present
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.CurrencyScale < 0 || c.CurrencyScale > models.StoreScale {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and %d, got %d", models.StoreScale, c.CurrencyScale)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT must be positive")
	}

	switch c.FeedTransport {
	case FeedTransportNATS, FeedTransportKafka, FeedTransportNone:
	default:
		return fmt.Errorf("unknown FEED_TRANSPORT %q", c.FeedTransport)
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		OperationTimeout: 5 * time.Second,
		CurrencyScale:    2,
		FeedTransport:    FeedTransportNone,
		LogLevel:         "debug",
	}
}
