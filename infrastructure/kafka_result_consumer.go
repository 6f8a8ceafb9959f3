package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaResultConsumer reads match results from a Kafka topic. An offset is
// committed only after the handler accepted the message; a failing message
// is retried with backoff and blocks its partition until it succeeds.
type KafkaResultConsumer struct {
	reader        messageReader
	handler       MessageHandler
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewKafkaResultConsumer creates a consumer group reader for topic.
// brokers is a comma separated list.
func NewKafkaResultConsumer(brokers, topic, groupID string, handler MessageHandler) *KafkaResultConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(brokers, ","),
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newKafkaResultConsumer(reader, handler)
}

func newKafkaResultConsumer(reader messageReader, handler MessageHandler) *KafkaResultConsumer {
	return &KafkaResultConsumer{
		reader:        reader,
		handler:       handler,
		retryDelay:    2 * time.Second,
		maxRetryDelay: time.Minute,
	}
}

// Run consumes until ctx is cancelled
func (c *KafkaResultConsumer) Run(ctx context.Context) error {
	log.Info("Kafka match result consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("Kafka match result consumer stopped")
				return nil
			}
			log.WithError(err).Warn("Failed to fetch Kafka message")
			if !sleepCtx(ctx, c.retryDelay) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			// Uncommitted, so the group redelivers it after a restart
			log.WithFields(log.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Info("Kafka match result consumer stopped with message unhandled")
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithFields(log.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
				"error":     err,
			}).Error("Failed to commit Kafka offset")
		}
	}
}

// handle runs the handler until it succeeds and reports false if ctx ended
// first. The handler only fails on store outages, which are transient.
func (c *KafkaResultConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Value)
		if err == nil {
			return true
		}

		log.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"attempt":   attempt,
			"retryIn":   delay,
			"error":     err,
		}).Warn("Kafka message handler failed, retrying")

		if !sleepCtx(ctx, delay) {
			return false
		}
		delay = min(delay*2, c.maxRetryDelay)
	}
}

// Close closes the underlying reader
func (c *KafkaResultConsumer) Close() error {
	return c.reader.Close()
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
