package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/devrev/txstore/internal/config"
	"github.com/devrev/txstore/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer reads envelopes from a topic, logs them with their
// producer-to-consumer latency and commits offsets after processing.
type Consumer struct {
	reader   *kafka.Reader
	logger   *zap.Logger
	metrics  *metrics.Metrics
	received uint64
}

// NewConsumer creates a consumer in the configured group. Offsets are
// committed explicitly after each processed message.
func NewConsumer(cfg *config.KafkaConfig, m *metrics.Metrics, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		SessionTimeout: 6 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		metrics: m,
	}
}

// Run consumes until the context is canceled. Malformed payloads are
// logged, counted and skipped; their offsets are still committed so the
// group does not wedge on a bad message.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consumer started",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Consumer stopping", zap.Uint64("received", c.received))
				return nil
			}
			c.logger.Warn("Fetch failed", zap.Error(err))
			time.Sleep(100 * time.Millisecond)
			continue
		}

		c.handle(msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("Failed to commit message", zap.Error(err))
		}
	}
}

// handle processes one payload.
func (c *Consumer) handle(payload []byte) {
	envelope, err := DecodeEnvelope(payload)
	if err != nil {
		c.metrics.RecordMalformed()
		c.logger.Error("Failed to parse payload",
			zap.Error(err),
			zap.ByteString("payload", payload))
		return
	}

	c.received++
	latency := time.Since(envelope.Timestamp)
	c.metrics.RecordConsumed(latency)

	c.logger.Info("Message received",
		zap.Uint64("counter", envelope.Counter),
		zap.String("id", envelope.ID),
		zap.String("content", envelope.Content),
		zap.Duration("latency", latency),
		zap.Uint64("total_received", c.received))
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
