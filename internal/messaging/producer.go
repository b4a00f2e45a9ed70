// Package messaging is the producer/consumer pair around the record
// pipeline. It publishes and logs timestamped payloads; it has no part in
// the indexing problem.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/devrev/txstore/internal/config"
	"github.com/devrev/txstore/internal/metrics"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes numbered, timestamped envelopes to a topic.
type Producer struct {
	writer   *kafka.Writer
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	counter  uint64
}

// NewProducer creates a producer for the configured topic. Writes require
// acknowledgement from all in-sync replicas.
func NewProducer(cfg *config.KafkaConfig, m *metrics.Metrics, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Producer{
		writer:   writer,
		interval: cfg.SendInterval,
		logger:   logger,
		metrics:  m,
	}
}

// next builds the envelope for the following send.
func (p *Producer) next() *Envelope {
	p.counter++
	return &Envelope{
		ID:        uuid.New().String(),
		Content:   fmt.Sprintf("Message #%d", p.counter),
		Timestamp: time.Now().UTC(),
		Counter:   p.counter,
	}
}

// Run publishes an envelope every interval until the context is canceled.
// Send failures are logged and do not stop the loop.
func (p *Producer) Run(ctx context.Context) error {
	p.logger.Info("Producer started",
		zap.String("topic", p.writer.Topic),
		zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Producer stopping", zap.Uint64("sent", p.counter))
			return nil
		case <-ticker.C:
			if err := p.send(ctx); err != nil {
				p.logger.Warn("Failed to send message",
					zap.Uint64("counter", p.counter),
					zap.Error(err))
			}
		}
	}
}

func (p *Producer) send(ctx context.Context) error {
	envelope := p.next()
	payload, err := envelope.Encode()
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(envelope.ID),
		Value: payload,
	})
	if err != nil {
		return err
	}

	p.metrics.RecordProduced()
	p.logger.Info("Message sent",
		zap.String("id", envelope.ID),
		zap.Uint64("counter", envelope.Counter))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
