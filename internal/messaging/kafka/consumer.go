package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

var messagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "risk_engine",
	Subsystem: "kafka",
	Name:      "messages_consumed_total",
	Help:      "Transaction events consumed, by outcome",
}, []string{"outcome"})

// TransactionHandler processes one transaction taken off the topic
type TransactionHandler func(ctx context.Context, tx *domain.Transaction) error

// TransactionConsumer feeds transaction events into the engine through a
// consumer group
type TransactionConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler TransactionHandler
	log     *logger.Logger
}

// NewTransactionConsumer joins the configured consumer group
func NewTransactionConsumer(cfg *config.KafkaConfig, handler TransactionHandler, log *logger.Logger) (*TransactionConsumer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, NewSaramaConfig(cfg.ConsumerGroup))
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return newTransactionConsumer(group, []string{cfg.TransactionTopic}, handler, log), nil
}

func newTransactionConsumer(group sarama.ConsumerGroup, topics []string, handler TransactionHandler, log *logger.Logger) *TransactionConsumer {
	return &TransactionConsumer{
		group:   group,
		topics:  topics,
		handler: handler,
		log:     log.Named("kafka_consumer"),
	}
}

// Run consumes until ctx is canceled. Rebalances re-enter Consume.
func (c *TransactionConsumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error("consumer group error", logger.ErrorField(err))
		}
	}()

	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consume %v: %w", c.topics, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group
func (c *TransactionConsumer) Close() error {
	return c.group.Close()
}

// Setup implements sarama.ConsumerGroupHandler
func (c *TransactionConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler
func (c *TransactionConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler. Messages are marked
// once handled; undecodable or invalid events are logged and skipped so a
// poison message cannot stall the partition.
func (c *TransactionConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handleMessage(session.Context(), msg); err != nil {
				c.log.Warn("transaction event not processed",
					logger.StringField("topic", msg.Topic),
					logger.IntField("partition", int(msg.Partition)),
					logger.ErrorField(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *TransactionConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	tx, err := decodeTransactionEvent(msg.Value)
	if err != nil {
		messagesConsumed.WithLabelValues("invalid").Inc()
		return err
	}
	if err := c.handler(ctx, tx); err != nil {
		messagesConsumed.WithLabelValues("failed").Inc()
		return fmt.Errorf("process transaction %s: %w", tx.ID, err)
	}
	messagesConsumed.WithLabelValues("processed").Inc()
	return nil
}

func decodeTransactionEvent(data []byte) (*domain.Transaction, error) {
	var event domain.TransactionCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", domain.ErrInvalidTransaction, err)
	}
	if event.EventType != "" && event.EventType != EventTransactionCreated {
		return nil, fmt.Errorf("%w: unexpected event type %q", domain.ErrInvalidTransaction, event.EventType)
	}
	if err := event.Transaction.Validate(); err != nil {
		return nil, err
	}
	return event.Transaction, nil
}
