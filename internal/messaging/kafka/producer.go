package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
)

// AlertPublisher publishes fraud alert events keyed by entity id
type AlertPublisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewAlertPublisher connects a synchronous producer to the alerts topic
func NewAlertPublisher(cfg *config.KafkaConfig) (*AlertPublisher, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg.ConsumerGroup+"-alerts"))
	if err != nil {
		return nil, fmt.Errorf("create alert producer: %w", err)
	}
	return newAlertPublisher(producer, cfg.AlertsTopic), nil
}

func newAlertPublisher(producer sarama.SyncProducer, topic string) *AlertPublisher {
	return &AlertPublisher{producer: producer, topic: topic, now: time.Now}
}

// PublishAlert sends one FraudAlertEvent
func (p *AlertPublisher) PublishAlert(_ context.Context, alert *domain.FraudAlert) error {
	event := domain.FraudAlertEvent{
		EventID:   uuid.New(),
		EventType: EventFraudAlertRaised,
		Timestamp: p.now().UTC(),
		Alert:     alert,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(alert.EntityID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventFraudAlertRaised)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *AlertPublisher) Close() error {
	return p.producer.Close()
}
