// Package kafka consumes transaction events and publishes fraud alerts.
package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/banking/risk-analytics/internal/config"
)

const (
	EventTransactionCreated = "transaction.created"
	EventFraudAlertRaised   = "fraud.alert.raised"
)

// NewSaramaConfig returns the client configuration shared by the consumer
// group and the alert producer
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0

	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func validate(cfg *config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}
	return nil
}
