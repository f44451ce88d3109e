package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Transaction represents a financial transaction to be analyzed.
// This is the event received from the transaction service.
type Transaction struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entity_id"`
	EntityType EntityType `json:"entity_type"`

	// Transaction details
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"` // CASH, TRANSFER, MOBILE_MONEY, CARD
	Timestamp     time.Time `json:"timestamp"`

	// Optional context
	Location       *Location `json:"location,omitempty"`
	CounterpartyID string    `json:"counterparty_id,omitempty"`
}

// Location of a transaction
type Location struct {
	Country  string `json:"country,omitempty"`
	Province string `json:"province"`
	City     string `json:"city,omitempty"`
}

// TransactionCreatedEvent is the Kafka event received from the transaction service
type TransactionCreatedEvent struct {
	EventID     uuid.UUID    `json:"event_id"`
	EventType   string       `json:"event_type"`
	Timestamp   time.Time    `json:"timestamp"`
	Transaction *Transaction `json:"payload"`
}

// FraudAlertEvent is published for every alert raised by the detector
type FraudAlertEvent struct {
	EventID   uuid.UUID   `json:"event_id"`
	EventType string      `json:"event_type"`
	Timestamp time.Time   `json:"timestamp"`
	Alert     *FraudAlert `json:"payload"`
}

// Validate rejects transactions missing required fields
func (t *Transaction) Validate() error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	case t.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidTransaction)
	case t.EntityID == "":
		return fmt.Errorf("%w: entity_id is required", ErrInvalidTransaction)
	case !t.EntityType.Valid():
		return fmt.Errorf("%w: unknown entity_type %q", ErrInvalidTransaction, t.EntityType)
	case math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0):
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidTransaction)
	case t.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	case t.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidTransaction)
	}
	return nil
}

// Province returns the transaction province or an empty string
func (t *Transaction) Province() string {
	if t.Location == nil {
		return ""
	}
	return t.Location.Province
}

// IsHighValue returns true if transaction amount exceeds threshold
func (t *Transaction) IsHighValue(threshold float64) bool {
	return t.Amount >= threshold
}
