package domain

import (
	"time"

	"github.com/google/uuid"
)

// FraudType represents the category of a fraud alert
type FraudType string

const (
	FraudUnusualTransaction FraudType = "unusual_transaction"
	FraudIdentity           FraudType = "identity_fraud"
	FraudMoneyLaundering    FraudType = "money_laundering"
	FraudCollusion          FraudType = "collusion"
	FraudDocument           FraudType = "document_fraud"
	FraudPayment            FraudType = "payment_fraud"
	FraudAccountTakeover    FraudType = "account_takeover"
	FraudFakeBusiness       FraudType = "fake_business"
)

// AlertSeverity is derived from the alert risk score
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusActive        AlertStatus = "active"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusConfirmed     AlertStatus = "confirmed"
	AlertStatusFalsePositive AlertStatus = "false_positive"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusEscalated     AlertStatus = "escalated"
)

// Expiry windows for alerts still active
const (
	CriticalAlertExpiry = 24 * time.Hour
	AlertExpiry         = 72 * time.Hour
)

var alertTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusActive: {AlertStatusInvestigating, AlertStatusEscalated},
	AlertStatusInvestigating: {
		AlertStatusConfirmed, AlertStatusFalsePositive,
		AlertStatusResolved, AlertStatusEscalated,
	},
	AlertStatusEscalated: {
		AlertStatusConfirmed, AlertStatusFalsePositive, AlertStatusResolved,
	},
}

// DetermineSeverity returns the severity bucket for a 0-1 risk score
func DetermineSeverity(riskScore float64) AlertSeverity {
	switch {
	case riskScore >= 0.9:
		return SeverityCritical
	case riskScore >= 0.7:
		return SeverityHigh
	case riskScore >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Evidence backs an alert with the rules that fired
type Evidence struct {
	Indicators      []string `json:"indicators"`
	Confidence      float64  `json:"confidence"`
	DetectionMethod string   `json:"detection_method"`
	AnomalyScore    float64  `json:"anomaly_score"`
}

// FraudAlert represents a system-generated fraud alert
type FraudAlert struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Subject
	EntityID      string     `json:"entity_id" db:"entity_id"`
	EntityType    EntityType `json:"entity_type" db:"entity_type"`
	TransactionID string     `json:"transaction_id,omitempty" db:"transaction_id"`

	// Classification
	FraudType FraudType     `json:"fraud_type" db:"fraud_type"`
	Severity  AlertSeverity `json:"severity" db:"severity"`
	RiskScore float64       `json:"risk_score" db:"risk_score"` // 0-1
	Threshold float64       `json:"threshold" db:"threshold"`
	Status    AlertStatus   `json:"status" db:"status"`

	// Details
	Evidence           Evidence `json:"evidence" db:"evidence"`
	Province           string   `json:"province,omitempty" db:"province"`
	RecommendedActions []string `json:"recommended_actions" db:"recommended_actions"`

	// Resolution
	ReviewedBy string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	// Timestamps
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// NewAlertParams are the inputs of NewFraudAlert
type NewAlertParams struct {
	EntityID           string
	EntityType         EntityType
	TransactionID      string
	FraudType          FraudType
	RiskScore          float64
	Threshold          float64
	Evidence           Evidence
	Province           string
	RecommendedActions []string
	DetectedAt         time.Time
}

// NewFraudAlert creates an active alert. Severity is always derived from the risk score.
func NewFraudAlert(p NewAlertParams) *FraudAlert {
	detectedAt := p.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}
	now := time.Now()
	return &FraudAlert{
		ID:                 uuid.New(),
		EntityID:           p.EntityID,
		EntityType:         p.EntityType,
		TransactionID:      p.TransactionID,
		FraudType:          p.FraudType,
		Severity:           DetermineSeverity(p.RiskScore),
		RiskScore:          p.RiskScore,
		Threshold:          p.Threshold,
		Status:             AlertStatusActive,
		Evidence:           p.Evidence,
		Province:           p.Province,
		RecommendedActions: p.RecommendedActions,
		DetectedAt:         detectedAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsResolved returns true if the alert reached a terminal status
func (a *FraudAlert) IsResolved() bool {
	switch a.Status {
	case AlertStatusConfirmed, AlertStatusFalsePositive, AlertStatusResolved:
		return true
	}
	return false
}

// IsExpired reports whether an alert stayed active past its window.
// It is a reporting flag only and never changes the status.
func (a *FraudAlert) IsExpired(now time.Time) bool {
	if a.Status != AlertStatusActive {
		return false
	}
	window := AlertExpiry
	if a.Severity == SeverityCritical {
		window = CriticalAlertExpiry
	}
	return now.Sub(a.CreatedAt) > window
}

// CanTransition reports whether status may move from the current one to next
func (a *FraudAlert) CanTransition(next AlertStatus) bool {
	return CanTransition(a.Status, next)
}

// CanTransition reports whether from -> to is an allowed operator transition
func CanTransition(from, to AlertStatus) bool {
	for _, s := range alertTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AlertSummary is a lean DTO for list views
type AlertSummary struct {
	ID         uuid.UUID     `json:"id"`
	EntityID   string        `json:"entity_id"`
	FraudType  FraudType     `json:"fraud_type"`
	Severity   AlertSeverity `json:"severity"`
	Status     AlertStatus   `json:"status"`
	RiskScore  float64       `json:"risk_score"`
	Expired    bool          `json:"expired"`
	DetectedAt time.Time     `json:"detected_at"`
}

// ToSummary converts FraudAlert to AlertSummary
func (a *FraudAlert) ToSummary(now time.Time) *AlertSummary {
	return &AlertSummary{
		ID:         a.ID,
		EntityID:   a.EntityID,
		FraudType:  a.FraudType,
		Severity:   a.Severity,
		Status:     a.Status,
		RiskScore:  a.RiskScore,
		Expired:    a.IsExpired(now),
		DetectedAt: a.DetectedAt,
	}
}
