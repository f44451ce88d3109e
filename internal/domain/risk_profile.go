package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the kind of entity a risk profile describes
type EntityType string

const (
	EntitySME         EntityType = "SME"
	EntityInstitution EntityType = "Institution"
	EntityPortfolio   EntityType = "Portfolio"
	EntityCredit      EntityType = "Credit"
	EntitySector      EntityType = "Sector"
	EntityProvince    EntityType = "Province"
	EntityCustomer    EntityType = "Customer"
)

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case EntitySME, EntityInstitution, EntityPortfolio, EntityCredit,
		EntitySector, EntityProvince, EntityCustomer:
		return true
	}
	return false
}

// RiskLevel is the bucket derived from a 0-10 risk score
type RiskLevel string

const (
	RiskLevelVeryLow  RiskLevel = "very_low"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelVeryHigh RiskLevel = "very_high"
)

// RiskLevelFromScore returns the risk level based on score
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= 8:
		return RiskLevelVeryHigh
	case score >= 6:
		return RiskLevelHigh
	case score >= 4:
		return RiskLevelMedium
	case score >= 2:
		return RiskLevelLow
	default:
		return RiskLevelVeryLow
	}
}

// RiskFactors are the five 0-10 sub-scores of the composite score
type RiskFactors struct {
	Financial   float64 `json:"financial" db:"financial"`
	Operational float64 `json:"operational" db:"operational"`
	Market      float64 `json:"market" db:"market"`
	Geographic  float64 `json:"geographic" db:"geographic"`
	Behavioral  float64 `json:"behavioral" db:"behavioral"`
}

// CalculationMetadata describes how a profile was produced
type CalculationMetadata struct {
	ModelID      string    `json:"model_id" db:"model_id"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	DataPoints   int       `json:"data_points" db:"data_points"`
	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}

// RiskProfile represents the latest risk assessment of an entity.
// One profile exists per (EntityType, EntityID).
type RiskProfile struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   string     `json:"entity_id" db:"entity_id"`

	// Overall risk assessment
	RiskScore          float64   `json:"risk_score" db:"risk_score"` // 0-10
	RiskLevel          RiskLevel `json:"risk_level" db:"risk_level"`
	DefaultProbability float64   `json:"default_probability" db:"default_probability"`
	RecoveryRate       float64   `json:"recovery_rate" db:"recovery_rate"`

	RiskFactors RiskFactors         `json:"risk_factors" db:"risk_factors"`
	Calculation CalculationMetadata `json:"calculation" db:"calculation"`

	Province string `json:"province,omitempty" db:"province"`
	Sector   string `json:"sector,omitempty" db:"sector"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Key returns the natural key of the profile
func (r *RiskProfile) Key() string {
	return ProfileKey(r.EntityType, r.EntityID)
}

// ProfileKey builds the natural key for an entity
func ProfileKey(entityType EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

// IsHighRisk returns true if the entity is considered high risk
func (r *RiskProfile) IsHighRisk() bool {
	return r.RiskLevel == RiskLevelHigh || r.RiskLevel == RiskLevelVeryHigh
}

// RiskProfileSummary is a lean DTO for list views
type RiskProfileSummary struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	RiskScore  float64    `json:"risk_score"`
	RiskLevel  RiskLevel  `json:"risk_level"`
	Province   string     `json:"province,omitempty"`
}

// ToSummary converts RiskProfile to RiskProfileSummary
func (r *RiskProfile) ToSummary() *RiskProfileSummary {
	return &RiskProfileSummary{
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		RiskScore:  r.RiskScore,
		RiskLevel:  r.RiskLevel,
		Province:   r.Province,
	}
}
