package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/risk-analytics/internal/domain"
)

// RiskProfileRepository stores risk profiles in PostgreSQL
type RiskProfileRepository struct {
	pool    *pgxpool.Pool
	breaker *Breaker
}

var _ domain.RiskProfileStore = (*RiskProfileRepository)(nil)

// NewRiskProfileRepository creates a profile repository
func NewRiskProfileRepository(pool *pgxpool.Pool, breaker *Breaker) *RiskProfileRepository {
	return &RiskProfileRepository{pool: pool, breaker: breaker}
}

const profileColumns = `id, entity_type, entity_id, risk_score, risk_level,
	default_probability, recovery_rate, risk_factors, calculation,
	province, sector, created_at, updated_at`

// Get returns the profile for the entity or domain.ErrProfileNotFound
func (r *RiskProfileRepository) Get(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.RiskProfile, error) {
	return execute(r.breaker, func() (*domain.RiskProfile, error) {
		query := `SELECT ` + profileColumns + ` FROM risk_profiles
			WHERE entity_type = $1 AND entity_id = $2`
		p, err := scanProfile(r.pool.QueryRow(ctx, query, entityType, entityID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, domain.ProfileKey(entityType, entityID))
		}
		if err != nil {
			return nil, fmt.Errorf("get risk profile: %w", err)
		}
		return p, nil
	})
}

// Upsert inserts the profile or replaces the stored state for its entity.
// The original id and created_at survive updates.
func (r *RiskProfileRepository) Upsert(ctx context.Context, profile *domain.RiskProfile) (*domain.RiskProfile, error) {
	factors, err := json.Marshal(profile.RiskFactors)
	if err != nil {
		return nil, fmt.Errorf("marshal risk factors: %w", err)
	}
	calc, err := json.Marshal(profile.Calculation)
	if err != nil {
		return nil, fmt.Errorf("marshal calculation: %w", err)
	}
	id := profile.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return execute(r.breaker, func() (*domain.RiskProfile, error) {
		query := `INSERT INTO risk_profiles (` + profileColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (entity_type, entity_id) DO UPDATE SET
				risk_score = EXCLUDED.risk_score,
				risk_level = EXCLUDED.risk_level,
				default_probability = EXCLUDED.default_probability,
				recovery_rate = EXCLUDED.recovery_rate,
				risk_factors = EXCLUDED.risk_factors,
				calculation = EXCLUDED.calculation,
				province = EXCLUDED.province,
				sector = EXCLUDED.sector,
				updated_at = EXCLUDED.updated_at
			RETURNING ` + profileColumns
		p, err := scanProfile(r.pool.QueryRow(ctx, query,
			id, profile.EntityType, profile.EntityID, profile.RiskScore, profile.RiskLevel,
			profile.DefaultProbability, profile.RecoveryRate, factors, calc,
			profile.Province, profile.Sector, profile.CreatedAt, profile.UpdatedAt,
		))
		if err != nil {
			return nil, fmt.Errorf("upsert risk profile: %w", err)
		}
		return p, nil
	})
}

// ListByLevel returns profiles at the given level, riskiest first
func (r *RiskProfileRepository) ListByLevel(ctx context.Context, level domain.RiskLevel) ([]*domain.RiskProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM risk_profiles
		WHERE risk_level = $1 ORDER BY risk_score DESC, entity_id`
	return r.list(ctx, query, level)
}

// ListByProvince returns profiles in the given province, riskiest first
func (r *RiskProfileRepository) ListByProvince(ctx context.Context, province string) ([]*domain.RiskProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM risk_profiles
		WHERE province = $1 ORDER BY risk_score DESC, entity_id`
	return r.list(ctx, query, province)
}

func (r *RiskProfileRepository) list(ctx context.Context, query string, arg any) ([]*domain.RiskProfile, error) {
	return execute(r.breaker, func() ([]*domain.RiskProfile, error) {
		rows, err := r.pool.Query(ctx, query, arg)
		if err != nil {
			return nil, fmt.Errorf("list risk profiles: %w", err)
		}
		defer rows.Close()

		var out []*domain.RiskProfile
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return nil, fmt.Errorf("scan risk profile: %w", err)
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
}

func scanProfile(row pgx.Row) (*domain.RiskProfile, error) {
	var (
		p        domain.RiskProfile
		factors  []byte
		calc     []byte
		province *string
		sector   *string
	)
	err := row.Scan(
		&p.ID, &p.EntityType, &p.EntityID, &p.RiskScore, &p.RiskLevel,
		&p.DefaultProbability, &p.RecoveryRate, &factors, &calc,
		&province, &sector, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(factors, &p.RiskFactors); err != nil {
		return nil, fmt.Errorf("unmarshal risk factors: %w", err)
	}
	if err := json.Unmarshal(calc, &p.Calculation); err != nil {
		return nil, fmt.Errorf("unmarshal calculation: %w", err)
	}
	if province != nil {
		p.Province = *province
	}
	if sector != nil {
		p.Sector = *sector
	}
	return &p, nil
}
