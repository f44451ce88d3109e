package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/risk-analytics/internal/domain"
)

// FraudAlertRepository stores fraud alerts in PostgreSQL
type FraudAlertRepository struct {
	pool    *pgxpool.Pool
	breaker *Breaker
	now     func() time.Time
}

var _ domain.FraudAlertStore = (*FraudAlertRepository)(nil)

// NewFraudAlertRepository creates an alert repository
func NewFraudAlertRepository(pool *pgxpool.Pool, breaker *Breaker) *FraudAlertRepository {
	return &FraudAlertRepository{pool: pool, breaker: breaker, now: time.Now}
}

const alertColumns = `id, entity_id, entity_type, transaction_id, fraud_type,
	severity, risk_score, threshold, status, evidence, province,
	recommended_actions, reviewed_by, reviewed_at, detected_at, created_at, updated_at`

// Save inserts a new alert
func (r *FraudAlertRepository) Save(ctx context.Context, alert *domain.FraudAlert) (*domain.FraudAlert, error) {
	evidence, err := json.Marshal(alert.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	actions := alert.RecommendedActions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("marshal recommended actions: %w", err)
	}

	return execute(r.breaker, func() (*domain.FraudAlert, error) {
		query := `INSERT INTO fraud_alerts (` + alertColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING ` + alertColumns
		a, err := scanAlert(r.pool.QueryRow(ctx, query,
			alert.ID, alert.EntityID, alert.EntityType, nullable(alert.TransactionID), alert.FraudType,
			alert.Severity, alert.RiskScore, alert.Threshold, alert.Status, evidence, nullable(alert.Province),
			actionsJSON, nullable(alert.ReviewedBy), alert.ReviewedAt, alert.DetectedAt, alert.CreatedAt, alert.UpdatedAt,
		))
		if err != nil {
			return nil, fmt.Errorf("save fraud alert: %w", err)
		}
		return a, nil
	})
}

// Get returns the alert or domain.ErrAlertNotFound
func (r *FraudAlertRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	return execute(r.breaker, func() (*domain.FraudAlert, error) {
		query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`
		a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("get fraud alert: %w", err)
		}
		return a, nil
	})
}

// ListActive returns active alerts, highest risk first
func (r *FraudAlertRepository) ListActive(ctx context.Context, limit int) ([]*domain.FraudAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	return execute(r.breaker, func() ([]*domain.FraudAlert, error) {
		query := `SELECT ` + alertColumns + ` FROM fraud_alerts
			WHERE status = $1
			ORDER BY risk_score DESC, detected_at DESC
			LIMIT $2`
		rows, err := r.pool.Query(ctx, query, domain.AlertStatusActive, limit)
		if err != nil {
			return nil, fmt.Errorf("list active alerts: %w", err)
		}
		defer rows.Close()

		var out []*domain.FraudAlert
		for rows.Next() {
			a, err := scanAlert(rows)
			if err != nil {
				return nil, fmt.Errorf("scan fraud alert: %w", err)
			}
			out = append(out, a)
		}
		return out, rows.Err()
	})
}

// UpdateStatus moves the alert to status, recording the reviewer. The row is
// locked for the duration of the transition check.
func (r *FraudAlertRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, actorID string) (*domain.FraudAlert, error) {
	return execute(r.breaker, func() (*domain.FraudAlert, error) {
		var updated *domain.FraudAlert
		err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			var current domain.AlertStatus
			err := tx.QueryRow(ctx, `SELECT status FROM fraud_alerts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
			}
			if err != nil {
				return fmt.Errorf("lock fraud alert: %w", err)
			}
			if !domain.CanTransition(current, status) {
				return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
			}

			now := r.now().UTC()
			query := `UPDATE fraud_alerts
				SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
				WHERE id = $1
				RETURNING ` + alertColumns
			updated, err = scanAlert(tx.QueryRow(ctx, query, id, status, nullable(actorID), now))
			if err != nil {
				return fmt.Errorf("update fraud alert: %w", err)
			}
			return nil
		})
		return updated, err
	})
}

func scanAlert(row pgx.Row) (*domain.FraudAlert, error) {
	var (
		a          domain.FraudAlert
		txID       *string
		province   *string
		reviewedBy *string
		evidence   []byte
		actions    []byte
	)
	err := row.Scan(
		&a.ID, &a.EntityID, &a.EntityType, &txID, &a.FraudType,
		&a.Severity, &a.RiskScore, &a.Threshold, &a.Status, &evidence, &province,
		&actions, &reviewedBy, &a.ReviewedAt, &a.DetectedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(evidence, &a.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(actions, &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshal recommended actions: %w", err)
	}
	a.TransactionID = deref(txID)
	a.Province = deref(province)
	a.ReviewedBy = deref(reviewedBy)
	return &a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
