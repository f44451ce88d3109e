// Package postgres implements the profile and alert stores on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/risk-analytics/internal/config"
)

// DSN builds the connection string for cfg
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

// NewPool opens a pgx pool and verifies connectivity
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS risk_profiles (
	id                  UUID PRIMARY KEY,
	entity_type         TEXT NOT NULL,
	entity_id           TEXT NOT NULL,
	risk_score          DOUBLE PRECISION NOT NULL,
	risk_level          TEXT NOT NULL,
	default_probability DOUBLE PRECISION NOT NULL,
	recovery_rate       DOUBLE PRECISION NOT NULL,
	risk_factors        JSONB NOT NULL,
	calculation         JSONB NOT NULL,
	province            TEXT,
	sector              TEXT,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	UNIQUE (entity_type, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_risk_profiles_level ON risk_profiles (risk_level);
CREATE INDEX IF NOT EXISTS idx_risk_profiles_province ON risk_profiles (province);

CREATE TABLE IF NOT EXISTS fraud_alerts (
	id                  UUID PRIMARY KEY,
	entity_id           TEXT NOT NULL,
	entity_type         TEXT NOT NULL,
	transaction_id      TEXT,
	fraud_type          TEXT NOT NULL,
	severity            TEXT NOT NULL,
	risk_score          DOUBLE PRECISION NOT NULL,
	threshold           DOUBLE PRECISION NOT NULL,
	status              TEXT NOT NULL,
	evidence            JSONB NOT NULL,
	province            TEXT,
	recommended_actions JSONB NOT NULL,
	reviewed_by         TEXT,
	reviewed_at         TIMESTAMPTZ,
	detected_at         TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fraud_alerts_status ON fraud_alerts (status, risk_score DESC);
CREATE INDEX IF NOT EXISTS idx_fraud_alerts_entity ON fraud_alerts (entity_id);
`

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
