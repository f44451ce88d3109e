package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	w := cfg.Scoring.Weights
	assert.InDelta(t, 1.0, w.Financial+w.Operational+w.Market+w.Geographic+w.Behavioral, 1e-9)
	assert.Equal(t, 0.35, w.Financial)

	assert.Equal(t, 7.5, cfg.Scoring.SectorRisk["mining"])
	assert.Equal(t, 4.0, cfg.Scoring.ProvinceRisk["kinshasa"])
	assert.Equal(t, 0.6, cfg.Fraud.Thresholds["unusual_transaction"])
	assert.Equal(t, 0.9, cfg.Fraud.Thresholds["fake_business"])
	assert.Equal(t, 10000000.0, cfg.Fraud.DeclarationThreshold)
	assert.Contains(t, cfg.Fraud.HighRiskProvinces, "ituri")
	assert.Equal(t, 3, cfg.Graph.MaxContagionHops)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RISK_ENGINE_SERVER_PORT", "9999")
	t.Setenv("RISK_ENGINE_GRAPH_MAX_PATTERNS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Graph.MaxPatterns)
}
