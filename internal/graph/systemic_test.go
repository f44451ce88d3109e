package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		value float64
		want  Level
	}{
		{0, LevelLow},
		{14.99, LevelLow},
		{15, LevelMedium},
		{24.99, LevelMedium},
		{25, LevelHigh},
		{39.99, LevelHigh},
		{40, LevelCritical},
		{100, LevelCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, bucket(tt.value, 15, 25, 40))
		})
	}
}

func TestConcentrationRisk(t *testing.T) {
	b := newBuilder(t).
		node(LabelSector, "agri", Properties{PropName: "Agriculture"}).
		institution("bank-a", 3).
		institution("bank-b", 3)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("sme-%d", i)
		b.sme(id, 4).edge(id, "agri", RelOperatesIn, nil)
	}
	b.credit("k1", "bank-a", "sme-1", 1000000, testEpoch).
		credit("k2", "bank-a", "sme-2", 2000000, testEpoch).
		credit("k3", "bank-b", "sme-3", 500000, testEpoch)

	out := b.analyzer().ConcentrationRisk(context.Background())

	require.Len(t, out, 2)
	assert.Equal(t, "bank-a", out[0].InstitutionID)
	assert.Equal(t, 40.0, out[0].MarketShare)
	assert.Equal(t, LevelCritical, out[0].RiskLevel)
	assert.Equal(t, 3000000.0, out[0].Exposure)
	assert.Equal(t, 5, out[0].SectorSMEs)

	assert.Equal(t, "bank-b", out[1].InstitutionID)
	assert.Equal(t, 20.0, out[1].MarketShare)
	assert.Equal(t, LevelMedium, out[1].RiskLevel)
}

func TestInterconnectionRisk(t *testing.T) {
	b := newBuilder(t).
		institution("b1", 3).institution("b2", 3).institution("b3", 3).
		sme("shared", 4).sme("solo", 4).
		credit("k1", "b1", "shared", 100, testEpoch).
		credit("k2", "b2", "shared", 100, testEpoch).
		credit("k3", "b3", "solo", 100, testEpoch)

	out := b.analyzer().InterconnectionRisk(context.Background())

	require.Len(t, out, 3)
	byID := make(map[string]InterconnectionRisk)
	for _, r := range out {
		byID[r.InstitutionID] = r
	}
	assert.Equal(t, 50.0, byID["b1"].InterconnectionRate)
	assert.Equal(t, LevelHigh, byID["b1"].RiskLevel)
	assert.Equal(t, 1, byID["b1"].SharedClients)
	assert.Equal(t, 50.0, byID["b2"].InterconnectionRate)
	assert.Equal(t, 0.0, byID["b3"].InterconnectionRate)
	assert.Equal(t, LevelLow, byID["b3"].RiskLevel)
}

func TestInterconnectionRisk_ThirtyPercentIsHigh(t *testing.T) {
	b := newBuilder(t)
	for i := 0; i < 11; i++ {
		b.institution(fmt.Sprintf("i%02d", i), 3)
	}
	for i := 1; i <= 3; i++ {
		client := fmt.Sprintf("c%d", i)
		b.sme(client, 4).
			credit("own-"+client, "i00", client, 100, testEpoch).
			credit("peer-"+client, fmt.Sprintf("i%02d", i), client, 100, testEpoch)
	}

	out := b.analyzer().InterconnectionRisk(context.Background())

	require.Len(t, out, 11)
	assert.Equal(t, "i00", out[0].InstitutionID)
	assert.Equal(t, 30.0, out[0].InterconnectionRate)
	assert.Equal(t, LevelHigh, out[0].RiskLevel)
	assert.Equal(t, 3, out[0].SharedClients)
}

func TestInterconnectionLevel(t *testing.T) {
	tests := []struct {
		rate float64
		want Level
	}{
		{0, LevelLow},
		{10, LevelMedium},
		{29.99, LevelMedium},
		{30, LevelHigh},
		{50, LevelHigh},
		{69.99, LevelHigh},
		{70, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interconnectionLevel(tt.rate), "rate %.2f", tt.rate)
	}
}

func TestCascadeRisk(t *testing.T) {
	b := newBuilder(t).
		institution("bank", 5).
		sme("hot", 9).sme("safe", 3).sme("risky", 6).
		credit("k1", "bank", "hot", 1500000000, testEpoch).
		credit("k2", "bank", "safe", 500000000, testEpoch).
		credit("k3", "bank", "risky", 1000, testEpoch)

	out := b.analyzer().CascadeRisk(context.Background())

	require.Len(t, out, 1)
	assert.Equal(t, "hot", out[0].SourceID)
	assert.Equal(t, []string{"safe"}, out[0].Targets)
	assert.Equal(t, LevelCritical, out[0].RiskLevel)
}

func TestCascadeLevel(t *testing.T) {
	assert.Equal(t, LevelCritical, cascadeLevel(9, 2e9))
	assert.Equal(t, LevelHigh, cascadeLevel(8.5, 2e9))
	assert.Equal(t, LevelMedium, cascadeLevel(9, 2e8))
	assert.Equal(t, LevelLow, cascadeLevel(9, 1e8))
}

func TestSectoralRisk(t *testing.T) {
	b := newBuilder(t).
		node(LabelSector, "agri", Properties{PropName: "Agriculture", PropDefaultRate: 12.0}).
		sme("s1", 5).sme("s2", 6).
		edge("s1", "agri", RelOperatesIn, nil).
		edge("s2", "agri", RelOperatesIn, nil)

	out := b.analyzer().SectoralRisk(context.Background())

	require.Len(t, out, 1)
	assert.Equal(t, 5.5, out[0].AverageRisk)
	assert.Equal(t, LevelHigh, out[0].RiskLevel)
	assert.Equal(t, LevelHigh, out[0].ConcentrationLevel)
	assert.Equal(t, 2, out[0].EntityCount)
}

func TestSectorLevel(t *testing.T) {
	assert.Equal(t, LevelCritical, sectorLevel(8, 0))
	assert.Equal(t, LevelCritical, sectorLevel(1, 15))
	assert.Equal(t, LevelHigh, sectorLevel(6.5, 0))
	assert.Equal(t, LevelMedium, sectorLevel(4, 7))
	assert.Equal(t, LevelLow, sectorLevel(4.9, 6.9))

	assert.Equal(t, LevelHigh, lenderConcentration(1))
	assert.Equal(t, LevelMedium, lenderConcentration(3))
	assert.Equal(t, LevelLow, lenderConcentration(4))
}

func TestAnalyzeSystemicRisks(t *testing.T) {
	b := newBuilder(t).
		node(LabelSector, "agri", nil).
		institution("bank", 3).
		sme("s1", 4).
		edge("s1", "agri", RelOperatesIn, nil).
		credit("k1", "bank", "s1", 1000, testEpoch)

	report := b.analyzer().AnalyzeSystemicRisks(context.Background())

	require.NotNil(t, report)
	assert.Len(t, report.Interconnection, 1)
	require.Len(t, report.Concentration, 1)
	assert.Equal(t, LevelCritical, report.Concentration[0].RiskLevel)
	assert.Empty(t, report.Cascade)
	assert.Len(t, report.Sectoral, 1)
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, testEpoch, report.GeneratedAt)
}

func TestAnalyzeSystemicRisks_StoreFailure(t *testing.T) {
	a := newBuilder(t).analyzer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := a.AnalyzeSystemicRisks(ctx)

	require.NotNil(t, report)
	assert.NotNil(t, report.Interconnection)
	assert.Empty(t, report.Interconnection)
	assert.Empty(t, report.Concentration)
	assert.Empty(t, report.Cascade)
	assert.Empty(t, report.Sectoral)
}
