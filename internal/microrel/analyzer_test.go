package microrel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestAnalyzer(t *testing.T) (*Analyzer, *graph.Graph) {
	t.Helper()
	g := graph.NewGraph()
	must := func(err error) {
		t.Helper()
		require.NoError(t, err)
	}
	node := func(label graph.Label, id string, props graph.Properties) {
		_, err := g.AddNode(label, id, props)
		must(err)
	}
	edge := func(from, to string, rel graph.RelType) {
		_, err := g.AddEdge(from, to, rel, nil)
		must(err)
	}
	credit := func(id, lender, borrower string, amount float64, product string) {
		node(graph.LabelCredit, id, graph.Properties{graph.PropAmount: amount, graph.PropProductType: product})
		edge(lender, id, graph.RelProvidesCredit)
		edge(borrower, id, graph.RelHasCredit)
	}

	node(graph.LabelInstitution, "bank", nil)
	node(graph.LabelInstitution, "micro", nil)
	node(graph.LabelInstitution, "idle", nil)
	node(graph.LabelSector, "agri", nil)
	node(graph.LabelSector, "trade", nil)
	node(graph.LabelGeographic, "kin", graph.Properties{graph.PropProvince: "kinshasa"})
	for _, id := range []string{"s1", "s2", "s3"} {
		node(graph.LabelSME, id, nil)
		edge(id, "kin", graph.RelLocatedIn)
	}
	edge("s1", "agri", graph.RelOperatesIn)
	edge("s2", "agri", graph.RelOperatesIn)
	edge("s3", "trade", graph.RelOperatesIn)

	// bank: 50/30/20 across borrowers, 80/20 across sectors, one province
	credit("k1", "bank", "s1", 500, "working_capital")
	credit("k2", "bank", "s2", 300, "working_capital")
	credit("k3", "bank", "s3", 200, "equipment")
	// micro lends evenly to four products of s3
	credit("m1", "micro", "s3", 100, "a")
	credit("m2", "micro", "s3", 100, "b")
	credit("m3", "micro", "s3", 100, "c")
	credit("m4", "micro", "s3", 100, "")

	cfg := config.Default().MicroRel
	a := NewAnalyzer(graph.NewMemoryStoreFrom(g), &cfg, logger.NewNop())
	a.now = func() time.Time { return epoch }
	return a, g
}

func TestPortfolioConcentration(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	p, err := a.PortfolioConcentration(context.Background(), "bank")
	require.NoError(t, err)

	assert.Equal(t, 3, p.Credits)
	assert.Equal(t, 1000.0, p.TotalExposure)
	assert.Equal(t, 3800.0, p.BorrowerHHI)
	assert.Equal(t, 6800.0, p.SectorHHI)
	assert.Equal(t, 10000.0, p.ProvinceHHI)
	assert.Equal(t, graph.LevelHigh, p.BorrowerLevel)
	assert.Equal(t, graph.LevelHigh, p.OverallLevel)
	require.Len(t, p.TopBorrowers, 3)
	assert.Equal(t, Share{Key: "s1", Amount: 500, Percent: 50}, p.TopBorrowers[0])
	assert.Equal(t, "agri", p.TopSectors[0].Key)
	assert.Equal(t, epoch, p.CalculatedAt)
}

func TestPortfolioConcentration_Empty(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	p, err := a.PortfolioConcentration(context.Background(), "idle")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.BorrowerHHI)
	assert.Equal(t, graph.LevelLow, p.OverallLevel)
	assert.Empty(t, p.TopBorrowers)
}

func TestPortfolioConcentration_UnknownInstitution(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	_, err := a.PortfolioConcentration(context.Background(), "ghost")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestAllPortfolioConcentrations(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	out := a.AllPortfolioConcentrations(context.Background())

	require.Len(t, out, 3)
	// bank and micro both hold a single province; ties sort by id
	assert.Equal(t, "bank", out[0].InstitutionID)
	assert.Equal(t, "micro", out[1].InstitutionID)
	assert.Equal(t, 10000.0, out[1].BorrowerHHI)
	assert.Equal(t, "idle", out[2].InstitutionID)
}

func TestProductMix(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	mix, err := a.ProductMix(context.Background(), "bank")
	require.NoError(t, err)
	assert.Equal(t, "working_capital", mix.DominantProduct)
	assert.Equal(t, 80.0, mix.DominantShare)
	assert.Equal(t, 0.32, mix.DiversificationIndex)

	even, err := a.ProductMix(context.Background(), "micro")
	require.NoError(t, err)
	assert.Equal(t, 0.75, even.DiversificationIndex)
	assert.Len(t, even.Products, 4)

	var keys []string
	for _, p := range even.Products {
		keys = append(keys, p.Key)
	}
	assert.Contains(t, keys, unspecifiedType)

	idle, err := a.ProductMix(context.Background(), "idle")
	require.NoError(t, err)
	assert.Empty(t, idle.Products)
	assert.Equal(t, 0.0, idle.DiversificationIndex)
}

func TestBorrowerDependency(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	dep, err := a.BorrowerDependency(context.Background(), "s3")
	require.NoError(t, err)
	assert.Equal(t, 600.0, dep.TotalDebt)
	require.Len(t, dep.Lenders, 2)
	assert.Equal(t, "micro", dep.Lenders[0].Key)
	// (400/600)^2 + (200/600)^2 in percent points
	assert.Equal(t, 5555.56, dep.HHI)
	assert.Equal(t, graph.LevelHigh, dep.Level)

	_, err = a.BorrowerDependency(context.Background(), "ghost")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestLevel(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	tests := []struct {
		hhi  float64
		want graph.Level
	}{
		{0, graph.LevelLow},
		{1499.99, graph.LevelLow},
		{1500, graph.LevelMedium},
		{2499.99, graph.LevelMedium},
		{2500, graph.LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Level(tt.hhi))
	}
}
