package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

var testEpoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type builder struct {
	t *testing.T
	g *Graph
}

func newBuilder(t *testing.T) *builder {
	t.Helper()
	return &builder{t: t, g: NewGraph()}
}

func (b *builder) node(label Label, id string, props Properties) *builder {
	b.t.Helper()
	_, err := b.g.AddNode(label, id, props)
	require.NoError(b.t, err)
	return b
}

func (b *builder) sme(id string, risk float64) *builder {
	return b.node(LabelSME, id, Properties{PropRiskScore: risk})
}

func (b *builder) institution(id string, risk float64) *builder {
	return b.node(LabelInstitution, id, Properties{PropRiskScore: risk})
}

func (b *builder) edge(from, to string, rel RelType, props Properties) *builder {
	b.t.Helper()
	_, err := b.g.AddEdge(from, to, rel, props)
	require.NoError(b.t, err)
	return b
}

func (b *builder) credit(id, lender, borrower string, amount float64, start time.Time) *builder {
	b.t.Helper()
	require.NoError(b.t, addCredit(b.g, CreditRecord{
		ID:         id,
		LenderID:   lender,
		BorrowerID: borrower,
		Amount:     amount,
		StartDate:  start,
	}))
	return b
}

func (b *builder) transfer(from, to string, amount float64) *builder {
	return b.edge(from, to, RelTransfersTo, Properties{PropAmount: amount})
}

func (b *builder) analyzer(opts ...AnalyzerOption) *Analyzer {
	cfg := config.Default().Graph
	opts = append([]AnalyzerOption{WithClock(func() time.Time { return testEpoch })}, opts...)
	return NewAnalyzer(NewMemoryStoreFrom(b.g), &cfg, logger.NewNop(), opts...)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
