package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFraudPatterns_Structuring(t *testing.T) {
	b := newBuilder(t).sme("sme-1", 4).institution("bank-1", 3)
	for i, offset := range []int{0, 10, 20} {
		b.credit([]string{"c1", "c2", "c3"}[i], "bank-1", "sme-1", 9500000, testEpoch.Add(days(offset)))
	}

	patterns := b.analyzer().DetectFraudPatterns(context.Background())

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, PatternStructuring, p.Type)
	assert.Equal(t, []string{"sme-1", "bank-1"}, p.Entities)
	assert.Equal(t, 12.67, p.RiskScore)
	assert.Equal(t, 28500000.0, p.TotalAmount)
	assert.NotEmpty(t, p.Recommendations)
	assert.NotEmpty(t, p.PatternID)
}

func TestDetectStructuring(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		gapDays int
		want    int
	}{
		{"three credits just under threshold", []float64{9500000, 9000000, 10000000}, 10, 1},
		{"only two credits", []float64{9500000, 9500000}, 5, 0},
		{"one credit below the band", []float64{9500000, 8999999, 9500000}, 5, 0},
		{"spread too far apart", []float64{9500000, 9500000, 9500000}, 31, 0},
		{"gap exactly thirty days", []float64{9500000, 9500000, 9500000}, 30, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t).sme("sme", 1).institution("bank", 1)
			for i, amount := range tt.amounts {
				b.credit(string(rune('a'+i)), "bank", "sme", amount, testEpoch.Add(days(i*tt.gapDays)))
			}
			assert.Len(t, detectStructuring(b.g, 10000000), tt.want)
		})
	}
}

func TestDetectFraudPatterns_RoundTrip(t *testing.T) {
	b := newBuilder(t).sme("a", 2).sme("b", 2).sme("c", 2).
		credit("c-ab", "a", "b", 5000000, testEpoch).
		credit("c-bc", "b", "c", 5000000, testEpoch.Add(days(20))).
		credit("c-ca", "c", "a", 5000000, testEpoch.Add(days(40)))

	patterns := b.analyzer().DetectFraudPatterns(context.Background())

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, PatternRoundTrip, p.Type)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, p.Entities)
	assert.Equal(t, 3, p.Hops)
	assert.Equal(t, 15000000.0, p.TotalAmount)
	assert.Equal(t, 23.0, p.RiskScore)
}

func TestDetectRoundTrips(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		gap    int
		want   int
	}{
		{"quick large cycle", 6000000, 10, 1},
		{"amount too small", 3000000, 10, 0},
		{"cycle too slow", 6000000, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t).sme("x", 1).sme("y", 1).
				credit("out", "x", "y", tt.amount, testEpoch).
				credit("back", "y", "x", tt.amount, testEpoch.Add(days(tt.gap*2)))
			assert.Len(t, detectRoundTrips(flows(b.g)), tt.want)
		})
	}
}

func TestDetectFraudPatterns_Layering(t *testing.T) {
	b := newBuilder(t).sme("n1", 5).sme("n2", 5).sme("n3", 5).sme("n4", 5).
		transfer("n1", "n2", 20000000).
		transfer("n2", "n3", 20000000).
		transfer("n3", "n4", 20000000)

	patterns := b.analyzer().DetectFraudPatterns(context.Background())

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, PatternLayering, p.Type)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, p.Entities)
	assert.Equal(t, 3, p.Hops)
	assert.Equal(t, 13.5, p.RiskScore)
}

func TestDetectLayering_RequiresRiskyNodes(t *testing.T) {
	b := newBuilder(t).sme("n1", 5).sme("n2", 2).sme("n3", 5).sme("n4", 5).
		transfer("n1", "n2", 20000000).
		transfer("n2", "n3", 20000000).
		transfer("n3", "n4", 20000000)

	assert.Empty(t, detectLayering(b.g, flows(b.g)))
}

func TestDetectLayering_Cycle(t *testing.T) {
	b := newBuilder(t).sme("n1", 5).sme("n2", 5).sme("n3", 5).sme("n4", 5).
		transfer("n1", "n2", 20000000).
		transfer("n2", "n3", 20000000).
		transfer("n3", "n4", 20000000).
		transfer("n4", "n1", 20000000)

	patterns := detectLayering(b.g, flows(b.g))

	require.Len(t, patterns, 1, "rotations of the same cycle are reported once")
	p := patterns[0]
	assert.Equal(t, PatternLayering, p.Type)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, p.Entities)
	assert.Equal(t, 3, p.Hops)
	assert.Equal(t, 13.5, p.RiskScore)
}

func TestDetectLayering_ShortCycle(t *testing.T) {
	b := newBuilder(t).sme("n1", 5).sme("n2", 5).sme("n3", 5).
		transfer("n1", "n2", 20000000).
		transfer("n2", "n3", 20000000).
		transfer("n3", "n1", 20000000)

	assert.Empty(t, detectLayering(b.g, flows(b.g)))
}

func TestDetectFraudPatterns_ShellNetwork(t *testing.T) {
	sparse := func() Properties {
		return Properties{
			PropEmployeeCount: 1,
			PropRevenue:       50000.0,
			PropFoundingYear:  2022,
		}
	}
	b := newBuilder(t).
		node(LabelSME, "s1", sparse()).
		node(LabelSME, "s2", sparse()).
		node(LabelSME, "s3", sparse()).
		institution("bank", 3).
		credit("k1", "bank", "s1", 2000000, testEpoch).
		credit("k2", "bank", "s2", 2000000, testEpoch).
		credit("k3", "bank", "s3", 2000000, testEpoch).
		edge("s1", "s2", RelTransfersTo, nil).
		edge("s2", "s3", RelTransfersTo, nil)

	patterns := b.analyzer().DetectFraudPatterns(context.Background())

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, PatternShellNetwork, p.Type)
	assert.Equal(t, []string{"s1", "s2", "s3"}, p.Entities)
	assert.Equal(t, 10.5, p.RiskScore)
}

func TestDetectFraudPatterns_EmptyGraph(t *testing.T) {
	patterns := newBuilder(t).analyzer().DetectFraudPatterns(context.Background())
	assert.NotNil(t, patterns)
	assert.Empty(t, patterns)
}

func TestDetectFraudPatterns_IDsAreStable(t *testing.T) {
	build := func() []RiskPattern {
		b := newBuilder(t).sme("a", 2).sme("b", 2).
			credit("ab", "a", "b", 8000000, testEpoch).
			credit("ba", "b", "a", 8000000, testEpoch.Add(days(5)))
		return b.analyzer().DetectFraudPatterns(context.Background())
	}

	first, second := build(), build()
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].PatternID, second[0].PatternID)
}
