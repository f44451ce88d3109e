package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/graph"
)

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestGraphStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := OpenGraphStore(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateNode(ctx, graph.LabelSME, "sme-1", graph.Properties{graph.PropRiskScore: 5.5}))
	require.NoError(t, s.CreateNode(ctx, graph.LabelInstitution, "bank-1", nil))
	assert.ErrorIs(t, s.CreateRelationship(ctx, "bank-1", "ghost", graph.RelTransfersTo, nil), graph.ErrNodeNotFound)
	require.NoError(t, s.CreateRelationship(ctx, "bank-1", "sme-1", graph.RelTransfersTo, graph.Properties{graph.PropAmount: 100.0}))

	err = s.View(ctx, func(g *graph.Graph) error {
		assert.Equal(t, 2, g.NodeCount())
		assert.Equal(t, 1, g.EdgeCount())
		return nil
	})
	require.NoError(t, err)
}

func TestGraphStore_ReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	s, err := OpenGraphStore(cfg)
	require.NoError(t, err)

	err = s.Update(ctx, func(g *graph.Graph) error {
		if _, err := g.AddNode(graph.LabelSME, "a", graph.Properties{graph.PropEmployeeCount: 4}); err != nil {
			return err
		}
		if _, err := g.AddNode(graph.LabelSME, "b", nil); err != nil {
			return err
		}
		if _, err := g.AddEdge("a", "b", graph.RelTransfersTo, graph.Properties{graph.PropAmount: 2500.0}); err != nil {
			return err
		}
		_, err := g.AddEdge("b", "a", graph.RelTransfersTo, graph.Properties{graph.PropAmount: 1000.0})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(g *graph.Graph) error {
		return g.SetProperty("b", graph.PropRiskScore, 7.5)
	}))
	require.NoError(t, s.Close())

	reopened, err := OpenGraphStore(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.View(ctx, func(g *graph.Graph) error {
		assert.Equal(t, 2, g.NodeCount())
		require.Equal(t, 2, g.EdgeCount())

		a, ok := g.Node("a")
		require.True(t, ok)
		assert.Equal(t, 4, a.Props.Int(graph.PropEmployeeCount))

		b, _ := g.Node("b")
		assert.Equal(t, 7.5, b.RiskScore())

		edges := g.Edges(graph.RelTransfersTo)
		assert.Equal(t, "a", edges[0].From)
		assert.Equal(t, 2500.0, edges[0].Props.Float(graph.PropAmount))
		assert.Equal(t, "b", edges[1].From)
		return nil
	})
	require.NoError(t, err)
}

func TestGraphStore_UpdateKeepsPartialChanges(t *testing.T) {
	ctx := context.Background()
	s, err := OpenGraphStore(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	boom := errors.New("boom")
	err = s.Update(ctx, func(g *graph.Graph) error {
		if _, err := g.AddNode(graph.LabelSME, "kept", nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, func(g *graph.Graph) error {
		_, ok := g.Node("kept")
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestNewGCRunner_Validation(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, 1, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db, 0, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db, 1, 1.5, nil)
	assert.Error(t, err)

	r, err := NewGCRunner(db, 1, 0.5, nil)
	require.NoError(t, err)
	r.Start()
	r.Stop()
}
