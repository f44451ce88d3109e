package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

const (
	nodePrefix = "node/"
	edgePrefix = "edge/"
)

func nodeKey(id string) []byte {
	return []byte(nodePrefix + id)
}

// Edges keep their insertion order through the zero-padded sequence
func edgeKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%012d", edgePrefix, seq))
}

// GraphStore is a graph.Store that keeps the graph in memory and writes
// every change through to BadgerDB. Traversals never touch disk.
type GraphStore struct {
	mu sync.RWMutex
	g  *graph.Graph

	db       *badger.DB
	gcRunner *GCRunner
	log      *logger.Logger
}

// OpenGraphStore opens the database and loads the persisted graph
func OpenGraphStore(cfg Config) (*GraphStore, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &GraphStore{db: db, log: log.Named("graph_store")}
	if s.g, err = load(db); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, s.log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		s.gcRunner = runner
		runner.Start()
	}

	s.log.Info("graph store opened",
		logger.IntField("nodes", s.g.NodeCount()),
		logger.IntField("edges", s.g.EdgeCount()),
		logger.BoolField("in_memory", cfg.InMemory),
	)
	return s, nil
}

// load rebuilds the graph: all nodes first, then edges in sequence order
func load(db *badger.DB) (*graph.Graph, error) {
	g := graph.NewGraph()
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(nodePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var n graph.Node
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &n) }); err != nil {
				return fmt.Errorf("decode node %s: %w", it.Item().Key(), err)
			}
			if _, err := g.AddNode(n.Label, n.ID, n.Props); err != nil {
				return err
			}
		}

		prefix = []byte(edgePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e graph.Edge
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &e) }); err != nil {
				return fmt.Errorf("decode edge %s: %w", it.Item().Key(), err)
			}
			if _, err := g.AddEdge(e.From, e.To, e.Type, e.Props); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	g.TakeChanges()
	return g, nil
}

// CreateNode implements graph.Store
func (s *GraphStore) CreateNode(ctx context.Context, label graph.Label, id string, props graph.Properties) error {
	return s.Update(ctx, func(g *graph.Graph) error {
		_, err := g.AddNode(label, id, props)
		return err
	})
}

// CreateRelationship implements graph.Store
func (s *GraphStore) CreateRelationship(ctx context.Context, fromID, toID string, relType graph.RelType, props graph.Properties) error {
	return s.Update(ctx, func(g *graph.Graph) error {
		_, err := g.AddEdge(fromID, toID, relType, props)
		return err
	})
}

// View implements graph.Store
func (s *GraphStore) View(ctx context.Context, fn func(g *graph.Graph) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.g)
}

// Update implements graph.Store. Whatever fn changed before returning is
// persisted, even when fn fails.
func (s *GraphStore) Update(ctx context.Context, fn func(g *graph.Graph) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fnErr := fn(s.g)
	nodes, edges := s.g.TakeChanges()
	if err := s.persist(nodes, edges); err != nil {
		s.log.WithContext(ctx).Error("graph write-through failed",
			logger.IntField("nodes", len(nodes)),
			logger.IntField("edges", len(edges)),
			logger.ErrorField(err),
		)
		return err
	}
	return fnErr
}

func (s *GraphStore) persist(nodes []*graph.Node, edges []*graph.Edge) error {
	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		if err := wb.Set(nodeKey(n.ID), data); err != nil {
			return err
		}
	}
	for _, e := range edges {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode edge %d: %w", e.Seq, err)
		}
		if err := wb.Set(edgeKey(e.Seq), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Close stops GC and closes the database
func (s *GraphStore) Close() error {
	if s.gcRunner != nil {
		s.gcRunner.Stop()
	}
	return s.db.Close()
}

var _ graph.Store = (*GraphStore)(nil)
