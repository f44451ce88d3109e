package graph

import (
	"context"
	"sync"
)

// Store holds the property graph. Traversal queries run inside View with a
// read-only graph; mutations run inside Update and are serialized.
type Store interface {
	CreateNode(ctx context.Context, label Label, id string, props Properties) error
	// CreateRelationship fails with ErrNodeNotFound if either endpoint is absent
	CreateRelationship(ctx context.Context, fromID, toID string, relType RelType, props Properties) error
	View(ctx context.Context, fn func(g *Graph) error) error
	Update(ctx context.Context, fn func(g *Graph) error) error
}

// MemoryStore is an in-process Store guarded by a read/write mutex.
// Concurrent Views share the graph; fn must not mutate it.
type MemoryStore struct {
	mu sync.RWMutex
	g  *Graph
}

// NewMemoryStore creates an empty in-memory graph store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{g: NewGraph()}
}

// NewMemoryStoreFrom wraps an existing graph
func NewMemoryStoreFrom(g *Graph) *MemoryStore {
	g.TakeChanges()
	return &MemoryStore{g: g}
}

// CreateNode adds a node
func (s *MemoryStore) CreateNode(ctx context.Context, label Label, id string, props Properties) error {
	return s.Update(ctx, func(g *Graph) error {
		_, err := g.AddNode(label, id, props)
		return err
	})
}

// CreateRelationship adds an edge between two existing nodes
func (s *MemoryStore) CreateRelationship(ctx context.Context, fromID, toID string, relType RelType, props Properties) error {
	return s.Update(ctx, func(g *Graph) error {
		_, err := g.AddEdge(fromID, toID, relType, props)
		return err
	})
}

// View runs fn with shared read access
func (s *MemoryStore) View(ctx context.Context, fn func(g *Graph) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.g)
}

// Update runs fn with exclusive access. Changes made before fn returns an
// error are kept.
func (s *MemoryStore) Update(ctx context.Context, fn func(g *Graph) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.g)
	s.g.TakeChanges()
	return err
}
