package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/query"
)

// MemoryBackend is an in-memory implementation of NetworkStore. It serves
// queries read straight from a network CSV, where building a persistent
// index first would be wasted work.
type MemoryBackend struct {
	mu    sync.RWMutex
	adj   *query.Adjacency
	edges map[pairKey]parsers.Record
	meta  Meta
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		adj:   query.NewAdjacency(),
		edges: make(map[pairKey]parsers.Record),
	}
}

// Initialize implements NetworkStore. There is nothing to open.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements NetworkStore.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adj = query.NewAdjacency()
	m.edges = make(map[pairKey]parsers.Record)
	m.meta = Meta{}
	return nil
}

// BulkLoad implements NetworkStore.
func (m *MemoryBackend) BulkLoad(ctx context.Context, records []parsers.Record, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Adding edges in canonical pair order lists every gene's edges by
	// neighbor name, the order BadgerBackend iterates its adjacency keys.
	recs := dedupe(records)
	slices.SortStableFunc(recs, func(x, y parsers.Record) int {
		kx, ky := newPairKey(x.Gene1, x.Gene2), newPairKey(y.Gene1, y.Gene2)
		if c := cmp.Compare(kx.a, ky.a); c != 0 {
			return c
		}
		return cmp.Compare(kx.b, ky.b)
	})

	adj := query.NewAdjacency()
	edges := make(map[pairKey]parsers.Record, len(recs))
	for _, rec := range recs {
		adj.Add(rec)
		edges[newPairKey(rec.Gene1, rec.Gene2)] = rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.adj = adj
	m.edges = edges
	m.meta = Meta{
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Nodes:    adj.NodeCount(),
		Edges:    adj.EdgeCount(),
	}
	return nil
}

// Neighbors implements NetworkStore.
func (m *MemoryBackend) Neighbors(ctx context.Context, gene string) ([]parsers.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edges, err := m.adj.Neighbors(ctx, gene)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gene, err)
	}
	return slices.Clone(edges), nil
}

// Edge implements NetworkStore.
func (m *MemoryBackend) Edge(ctx context.Context, gene1, gene2 string) (*parsers.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.edges[newPairKey(gene1, gene2)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Degree implements NetworkStore.
func (m *MemoryBackend) Degree(ctx context.Context, gene string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edges, err := m.adj.Neighbors(ctx, gene)
	if err != nil {
		return 0, nil
	}
	return len(edges), nil
}

// Genes implements NetworkStore.
func (m *MemoryBackend) Genes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adj.Genes(), nil
}

// Meta implements NetworkStore.
func (m *MemoryBackend) Meta(ctx context.Context) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta, nil
}

// NodeCount returns the number of genes with at least one edge.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adj.NodeCount()
}

// EdgeCount returns the number of stored edges.
func (m *MemoryBackend) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adj.EdgeCount()
}
