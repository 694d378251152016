// Package storage indexes persisted co-expression networks for lookup by
// gene.
//
// A store is a derived index of one edge-list file, rebuilt from that file
// with BulkLoad; the CSV stays the system of record. Every edge is listed
// under both endpoints, so neighbors of any gene can be read directly.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/query"
)

// ErrNotInitialized is returned by operations on a store that was never
// initialized or has been closed.
var ErrNotInitialized = errors.New("store not initialized")

// Meta describes what a store was loaded from.
type Meta struct {
	// Source is the path of the indexed edge list.
	Source string `json:"source"`

	// LoadedAt is when BulkLoad completed.
	LoadedAt time.Time `json:"loaded_at"`

	// Nodes and Edges are the counts at load time.
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// NetworkStore defines the interface for network index implementations.
//
// Implementations must be safe for concurrent readers. Neighbors returns
// query.ErrUnknownGene (wrapped) for a gene without edges, so every store
// is a query.Source.
type NetworkStore interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// BulkLoad replaces the entire store with records. A record repeating an
	// unordered gene pair replaces the earlier one.
	BulkLoad(ctx context.Context, records []parsers.Record, source string) error

	// Neighbors returns every edge touching gene, ordered by neighbor name.
	Neighbors(ctx context.Context, gene string) ([]parsers.Record, error)

	// Edge returns the edge between two genes in either order, or nil if
	// there is none.
	Edge(ctx context.Context, gene1, gene2 string) (*parsers.Record, error)

	// Degree returns the number of edges touching gene; 0 for unknown genes.
	Degree(ctx context.Context, gene string) (int, error)

	// Genes returns every gene with at least one edge, sorted.
	Genes(ctx context.Context) ([]string, error)

	// Meta returns the load metadata, or the zero Meta for an empty store.
	Meta(ctx context.Context) (Meta, error)

	// NodeCount returns the number of genes with at least one edge.
	NodeCount() int

	// EdgeCount returns the number of stored edges.
	EdgeCount() int
}

var (
	_ query.Source = NetworkStore(nil)
	_ NetworkStore = (*BadgerBackend)(nil)
	_ NetworkStore = (*MemoryBackend)(nil)
)

// pairKey is an unordered gene pair in canonical (lexical) order.
type pairKey struct {
	a, b string
}

func newPairKey(g1, g2 string) pairKey {
	if g2 < g1 {
		return pairKey{a: g2, b: g1}
	}
	return pairKey{a: g1, b: g2}
}

// dedupe keeps the last record of every unordered pair, in first-seen order.
func dedupe(records []parsers.Record) []parsers.Record {
	pos := make(map[pairKey]int, len(records))
	out := make([]parsers.Record, 0, len(records))
	for _, r := range records {
		k := newPairKey(r.Gene1, r.Gene2)
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}
