package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/query"
)

// Key prefixes for different data types
const (
	prefixEdge      = "e:" // edge record, e:<gene_a>\x00<gene_b> with gene_a < gene_b
	prefixAdjacency = "a:" // a:<gene>\x00<neighbor> -> edge key, for both endpoints
	prefixNode      = "n:" // n:<gene> -> degree
	keyMeta         = "m:meta"

	sep = "\x00"
)

// DefaultCacheSize is the neighbor cache capacity used when none is given.
const DefaultCacheSize = 1024

// BadgerBackend is a BadgerDB-backed NetworkStore.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	nodeCount   int
	edgeCount   int
	cache       *lru.Cache[string, []parsers.Record]
}

// NewBadgerBackend creates a new BadgerDB backend whose neighbor cache holds
// up to cacheSize genes. A cacheSize of zero or less disables the cache.
func NewBadgerBackend(cacheSize int) *BadgerBackend {
	b := &BadgerBackend{}
	if cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		b.cache, _ = lru.New[string, []parsers.Record](cacheSize)
	}
	return b
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.purgeCache()

	return b.recount()
}

// recount rebuilds the node and edge counts from the database.
func (b *BadgerBackend) recount() error {
	b.nodeCount = 0
	b.edgeCount = 0

	return b.db.View(func(txn *badger.Txn) error {
		b.nodeCount = countPrefix(txn, prefixNode)
		b.edgeCount = countPrefix(txn, prefixEdge)
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	b.purgeCache()
	return err
}

// BulkLoad replaces the entire store with records.
func (b *BadgerBackend) BulkLoad(ctx context.Context, records []parsers.Record, source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	b.purgeCache()
	b.nodeCount = 0
	b.edgeCount = 0

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	degree := make(map[string]int)
	for i, rec := range dedupe(records) {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling edge: %w", err)
		}

		ek := edgeKey(rec.Gene1, rec.Gene2)
		if err := wb.Set(ek, data); err != nil {
			return fmt.Errorf("setting edge: %w", err)
		}
		if err := b.indexEdgeWB(wb, rec, ek); err != nil {
			return err
		}

		degree[rec.Gene1]++
		if rec.Gene2 != rec.Gene1 {
			degree[rec.Gene2]++
		}
		b.edgeCount++
	}

	for gene, d := range degree {
		if err := wb.Set(nodeKey(gene), []byte(strconv.Itoa(d))); err != nil {
			return fmt.Errorf("setting node: %w", err)
		}
	}
	b.nodeCount = len(degree)

	meta, err := json.Marshal(Meta{
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Nodes:    b.nodeCount,
		Edges:    b.edgeCount,
	})
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := wb.Set([]byte(keyMeta), meta); err != nil {
		return fmt.Errorf("setting meta: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing write batch: %w", err)
	}

	return nil
}

// indexEdgeWB writes the adjacency entries of rec for both endpoints.
func (b *BadgerBackend) indexEdgeWB(wb *badger.WriteBatch, rec parsers.Record, ek []byte) error {
	if err := wb.Set(adjacencyKey(rec.Gene1, rec.Gene2), ek); err != nil {
		return fmt.Errorf("setting adjacency index: %w", err)
	}
	if rec.Gene1 == rec.Gene2 {
		return nil
	}
	if err := wb.Set(adjacencyKey(rec.Gene2, rec.Gene1), ek); err != nil {
		return fmt.Errorf("setting adjacency index: %w", err)
	}
	return nil
}

// Neighbors returns every edge touching gene, ordered by neighbor name.
func (b *BadgerBackend) Neighbors(ctx context.Context, gene string) ([]parsers.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	if b.cache != nil {
		if edges, ok := b.cache.Get(gene); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return edges, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	var edges []parsers.Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixAdjacency + gene + sep)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			ek, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading edge key: %w", err)
			}

			rec, err := getEdge(txn, ek)
			if err != nil {
				return err
			}
			edges = append(edges, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(edges) == 0 {
		return nil, fmt.Errorf("%s: %w", gene, query.ErrUnknownGene)
	}

	if b.cache != nil {
		b.cache.Add(gene, edges)
	}
	return edges, nil
}

// Edge returns the edge between gene1 and gene2, or nil if not found.
func (b *BadgerBackend) Edge(ctx context.Context, gene1, gene2 string) (*parsers.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var rec *parsers.Record
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getEdge(txn, edgeKey(gene1, gene2))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// getEdge reads and decodes the edge stored at ek.
func getEdge(txn *badger.Txn, ek []byte) (*parsers.Record, error) {
	item, err := txn.Get(ek)
	if err != nil {
		return nil, fmt.Errorf("getting edge %q: %w", ek, err)
	}

	var rec parsers.Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling edge: %w", err)
	}
	return &rec, nil
}

// Degree returns the number of edges touching gene.
func (b *BadgerBackend) Degree(ctx context.Context, gene string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return 0, ErrNotInitialized
	}

	var d int
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(gene))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("getting node: %w", err)
		}
		return item.Value(func(val []byte) error {
			d, err = strconv.Atoi(string(val))
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return d, nil
}

// Genes returns every indexed gene in key order, which is sorted.
func (b *BadgerBackend) Genes(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	genes := make([]string, 0, b.nodeCount)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixNode)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			genes = append(genes, string(bytes.TrimPrefix(it.Item().Key(), []byte(prefixNode))))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genes, nil
}

// Meta returns the load metadata.
func (b *BadgerBackend) Meta(ctx context.Context) (Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return Meta{}, ErrNotInitialized
	}

	var m Meta
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("getting meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, err
}

// NodeCount returns the node count.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// EdgeCount returns the edge count.
func (b *BadgerBackend) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.edgeCount
}

func (b *BadgerBackend) purgeCache() {
	if b.cache != nil {
		b.cache.Purge()
	}
}

// edgeKey returns the BadgerDB key for the edge between two genes.
func edgeKey(gene1, gene2 string) []byte {
	k := newPairKey(gene1, gene2)
	return []byte(prefixEdge + k.a + sep + k.b)
}

// adjacencyKey returns the BadgerDB key listing neighbor under gene.
func adjacencyKey(gene, neighbor string) []byte {
	return []byte(prefixAdjacency + gene + sep + neighbor)
}

// nodeKey returns the BadgerDB key for a gene.
func nodeKey(gene string) []byte {
	return []byte(prefixNode + gene)
}
