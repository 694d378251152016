package pipeline

import (
	"context"
	"fmt"

	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/storage"
)

// IndexResult summarizes an Index run.
type IndexResult struct {
	Source string
	Nodes  int
	Edges  int
}

// Index replaces the contents of store with the records of the network at
// path passing f.
func Index(ctx context.Context, store storage.NetworkStore, path string, f parsers.Filter, c Common) (*IndexResult, error) {
	log := c.logger()
	if path == "" {
		return nil, ErrNoInput
	}

	done := c.phase("read network")
	records, err := parsers.ReadEdgeList(path, f)
	if err != nil {
		return nil, err
	}
	done()

	done = c.phase("load store")
	if err := store.BulkLoad(ctx, records, path); err != nil {
		return nil, fmt.Errorf("bulk load: %w", err)
	}
	done()

	res := &IndexResult{Source: path, Nodes: store.NodeCount(), Edges: store.EdgeCount()}
	log.Info("indexed network", "path", path, "nodes", res.Nodes, "edges", res.Edges)
	return res, nil
}

// IndexInto opens the badger store at dir, indexes path into it and closes
// it again.
func IndexInto(ctx context.Context, dir string, cacheSize int, path string, f parsers.Filter, c Common) (*IndexResult, error) {
	store := storage.NewBadgerBackend(cacheSize)
	if err := store.Initialize(dir, false); err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return Index(ctx, store, path, f, c)
}
