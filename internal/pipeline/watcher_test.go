package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/corrnet-go/internal/storage"
)

func TestWalkNetworks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.csv", networkCSV)
	writeFile(t, dir, "b.csv.gz", "")
	writeFile(t, dir, "sub/c.csv", networkCSV)
	writeFile(t, dir, "sub_c.csv", networkCSV)
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, "skip.csv", networkCSV)
	writeFile(t, dir, "scratch/d.csv", networkCSV)
	writeFile(t, dir, ".corrnet/e.csv", networkCSV)
	writeFile(t, dir, IgnoreFile, "# local\nskip.csv\nscratch/\n")

	entries, err := WalkNetworks(dir)
	require.NoError(t, err)

	var rel, names []string
	for _, e := range entries {
		rel = append(rel, filepath.ToSlash(e.RelPath))
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a.csv", "b.csv.gz", "sub/c.csv", "sub_c.csv"}, rel)
	assert.Equal(t, []string{"a", "b", "sub_c", "sub%5Fc"}, names)
}

func TestStoreDir(t *testing.T) {
	t.Parallel()

	e := NetworkEntry{RelPath: filepath.Join("x", "hrr.csv.gz")}
	assert.Equal(t, filepath.Join("/idx", "x_hrr"), StoreDir("/idx", e))

	nested := NetworkEntry{RelPath: filepath.Join("a", "b.csv")}
	flat := NetworkEntry{RelPath: "a_b.csv"}
	assert.NotEqual(t, StoreDir("/idx", nested), StoreDir("/idx", flat))
	assert.Equal(t, "a%5Fb", flat.Name())
	assert.Equal(t, "100%25_x", NetworkEntry{RelPath: filepath.Join("100%", "x.csv")}.Name())
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(t.TempDir(), "stores")
	writeFile(t, dir, "first.csv", networkCSV)

	type indexed struct {
		name  string
		edges int
	}
	events := make(chan indexed, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, WatchOptions{
			Dir:       dir,
			StoreRoot: root,
			Delay:     50 * time.Millisecond,
			OnIndexed: func(e NetworkEntry, res *IndexResult) {
				ev := indexed{name: e.Name(), edges: -1}
				if res != nil {
					ev.edges = res.Edges
				}
				events <- ev
			},
		})
	}()

	next := func() indexed {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for the watcher")
			return indexed{}
		}
	}

	assert.Equal(t, indexed{name: "first", edges: 5}, next())

	// Rename into place so the watcher sees a single complete file.
	tmp := writeFile(t, dir, "second.part", "gene_1,gene_2,corr,rank\nX,Y,0.9,1\n")
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "second.csv")))
	assert.Equal(t, indexed{name: "second", edges: 1}, next())

	store := storage.NewBadgerBackend(0)
	require.NoError(t, store.Initialize(filepath.Join(root, "second"), true))
	assert.Equal(t, 1, store.EdgeCount())
	require.NoError(t, store.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, "second.csv")))
	assert.Equal(t, indexed{name: "second", edges: -1}, next())
	assert.NoDirExists(t, filepath.Join(root, "second"))

	// A directory created after startup is watched too.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "late", "deeper"), 0o755))
	time.Sleep(100 * time.Millisecond)
	tmp = writeFile(t, dir, "late/deeper/third.part", "gene_1,gene_2,corr,rank\nX,Y,0.9,1\nY,Z,0.8,2\n")
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "late", "deeper", "third.csv")))
	assert.Equal(t, indexed{name: "late_deeper_third", edges: 2}, next())

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
