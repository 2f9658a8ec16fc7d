package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fallen8 "github.com/cosh/fallen-8-core-sub000"
	"github.com/cosh/fallen-8-core-sub000/blobstore"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/persistence"
	"github.com/cosh/fallen-8-core-sub000/store"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// seed saves a diamond 0 -> {1, 2} -> 3 plus an isolated vertex 4 and a
// removed vertex 5 into dir.
func seed(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	f8 := fallen8.New()
	defer f8.Close()

	for i, name := range []string{"s", "a", "b", "t", "x", "gone"} {
		_, err := f8.CreateVertex(store.VertexDefinition{
			Label:      "node",
			Properties: model.PropertiesOf(map[string]any{"name": name, "rank": i * 10}),
		})
		require.NoError(t, err)
	}
	for _, e := range [][2]model.ElementID{{0, 1}, {1, 3}, {0, 2}, {2, 3}} {
		_, ok, err := f8.CreateEdge(store.EdgeDefinition{
			SourceID:   e[0],
			TargetID:   e[1],
			Label:      "road",
			Properties: model.PropertiesOf(map[string]any{"weight": 2.5}),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}
	h, err := f8.EnqueueTransaction(&txn.RemoveElement{ElementID: 5})
	require.NoError(t, err)
	state, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, txn.Finished, state)

	mgr := persistence.NewManager(blobstore.NewLocalStore(dir))
	_, err = f8.Save(ctx, mgr)
	require.NoError(t, err)
}

func TestGenerateAndStats(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "generate", "--dir", dir, "--vertices", "50", "--edges", "120", "--seed", "7", "--labels", "knows,likes")
	require.NoError(t, err)
	assert.Contains(t, out, "saved savegame-")
	assert.Contains(t, out, "50 vertices, 120 edges")

	out, err = run(t, "stats", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "savegames:   1\n")
	assert.Contains(t, out, "format:      v1 go-json/zstd\n")
	assert.Contains(t, out, "vertices:    50\n")
	assert.Contains(t, out, "edges:       120\n")
	assert.Contains(t, out, "next id:     170\n")

	out, err = run(t, "scan", "--dir", dir, "--property", "rank", "--op", ">=", "--value", "0", "--label", "node", "--limit", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "50 matches")
}

func TestGenerate_Validation(t *testing.T) {
	_, err := run(t, "generate", "--backend", "memory", "--vertices", "0")
	assert.ErrorContains(t, err, "--vertices")

	_, err = run(t, "generate", "--backend", "memory", "--edges", "-1")
	assert.ErrorContains(t, err, "--edges")

	out, err := run(t, "generate", "--backend", "memory", "--vertices", "10", "--edges", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "10 vertices, 0 edges")
}

func TestStats_NoSavegame(t *testing.T) {
	_, err := run(t, "stats", "--dir", t.TempDir())
	assert.ErrorIs(t, err, persistence.ErrNoSavegame)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)

	out, err := run(t, "scan", "--dir", dir, "--property", "name", "--value", "a")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1\tvertex\tnode\tname="), out)
	assert.Contains(t, out, "1 matches")

	out, err = run(t, "scan", "--dir", dir, "--property", "rank", "--op", "gte", "--value", "20")
	require.NoError(t, err)
	// Vertex 5 is removed and never matches.
	assert.Contains(t, out, "3 matches")

	out, err = run(t, "scan", "--dir", dir, "--property", "rank", "--op", "gte", "--value", "0", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "... 3 more")
	assert.Contains(t, out, "5 matches")

	_, err = run(t, "scan", "--dir", dir, "--property", "rank", "--op", "like", "--value", "1")
	assert.ErrorContains(t, err, "unknown operator")

	_, err = run(t, "scan", "--dir", dir)
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)

	out, err := run(t, "path", "--dir", dir, "0", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "0 -> 1 -> 3\t(hops 2, weight 2)")
	assert.Contains(t, out, "0 -> 2 -> 3\t(hops 2, weight 2)")

	out, err = run(t, "path", "--dir", dir, "--weighted", "--max-results", "1", "0", "3")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "weight 5)")

	out, err = run(t, "path", "--dir", dir, "--max-weight", "1", "0", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "no path from 0 to 3")

	out, err = run(t, "path", "--dir", dir, "--label", "rail", "0", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "no path")

	out, err = run(t, "path", "--dir", dir, "0", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "no path from 0 to 4")

	_, err = run(t, "path", "--dir", dir, "0", "north")
	assert.ErrorContains(t, err, "invalid element id")

	_, err = run(t, "path", "--dir", dir, "0")
	assert.Error(t, err)
}

func TestTrim(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)

	out, err := run(t, "trim", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "trimmed 1 elements, saved savegame-")

	out, err = run(t, "trim", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "nothing to trim\n", out)

	out, err = run(t, "stats", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "savegames:   2\n")
	assert.Contains(t, out, "vertices:    5\n")
	assert.Contains(t, out, "next id:     9\n")
}
