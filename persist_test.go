package fallen8

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosh/fallen-8-core-sub000/blobstore"
	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/persistence"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// populate builds a small graph with one tombstone and two indices.
func populate(t *testing.T, f *Fallen8) {
	t.Helper()
	names, err := f.CreateIndex("names", index.KindDictionary, nil)
	require.NoError(t, err)
	geo, err := f.CreateIndex("geo", index.KindSpatial, index.Options{"dimensions": "2"})
	require.NoError(t, err)

	for i, name := range []string{"a", "b", "c"} {
		v := vertex(t, f, "city", map[string]any{"name": name})
		require.NoError(t, names.AddOrUpdate(model.String(name), v.ID))
		require.NoError(t, geo.AddOrUpdate(model.Floats(float64(i), float64(i)), v.ID))
	}
	edge(t, f, 0, 1, "road")
	edge(t, f, 1, 2, "road")
	removeElement(t, f, 2)
}

func assertPopulated(t *testing.T, f *Fallen8) {
	t.Helper()
	ctx := context.Background()
	assert.Equal(t, 2, f.VertexCount())
	assert.Equal(t, 1, f.EdgeCount())
	assert.Equal(t, model.ElementID(5), f.NextID())

	names, err := f.IndexNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"geo", "names"}, names)

	got, err := f.IndexScan(ctx, "names", model.String("b"), model.OpEqual)
	require.NoError(t, err)
	assert.Equal(t, []model.ElementID{1}, ids(got))

	got, err = f.IndexScan(ctx, "names", model.String("c"), model.OpEqual)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.SpatialIndexScan(ctx, "geo", []float64{0, 0}, []float64{3, 3})
	require.NoError(t, err)
	assert.Equal(t, []model.ElementID{0, 1}, ids(got))

	v, ok := f.TryGetVertex(0)
	require.True(t, ok)
	assert.Len(t, v.OutEdges["road"], 1)
}

func TestSaveOpen(t *testing.T) {
	ctx := context.Background()
	mgr := persistence.NewManager(blobstore.NewMemoryStore(), persistence.WithEncoding(persistence.WithCompression(persistence.CompressionLZ4)))

	src := newEngine(t)
	populate(t, src)
	name, err := src.Save(ctx, mgr)
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	dst := newEngine(t)
	_, err = dst.CreateIndex("stale", index.KindDictionary, nil)
	require.NoError(t, err)
	vertex(t, dst, "stale", nil)

	_, err = dst.Open(ctx, mgr, "")
	require.NoError(t, err)
	assertPopulated(t, dst)

	// The restored graph keeps working: new ids continue after the counter.
	v := vertex(t, dst, "", nil)
	assert.Equal(t, model.ElementID(5), v.ID)
}

func TestSaveOpen_NoSavegame(t *testing.T) {
	f := newEngine(t)
	mgr := persistence.NewManager(blobstore.NewMemoryStore())
	_, err := f.Open(context.Background(), mgr, "")
	assert.ErrorIs(t, err, persistence.ErrNoSavegame)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	populate(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf, persistence.WithCompression(persistence.CompressionZstd)))

	dst := newEngine(t)
	info, err := dst.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, persistence.CompressionZstd, info.Compression)
	assertPopulated(t, dst)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	a := vertex(t, src, "", nil)
	b := vertex(t, src, "", nil)
	edge(t, src, a.ID, b.ID, "e")
	elems, next := src.Dump()

	dst := newEngine(t)
	_, err := dst.CreateIndex("names", index.KindDictionary, nil)
	require.NoError(t, err)
	require.NoError(t, dst.Load(ctx, elems, next))
	assert.Equal(t, 2, dst.VertexCount())
	assert.Equal(t, 1, dst.EdgeCount())
	names, err := dst.IndexNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	// An edge whose endpoints are missing is rejected without effect.
	bad := []model.Element{elems[2]}
	err = dst.Load(ctx, bad, next)
	var te *TransactionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "load", te.Kind)
	assert.ErrorIs(t, err, store.ErrInvalidDump)
	assert.Equal(t, 2, dst.VertexCount())
}

func TestLoad_RegistryBusy(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	populate(t, src)
	elems, next := src.Dump()

	dst := newEngine(t, WithMaintenanceRetries(2, time.Microsecond))
	_, err := dst.CreateIndex("stale", index.KindDictionary, nil)
	require.NoError(t, err)
	vertex(t, dst, "stale", nil)

	require.NoError(t, dst.indices.guard.TryRLock())
	err = dst.Load(ctx, elems, next)
	dst.indices.guard.RUnlock()
	assert.ErrorIs(t, err, ErrCollision)

	assert.Equal(t, 1, dst.VertexCount())
	names, err := dst.IndexNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, names)

	require.NoError(t, dst.Load(ctx, elems, next))
	assert.Equal(t, 2, dst.VertexCount())
	names, err = dst.IndexNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	// The tombstone of the source is not exported; its id is an empty slot.
	_, ok := dst.TryGetElement(2)
	assert.False(t, ok)
	assert.Equal(t, model.ElementID(5), dst.NextID())
}

func TestImport_BadIndexRecord(t *testing.T) {
	ctx := context.Background()
	f := newEngine(t)
	vertex(t, f, "", nil)

	doc := persistence.NewDocument(nil, 0)
	doc.Indices = []persistence.IndexRecord{{Name: "x", Kind: "NoSuchIndex"}}
	data, err := persistence.Marshal(ctx, doc)
	require.NoError(t, err)

	_, err = f.Import(ctx, bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnknownIndexKind)
	assert.Equal(t, 1, f.VertexCount())
}
