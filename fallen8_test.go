package fallen8

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
	"github.com/cosh/fallen-8-core-sub000/shortestpath"
	"github.com/cosh/fallen-8-core-sub000/store"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

func newEngine(t *testing.T, opts ...Option) *Fallen8 {
	t.Helper()
	f := New(opts...)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func vertex(t *testing.T, f *Fallen8, label string, props map[string]any) *model.Vertex {
	t.Helper()
	v, err := f.CreateVertex(store.VertexDefinition{Label: label, Properties: model.PropertiesOf(props)})
	require.NoError(t, err)
	return v
}

func edge(t *testing.T, f *Fallen8, from, to model.ElementID, label string) *model.Edge {
	t.Helper()
	e, ok, err := f.CreateEdge(store.EdgeDefinition{SourceID: from, TargetID: to, Label: label})
	require.NoError(t, err)
	require.True(t, ok)
	return e
}

func ids(elems []model.Element) []model.ElementID {
	out := make([]model.ElementID, len(elems))
	for i, e := range elems {
		out[i] = e.Header().ID
	}
	return out
}

func TestFallen8(t *testing.T) {
	t.Run("CreateAndScan", func(t *testing.T) {
		f := newEngine(t)
		a := vertex(t, f, "person", map[string]any{"age": 31})
		b := vertex(t, f, "person", map[string]any{"age": 17})
		c := vertex(t, f, "robot", map[string]any{"age": 40})
		edge(t, f, a.ID, b.ID, "knows")

		got, err := f.GraphScan(context.Background(), "age", model.Int(18), model.OpGreaterEqual)
		require.NoError(t, err)
		assert.Equal(t, []model.ElementID{a.ID, c.ID}, ids(got))

		got, err = f.GraphScan(context.Background(), "age", model.Int(18), model.OpGreaterEqual, store.WithLabel("person"))
		require.NoError(t, err)
		assert.Equal(t, []model.ElementID{a.ID}, ids(got))

		assert.Equal(t, 3, f.VertexCount())
		assert.Equal(t, 1, f.EdgeCount())
		assert.Equal(t, model.ElementID(4), f.NextID())
	})

	t.Run("MissingEndpoint", func(t *testing.T) {
		f := newEngine(t)
		a := vertex(t, f, "", nil)
		e, ok, err := f.CreateEdge(store.EdgeDefinition{SourceID: a.ID, TargetID: 42})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, e)
		assert.Equal(t, 0, f.EdgeCount())
	})

	t.Run("TransactionOrdering", func(t *testing.T) {
		f := newEngine(t)
		cv := &txn.CreateVertices{Definitions: []store.VertexDefinition{{}, {}}}
		h1, err := f.EnqueueTransaction(cv)
		require.NoError(t, err)
		h2, err := f.EnqueueTransaction(&txn.CreateEdges{Definitions: []store.EdgeDefinition{{SourceID: 0, TargetID: 1, Label: "next"}}})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		state, err := h2.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, txn.Finished, state)
		assert.Equal(t, txn.Finished, f.TransactionState(h1.ID()))
		assert.Equal(t, 1, f.EdgeCount())
		assert.Equal(t, txn.NotExist, f.TransactionState("nope"))
	})

	t.Run("Rollback", func(t *testing.T) {
		errBoom := errors.New("boom")
		f := newEngine(t, WithInterceptor(func(op store.Op, _ model.Element) error {
			if op == store.OpCreate {
				return errBoom
			}
			return nil
		}))

		h, err := f.EnqueueTransaction(&txn.CreateVertices{Definitions: []store.VertexDefinition{{}, {}, {}}})
		require.NoError(t, err)
		state, err := h.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, txn.RolledBack, state)
		assert.ErrorIs(t, h.Err(), errBoom)
		assert.Equal(t, 0, f.VertexCount())
	})

	t.Run("Close", func(t *testing.T) {
		f := New()
		require.NoError(t, f.Close())
		require.NoError(t, f.Close())

		_, err := f.CreateVertex(store.VertexDefinition{})
		assert.ErrorIs(t, err, ErrClosed)
		_, err = f.EnqueueTransaction(txn.Reset{})
		assert.ErrorIs(t, err, ErrClosed)
		_, err = f.Trim(context.Background())
		assert.ErrorIs(t, err, ErrClosed)

		got, err := f.GraphScan(context.Background(), "x", model.Int(1), model.OpEqual)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFallen8_ShortestPath(t *testing.T) {
	f := newEngine(t)
	s := vertex(t, f, "S", nil)
	a := vertex(t, f, "A", nil)
	b := vertex(t, f, "B", nil)
	tv := vertex(t, f, "T", nil)
	edge(t, f, s.ID, a.ID, "road")
	edge(t, f, a.ID, tv.ID, "road")
	edge(t, f, s.ID, b.ID, "road")
	edge(t, f, b.ID, tv.ID, "road")
	x := vertex(t, f, "X", nil)
	y := vertex(t, f, "Y", nil)
	edge(t, f, x.ID, y.ID, "road")

	ctx := context.Background()
	paths, err := f.CalculateShortestPath(ctx, "", shortestpath.Request{
		SourceID: s.ID, TargetID: tv.ID, MaxDepth: 4, MaxResults: 10,
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.Equal(t, 2, p.Length())
		assert.InDelta(t, 2.0, p.Weight, 1e-9)
	}

	paths, err = f.CalculateShortestPath(ctx, shortestpath.DefaultAlgorithm, shortestpath.Request{
		SourceID: s.ID, TargetID: y.ID, MaxDepth: 4, MaxResults: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = f.CalculateShortestPath(ctx, "Dijkstra", shortestpath.Request{})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestFallen8_Metrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	f := newEngine(t, WithMetricsCollector(mc), WithLogger(NoopLogger()))
	ctx := context.Background()

	a := vertex(t, f, "", map[string]any{"k": 1})
	b := vertex(t, f, "", nil)
	edge(t, f, a.ID, b.ID, "e")

	_, err := f.GraphScan(ctx, "k", model.Int(1), model.OpEqual)
	require.NoError(t, err)
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.GraphScan(canceled, "k", model.Int(1), model.OpEqual)
	require.ErrorIs(t, err, context.Canceled)
	_, err = f.CalculateShortestPath(ctx, "", shortestpath.Request{SourceID: a.ID, TargetID: b.ID, MaxDepth: 1, MaxResults: 1})
	require.NoError(t, err)

	h, err := f.EnqueueTransaction(&txn.RemoveElement{ElementID: b.ID})
	require.NoError(t, err)
	_, err = h.Wait(ctx)
	require.NoError(t, err)
	h, err = f.EnqueueTransaction(&txn.RemoveElement{ElementID: 99})
	require.NoError(t, err)
	_, err = h.Wait(ctx)
	require.NoError(t, err)

	remap, err := f.Trim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remap.Removed())

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.ScanCount)
	assert.Equal(t, int64(1), stats.ScanErrors)
	assert.Equal(t, int64(1), stats.ScanResults)
	assert.Equal(t, int64(1), stats.PathSearchCount)
	assert.Equal(t, int64(1), stats.PathsFound)
	assert.Equal(t, int64(1), stats.TrimCount)
	assert.Equal(t, int64(2), stats.TrimRemoved)
	// The observer runs after the handle completes, so the trim itself may
	// not be counted yet.
	assert.GreaterOrEqual(t, stats.TransactionsFinished, int64(1))
	assert.Equal(t, int64(1), stats.TransactionsRolledBack)
}

func TestFallen8_ResourceController(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxScanWorkers: 1, TransactionsPerSecond: 1000, TransactionBurst: 10})
	f := newEngine(t, WithResourceController(rc))
	for i := range 10 {
		vertex(t, f, "", map[string]any{"i": i})
	}
	got, err := f.GraphScan(context.Background(), "i", model.Int(5), model.OpLessThan)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	require.NoError(t, f.TabulaRasa(context.Background()))
	assert.Equal(t, 0, f.VertexCount())
	assert.Equal(t, model.ElementID(0), f.NextID())
}
