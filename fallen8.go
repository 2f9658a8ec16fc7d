package fallen8

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/store"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

// Fallen8 is an in-memory property graph with indices, a transaction
// pipeline and shortest path search.
//
// All methods are safe for concurrent use.
type Fallen8 struct {
	store   *store.Store
	txm     *txn.Manager
	indices *indexRegistry
	maint   *maintainer

	opts    options
	logger  *Logger
	metrics MetricsCollector

	closed atomic.Bool
}

// New creates an empty engine and starts its transaction worker.
func New(optFns ...Option) *Fallen8 {
	o := applyOptions(optFns)

	f := &Fallen8{
		indices: newIndexRegistry(),
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	f.maint = &maintainer{f: f}

	storeOpts := []store.Option{
		store.WithLogger(o.logger.Logger),
		store.WithController(o.controller),
		store.WithListener(f.maint),
	}
	if o.clock != nil {
		storeOpts = append(storeOpts, store.WithClock(o.clock))
	}
	if o.interceptor != nil {
		storeOpts = append(storeOpts, store.WithInterceptor(o.interceptor))
	}
	f.store = store.New(storeOpts...)

	f.txm = txn.New(f.store,
		txn.WithController(o.controller),
		txn.WithObserver(f.observe),
	)
	return f
}

func (f *Fallen8) observe(h *txn.Handle, elapsed time.Duration) {
	f.metrics.RecordTransaction(h.State(), elapsed)
	f.logger.LogTransaction(context.Background(), h.ID(), txn.KindOf(h.Transaction()), elapsed, h.Err())
}

// Close stops accepting writes, runs the queued transactions to completion
// and stops the worker. Reads keep working on the last published snapshot.
func (f *Fallen8) Close() error {
	if f == nil || !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.txm.Close()
}

// Snapshot returns the currently published store snapshot.
func (f *Fallen8) Snapshot() *store.Snapshot {
	return f.store.Snapshot()
}

// VertexCount returns the number of live vertices.
func (f *Fallen8) VertexCount() int { return f.store.VertexCount() }

// EdgeCount returns the number of live edges.
func (f *Fallen8) EdgeCount() int { return f.store.EdgeCount() }

// NextID returns the id the next created element will get.
func (f *Fallen8) NextID() model.ElementID { return f.store.NextID() }

// TryGetElement returns the element stored under id, tombstones included.
func (f *Fallen8) TryGetElement(id model.ElementID) (model.Element, bool) {
	return f.store.TryGetElement(id)
}

// TryGetVertex returns the vertex stored under id.
func (f *Fallen8) TryGetVertex(id model.ElementID) (*model.Vertex, bool) {
	return f.store.TryGetVertex(id)
}

// TryGetEdge returns the edge stored under id.
func (f *Fallen8) TryGetEdge(id model.ElementID) (*model.Edge, bool) {
	return f.store.TryGetEdge(id)
}

// CreateVertex creates a vertex immediately, bypassing the transaction
// queue.
func (f *Fallen8) CreateVertex(def store.VertexDefinition) (*model.Vertex, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	return f.store.CreateVertex(def)
}

// CreateEdge creates an edge immediately, bypassing the transaction queue.
// It reports false, creating nothing, if an endpoint is not a live vertex.
func (f *Fallen8) CreateEdge(def store.EdgeDefinition) (*model.Edge, bool, error) {
	if f.closed.Load() {
		return nil, false, ErrClosed
	}
	return f.store.CreateEdge(def)
}

// EnqueueTransaction queues tx behind every previously queued transaction
// and returns its handle.
func (f *Fallen8) EnqueueTransaction(tx txn.Transaction) (*txn.Handle, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	h, err := f.txm.Enqueue(tx)
	return h, translateError(err)
}

// TransactionState returns the state of the transaction id. Unknown ids and
// transactions forgotten after a trim report txn.NotExist.
func (f *Fallen8) TransactionState(id string) txn.State {
	return f.txm.State(id)
}

// run queues tx and waits for it.
func (f *Fallen8) run(ctx context.Context, tx txn.Transaction) error {
	h, err := f.EnqueueTransaction(tx)
	if err != nil {
		return err
	}
	state, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	if state == txn.RolledBack {
		return &TransactionError{ID: h.ID(), Kind: txn.KindOf(tx), cause: h.Err()}
	}
	return nil
}

// Trim compacts the store through the transaction pipeline and returns the
// id remapping. Every index is rebuilt under the new ids before Trim
// returns, and the records of completed transactions are released.
//
// If an index cannot be rebuilt it is dropped, and Trim returns the
// remapping of the committed trim together with an error wrapping
// ErrIndexMaintenance.
func (f *Fallen8) Trim(ctx context.Context) (store.Remapping, error) {
	start := time.Now()
	tx := &trimGraph{Trim: &txn.Trim{}, m: f.maint}
	if err := f.run(ctx, tx); err != nil {
		f.logger.LogTrim(ctx, 0, err)
		return store.Remapping{}, err
	}
	removed := tx.Remapping.Removed()
	f.metrics.RecordTrim(removed, time.Since(start))
	f.logger.LogTrim(ctx, removed, tx.failed)
	return tx.Remapping, tx.failed
}

// trimGraph collects the index rebuild failures of its own trim. Both run
// on the writer goroutine, so no other trim interleaves.
type trimGraph struct {
	*txn.Trim
	m      *maintainer
	failed error
}

func (t *trimGraph) TryExecute(ctx context.Context, s *store.Store) error {
	_ = t.m.takeFailed()
	if err := t.Trim.TryExecute(ctx, s); err != nil {
		return err
	}
	t.failed = t.m.takeFailed()
	return nil
}

// TabulaRasa empties the store through the transaction pipeline, resets the
// id allocator and drops every index.
func (f *Fallen8) TabulaRasa(ctx context.Context) error {
	return f.run(ctx, txn.Reset{})
}
