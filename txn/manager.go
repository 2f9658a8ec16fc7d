package txn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosh/fallen-8-core-sub000/resource"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// Observer is called by the worker after every transaction.
type Observer func(h *Handle, elapsed time.Duration)

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	controller *resource.Controller
	observers  []Observer
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithController throttles the worker with the controller's transaction
// limiter.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithObserver registers fn to be told about every completed transaction.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Manager owns the transaction queue and its worker.
type Manager struct {
	store *store.Store
	opts  options

	mu      sync.Mutex
	queue   []*Handle
	records map[string]*Handle
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// New starts a manager and its worker for s.
func New(s *store.Store, opts ...Option) *Manager {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		store:   s,
		opts:    o,
		records: make(map[string]*Handle),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.loop()
	return m
}

// Enqueue appends tx to the queue and returns its handle.
func (m *Manager) Enqueue(tx Transaction) (*Handle, error) {
	h := newHandle(uuid.NewString(), tx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.queue = append(m.queue, h)
	m.records[h.id] = h
	select {
	case m.wake <- struct{}{}:
	default:
	}
	m.mu.Unlock()
	return h, nil
}

// State returns the state of the transaction id.
func (m *Manager) State(id string) State {
	m.mu.Lock()
	h, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return NotExist
	}
	return h.State()
}

// Pending returns the number of transactions not yet terminal.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.records {
		if !h.State().Terminal() {
			n++
		}
	}
	return n
}

// Close stops accepting transactions, lets the worker drain the queue and
// waits for it to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.wake)
	}
	m.mu.Unlock()
	<-m.done
	return nil
}

// next pops the head of the queue, waiting for one if needed. It returns
// nil once the manager is closed and the queue is empty.
func (m *Manager) next() *Handle {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			h := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return h
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil
		}
		<-m.wake
	}
}

func (m *Manager) loop() {
	defer close(m.done)
	for h := m.next(); h != nil; h = m.next() {
		m.run(h)
	}
}

// run executes one transaction to a terminal state.
func (m *Manager) run(h *Handle) {
	ctx := context.Background()
	if err := m.opts.controller.WaitTransaction(ctx); err != nil {
		m.opts.logger.Warn("transaction limiter", "error", err)
	}

	start := time.Now()
	kind := KindOf(h.tx)
	err := execute(ctx, h.tx, m.store)
	if err != nil {
		rollback(ctx, h.tx, m.store, m.opts.logger)
		h.complete(RolledBack, err)
		m.opts.logger.Warn("transaction rolled back",
			"transaction_id", h.id,
			"kind", kind,
			"error", err)
	} else {
		// Earlier records are released before this one turns terminal, so
		// it survives until the next release.
		if r, ok := h.tx.(releaser); ok && r.releasesRecords() {
			m.release()
		}
		h.complete(Finished, nil)
		m.opts.logger.Debug("transaction finished",
			"transaction_id", h.id,
			"kind", kind,
			"elapsed", time.Since(start))
	}

	elapsed := time.Since(start)
	for _, fn := range m.opts.observers {
		fn(h, elapsed)
	}
}

// release forgets every terminal record.
func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.records {
		if h.State().Terminal() {
			delete(m.records, id)
		}
	}
}

func execute(ctx context.Context, tx Transaction, s *store.Store) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transaction panicked: %v", r)
		}
	}()
	return tx.TryExecute(ctx, s)
}

func rollback(ctx context.Context, tx Transaction, s *store.Store, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("rollback panicked", "kind", KindOf(tx), "panic", r)
		}
	}()
	tx.Rollback(ctx, s)
}
