package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// Op names the kind of change an Interceptor is asked to approve.
type Op uint8

const (
	// OpCreate is a newly allocated element.
	OpCreate Op = iota
	// OpUpdate is a modified copy of an existing element.
	OpUpdate
	// OpRemove is a tombstone.
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Interceptor is called for every element a mutation is about to write.
// Returning an error aborts the whole mutation; nothing is published.
type Interceptor func(op Op, elem model.Element) error

// Listener is notified after a mutation has been published. Callbacks run
// on the writer goroutine while the writer lock is held; they must not
// mutate the store.
type Listener interface {
	// ElementRemoved is called once per tombstoned element.
	ElementRemoved(id model.ElementID)
	// Trimmed is called after the store has been compacted.
	Trimmed(m Remapping)
	// Reset is called after TabulaRasa.
	Reset()
}

// VertexDefinition describes a vertex to create.
type VertexDefinition struct {
	// CreationDate in unix seconds. Zero means now.
	CreationDate uint32
	Label        string
	Properties   model.Properties
}

// EdgeDefinition describes an edge to create.
type EdgeDefinition struct {
	SourceID model.ElementID
	TargetID model.ElementID
	Label    string
	// CreationDate in unix seconds. Zero means now.
	CreationDate uint32
	Properties   model.Properties
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	interceptor Interceptor
	listeners   []Listener
	controller  *resource.Controller
	clock       func() uint32
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInterceptor installs fn as the write interceptor.
func WithInterceptor(fn Interceptor) Option {
	return func(o *options) {
		o.interceptor = fn
	}
}

// WithListener registers l for publication events. May be repeated.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

// WithController sets the resource controller used by GraphScan.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithClock overrides the time source for creation dates and
// modification deltas.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = func() uint32 { return uint32(now().Unix()) }
		}
	}
}

// Store is the canonical element sequence.
//
// Reads go to the current snapshot and never block. Mutations are
// serialized by an internal writer lock, build a private draft and publish
// it with a single atomic swap; a failed mutation leaves the published
// snapshot untouched.
type Store struct {
	opts options

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		clock:  func() uint32 { return uint32(time.Now().Unix()) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{opts: o}
	s.current.Store(emptySnapshot(0))
	return s
}

// Snapshot returns the currently published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// TryGetElement returns the element stored under id, tombstones included.
func (s *Store) TryGetElement(id model.ElementID) (model.Element, bool) {
	return s.Snapshot().TryGetElement(id)
}

// TryGetVertex returns the vertex stored under id.
func (s *Store) TryGetVertex(id model.ElementID) (*model.Vertex, bool) {
	return s.Snapshot().TryGetVertex(id)
}

// TryGetEdge returns the edge stored under id.
func (s *Store) TryGetEdge(id model.ElementID) (*model.Edge, bool) {
	return s.Snapshot().TryGetEdge(id)
}

// VertexCount returns the number of live vertices.
func (s *Store) VertexCount() int { return s.Snapshot().VertexCount() }

// EdgeCount returns the number of live edges.
func (s *Store) EdgeCount() int { return s.Snapshot().EdgeCount() }

// NextID returns the id the next created element will get.
func (s *Store) NextID() model.ElementID { return s.Snapshot().NextID() }

// update runs fn against a fresh draft and publishes it when fn reports a
// change. Any error discards the draft.
func (s *Store) update(fn func(d *draft) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.current.Load()
	d := s.newDraft(base)
	changed, err := fn(d)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			s.opts.logger.Error("mutation discarded", "error", err)
		}
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.current.Store(d.publish(base.version + 1))
	for _, id := range d.removed {
		for _, l := range s.opts.listeners {
			l.ElementRemoved(id)
		}
	}
	return true, nil
}

func (d *draft) creationDate(date uint32) uint32 {
	if date == 0 {
		return d.now
	}
	return date
}

// CreateVertex creates a vertex.
func (s *Store) CreateVertex(def VertexDefinition) (*model.Vertex, error) {
	var v *model.Vertex
	_, err := s.update(func(d *draft) (bool, error) {
		def.CreationDate = d.creationDate(def.CreationDate)
		var err error
		v, err = d.createVertex(def)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVertices creates all vertices or none. Ids are consecutive in
// definition order.
func (s *Store) CreateVertices(defs []VertexDefinition) ([]*model.Vertex, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]*model.Vertex, 0, len(defs))
	_, err := s.update(func(d *draft) (bool, error) {
		for _, def := range defs {
			def.CreationDate = d.creationDate(def.CreationDate)
			v, err := d.createVertex(def)
			if err != nil {
				return false, err
			}
			out = append(out, v)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEdge creates an edge between two live vertices. It reports false
// without mutating anything when either endpoint is missing or removed.
func (s *Store) CreateEdge(def EdgeDefinition) (*model.Edge, bool, error) {
	var e *model.Edge
	ok, err := s.update(func(d *draft) (bool, error) {
		def.CreationDate = d.creationDate(def.CreationDate)
		var (
			created bool
			err     error
		)
		e, created, err = d.createEdge(def)
		return created, err
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return e, true, nil
}

// CreateEdges creates all edges or none. It reports false when any
// endpoint is missing or removed.
func (s *Store) CreateEdges(defs []EdgeDefinition) ([]*model.Edge, bool, error) {
	if len(defs) == 0 {
		return nil, true, nil
	}
	out := make([]*model.Edge, 0, len(defs))
	ok, err := s.update(func(d *draft) (bool, error) {
		for _, def := range defs {
			def.CreationDate = d.creationDate(def.CreationDate)
			e, created, err := d.createEdge(def)
			if err != nil || !created {
				return false, err
			}
			out = append(out, e)
		}
		return true, nil
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return out, true, nil
}

// modify replaces the live element id by a copy changed by fn. fn reports
// whether it changed anything.
func (s *Store) modify(id model.ElementID, fn func(h *model.GraphElement) bool) (bool, error) {
	return s.update(func(d *draft) (bool, error) {
		cur := d.get(id)
		if cur == nil || cur.Header().Removed {
			return false, nil
		}
		next := cur.Clone()
		if !fn(next.Header()) {
			return false, nil
		}
		next.Header().Touch(d.now)
		return true, d.put(OpUpdate, next)
	})
}

// AddProperty sets key on the live element id, replacing any prior value.
func (s *Store) AddProperty(id model.ElementID, key string, value model.Value) (bool, error) {
	return s.modify(id, func(h *model.GraphElement) bool {
		h.Properties = h.Properties.With(key, value)
		return true
	})
}

// RemoveProperty deletes key from the live element id. It reports false if
// the element or the key is absent.
func (s *Store) RemoveProperty(id model.ElementID, key string) (bool, error) {
	return s.modify(id, func(h *model.GraphElement) bool {
		if !h.Properties.Has(key) {
			return false
		}
		h.Properties = h.Properties.Without(key)
		return true
	})
}

// SetLabel changes the label of the live vertex id. Edge labels are fixed
// because they key the incident vertices' edge maps.
func (s *Store) SetLabel(id model.ElementID, label string) (bool, error) {
	if _, ok := s.TryGetVertex(id); !ok {
		return false, nil
	}
	return s.modify(id, func(h *model.GraphElement) bool {
		h.Label = label
		return true
	})
}

// RemoveElement tombstones the element id. A vertex takes all incident
// edges with it. It reports false when id is absent or already removed.
//
// If an invariant violation is detected midway the whole removal is
// discarded and an error wrapping ErrCorrupt is returned.
func (s *Store) RemoveElement(id model.ElementID) (bool, error) {
	return s.update(func(d *draft) (bool, error) {
		switch e := d.get(id).(type) {
		case *model.Vertex:
			if e.Removed {
				return false, nil
			}
			return true, d.removeVertex(e)
		case *model.Edge:
			if e.Removed {
				return false, nil
			}
			return true, d.removeEdge(e)
		default:
			return false, nil
		}
	})
}

// TabulaRasa discards every element and resets the id allocator.
func (s *Store) TabulaRasa() {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.current.Load()
	s.current.Store(emptySnapshot(base.version + 1))
	s.opts.logger.Debug("store reset", "discarded", int(base.nextID))
	for _, l := range s.opts.listeners {
		l.Reset()
	}
}
