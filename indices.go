package fallen8

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
	"github.com/cosh/fallen-8-core-sub000/store"
)

type indexEntry struct {
	name string
	kind string
	opts index.Options
	idx  index.Index
}

// indexRegistry maps names to indices behind a fail-fast guard.
type indexRegistry struct {
	guard   *resource.Guard
	entries map[string]*indexEntry
}

func newIndexRegistry() *indexRegistry {
	return &indexRegistry{
		guard:   resource.NewGuard("index registry"),
		entries: make(map[string]*indexEntry),
	}
}

func (r *indexRegistry) get(name string) (e *indexEntry, ok bool, err error) {
	err = r.guard.Read(func() error {
		e, ok = r.entries[name]
		return nil
	})
	return e, ok, err
}

// all returns the entries ordered by name.
func (r *indexRegistry) all() (out []*indexEntry, err error) {
	err = r.guard.Read(func() error {
		out = slices.Collect(maps.Values(r.entries))
		return nil
	})
	slices.SortFunc(out, func(a, b *indexEntry) int { return strings.Compare(a.name, b.name) })
	return out, err
}

// CreateIndex creates an index of the registered kind under name.
func (f *Fallen8) CreateIndex(name, kind string, opts index.Options) (index.Index, error) {
	idx, err := index.New(kind, opts)
	if err != nil {
		return nil, translateError(err)
	}
	err = f.indices.guard.Write(func() error {
		if _, ok := f.indices.entries[name]; ok {
			return fmt.Errorf("%w: %q", ErrIndexExists, name)
		}
		f.indices.entries[name] = &indexEntry{name: name, kind: kind, opts: maps.Clone(opts), idx: idx}
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.logger.WithIndex(name).Debug("index created", "kind", kind)
	return idx, nil
}

// DeleteIndex drops the index name. It reports false if there was none.
func (f *Fallen8) DeleteIndex(name string) (bool, error) {
	var ok bool
	err := f.indices.guard.Write(func() error {
		_, ok = f.indices.entries[name]
		delete(f.indices.entries, name)
		return nil
	})
	if err == nil && ok {
		f.logger.WithIndex(name).Debug("index deleted")
	}
	return ok, err
}

// GetIndex returns the index registered under name.
func (f *Fallen8) GetIndex(name string) (index.Index, bool, error) {
	e, ok, err := f.indices.get(name)
	if err != nil || !ok {
		return nil, false, err
	}
	return e.idx, true, nil
}

// IndexNames returns the names of all indices in sorted order.
func (f *Fallen8) IndexNames() ([]string, error) {
	entries, err := f.indices.all()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

func (p retryPolicy) do(fn func() error) error {
	backoff := p.backoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, resource.ErrCollision) || attempt >= p.attempts {
			return err
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, p.max)
	}
}

// maintainer keeps the indices consistent with the store. Its callbacks run
// on the writer goroutine, so index maintenance completes before the
// mutation that caused it returns.
type maintainer struct {
	f *Fallen8

	mu     sync.Mutex
	failed error // rebuild failures since the last takeFailed

	suspended bool // writer goroutine only
}

var _ store.Listener = (*maintainer)(nil)

func (m *maintainer) entries() ([]*indexEntry, error) {
	var out []*indexEntry
	err := m.f.opts.maintenance.do(func() (err error) {
		out, err = m.f.indices.all()
		return err
	})
	return out, err
}

// ElementRemoved implements store.Listener. A value left behind by a failed
// removal is skipped when scans resolve ids and dropped by the next trim.
func (m *maintainer) ElementRemoved(id model.ElementID) {
	entries, err := m.entries()
	if err != nil {
		m.f.logger.Error("index maintenance: registry unavailable", "error", err)
		return
	}
	for _, e := range entries {
		if err := m.f.opts.maintenance.do(func() error { return e.idx.RemoveValue(id) }); err != nil {
			m.f.logger.WithIndex(e.name).Error("index maintenance: remove value failed",
				"element_id", int(id),
				"error", err)
		}
	}
}

// Trimmed implements store.Listener. Every index is rebuilt in parallel
// under the new ids. An index that cannot be rebuilt is dropped from the
// registry and the failure is kept for takeFailed.
func (m *maintainer) Trimmed(remap store.Remapping) {
	if remap.Identity() {
		return
	}
	entries, err := m.entries()
	if err != nil {
		m.f.logger.Error("index maintenance: registry unavailable", "error", err)
		m.fail(fmt.Errorf("%w: %w", ErrIndexMaintenance, err))
		return
	}

	errs := make([]error, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			errs[i] = m.rebuild(e, remap)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		e := entries[i]
		m.f.logger.WithIndex(e.name).Error("index maintenance: rebuild failed, dropping index", "error", err)
		if derr := m.drop(e); derr != nil {
			err = errors.Join(err, derr)
		}
		failed = append(failed, fmt.Errorf("index %q: %w", e.name, err))
	}
	if len(failed) > 0 {
		m.fail(fmt.Errorf("%w: %w", ErrIndexMaintenance, errors.Join(failed...)))
	}
}

// rebuild computes the remapped content from a copy of the index before
// touching it. The copy is complete when the index is wiped, so only a
// collision while refilling can leave the index partially built.
func (m *maintainer) rebuild(e *indexEntry, remap store.Remapping) error {
	retry := m.f.opts.maintenance.do

	var kvs []index.KeyValues
	if err := retry(func() (err error) {
		kvs, err = e.idx.GetKeyValues()
		return err
	}); err != nil {
		return err
	}
	remapped := make([]index.KeyValues, 0, len(kvs))
	for _, kv := range kvs {
		ids := make([]model.ElementID, 0, len(kv.Values))
		for _, id := range kv.Values {
			if newID, ok := remap.Lookup(id); ok {
				ids = append(ids, newID)
			}
		}
		if len(ids) > 0 {
			remapped = append(remapped, index.KeyValues{Key: kv.Key, Values: ids})
		}
	}

	if err := retry(e.idx.Wipe); err != nil {
		return err
	}
	for _, kv := range remapped {
		for _, id := range kv.Values {
			if err := retry(func() error { return e.idx.AddOrUpdate(kv.Key, id) }); err != nil {
				return err
			}
		}
	}
	return nil
}

// drop unregisters e unless the name has been taken over by another index.
func (m *maintainer) drop(e *indexEntry) error {
	r := m.f.indices
	return m.f.opts.maintenance.do(func() error {
		return r.guard.Write(func() error {
			if r.entries[e.name] == e {
				delete(r.entries, e.name)
			}
			return nil
		})
	})
}

func (m *maintainer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = errors.Join(m.failed, err)
}

// takeFailed returns and clears the recorded rebuild failures.
func (m *maintainer) takeFailed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.failed
	m.failed = nil
	return err
}

// Reset implements store.Listener by dropping every index. It does nothing
// while suspended by a load that replaces the registry itself.
func (m *maintainer) Reset() {
	if m.suspended {
		return
	}
	r := m.f.indices
	err := m.f.opts.maintenance.do(func() error {
		return r.guard.Write(func() error {
			clear(r.entries)
			return nil
		})
	})
	if err != nil {
		m.f.logger.Error("index maintenance: drop indices failed", "error", err)
	}
}

func (m *maintainer) suspend(on bool) { m.suspended = on }
