package fallen8

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/persistence"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// Dump returns the live elements of the current snapshot in id order
// together with the id counter. The elements are shared with the snapshot
// and must not be modified.
func (f *Fallen8) Dump() ([]model.Element, model.ElementID) {
	return f.store.Dump()
}

// Load replaces the graph with elems through the transaction pipeline.
// Every index is dropped. Inconsistent input leaves the engine unchanged.
func (f *Fallen8) Load(ctx context.Context, elems []model.Element, nextID model.ElementID) error {
	return f.run(ctx, &loadDocument{f: f, elems: elems, nextID: nextID})
}

// Save captures the graph and its indices between two transactions and
// writes them as a new savegame. It returns the savegame name.
func (f *Fallen8) Save(ctx context.Context, m *persistence.Manager) (string, error) {
	doc, err := f.capture(ctx)
	if err != nil {
		f.logger.LogSave(ctx, "", 0, err)
		return "", err
	}
	name, err := m.Save(ctx, doc)
	f.logger.LogSave(ctx, name, len(doc.Elements), err)
	return name, err
}

// Open replaces the graph and the indices with the savegame name, or with
// the current savegame if name is empty.
func (f *Fallen8) Open(ctx context.Context, m *persistence.Manager, name string) (persistence.Info, error) {
	if name == "" {
		var err error
		if name, err = m.Current(ctx); err != nil {
			f.logger.LogLoad(ctx, name, 0, err)
			return persistence.Info{}, err
		}
	}
	doc, info, err := m.LoadNamed(ctx, name)
	if err == nil {
		err = f.restore(ctx, doc)
	}
	if err != nil {
		f.logger.LogLoad(ctx, name, 0, err)
		return info, err
	}
	f.logger.LogLoad(ctx, name, len(doc.Elements), nil)
	return info, nil
}

// Export writes the graph and its indices to w as a single savegame.
func (f *Fallen8) Export(ctx context.Context, w io.Writer, opts ...persistence.Option) error {
	doc, err := f.capture(ctx)
	if err != nil {
		return err
	}
	return persistence.Encode(ctx, w, doc, f.withController(opts)...)
}

// Import replaces the graph and the indices with the savegame read from r.
func (f *Fallen8) Import(ctx context.Context, r io.Reader, opts ...persistence.Option) (persistence.Info, error) {
	doc, info, err := persistence.Decode(ctx, r, f.withController(opts)...)
	if err != nil {
		return info, err
	}
	return info, f.restore(ctx, doc)
}

func (f *Fallen8) withController(opts []persistence.Option) []persistence.Option {
	if f.opts.controller == nil {
		return opts
	}
	return append([]persistence.Option{persistence.WithController(f.opts.controller)}, opts...)
}

func (f *Fallen8) capture(ctx context.Context) (*persistence.Document, error) {
	tx := &captureDocument{f: f}
	if err := f.run(ctx, tx); err != nil {
		return nil, err
	}
	return tx.doc, nil
}

func (f *Fallen8) restore(ctx context.Context, doc *persistence.Document) error {
	elems, err := doc.Graph()
	if err != nil {
		return err
	}
	return f.run(ctx, &loadDocument{f: f, elems: elems, nextID: doc.NextID, indices: doc.Indices})
}

// captureDocument snapshots the store and the indices on the writer
// goroutine, so no queued transaction interleaves with it.
type captureDocument struct {
	f   *Fallen8
	doc *persistence.Document
}

func (*captureDocument) Kind() string { return "capture" }

func (t *captureDocument) TryExecute(_ context.Context, s *store.Store) error {
	elems, nextID := s.Dump()
	doc := persistence.NewDocument(elems, nextID)

	entries, err := t.f.indices.all()
	if err != nil {
		return err
	}
	for _, e := range entries {
		var kvs []index.KeyValues
		if err := t.f.opts.maintenance.do(func() (err error) {
			kvs, err = e.idx.GetKeyValues()
			return err
		}); err != nil {
			return fmt.Errorf("index %q: %w", e.name, err)
		}
		rec := persistence.IndexRecord{
			Name:    e.name,
			Kind:    e.kind,
			Options: maps.Clone(map[string]string(e.opts)),
			Entries: make([]persistence.IndexEntry, 0, len(kvs)),
		}
		for _, kv := range kvs {
			rec.Entries = append(rec.Entries, persistence.IndexEntry{Key: kv.Key, IDs: kv.Values})
		}
		doc.Indices = append(doc.Indices, rec)
	}
	t.doc = doc
	return nil
}

func (t *captureDocument) Rollback(context.Context, *store.Store) { t.doc = nil }

// loadDocument replaces the store content and the index registry. Indices
// are built before the store is touched, so a bad index record fails the
// transaction without any effect.
type loadDocument struct {
	f       *Fallen8
	elems   []model.Element
	nextID  model.ElementID
	indices []persistence.IndexRecord
}

func (*loadDocument) Kind() string { return "load" }

func (t *loadDocument) TryExecute(_ context.Context, s *store.Store) error {
	entries := make(map[string]*indexEntry, len(t.indices))
	for _, rec := range t.indices {
		if _, dup := entries[rec.Name]; dup {
			return fmt.Errorf("%w: %q", ErrIndexExists, rec.Name)
		}
		opts := index.Options(maps.Clone(rec.Options))
		idx, err := index.New(rec.Kind, opts)
		if err != nil {
			return fmt.Errorf("index %q: %w", rec.Name, translateError(err))
		}
		for _, en := range rec.Entries {
			for _, id := range en.IDs {
				if id < 0 || id >= t.nextID {
					return fmt.Errorf("index %q: element id %d outside [0, %d)", rec.Name, id, t.nextID)
				}
				if err := idx.AddOrUpdate(en.Key, id); err != nil {
					return fmt.Errorf("index %q: %w", rec.Name, err)
				}
			}
		}
		entries[rec.Name] = &indexEntry{name: rec.Name, kind: rec.Kind, opts: opts, idx: idx}
	}

	// The registry stays locked while the store is replaced, so a rejected
	// document leaves both untouched and no reader sees a mix of the two.
	r := t.f.indices
	if err := t.f.opts.maintenance.do(r.guard.TryLock); err != nil {
		return err
	}
	defer r.guard.Unlock()

	t.f.maint.suspend(true)
	err := s.Load(t.elems, t.nextID)
	t.f.maint.suspend(false)
	if err != nil {
		return err
	}
	clear(r.entries)
	maps.Copy(r.entries, entries)
	return nil
}

// Rollback is a no-op. Index records are checked and the registry is
// locked before the store is replaced.
func (*loadDocument) Rollback(context.Context, *store.Store) {}
