package store

import (
	"fmt"

	"github.com/cosh/fallen-8-core-sub000/model"
)

// draft is the private working copy of a single mutation.
//
// The directory is copied up front; a chunk is copied the first time the
// draft writes into it. Nothing the draft does is visible until publish.
type draft struct {
	s      *Store
	base   *Snapshot
	chunks []*chunk
	owned  []bool

	nextID      model.ElementID
	vertexCount int
	edgeCount   int
	recount     bool
	now         uint32

	removed []model.ElementID
}

func (s *Store) newDraft(base *Snapshot) *draft {
	chunks := make([]*chunk, len(base.chunks))
	copy(chunks, base.chunks)
	return &draft{
		s:           s,
		base:        base,
		chunks:      chunks,
		owned:       make([]bool, len(chunks)),
		nextID:      base.nextID,
		vertexCount: base.vertexCount,
		edgeCount:   base.edgeCount,
		now:         s.opts.clock(),
	}
}

func (d *draft) get(id model.ElementID) model.Element {
	if id < 0 || id >= d.nextID {
		return nil
	}
	ci := int(id) >> chunkBits
	if ci >= len(d.chunks) || d.chunks[ci] == nil {
		return nil
	}
	return d.chunks[ci].elems[int(id)&chunkMask]
}

func (d *draft) vertex(id model.ElementID) (*model.Vertex, bool) {
	v, ok := d.get(id).(*model.Vertex)
	return v, ok
}

func (d *draft) edge(id model.ElementID) (*model.Edge, bool) {
	e, ok := d.get(id).(*model.Edge)
	return e, ok
}

// put stores elem in the slot named by its id after consulting the
// interceptor.
func (d *draft) put(op Op, elem model.Element) error {
	if fn := d.s.opts.interceptor; fn != nil {
		if err := fn(op, elem); err != nil {
			return fmt.Errorf("%w: %s of element %d: %w", ErrAborted, op, elem.Header().ID, err)
		}
	}

	id := int(elem.Header().ID)
	ci := id >> chunkBits
	for ci >= len(d.chunks) {
		d.chunks = append(d.chunks, nil)
		d.owned = append(d.owned, false)
	}
	if !d.owned[ci] {
		c := new(chunk)
		if d.chunks[ci] != nil {
			*c = *d.chunks[ci]
		}
		d.chunks[ci] = c
		d.owned[ci] = true
	}
	d.chunks[ci].elems[id&chunkMask] = elem
	return nil
}

// allocate assigns the next id to elem and stores it.
func (d *draft) allocate(elem model.Element) error {
	elem.Header().ID = d.nextID
	d.nextID++
	return d.put(OpCreate, elem)
}

func (d *draft) publish(version uint64) *Snapshot {
	snap := &Snapshot{
		chunks:      d.chunks,
		nextID:      d.nextID,
		vertexCount: d.vertexCount,
		edgeCount:   d.edgeCount,
		version:     version,
	}
	if d.recount {
		snap.vertexCount, snap.edgeCount = snap.count()
	}
	return snap
}

func (d *draft) createVertex(def VertexDefinition) (*model.Vertex, error) {
	v := &model.Vertex{GraphElement: model.GraphElement{
		CreationDate: def.CreationDate,
		Label:        def.Label,
		Properties:   def.Properties,
	}}
	if err := d.allocate(v); err != nil {
		return nil, err
	}
	d.vertexCount++
	return v, nil
}

// createEdge reports false when an endpoint is missing or tombstoned.
func (d *draft) createEdge(def EdgeDefinition) (*model.Edge, bool, error) {
	src, ok := d.vertex(def.SourceID)
	if !ok || src.Removed {
		return nil, false, nil
	}
	tgt, ok := d.vertex(def.TargetID)
	if !ok || tgt.Removed {
		return nil, false, nil
	}

	e := &model.Edge{
		GraphElement: model.GraphElement{
			CreationDate: def.CreationDate,
			Label:        def.Label,
			Properties:   def.Properties,
		},
		SourceID: def.SourceID,
		TargetID: def.TargetID,
	}
	if err := d.allocate(e); err != nil {
		return nil, false, err
	}
	if err := d.link(e); err != nil {
		return nil, false, err
	}
	d.edgeCount++
	return e, true, nil
}

// link adds e to the out-edges of its source and the in-edges of its
// target. Self-loops end up in both maps of the same vertex.
func (d *draft) link(e *model.Edge) error {
	src, ok := d.vertex(e.SourceID)
	if !ok {
		return fmt.Errorf("%w: edge %d has no source vertex %d", ErrCorrupt, e.ID, e.SourceID)
	}
	src = src.Clone().(*model.Vertex)
	src.OutEdges = src.OutEdges.With(e.Label, e.ID)
	if err := d.put(OpUpdate, src); err != nil {
		return err
	}

	tgt, ok := d.vertex(e.TargetID)
	if !ok {
		return fmt.Errorf("%w: edge %d has no target vertex %d", ErrCorrupt, e.ID, e.TargetID)
	}
	tgt = tgt.Clone().(*model.Vertex)
	tgt.InEdges = tgt.InEdges.With(e.Label, e.ID)
	return d.put(OpUpdate, tgt)
}

// unlink removes e from both endpoint maps.
func (d *draft) unlink(e *model.Edge) error {
	src, ok := d.vertex(e.SourceID)
	if !ok {
		return fmt.Errorf("%w: edge %d has no source vertex %d", ErrCorrupt, e.ID, e.SourceID)
	}
	if !src.OutEdges.Contains(e.Label, e.ID) {
		return fmt.Errorf("%w: edge %d missing from out-edges of vertex %d", ErrCorrupt, e.ID, src.ID)
	}
	src = src.Clone().(*model.Vertex)
	src.OutEdges = src.OutEdges.Without(e.Label, e.ID)
	if err := d.put(OpUpdate, src); err != nil {
		return err
	}

	tgt, ok := d.vertex(e.TargetID)
	if !ok {
		return fmt.Errorf("%w: edge %d has no target vertex %d", ErrCorrupt, e.ID, e.TargetID)
	}
	if !tgt.InEdges.Contains(e.Label, e.ID) {
		return fmt.Errorf("%w: edge %d missing from in-edges of vertex %d", ErrCorrupt, e.ID, tgt.ID)
	}
	tgt = tgt.Clone().(*model.Vertex)
	tgt.InEdges = tgt.InEdges.Without(e.Label, e.ID)
	return d.put(OpUpdate, tgt)
}

// removeEdge tombstones e and unlinks it from its endpoints.
func (d *draft) removeEdge(e *model.Edge) error {
	dead := e.Clone().(*model.Edge)
	dead.Removed = true
	dead.Touch(d.now)
	if err := d.put(OpRemove, dead); err != nil {
		return err
	}
	if err := d.unlink(e); err != nil {
		return err
	}
	d.edgeCount--
	d.removed = append(d.removed, e.ID)
	return nil
}

// removeVertex tombstones v and every incident edge. Counts are recomputed
// at publication because the number of removed edges is only known here.
func (d *draft) removeVertex(v *model.Vertex) error {
	dead := v.Clone().(*model.Vertex)
	dead.Removed = true
	dead.Touch(d.now)
	if err := d.put(OpRemove, dead); err != nil {
		return err
	}
	d.removed = append(d.removed, v.ID)

	seen := make(map[model.ElementID]struct{}, v.OutEdges.Count()+v.InEdges.Count())
	for _, edges := range []model.EdgeMap{v.OutEdges, v.InEdges} {
		for _, label := range edges.Labels() {
			for _, id := range edges[label] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}

				e, ok := d.edge(id)
				if !ok {
					return fmt.Errorf("%w: vertex %d lists unknown edge %d", ErrCorrupt, v.ID, id)
				}
				if e.Removed {
					return fmt.Errorf("%w: vertex %d lists removed edge %d", ErrCorrupt, v.ID, id)
				}
				if err := d.removeEdge(e); err != nil {
					return err
				}
			}
		}
	}

	// Every incident edge was unlinked above; the tombstone keeps no maps.
	cur, _ := d.vertex(v.ID)
	if cur.OutEdges != nil || cur.InEdges != nil {
		cleared := cur.Clone().(*model.Vertex)
		cleared.OutEdges = nil
		cleared.InEdges = nil
		if err := d.put(OpRemove, cleared); err != nil {
			return err
		}
	}
	d.recount = true
	return nil
}
