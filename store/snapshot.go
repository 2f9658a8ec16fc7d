package store

import (
	"iter"

	"github.com/cosh/fallen-8-core-sub000/model"
)

const (
	chunkBits = 12             // 4096 elements per chunk
	chunkSize = 1 << chunkBits // 4096
	chunkMask = chunkSize - 1
)

// chunk holds a page of element slots. Published chunks are never written.
type chunk struct {
	elems [chunkSize]model.Element
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	chunks      []*chunk
	nextID      model.ElementID
	vertexCount int
	edgeCount   int
	version     uint64
}

func emptySnapshot(version uint64) *Snapshot {
	return &Snapshot{version: version}
}

// Version increases with every published mutation.
func (s *Snapshot) Version() uint64 { return s.version }

// NextID returns the id the next created element will get. Every id below
// it has been allocated.
func (s *Snapshot) NextID() model.ElementID { return s.nextID }

// VertexCount returns the number of live vertices.
func (s *Snapshot) VertexCount() int { return s.vertexCount }

// EdgeCount returns the number of live edges.
func (s *Snapshot) EdgeCount() int { return s.edgeCount }

func (s *Snapshot) slot(id model.ElementID) model.Element {
	if id < 0 || id >= s.nextID {
		return nil
	}
	ci := int(id) >> chunkBits
	if ci >= len(s.chunks) || s.chunks[ci] == nil {
		return nil
	}
	return s.chunks[ci].elems[int(id)&chunkMask]
}

// TryGetElement returns the element stored under id. Tombstones are
// returned too; check Header().Removed.
func (s *Snapshot) TryGetElement(id model.ElementID) (model.Element, bool) {
	e := s.slot(id)
	return e, e != nil
}

// TryGetVertex returns the vertex stored under id.
func (s *Snapshot) TryGetVertex(id model.ElementID) (*model.Vertex, bool) {
	v, ok := s.slot(id).(*model.Vertex)
	return v, ok
}

// TryGetEdge returns the edge stored under id.
func (s *Snapshot) TryGetEdge(id model.ElementID) (*model.Edge, bool) {
	e, ok := s.slot(id).(*model.Edge)
	return e, ok
}

// Elements iterates over every present slot in id order, tombstones
// included.
func (s *Snapshot) Elements() iter.Seq[model.Element] {
	return func(yield func(model.Element) bool) {
		for id := model.ElementID(0); id < s.nextID; id++ {
			e := s.slot(id)
			if e == nil {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Live iterates over the elements that are not tombstoned.
func (s *Snapshot) Live() iter.Seq[model.Element] {
	return func(yield func(model.Element) bool) {
		for e := range s.Elements() {
			if e.Header().Removed {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Vertices iterates over the live vertices.
func (s *Snapshot) Vertices() iter.Seq[*model.Vertex] {
	return func(yield func(*model.Vertex) bool) {
		for e := range s.Live() {
			if v, ok := e.(*model.Vertex); ok && !yield(v) {
				return
			}
		}
	}
}

// Edges iterates over the live edges.
func (s *Snapshot) Edges() iter.Seq[*model.Edge] {
	return func(yield func(*model.Edge) bool) {
		for e := range s.Live() {
			if edge, ok := e.(*model.Edge); ok && !yield(edge) {
				return
			}
		}
	}
}

// Tombstones returns the number of removed elements still occupying a slot.
func (s *Snapshot) Tombstones() int {
	n := 0
	for e := range s.Elements() {
		if e.Header().Removed {
			n++
		}
	}
	return n
}

// count recomputes the live vertex and edge counts with a full scan.
func (s *Snapshot) count() (vertices, edges int) {
	for e := range s.Live() {
		if e.IsVertex() {
			vertices++
		} else {
			edges++
		}
	}
	return vertices, edges
}
