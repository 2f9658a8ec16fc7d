package model

import (
	"fmt"
	"maps"
	"slices"
)

// ElementID identifies a vertex or edge inside a store.
//
// Ids are dense: they run from 0 to the store's next id minus one, with
// removed elements kept as tombstones until the next trim renumbers them.
type ElementID int32

// InvalidID is never assigned to an element.
const InvalidID ElementID = -1

// Direction names the side of a vertex an edge is attached to.
type Direction uint8

const (
	// Outgoing edges leave the vertex.
	Outgoing Direction = iota
	// Incoming edges arrive at the vertex.
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Incoming {
		return Outgoing
	}
	return Incoming
}

// Element is implemented by *Vertex and *Edge.
type Element interface {
	// Header returns the fields shared by every element.
	Header() *GraphElement
	// IsVertex reports whether the element is a vertex.
	IsVertex() bool
	// Clone returns a shallow copy that may be modified before publication.
	Clone() Element
}

// GraphElement holds the fields common to vertices and edges.
type GraphElement struct {
	ID ElementID
	// CreationDate is the creation time in seconds since the Unix epoch.
	CreationDate uint32
	// ModificationDelta is the number of seconds between creation and the
	// last modification.
	ModificationDelta uint32
	// Label is optional; the empty string means "no label".
	Label      string
	Properties Properties
	// Removed marks a tombstone.
	Removed bool
}

// Header implements Element.
func (g *GraphElement) Header() *GraphElement { return g }

// Touch records a modification at unix time now.
func (g *GraphElement) Touch(now uint32) {
	if now > g.CreationDate {
		g.ModificationDelta = now - g.CreationDate
	}
}

// Property returns the value stored under key.
func (g *GraphElement) Property(key string) (Value, bool) {
	return g.Properties.Get(key)
}

// Vertex is a graph element with labelled edge lists in both directions.
type Vertex struct {
	GraphElement
	OutEdges EdgeMap
	InEdges  EdgeMap
}

// IsVertex implements Element.
func (v *Vertex) IsVertex() bool { return true }

// Clone implements Element.
func (v *Vertex) Clone() Element {
	c := *v
	return &c
}

// Edges returns the edge map for direction d.
func (v *Vertex) Edges(d Direction) EdgeMap {
	if d == Incoming {
		return v.InEdges
	}
	return v.OutEdges
}

// Degree returns the number of incident edges in direction d.
func (v *Vertex) Degree(d Direction) int {
	return v.Edges(d).Count()
}

func (v *Vertex) String() string {
	return fmt.Sprintf("V(%d %q out=%d in=%d)", v.ID, v.Label, v.Degree(Outgoing), v.Degree(Incoming))
}

// Edge is a graph element connecting a source and a target vertex.
type Edge struct {
	GraphElement
	SourceID ElementID
	TargetID ElementID
}

// IsVertex implements Element.
func (e *Edge) IsVertex() bool { return false }

// Clone implements Element.
func (e *Edge) Clone() Element {
	c := *e
	return &c
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id ElementID) ElementID {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

func (e *Edge) String() string {
	return fmt.Sprintf("E(%d %q %d->%d)", e.ID, e.Label, e.SourceID, e.TargetID)
}

// EdgeMap maps an edge label to the ordered ids of the edges carrying it.
//
// An EdgeMap is never mutated after publication; With and Without return
// copies. A nil map is the valid empty value.
type EdgeMap map[string][]ElementID

// Count returns the total number of edges across labels.
func (m EdgeMap) Count() int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

// Labels returns the labels in sorted order.
func (m EdgeMap) Labels() []string {
	return slices.Sorted(maps.Keys(m))
}

// Contains reports whether id is listed under label.
func (m EdgeMap) Contains(label string, id ElementID) bool {
	return slices.Contains(m[label], id)
}

// With returns a copy of m with id appended under label.
func (m EdgeMap) With(label string, id ElementID) EdgeMap {
	out := make(EdgeMap, len(m)+1)
	maps.Copy(out, m)
	ids := make([]ElementID, len(m[label]), len(m[label])+1)
	copy(ids, m[label])
	out[label] = append(ids, id)
	return out
}

// Without returns a copy of m with id removed from label. Empty label lists
// are dropped. If id is absent m is returned unchanged.
func (m EdgeMap) Without(label string, id ElementID) EdgeMap {
	ids := m[label]
	idx := slices.Index(ids, id)
	if idx < 0 {
		return m
	}
	out := make(EdgeMap, len(m))
	maps.Copy(out, m)
	if len(ids) == 1 {
		delete(out, label)
	} else {
		out[label] = slices.Delete(slices.Clone(ids), idx, idx+1)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Compact drops empty label lists and trims slice capacity.
func (m EdgeMap) Compact() EdgeMap {
	if len(m) == 0 {
		return nil
	}
	out := make(EdgeMap, len(m))
	for label, ids := range m {
		if len(ids) == 0 {
			continue
		}
		out[label] = slices.Clip(slices.Clone(ids))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Remap returns a copy of m with every id translated by fn. Ids for which
// fn reports false are dropped; a label can be left with an empty list.
func (m EdgeMap) Remap(fn func(ElementID) (ElementID, bool)) EdgeMap {
	if len(m) == 0 {
		return nil
	}
	out := make(EdgeMap, len(m))
	for label, ids := range m {
		mapped := make([]ElementID, 0, len(ids))
		for _, id := range ids {
			if n, ok := fn(id); ok {
				mapped = append(mapped, n)
			}
		}
		out[label] = mapped
	}
	return out
}
