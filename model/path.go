package model

import (
	"strconv"
	"strings"
)

// PathElement is one hop of a path.
type PathElement struct {
	EdgeID         ElementID
	SourceVertexID ElementID
	TargetVertexID ElementID
	// Direction is Outgoing when the hop follows the edge from its source
	// to its target, Incoming when it walks the edge backwards.
	Direction Direction
	Weight    float64
}

// Path is a sequence of hops from a source to a target vertex.
type Path struct {
	Elements []PathElement
	Weight   float64
}

// Length returns the number of hops.
func (p Path) Length() int { return len(p.Elements) }

// Last returns the final hop.
func (p Path) Last() (PathElement, bool) {
	if len(p.Elements) == 0 {
		return PathElement{}, false
	}
	return p.Elements[len(p.Elements)-1], true
}

// Vertices returns the vertex ids visited by the path, source first.
func (p Path) Vertices() []ElementID {
	if len(p.Elements) == 0 {
		return nil
	}
	out := make([]ElementID, 0, len(p.Elements)+1)
	out = append(out, p.Elements[0].SourceVertexID)
	for _, e := range p.Elements {
		out = append(out, e.TargetVertexID)
	}
	return out
}

func (p Path) String() string {
	var b strings.Builder
	for i, v := range p.Vertices() {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}
