package persistence

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cosh/fallen-8-core-sub000/model"
)

// Document is the content of a savegame.
type Document struct {
	NextID   model.ElementID `json:"next_id"`
	Elements []ElementRecord `json:"elements"`
	Indices  []IndexRecord   `json:"indices,omitempty"`
}

// Element kinds of ElementRecord.
const (
	KindVertex = "vertex"
	KindEdge   = "edge"
)

// ElementRecord is the serialized form of one vertex or edge.
type ElementRecord struct {
	Kind              string           `json:"kind"`
	ID                model.ElementID  `json:"id"`
	CreationDate      uint32           `json:"created"`
	ModificationDelta uint32           `json:"modified,omitempty"`
	Label             string           `json:"label,omitempty"`
	Properties        model.Properties `json:"props"`
	Removed           bool             `json:"removed,omitempty"`

	// Edge endpoints.
	SourceID *model.ElementID `json:"source,omitempty"`
	TargetID *model.ElementID `json:"target,omitempty"`

	// Vertex edge lists, label to edge ids in insertion order.
	OutEdges map[string][]model.ElementID `json:"out,omitempty"`
	InEdges  map[string][]model.ElementID `json:"in,omitempty"`
}

// IndexRecord is the serialized content of one named index.
type IndexRecord struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Options map[string]string `json:"options,omitempty"`
	Entries []IndexEntry      `json:"entries"`
}

// IndexEntry is one key of an index and the elements stored under it.
type IndexEntry struct {
	Key model.Value       `json:"key"`
	IDs []model.ElementID `json:"ids"`
}

// RecordOf converts an element into its serialized form.
func RecordOf(elem model.Element) ElementRecord {
	h := elem.Header()
	r := ElementRecord{
		ID:                h.ID,
		CreationDate:      h.CreationDate,
		ModificationDelta: h.ModificationDelta,
		Label:             h.Label,
		Properties:        h.Properties,
		Removed:           h.Removed,
	}
	switch e := elem.(type) {
	case *model.Vertex:
		r.Kind = KindVertex
		r.OutEdges = edgeLists(e.OutEdges)
		r.InEdges = edgeLists(e.InEdges)
	case *model.Edge:
		r.Kind = KindEdge
		src, tgt := e.SourceID, e.TargetID
		r.SourceID, r.TargetID = &src, &tgt
	}
	return r
}

func edgeLists(m model.EdgeMap) map[string][]model.ElementID {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]model.ElementID, len(m))
	for label, ids := range m {
		out[label] = slices.Clone(ids)
	}
	return out
}

// Element converts the record back into an element.
func (r ElementRecord) Element() (model.Element, error) {
	h := model.GraphElement{
		ID:                r.ID,
		CreationDate:      r.CreationDate,
		ModificationDelta: r.ModificationDelta,
		Label:             r.Label,
		Properties:        r.Properties,
		Removed:           r.Removed,
	}
	switch r.Kind {
	case KindVertex:
		return &model.Vertex{
			GraphElement: h,
			OutEdges:     edgeMap(r.OutEdges),
			InEdges:      edgeMap(r.InEdges),
		}, nil
	case KindEdge:
		if r.SourceID == nil || r.TargetID == nil {
			return nil, fmt.Errorf("edge %d: missing endpoint", r.ID)
		}
		return &model.Edge{GraphElement: h, SourceID: *r.SourceID, TargetID: *r.TargetID}, nil
	default:
		return nil, fmt.Errorf("element %d: unknown kind %q", r.ID, r.Kind)
	}
}

func edgeMap(m map[string][]model.ElementID) model.EdgeMap {
	if len(m) == 0 {
		return nil
	}
	return model.EdgeMap(maps.Clone(m))
}

// NewDocument builds a document from dumped elements.
func NewDocument(elems []model.Element, nextID model.ElementID) *Document {
	doc := &Document{NextID: nextID, Elements: make([]ElementRecord, 0, len(elems))}
	for _, e := range elems {
		doc.Elements = append(doc.Elements, RecordOf(e))
	}
	return doc
}

// Graph converts the element records back into elements.
func (d *Document) Graph() ([]model.Element, error) {
	out := make([]model.Element, 0, len(d.Elements))
	for _, r := range d.Elements {
		e, err := r.Element()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
