package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperties_Immutable(t *testing.T) {
	src := map[string]Value{"name": String("alice")}
	p := NewProperties(src)
	src["name"] = String("mallory")

	v, ok := p.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "alice", v.StringValue())

	q := p.With("age", Int(30))
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"age", "name"}, q.Keys())

	r := q.Without("name")
	assert.True(t, q.Has("name"))
	assert.False(t, r.Has("name"))
	assert.Equal(t, q, q.Without("missing"))
}

func TestEdgeMap_CopyOnWrite(t *testing.T) {
	var m EdgeMap
	assert.Equal(t, 0, m.Count())

	m1 := m.With("knows", 1)
	m2 := m1.With("knows", 2)
	m3 := m2.With("likes", 3)

	assert.Equal(t, []ElementID{1}, m1["knows"])
	assert.Equal(t, []ElementID{1, 2}, m2["knows"])
	assert.Equal(t, 3, m3.Count())
	assert.Equal(t, []string{"knows", "likes"}, m3.Labels())

	m4 := m3.Without("likes", 3)
	assert.NotContains(t, m4, "likes")
	assert.True(t, m3.Contains("likes", 3))

	assert.Nil(t, m1.Without("knows", 1))
}

func TestEdgeMap_Remap(t *testing.T) {
	m := EdgeMap{"a": {4, 6}, "b": {5}}
	out := m.Remap(func(id ElementID) (ElementID, bool) {
		if id == 5 {
			return 0, false
		}
		return id - 4, true
	})
	assert.Equal(t, EdgeMap{"a": {0, 2}, "b": {}}, out)

	c := out.Compact()
	assert.Equal(t, EdgeMap{"a": {0, 2}}, c)
	assert.Equal(t, 2, cap(c["a"]))
	assert.Nil(t, EdgeMap{"b": {}}.Compact())
}

func TestElement_Clone(t *testing.T) {
	v := &Vertex{GraphElement: GraphElement{ID: 1, Label: "person", CreationDate: 10}}
	c := v.Clone().(*Vertex)
	c.Label = "robot"
	c.Touch(15)

	assert.Equal(t, "person", v.Label)
	assert.Equal(t, uint32(0), v.ModificationDelta)
	assert.Equal(t, uint32(5), c.ModificationDelta)
	assert.True(t, v.IsVertex())

	e := &Edge{GraphElement: GraphElement{ID: 2}, SourceID: 1, TargetID: 3}
	assert.False(t, e.IsVertex())
	assert.Equal(t, ElementID(3), e.Other(1))
	assert.Equal(t, ElementID(1), e.Other(3))
}

func TestPath_Vertices(t *testing.T) {
	p := Path{Elements: []PathElement{
		{EdgeID: 10, SourceVertexID: 1, TargetVertexID: 2},
		{EdgeID: 11, SourceVertexID: 2, TargetVertexID: 3},
	}}
	assert.Equal(t, []ElementID{1, 2, 3}, p.Vertices())
	assert.Equal(t, 2, p.Length())
	assert.Equal(t, "1 -> 2 -> 3", p.String())
}
