package index

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/cosh/fallen-8-core-sub000/model"
)

type posting struct {
	key model.Value
	ids *roaring.Bitmap
}

// postings is the unguarded key to id-set table shared by the exact and
// range indices. Keys are hashed by model.Value.Key so that equal values of
// different numeric kinds collide.
type postings struct {
	m      map[string]*posting
	values int
}

func newPostings() postings {
	return postings{m: make(map[string]*posting)}
}

// add reports whether key is new.
func (p *postings) add(key model.Value, id model.ElementID) bool {
	k := key.Key()
	e, ok := p.m[k]
	if !ok {
		e = &posting{key: key, ids: roaring.New()}
		p.m[k] = e
	}
	if e.ids.CheckedAdd(uint32(id)) {
		p.values++
	}
	return !ok
}

func (p *postings) removeKey(key model.Value) bool {
	k := key.Key()
	e, ok := p.m[k]
	if !ok {
		return false
	}
	p.values -= int(e.ids.GetCardinality())
	delete(p.m, k)
	return true
}

// removeValue drops id from every key and returns the keys left empty,
// which are dropped too.
func (p *postings) removeValue(id model.ElementID) []model.Value {
	var dropped []model.Value
	for k, e := range p.m {
		if !e.ids.CheckedRemove(uint32(id)) {
			continue
		}
		p.values--
		if e.ids.IsEmpty() {
			delete(p.m, k)
			dropped = append(dropped, e.key)
		}
	}
	return dropped
}

func (p *postings) wipe() {
	clear(p.m)
	p.values = 0
}

func (p *postings) get(key model.Value) ([]model.ElementID, bool) {
	e, ok := p.m[key.Key()]
	if !ok {
		return nil, false
	}
	return toIDs(e.ids), true
}

func (p *postings) keys() []model.Value {
	out := make([]model.Value, 0, len(p.m))
	for _, e := range p.m {
		out = append(out, e.key)
	}
	sortKeys(out)
	return out
}

func (p *postings) keyValues() []KeyValues {
	out := make([]KeyValues, 0, len(p.m))
	for _, key := range p.keys() {
		out = append(out, KeyValues{Key: key, Values: toIDs(p.m[key.Key()].ids)})
	}
	return out
}

// collect unions the id sets of every key accepted by match.
func (p *postings) collect(match func(key model.Value) bool) []model.ElementID {
	acc := roaring.New()
	for _, e := range p.m {
		if match(e.key) {
			acc.Or(e.ids)
		}
	}
	return toIDs(acc)
}

func toIDs(b *roaring.Bitmap) []model.ElementID {
	out := make([]model.ElementID, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, model.ElementID(it.Next()))
	}
	return out
}
