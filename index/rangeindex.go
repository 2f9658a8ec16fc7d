package index

import (
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// KindRange is the registry name of RangeIndex.
const KindRange = "RangeIndex"

// RangeIndex is a DictionaryIndex that also answers ordered queries.
// Ranges are evaluated by comparing the bound against every key, so keys of
// a kind that has no ordering with the bound never match.
type RangeIndex struct {
	DictionaryIndex
}

// NewRange creates an empty range index.
func NewRange() *RangeIndex {
	return &RangeIndex{DictionaryIndex: DictionaryIndex{
		guard: resource.NewGuard(KindRange),
		p:     newPostings(),
	}}
}

var _ RangeSearcher = (*RangeIndex)(nil)

// Kind implements Index.
func (idx *RangeIndex) Kind() string { return KindRange }

// LowerThan implements RangeSearcher.
func (idx *RangeIndex) LowerThan(key model.Value, inclusive bool) ([]model.ElementID, error) {
	return idx.scan(func(k model.Value) bool {
		c, ok := k.Compare(key)
		return ok && (c < 0 || inclusive && c == 0)
	})
}

// GreaterThan implements RangeSearcher.
func (idx *RangeIndex) GreaterThan(key model.Value, inclusive bool) ([]model.ElementID, error) {
	return idx.scan(func(k model.Value) bool {
		c, ok := k.Compare(key)
		return ok && (c > 0 || inclusive && c == 0)
	})
}

// Between implements RangeSearcher.
func (idx *RangeIndex) Between(lo, hi model.Value, includeLo, includeHi bool) ([]model.ElementID, error) {
	return idx.scan(func(k model.Value) bool {
		cl, ok := k.Compare(lo)
		if !ok || cl < 0 || cl == 0 && !includeLo {
			return false
		}
		ch, ok := k.Compare(hi)
		return ok && (ch < 0 || ch == 0 && includeHi)
	})
}

func (idx *RangeIndex) scan(match func(model.Value) bool) (ids []model.ElementID, err error) {
	err = idx.guard.Read(func() error {
		ids = idx.p.collect(match)
		return nil
	})
	return ids, err
}
