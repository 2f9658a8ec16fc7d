package index

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// KindSpatial is the registry name of SpatialIndex.
const KindSpatial = "SpatialIndex"

// SpatialIndex keys elements by a point, a numeric array of fixed
// dimensionality. Every element has at most one point; adding a new point
// for an element moves it. Queries are linear scans.
type SpatialIndex struct {
	DictionaryIndex

	dims   int
	points map[model.ElementID][]float64
	keys   map[model.ElementID]model.Value
}

// NewSpatial creates a SpatialIndex for points of dims coordinates. A dims
// of 0 adopts the dimensionality of the first point added.
func NewSpatial(dims int) *SpatialIndex {
	return &SpatialIndex{
		DictionaryIndex: DictionaryIndex{
			guard: resource.NewGuard(KindSpatial),
			p:     newPostings(),
		},
		dims:   dims,
		points: make(map[model.ElementID][]float64),
		keys:   make(map[model.ElementID]model.Value),
	}
}

func newSpatialFromOptions(opts Options) (Index, error) {
	dims := 0
	if raw, ok := opts["dimensions"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: dimensions %q", ErrInvalidOption, raw)
		}
		dims = n
	}
	return NewSpatial(dims), nil
}

var _ SpatialSearcher = (*SpatialIndex)(nil)

// Kind implements Index.
func (idx *SpatialIndex) Kind() string { return KindSpatial }

// AddOrUpdate implements Index. Keys that are not points of the index
// dimensionality are ignored.
func (idx *SpatialIndex) AddOrUpdate(key model.Value, id model.ElementID) error {
	pt, ok := key.AsPoint()
	if !ok {
		return nil
	}
	return idx.guard.Write(func() error {
		if idx.dims == 0 {
			idx.dims = len(pt)
		}
		if len(pt) != idx.dims {
			return nil
		}
		idx.removeLocked(id)
		idx.p.add(key, id)
		idx.points[id] = pt
		idx.keys[id] = key
		return nil
	})
}

// TryRemoveKey implements Index.
func (idx *SpatialIndex) TryRemoveKey(key model.Value) (removed bool, err error) {
	err = idx.guard.Write(func() error {
		ids, ok := idx.p.get(key)
		if !ok {
			return nil
		}
		for _, id := range ids {
			delete(idx.points, id)
			delete(idx.keys, id)
		}
		removed = idx.p.removeKey(key)
		return nil
	})
	return removed, err
}

// RemoveValue implements Index.
func (idx *SpatialIndex) RemoveValue(id model.ElementID) error {
	return idx.guard.Write(func() error {
		idx.removeLocked(id)
		return nil
	})
}

func (idx *SpatialIndex) removeLocked(id model.ElementID) {
	key, ok := idx.keys[id]
	if !ok {
		return
	}
	if e, ok := idx.p.m[key.Key()]; ok {
		e.ids.Remove(uint32(id))
		idx.p.values--
		if e.ids.IsEmpty() {
			delete(idx.p.m, key.Key())
		}
	}
	delete(idx.points, id)
	delete(idx.keys, id)
}

// Wipe implements Index.
func (idx *SpatialIndex) Wipe() error {
	return idx.guard.Write(func() error {
		idx.p.wipe()
		clear(idx.points)
		clear(idx.keys)
		return nil
	})
}

// SearchRegion implements SpatialSearcher.
func (idx *SpatialIndex) SearchRegion(lo, hi []float64) (ids []model.ElementID, err error) {
	err = idx.guard.Read(func() error {
		if len(lo) != idx.dims || len(hi) != idx.dims {
			return nil
		}
		for id, pt := range idx.points {
			if inside(pt, lo, hi) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		return nil
	})
	return ids, err
}

func inside(pt, lo, hi []float64) bool {
	for i := range pt {
		if pt[i] < lo[i] || pt[i] > hi[i] {
			return false
		}
	}
	return true
}

// Nearest implements SpatialSearcher. Ties are broken by id.
func (idx *SpatialIndex) Nearest(point []float64, k int) (ids []model.ElementID, err error) {
	err = idx.guard.Read(func() error {
		if k <= 0 || len(point) != idx.dims {
			return nil
		}
		nn := newNearest(k)
		for id, pt := range idx.points {
			nn.offer(candidate{id: id, dist: euclidean(pt, point)})
		}
		ids = nn.ids()
		return nil
	})
	return ids, err
}

// Distance implements SpatialSearcher.
func (idx *SpatialIndex) Distance(a, b model.ElementID) (d float64, ok bool, err error) {
	err = idx.guard.Read(func() error {
		pa, okA := idx.points[a]
		pb, okB := idx.points[b]
		if ok = okA && okB; ok {
			d = euclidean(pa, pb)
		}
		return nil
	})
	return d, ok, err
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
