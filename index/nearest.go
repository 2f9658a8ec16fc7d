package index

import (
	"cmp"
	"container/heap"
	"slices"

	"github.com/cosh/fallen-8-core-sub000/model"
)

var _ heap.Interface = (*candidates)(nil)

type candidate struct {
	id   model.ElementID
	dist float64
}

// closer orders by distance, then by id.
func (c candidate) closer(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	return c.id < o.id
}

// candidates is a max-heap: the farthest kept candidate is on top.
type candidates []candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return h[j].closer(h[i]) }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidates) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidates) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// nearest keeps the k closest candidates offered to it.
type nearest struct {
	k    int
	heap candidates
}

func newNearest(k int) *nearest {
	return &nearest{k: k, heap: make(candidates, 0, min(k, 1024))}
}

func (n *nearest) offer(c candidate) {
	if len(n.heap) < n.k {
		heap.Push(&n.heap, c)
		return
	}
	if c.closer(n.heap[0]) {
		n.heap[0] = c
		heap.Fix(&n.heap, 0)
	}
}

// ids returns the kept ids, closest first.
func (n *nearest) ids() []model.ElementID {
	kept := slices.Clone(n.heap)
	slices.SortFunc(kept, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	out := make([]model.ElementID, len(kept))
	for i, c := range kept {
		out[i] = c.id
	}
	return out
}
