// Package shortestpath finds shortest paths between two vertices of a
// store snapshot.
//
// Edges are walked in both directions; every hop of a returned path records
// whether it followed its edge forwards (model.Outgoing) or backwards
// (model.Incoming). Callers restrict the walk with the filters of Request.
package shortestpath

import (
	"context"
	"slices"
	"sync"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// Request parameterizes a path search. Nil filters admit everything; nil
// cost functions count every hop as 1.
type Request struct {
	SourceID model.ElementID
	TargetID model.ElementID

	// MaxDepth bounds the number of hops of a path. Must be positive.
	MaxDepth int

	// MaxPathWeight, if > 0, drops reported paths whose weight exceeds it.
	// It does not prune the search.
	MaxPathWeight float64

	// MaxResults bounds the number of returned paths. Must be positive.
	MaxResults int

	// EdgePropertyFilter admits edge lists by label and by the direction
	// a path would walk them: model.Outgoing follows an edge from its
	// source to its target.
	EdgePropertyFilter func(label string, d model.Direction) bool

	// VertexFilter admits vertices reached by the search.
	VertexFilter func(v *model.Vertex) bool

	// EdgeFilter admits individual edges, with the direction as for
	// EdgePropertyFilter.
	EdgeFilter func(e *model.Edge, d model.Direction) bool

	// EdgeCost returns the cost of walking e.
	EdgeCost func(e *model.Edge) float64

	// VertexCost returns the cost of arriving at v.
	VertexCost func(v *model.Vertex) float64
}

// weighted reports whether the request supplies a cost function.
func (r *Request) weighted() bool {
	return r.EdgeCost != nil || r.VertexCost != nil
}

// Algorithm computes paths on a snapshot. Ordinary failure, including
// invalid requests and unreachable targets, yields no paths.
type Algorithm interface {
	Calculate(ctx context.Context, snap *store.Snapshot, req Request) []model.Path
}

// AlgorithmFunc adapts a function to Algorithm.
type AlgorithmFunc func(ctx context.Context, snap *store.Snapshot, req Request) []model.Path

// Calculate implements Algorithm.
func (f AlgorithmFunc) Calculate(ctx context.Context, snap *store.Snapshot, req Request) []model.Path {
	return f(ctx, snap, req)
}

// DefaultAlgorithm is the name BidirectionalLevelSynchronous is registered
// under.
const DefaultAlgorithm = "BLS"

var (
	registryMu sync.RWMutex
	registry   = map[string]Algorithm{
		DefaultAlgorithm: BidirectionalLevelSynchronous{},
	}
)

// Register makes alg available under name, replacing any previous one.
func Register(name string, alg Algorithm) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = alg
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Algorithm, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	alg, ok := registry[name]
	return alg, ok
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
