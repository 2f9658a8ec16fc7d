package shortestpath

import (
	"cmp"
	"context"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// BidirectionalLevelSynchronous is a breadth-first search run from both
// endpoints at once, one complete level at a time, alternating sides. It
// returns every shortest path by hop count, up to Request.MaxResults.
type BidirectionalLevelSynchronous struct{}

var _ Algorithm = BidirectionalLevelSynchronous{}

// hop is a predecessor link: the vertex was reached from `from` via `edge`.
type hop struct {
	edge model.ElementID
	from model.ElementID
}

// side is the search state grown from one endpoint.
type side struct {
	origin   model.ElementID
	visited  *roaring.Bitmap
	depth    map[model.ElementID]int
	preds    map[model.ElementID][]hop
	frontier []model.ElementID
	level    int
}

func newSide(origin model.ElementID) *side {
	s := &side{
		origin:   origin,
		visited:  roaring.New(),
		depth:    map[model.ElementID]int{origin: 0},
		preds:    make(map[model.ElementID][]hop),
		frontier: []model.ElementID{origin},
	}
	s.visited.Add(uint32(origin))
	return s
}

// searcher holds the state of one Calculate call.
type searcher struct {
	snap *store.Snapshot
	req  Request
	src  *side
	tgt  *side
}

// Calculate implements Algorithm.
func (BidirectionalLevelSynchronous) Calculate(ctx context.Context, snap *store.Snapshot, req Request) []model.Path {
	if req.MaxDepth <= 0 || req.MaxResults <= 0 || req.SourceID == req.TargetID {
		return nil
	}
	for _, id := range []model.ElementID{req.SourceID, req.TargetID} {
		v, ok := snap.TryGetVertex(id)
		if !ok || v.Removed {
			return nil
		}
	}

	s := &searcher{
		snap: snap,
		req:  req,
		src:  newSide(req.SourceID),
		tgt:  newSide(req.TargetID),
	}
	middles := s.search(ctx)
	if len(middles) == 0 {
		return nil
	}
	return s.finish(s.reconstruct(middles))
}

// search expands the sides alternately, source first, and returns the
// meeting vertices of the shortest paths.
func (s *searcher) search(ctx context.Context) []model.ElementID {
	expand, other := s.src, s.tgt
	for s.src.level+s.tgt.level < s.req.MaxDepth {
		if ctx.Err() != nil {
			return nil
		}
		if len(expand.frontier) == 0 {
			// This side's component is exhausted without meeting.
			return nil
		}
		s.expand(expand)
		if middles := meet(expand, other); len(middles) > 0 {
			return middles
		}
		expand, other = other, expand
	}
	return nil
}

// expand grows sd by one complete level. A vertex reached several times
// within the level keeps every predecessor.
func (s *searcher) expand(sd *side) {
	next := sd.level + 1
	var frontier []model.ElementID
	for _, id := range sd.frontier {
		v, ok := s.snap.TryGetVertex(id)
		if !ok {
			continue
		}
		for _, dir := range []model.Direction{model.Outgoing, model.Incoming} {
			// Filters see the direction of travel from source to target;
			// the target side walks the path backwards.
			travel := dir
			if sd == s.tgt {
				travel = dir.Reverse()
			}
			edges := v.Edges(dir)
			for _, label := range edges.Labels() {
				if s.req.EdgePropertyFilter != nil && !s.req.EdgePropertyFilter(label, travel) {
					continue
				}
				for _, eid := range edges[label] {
					nbr, ok := s.admit(eid, dir, travel)
					if !ok {
						continue
					}
					if d, seen := sd.depth[nbr]; seen {
						if d == next {
							sd.preds[nbr] = append(sd.preds[nbr], hop{edge: eid, from: id})
						}
						continue
					}
					sd.depth[nbr] = next
					sd.visited.Add(uint32(nbr))
					sd.preds[nbr] = []hop{{edge: eid, from: id}}
					frontier = append(frontier, nbr)
				}
			}
		}
	}
	sd.frontier = frontier
	sd.level = next
}

// admit resolves the far end of edge eid listed in direction dir and
// applies the edge and vertex filters.
func (s *searcher) admit(eid model.ElementID, dir, travel model.Direction) (model.ElementID, bool) {
	e, ok := s.snap.TryGetEdge(eid)
	if !ok || e.Removed {
		return model.InvalidID, false
	}
	if s.req.EdgeFilter != nil && !s.req.EdgeFilter(e, travel) {
		return model.InvalidID, false
	}
	nbr := e.TargetID
	if dir == model.Incoming {
		nbr = e.SourceID
	}
	v, ok := s.snap.TryGetVertex(nbr)
	if !ok || v.Removed {
		return model.InvalidID, false
	}
	if s.req.VertexFilter != nil && !s.req.VertexFilter(v) {
		return model.InvalidID, false
	}
	return nbr, true
}

// meet returns the vertices of the newest level of grown that other has
// already visited, keeping only those closest to other's origin.
func meet(grown, other *side) []model.ElementID {
	var (
		middles []model.ElementID
		best    int
	)
	for _, id := range grown.frontier {
		if !other.visited.Contains(uint32(id)) {
			continue
		}
		d := other.depth[id]
		switch {
		case len(middles) == 0 || d < best:
			middles = append(middles[:0], id)
			best = d
		case d == best:
			middles = append(middles, id)
		}
	}
	slices.Sort(middles)
	return middles
}

// reconstruct splices, for every middle vertex, each chain from the source
// with each chain to the target, stopping after MaxResults paths.
func (s *searcher) reconstruct(middles []model.ElementID) []model.Path {
	limit := s.req.MaxResults
	var paths []model.Path
	for _, m := range middles {
		heads := s.chains(s.src, m, limit)
		tails := s.chains(s.tgt, m, limit)
		for _, head := range heads {
			for _, tail := range tails {
				if len(paths) == limit {
					return paths
				}
				elems := make([]model.PathElement, 0, len(head)+len(tail))
				elems = append(elems, head...)
				// Tail hops were collected walking away from the target;
				// reversed they lead from the middle to the target.
				for i := len(tail) - 1; i >= 0; i-- {
					elems = append(elems, tail[i])
				}
				paths = append(paths, model.Path{Elements: elems})
			}
		}
	}
	return paths
}

// chains enumerates up to limit hop sequences between sd's origin and v.
// For the source side they run origin to v; for the target side each hop
// runs toward the origin and the slice is ordered from the origin out.
func (s *searcher) chains(sd *side, v model.ElementID, limit int) [][]model.PathElement {
	if v == sd.origin {
		return [][]model.PathElement{nil}
	}
	var out [][]model.PathElement
	for _, p := range sd.preds[v] {
		var el model.PathElement
		if sd == s.src {
			el = s.element(p.edge, p.from, v)
		} else {
			el = s.element(p.edge, v, p.from)
		}
		for _, prefix := range s.chains(sd, p.from, limit-len(out)) {
			out = append(out, append(slices.Clip(prefix), el))
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// element builds the hop from u to w over edge eid.
func (s *searcher) element(eid, u, w model.ElementID) model.PathElement {
	dir := model.Incoming
	if e, ok := s.snap.TryGetEdge(eid); ok && e.SourceID == u {
		dir = model.Outgoing
	}
	return model.PathElement{
		EdgeID:         eid,
		SourceVertexID: u,
		TargetVertexID: w,
		Direction:      dir,
	}
}

// finish weighs the paths, applies MaxPathWeight and orders them by weight
// when cost functions were supplied.
func (s *searcher) finish(paths []model.Path) []model.Path {
	out := paths[:0]
	for _, p := range paths {
		p.Weight = 0
		for i := range p.Elements {
			w := s.weight(&p.Elements[i])
			p.Elements[i].Weight = w
			p.Weight += w
		}
		if s.req.MaxPathWeight > 0 && p.Weight > s.req.MaxPathWeight {
			continue
		}
		out = append(out, p)
	}
	if s.req.weighted() {
		slices.SortStableFunc(out, func(a, b model.Path) int {
			return cmp.Compare(a.Weight, b.Weight)
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *searcher) weight(el *model.PathElement) float64 {
	w := 1.0
	if s.req.EdgeCost != nil {
		if e, ok := s.snap.TryGetEdge(el.EdgeID); ok {
			w = s.req.EdgeCost(e)
		}
	}
	if s.req.VertexCost != nil {
		if v, ok := s.snap.TryGetVertex(el.TargetVertexID); ok {
			w += s.req.VertexCost(v)
		}
	}
	return w
}
