package fallen8

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/shortestpath"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// Scan kinds reported to the MetricsCollector.
const (
	ScanGraph    = "graph"
	ScanIndex    = "index"
	ScanRange    = "range"
	ScanFulltext = "fulltext"
	ScanSpatial  = "spatial"
)

func (f *Fallen8) recordScan(ctx context.Context, kind string, start time.Time, results int, err error) {
	f.metrics.RecordScan(kind, results, time.Since(start), err)
	f.logger.LogScan(ctx, kind, results, err)
}

// GraphScan returns the live elements whose property compares to literal
// as op demands, ordered by id. The scan runs partitioned in parallel
// within the limits of the resource controller.
func (f *Fallen8) GraphScan(ctx context.Context, property string, literal model.Value, op model.Operator, opts ...store.ScanOption) ([]model.Element, error) {
	start := time.Now()
	elems, err := f.store.GraphScan(ctx, property, literal, op, opts...)
	f.recordScan(ctx, ScanGraph, start, len(elems), err)
	return elems, err
}

// IndexScan returns the live elements stored in index name under keys that
// compare to literal as op demands, ordered by id. A missing index or an
// unknown operator yields no elements.
func (f *Fallen8) IndexScan(ctx context.Context, name string, literal model.Value, op model.Operator) ([]model.Element, error) {
	start := time.Now()
	elems, err := f.indexScan(ctx, name, literal, op)
	f.recordScan(ctx, ScanIndex, start, len(elems), err)
	return elems, err
}

func (f *Fallen8) indexScan(ctx context.Context, name string, literal model.Value, op model.Operator) ([]model.Element, error) {
	if !op.Valid() {
		f.logger.DebugContext(ctx, "index scan with unknown operator", "index", name, "operator", string(op))
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok, err := f.indices.get(name)
	if err != nil || !ok {
		return nil, err
	}

	var ids []model.ElementID
	if op == model.OpEqual {
		ids, _, err = e.idx.TryGetValue(literal)
	} else if rs, ok := e.idx.(index.RangeSearcher); ok && op != model.OpNotEqual {
		switch op {
		case model.OpLessThan, model.OpLessEqual:
			ids, err = rs.LowerThan(literal, op == model.OpLessEqual)
		default:
			ids, err = rs.GreaterThan(literal, op == model.OpGreaterEqual)
		}
	} else {
		var kvs []index.KeyValues
		kvs, err = e.idx.GetKeyValues()
		for _, kv := range kvs {
			if op.Apply(kv.Key, literal) {
				ids = append(ids, kv.Values...)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return f.resolve(ids, true), nil
}

// RangeIndexScan returns the live elements of index name whose key lies
// between lo and hi, ordered by id. Indices without ordered lookups yield
// no elements.
func (f *Fallen8) RangeIndexScan(ctx context.Context, name string, lo, hi model.Value, includeLo, includeHi bool) ([]model.Element, error) {
	start := time.Now()
	var (
		elems []model.Element
		err   error
	)
	if err = ctx.Err(); err == nil {
		var ids []model.ElementID
		ids, err = searchIndex(f, name, func(rs index.RangeSearcher) ([]model.ElementID, error) {
			return rs.Between(lo, hi, includeLo, includeHi)
		})
		if err == nil {
			elems = f.resolve(ids, true)
		}
	}
	f.recordScan(ctx, ScanRange, start, len(elems), err)
	return elems, err
}

// FulltextIndexScan runs query against index name. It reports false when
// nothing matched or the index does not support fulltext queries. Elements
// removed since they were indexed are left out of the result.
func (f *Fallen8) FulltextIndexScan(ctx context.Context, name, query string) (index.FulltextResult, bool, error) {
	start := time.Now()
	var res index.FulltextResult
	err := ctx.Err()
	if err == nil {
		res, err = searchIndex(f, name, func(fs index.FulltextSearcher) (index.FulltextResult, error) {
			r, _, err := fs.TryQuery(query)
			return r, err
		})
	}
	if err == nil {
		snap := f.store.Snapshot()
		res.Elements = slices.DeleteFunc(res.Elements, func(fe index.FulltextElement) bool {
			elem, ok := snap.TryGetElement(fe.ID)
			return !ok || elem.Header().Removed
		})
	}
	f.recordScan(ctx, ScanFulltext, start, len(res.Elements), err)
	return res, err == nil && len(res.Elements) > 0, err
}

// SpatialIndexScan returns the live elements of index name whose point lies
// inside the box spanned by lo and hi, ordered by id.
func (f *Fallen8) SpatialIndexScan(ctx context.Context, name string, lo, hi []float64) ([]model.Element, error) {
	start := time.Now()
	var elems []model.Element
	err := ctx.Err()
	if err == nil {
		var ids []model.ElementID
		ids, err = searchIndex(f, name, func(ss index.SpatialSearcher) ([]model.ElementID, error) {
			return ss.SearchRegion(lo, hi)
		})
		if err == nil {
			elems = f.resolve(ids, true)
		}
	}
	f.recordScan(ctx, ScanSpatial, start, len(elems), err)
	return elems, err
}

// NearestIndexScan returns up to k live elements of index name closest to
// point, nearest first.
func (f *Fallen8) NearestIndexScan(ctx context.Context, name string, point []float64, k int) ([]model.Element, error) {
	start := time.Now()
	var elems []model.Element
	err := ctx.Err()
	if err == nil {
		var ids []model.ElementID
		ids, err = searchIndex(f, name, func(ss index.SpatialSearcher) ([]model.ElementID, error) {
			return ss.Nearest(point, k)
		})
		if err == nil {
			elems = f.resolve(ids, false)
		}
	}
	f.recordScan(ctx, ScanSpatial, start, len(elems), err)
	return elems, err
}

// searchIndex runs fn against index name if it implements S. Missing
// indices and indices of another kind yield the zero result.
func searchIndex[S index.Index, R any](f *Fallen8, name string, fn func(S) (R, error)) (R, error) {
	var zero R
	e, ok, err := f.indices.get(name)
	if err != nil || !ok {
		return zero, err
	}
	s, ok := e.idx.(S)
	if !ok {
		return zero, nil
	}
	return fn(s)
}

// resolve maps ids to the live elements of the current snapshot. With sorted
// set, ids are ordered and deduplicated first.
func (f *Fallen8) resolve(ids []model.ElementID, sorted bool) []model.Element {
	if len(ids) == 0 {
		return nil
	}
	if sorted {
		ids = slices.Clone(ids)
		slices.Sort(ids)
		ids = slices.Compact(ids)
	}
	snap := f.store.Snapshot()
	out := make([]model.Element, 0, len(ids))
	for _, id := range ids {
		elem, ok := snap.TryGetElement(id)
		if !ok || elem.Header().Removed {
			continue
		}
		out = append(out, elem)
	}
	return out
}

// CalculateShortestPath runs the registered algorithm on the current
// snapshot. An empty algorithm name selects shortestpath.DefaultAlgorithm.
// Invalid requests and unreachable targets yield no paths, not an error.
func (f *Fallen8) CalculateShortestPath(ctx context.Context, algorithm string, req shortestpath.Request) ([]model.Path, error) {
	if algorithm == "" {
		algorithm = shortestpath.DefaultAlgorithm
	}
	alg, ok := shortestpath.Lookup(algorithm)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
		f.logger.LogShortestPath(ctx, algorithm, 0, err)
		return nil, err
	}

	start := time.Now()
	paths := alg.Calculate(ctx, f.store.Snapshot(), req)
	if err := ctx.Err(); err != nil {
		f.logger.LogShortestPath(ctx, algorithm, 0, err)
		return nil, err
	}
	f.metrics.RecordShortestPath(len(paths), time.Since(start))
	f.logger.LogShortestPath(ctx, algorithm, len(paths), nil)
	return paths, nil
}
