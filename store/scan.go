package store

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// ScanOption narrows a graph scan.
type ScanOption func(*scanOptions)

type scanOptions struct {
	label    string
	hasLabel bool
	vertices bool
	edges    bool
}

// WithLabel restricts a scan to elements carrying label.
func WithLabel(label string) ScanOption {
	return func(o *scanOptions) {
		o.label = label
		o.hasLabel = true
	}
}

// VerticesOnly restricts a scan to vertices.
func VerticesOnly() ScanOption {
	return func(o *scanOptions) { o.vertices, o.edges = true, false }
}

// EdgesOnly restricts a scan to edges.
func EdgesOnly() ScanOption {
	return func(o *scanOptions) { o.vertices, o.edges = false, true }
}

// GraphScan returns the live elements whose property compares to literal
// as op demands, ordered by id. Elements without the property are skipped,
// and an unknown operator matches nothing.
//
// The snapshot is partitioned by chunk and the partitions are scanned in
// parallel, bounded by the store's resource controller.
func (s *Store) GraphScan(ctx context.Context, property string, literal model.Value, op model.Operator, opts ...ScanOption) ([]model.Element, error) {
	if !op.Valid() {
		s.opts.logger.Debug("graph scan with unknown operator", "operator", string(op))
		return nil, nil
	}
	return s.Snapshot().GraphScan(ctx, s.opts.controller, property, literal, op, opts...)
}

// GraphScan is the snapshot form of Store.GraphScan. A nil controller
// allows GOMAXPROCS partitions in flight.
func (snap *Snapshot) GraphScan(ctx context.Context, ctrl *resource.Controller, property string, literal model.Value, op model.Operator, opts ...ScanOption) ([]model.Element, error) {
	if !op.Valid() {
		return nil, nil
	}
	so := scanOptions{vertices: true, edges: true}
	for _, opt := range opts {
		opt(&so)
	}

	parts := make([][]model.Element, len(snap.chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ctrl.ScanWorkers())

	for ci := range snap.chunks {
		if snap.chunks[ci] == nil {
			continue
		}
		g.Go(func() error {
			if err := ctrl.AcquireScanWorker(ctx); err != nil {
				return err
			}
			defer ctrl.ReleaseScanWorker()

			parts[ci] = snap.scanChunk(ci, property, literal, op, &so)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}

func (snap *Snapshot) scanChunk(ci int, property string, literal model.Value, op model.Operator, so *scanOptions) []model.Element {
	var out []model.Element
	c := snap.chunks[ci]
	first := model.ElementID(ci << chunkBits)
	for i := range c.elems {
		if first+model.ElementID(i) >= snap.nextID {
			break
		}
		e := c.elems[i]
		if e == nil {
			continue
		}
		h := e.Header()
		if h.Removed {
			continue
		}
		if e.IsVertex() && !so.vertices || !e.IsVertex() && !so.edges {
			continue
		}
		if so.hasLabel && h.Label != so.label {
			continue
		}
		v, ok := h.Properties.Get(property)
		if !ok || !op.Apply(v, literal) {
			continue
		}
		out = append(out, e)
	}
	return out
}
