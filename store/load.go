package store

import (
	"fmt"

	"github.com/cosh/fallen-8-core-sub000/model"
)

// Dump returns the live elements in id order together with the id
// counter. The returned elements are shared with the snapshot and must not
// be modified.
func (snap *Snapshot) Dump() ([]model.Element, model.ElementID) {
	out := make([]model.Element, 0, snap.vertexCount+snap.edgeCount)
	for e := range snap.Live() {
		out = append(out, e)
	}
	return out, snap.nextID
}

// Dump returns the live elements of the current snapshot and the id
// counter.
func (s *Store) Dump() ([]model.Element, model.ElementID) {
	return s.Snapshot().Dump()
}

// Load replaces the store content with elems. Each element is placed under
// its own id; ids not covered by elems stay empty. nextID must exceed every
// element id.
//
// Dump exports live elements only, so a dump loaded back has no tombstones:
// removed ids become empty slots, for which TryGetElement reports false and
// which the next Trim drops like tombstones.
//
// Edge endpoints and vertex edge maps are checked against each other;
// inconsistent input returns an error wrapping ErrInvalidDump and leaves
// the store unchanged. Listeners are notified as for TabulaRasa.
func (s *Store) Load(elems []model.Element, nextID model.ElementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.current.Load()
	d := &draft{s: s, base: base, nextID: nextID, now: s.opts.clock()}

	for _, e := range elems {
		if e == nil {
			continue
		}
		id := e.Header().ID
		if id < 0 || id >= nextID {
			return fmt.Errorf("%w: element id %d outside [0, %d)", ErrInvalidDump, id, nextID)
		}
		if d.get(id) != nil {
			return fmt.Errorf("%w: duplicate element id %d", ErrInvalidDump, id)
		}
		if err := d.put(OpCreate, e.Clone()); err != nil {
			return err
		}
	}
	if err := d.validate(); err != nil {
		return err
	}
	d.recount = true

	s.current.Store(d.publish(base.version + 1))
	s.opts.logger.Debug("store loaded", "elements", len(elems), "next_id", int(nextID))
	for _, l := range s.opts.listeners {
		l.Reset()
	}
	return nil
}

// validate checks that live edges and live vertex edge maps agree.
func (d *draft) validate() error {
	for id := model.ElementID(0); id < d.nextID; id++ {
		switch e := d.get(id).(type) {
		case *model.Edge:
			if e.Removed {
				continue
			}
			src, ok := d.vertex(e.SourceID)
			if !ok || src.Removed || !src.OutEdges.Contains(e.Label, e.ID) {
				return fmt.Errorf("%w: edge %d not linked from source %d", ErrInvalidDump, e.ID, e.SourceID)
			}
			tgt, ok := d.vertex(e.TargetID)
			if !ok || tgt.Removed || !tgt.InEdges.Contains(e.Label, e.ID) {
				return fmt.Errorf("%w: edge %d not linked to target %d", ErrInvalidDump, e.ID, e.TargetID)
			}
		case *model.Vertex:
			if e.Removed {
				continue
			}
			for _, dir := range []model.Direction{model.Outgoing, model.Incoming} {
				edges := e.Edges(dir)
				for label, ids := range edges {
					for _, eid := range ids {
						edge, ok := d.edge(eid)
						if !ok || edge.Removed || edge.Label != label {
							return fmt.Errorf("%w: vertex %d lists invalid %s edge %d", ErrInvalidDump, e.ID, dir, eid)
						}
						end := edge.SourceID
						if dir == model.Incoming {
							end = edge.TargetID
						}
						if end != e.ID {
							return fmt.Errorf("%w: vertex %d lists foreign %s edge %d", ErrInvalidDump, e.ID, dir, eid)
						}
					}
				}
			}
		}
	}
	return nil
}
