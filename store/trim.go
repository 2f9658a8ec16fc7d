package store

import (
	"fmt"
	"time"

	"github.com/cosh/fallen-8-core-sub000/model"
)

// Remapping translates ids from before a trim to ids after it.
type Remapping struct {
	ids []model.ElementID // old id -> new id, InvalidID for dropped slots
}

// Lookup returns the new id of old. It reports false for ids that were
// dropped or never allocated.
func (m Remapping) Lookup(old model.ElementID) (model.ElementID, bool) {
	if old < 0 || int(old) >= len(m.ids) {
		return model.InvalidID, false
	}
	n := m.ids[old]
	return n, n != model.InvalidID
}

// Len returns the number of ids the remapping covers.
func (m Remapping) Len() int { return len(m.ids) }

// Removed returns the number of dropped slots.
func (m Remapping) Removed() int {
	n := 0
	for _, id := range m.ids {
		if id == model.InvalidID {
			n++
		}
	}
	return n
}

// Identity reports whether no id changed.
func (m Remapping) Identity() bool {
	for old, id := range m.ids {
		if id != model.ElementID(old) {
			return false
		}
	}
	return true
}

// Trim drops tombstones, compacts the edge maps of the surviving vertices
// and renumbers the elements 0..N-1 keeping their order. Previously returned
// ids are only meaningful through the returned Remapping.
func (s *Store) Trim() (Remapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	base := s.current.Load()

	m := Remapping{ids: make([]model.ElementID, base.nextID)}
	var next model.ElementID
	for id := model.ElementID(0); id < base.nextID; id++ {
		e := base.slot(id)
		if e == nil || e.Header().Removed {
			m.ids[id] = model.InvalidID
			continue
		}
		m.ids[id] = next
		next++
	}

	d := &draft{s: s, base: base, now: s.opts.clock()}
	lookup := m.Lookup
	for old := model.ElementID(0); old < base.nextID; old++ {
		newID, ok := m.Lookup(old)
		if !ok {
			continue
		}
		var elem model.Element
		switch e := base.slot(old).(type) {
		case *model.Vertex:
			v := e.Clone().(*model.Vertex)
			v.OutEdges = e.OutEdges.Remap(lookup).Compact()
			v.InEdges = e.InEdges.Remap(lookup).Compact()
			elem = v
		case *model.Edge:
			c := e.Clone().(*model.Edge)
			src, okS := m.Lookup(e.SourceID)
			tgt, okT := m.Lookup(e.TargetID)
			if !okS || !okT {
				return Remapping{}, fmt.Errorf("%w: live edge %d has a removed endpoint", ErrCorrupt, old)
			}
			c.SourceID, c.TargetID = src, tgt
			elem = c
		}
		elem.Header().ID = newID
		d.nextID = newID + 1
		if err := d.put(OpUpdate, elem); err != nil {
			return Remapping{}, err
		}
	}
	d.recount = true

	s.current.Store(d.publish(base.version + 1))
	s.opts.logger.Debug("store trimmed",
		"removed", m.Removed(),
		"elements", int(next),
		"elapsed", time.Since(start))

	for _, l := range s.opts.listeners {
		l.Trimmed(m)
	}
	return m, nil
}
