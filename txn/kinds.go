package txn

import (
	"context"
	"fmt"
	"slices"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/store"
)

// CreateVertices creates a batch of vertices.
type CreateVertices struct {
	Definitions []store.VertexDefinition

	// Created holds the vertices after success, in definition order.
	Created []*model.Vertex
}

// Kind implements Kinded.
func (*CreateVertices) Kind() string { return "create_vertices" }

// TryExecute implements Transaction.
func (t *CreateVertices) TryExecute(_ context.Context, s *store.Store) error {
	vs, err := s.CreateVertices(t.Definitions)
	if err != nil {
		return err
	}
	t.Created = vs
	return nil
}

// Rollback removes every vertex the transaction created.
func (t *CreateVertices) Rollback(_ context.Context, s *store.Store) {
	for _, v := range t.Created {
		_, _ = s.RemoveElement(v.ID)
	}
	t.Created = nil
}

// CreateEdges creates a batch of edges. It fails without creating any edge
// if an endpoint is missing.
type CreateEdges struct {
	Definitions []store.EdgeDefinition

	// Created holds the edges after success, in definition order.
	Created []*model.Edge
}

// Kind implements Kinded.
func (*CreateEdges) Kind() string { return "create_edges" }

// TryExecute implements Transaction.
func (t *CreateEdges) TryExecute(_ context.Context, s *store.Store) error {
	es, ok, err := s.CreateEdges(t.Definitions)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingEndpoint
	}
	t.Created = es
	return nil
}

// Rollback removes every edge the transaction created.
func (t *CreateEdges) Rollback(_ context.Context, s *store.Store) {
	for _, e := range t.Created {
		_, _ = s.RemoveElement(e.ID)
	}
	t.Created = nil
}

type priorValue struct {
	key     string
	value   model.Value
	existed bool
}

// AddProperties sets properties on one element, replacing prior values.
type AddProperties struct {
	ElementID  model.ElementID
	Properties map[string]model.Value

	applied []priorValue
}

// Kind implements Kinded.
func (*AddProperties) Kind() string { return "add_properties" }

// TryExecute implements Transaction. Keys are applied in sorted order.
func (t *AddProperties) TryExecute(_ context.Context, s *store.Store) error {
	keys := make([]string, 0, len(t.Properties))
	for k := range t.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		elem, ok := s.TryGetElement(t.ElementID)
		if !ok || elem.Header().Removed {
			return fmt.Errorf("%w: %d", ErrElementNotFound, t.ElementID)
		}
		old, existed := elem.Header().Property(k)
		changed, err := s.AddProperty(t.ElementID, k, t.Properties[k])
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: %d", ErrElementNotFound, t.ElementID)
		}
		t.applied = append(t.applied, priorValue{key: k, value: old, existed: existed})
	}
	return nil
}

// Rollback restores the prior value of every key set so far.
func (t *AddProperties) Rollback(_ context.Context, s *store.Store) {
	for i := len(t.applied) - 1; i >= 0; i-- {
		p := t.applied[i]
		if p.existed {
			_, _ = s.AddProperty(t.ElementID, p.key, p.value)
		} else {
			_, _ = s.RemoveProperty(t.ElementID, p.key)
		}
	}
	t.applied = nil
}

// RemoveProperty deletes one property. Removing an absent key succeeds
// without change.
type RemoveProperty struct {
	ElementID model.ElementID
	Key       string

	prior *model.Value
}

// Kind implements Kinded.
func (*RemoveProperty) Kind() string { return "remove_property" }

// TryExecute implements Transaction.
func (t *RemoveProperty) TryExecute(_ context.Context, s *store.Store) error {
	elem, ok := s.TryGetElement(t.ElementID)
	if !ok || elem.Header().Removed {
		return fmt.Errorf("%w: %d", ErrElementNotFound, t.ElementID)
	}
	old, existed := elem.Header().Property(t.Key)
	removed, err := s.RemoveProperty(t.ElementID, t.Key)
	if err != nil {
		return err
	}
	if removed && existed {
		t.prior = &old
	}
	return nil
}

// Rollback restores the removed value.
func (t *RemoveProperty) Rollback(_ context.Context, s *store.Store) {
	if t.prior != nil {
		_, _ = s.AddProperty(t.ElementID, t.Key, *t.prior)
		t.prior = nil
	}
}

// RemoveElement tombstones a vertex or edge. Removing a vertex takes its
// incident edges with it.
type RemoveElement struct {
	ElementID model.ElementID
}

// Kind implements Kinded.
func (*RemoveElement) Kind() string { return "remove_element" }

// TryExecute implements Transaction.
func (t *RemoveElement) TryExecute(_ context.Context, s *store.Store) error {
	removed, err := s.RemoveElement(t.ElementID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %d", ErrElementNotFound, t.ElementID)
	}
	return nil
}

// Rollback is a no-op: a failed removal publishes nothing.
func (*RemoveElement) Rollback(context.Context, *store.Store) {}

// Trim compacts the store. After success the manager forgets the records
// of every terminal transaction.
type Trim struct {
	// Remapping translates pre-trim ids after success.
	Remapping store.Remapping
}

// Kind implements Kinded.
func (*Trim) Kind() string { return "trim" }

// TryExecute implements Transaction.
func (t *Trim) TryExecute(_ context.Context, s *store.Store) error {
	m, err := s.Trim()
	if err != nil {
		return err
	}
	t.Remapping = m
	return nil
}

// Rollback is a no-op: a failed trim publishes nothing.
func (*Trim) Rollback(context.Context, *store.Store) {}

func (*Trim) releasesRecords() bool { return true }

// Reset empties the store.
type Reset struct{}

// Kind implements Kinded.
func (Reset) Kind() string { return "reset" }

// TryExecute implements Transaction.
func (Reset) TryExecute(_ context.Context, s *store.Store) error {
	s.TabulaRasa()
	return nil
}

// Rollback is a no-op.
func (Reset) Rollback(context.Context, *store.Store) {}
