package index

import (
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// KindSingleValue is the registry name of SingleValueIndex.
const KindSingleValue = "SingleValueIndex"

type single struct {
	key model.Value
	id  model.ElementID
}

// SingleValueIndex is an exact-match index where a key holds one id.
// Adding to an existing key replaces its id.
type SingleValueIndex struct {
	guard *resource.Guard
	m     map[string]single
}

// NewSingleValue creates an empty SingleValueIndex.
func NewSingleValue() *SingleValueIndex {
	return &SingleValueIndex{
		guard: resource.NewGuard(KindSingleValue),
		m:     make(map[string]single),
	}
}

var _ Index = (*SingleValueIndex)(nil)

// Kind implements Index.
func (idx *SingleValueIndex) Kind() string { return KindSingleValue }

// AddOrUpdate implements Index.
func (idx *SingleValueIndex) AddOrUpdate(key model.Value, id model.ElementID) error {
	if !key.Comparable() {
		return nil
	}
	return idx.guard.Write(func() error {
		idx.m[key.Key()] = single{key: key, id: id}
		return nil
	})
}

// TryRemoveKey implements Index.
func (idx *SingleValueIndex) TryRemoveKey(key model.Value) (removed bool, err error) {
	err = idx.guard.Write(func() error {
		k := key.Key()
		if _, removed = idx.m[k]; removed {
			delete(idx.m, k)
		}
		return nil
	})
	return removed, err
}

// RemoveValue implements Index.
func (idx *SingleValueIndex) RemoveValue(id model.ElementID) error {
	return idx.guard.Write(func() error {
		for k, e := range idx.m {
			if e.id == id {
				delete(idx.m, k)
			}
		}
		return nil
	})
}

// Wipe implements Index.
func (idx *SingleValueIndex) Wipe() error {
	return idx.guard.Write(func() error {
		clear(idx.m)
		return nil
	})
}

// CountOfKeys implements Index.
func (idx *SingleValueIndex) CountOfKeys() (n int, err error) {
	err = idx.guard.Read(func() error {
		n = len(idx.m)
		return nil
	})
	return n, err
}

// CountOfValues implements Index. Every key holds exactly one id.
func (idx *SingleValueIndex) CountOfValues() (int, error) {
	return idx.CountOfKeys()
}

// GetKeys implements Index.
func (idx *SingleValueIndex) GetKeys() (keys []model.Value, err error) {
	err = idx.guard.Read(func() error {
		keys = idx.keysLocked()
		return nil
	})
	return keys, err
}

func (idx *SingleValueIndex) keysLocked() []model.Value {
	keys := make([]model.Value, 0, len(idx.m))
	for _, e := range idx.m {
		keys = append(keys, e.key)
	}
	sortKeys(keys)
	return keys
}

// GetKeyValues implements Index.
func (idx *SingleValueIndex) GetKeyValues() (kvs []KeyValues, err error) {
	err = idx.guard.Read(func() error {
		keys := idx.keysLocked()
		kvs = make([]KeyValues, len(keys))
		for i, key := range keys {
			kvs[i] = KeyValues{Key: key, Values: []model.ElementID{idx.m[key.Key()].id}}
		}
		return nil
	})
	return kvs, err
}

// TryGetValue implements Index.
func (idx *SingleValueIndex) TryGetValue(key model.Value) (ids []model.ElementID, ok bool, err error) {
	err = idx.guard.Read(func() error {
		var e single
		if e, ok = idx.m[key.Key()]; ok {
			ids = []model.ElementID{e.id}
		}
		return nil
	})
	return ids, ok, err
}
