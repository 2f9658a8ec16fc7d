package index

import (
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// KindDictionary is the registry name of DictionaryIndex.
const KindDictionary = "DictionaryIndex"

// DictionaryIndex is an exact-match index where a key holds any number of
// ids. Adding an id to an existing key extends its set.
type DictionaryIndex struct {
	guard *resource.Guard
	p     postings
}

// NewDictionary creates an empty DictionaryIndex.
func NewDictionary() *DictionaryIndex {
	return &DictionaryIndex{
		guard: resource.NewGuard(KindDictionary),
		p:     newPostings(),
	}
}

var _ Index = (*DictionaryIndex)(nil)

// Kind implements Index.
func (idx *DictionaryIndex) Kind() string { return KindDictionary }

// AddOrUpdate implements Index.
func (idx *DictionaryIndex) AddOrUpdate(key model.Value, id model.ElementID) error {
	if !key.Comparable() {
		return nil
	}
	return idx.guard.Write(func() error {
		idx.p.add(key, id)
		return nil
	})
}

// TryRemoveKey implements Index.
func (idx *DictionaryIndex) TryRemoveKey(key model.Value) (removed bool, err error) {
	err = idx.guard.Write(func() error {
		removed = idx.p.removeKey(key)
		return nil
	})
	return removed, err
}

// RemoveValue implements Index.
func (idx *DictionaryIndex) RemoveValue(id model.ElementID) error {
	return idx.guard.Write(func() error {
		idx.p.removeValue(id)
		return nil
	})
}

// Wipe implements Index.
func (idx *DictionaryIndex) Wipe() error {
	return idx.guard.Write(func() error {
		idx.p.wipe()
		return nil
	})
}

// CountOfKeys implements Index.
func (idx *DictionaryIndex) CountOfKeys() (n int, err error) {
	err = idx.guard.Read(func() error {
		n = len(idx.p.m)
		return nil
	})
	return n, err
}

// CountOfValues implements Index.
func (idx *DictionaryIndex) CountOfValues() (n int, err error) {
	err = idx.guard.Read(func() error {
		n = idx.p.values
		return nil
	})
	return n, err
}

// GetKeys implements Index.
func (idx *DictionaryIndex) GetKeys() (keys []model.Value, err error) {
	err = idx.guard.Read(func() error {
		keys = idx.p.keys()
		return nil
	})
	return keys, err
}

// GetKeyValues implements Index.
func (idx *DictionaryIndex) GetKeyValues() (kvs []KeyValues, err error) {
	err = idx.guard.Read(func() error {
		kvs = idx.p.keyValues()
		return nil
	})
	return kvs, err
}

// TryGetValue implements Index.
func (idx *DictionaryIndex) TryGetValue(key model.Value) (ids []model.ElementID, ok bool, err error) {
	err = idx.guard.Read(func() error {
		ids, ok = idx.p.get(key)
		return nil
	})
	return ids, ok, err
}
