package index

import (
	"cmp"
	"errors"
	"slices"

	"github.com/cosh/fallen-8-core-sub000/model"
)

// ErrInvalidOption is returned by factories for malformed options.
var ErrInvalidOption = errors.New("invalid index option")

// Index maps keys to sets of element ids.
//
// Every method acquires the index guard without waiting and fails with an
// error matching resource.ErrCollision when the guard is held in a
// conflicting mode.
type Index interface {
	// Kind returns the registry name of the implementation.
	Kind() string

	// AddOrUpdate associates id with key. Keys the index cannot order are
	// ignored without error.
	AddOrUpdate(key model.Value, id model.ElementID) error

	// TryRemoveKey drops key and its values. It reports false if key was
	// not present.
	TryRemoveKey(key model.Value) (bool, error)

	// RemoveValue removes id from every key, dropping keys left empty.
	RemoveValue(id model.ElementID) error

	// Wipe removes everything.
	Wipe() error

	// CountOfKeys returns the number of keys.
	CountOfKeys() (int, error)

	// CountOfValues returns the number of key/id associations.
	CountOfValues() (int, error)

	// GetKeys returns all keys in ascending order.
	GetKeys() ([]model.Value, error)

	// GetKeyValues returns every key with its ids, keys ascending.
	GetKeyValues() ([]KeyValues, error)

	// TryGetValue returns the ids stored under key in ascending order.
	TryGetValue(key model.Value) ([]model.ElementID, bool, error)
}

// RangeSearcher is an Index with ordered lookups. Every method returns ids in
// ascending order without duplicates.
type RangeSearcher interface {
	Index

	// LowerThan returns the ids of keys below key.
	LowerThan(key model.Value, inclusive bool) ([]model.ElementID, error)

	// GreaterThan returns the ids of keys above key.
	GreaterThan(key model.Value, inclusive bool) ([]model.ElementID, error)

	// Between returns the ids of keys between lo and hi.
	Between(lo, hi model.Value, includeLo, includeHi bool) ([]model.ElementID, error)
}

// FulltextSearcher is an Index over text keys with relevance ranked queries.
type FulltextSearcher interface {
	Index

	// TryQuery returns the elements matching query. It reports false when
	// nothing matched.
	TryQuery(query string) (FulltextResult, bool, error)
}

// SpatialSearcher is an Index over point keys.
type SpatialSearcher interface {
	Index

	// SearchRegion returns the ids whose point lies inside the box spanned
	// by lo and hi, bounds included.
	SearchRegion(lo, hi []float64) ([]model.ElementID, error)

	// Nearest returns up to k ids closest to point, nearest first.
	Nearest(point []float64, k int) ([]model.ElementID, error)

	// Distance returns the distance between the points stored for a and b.
	// It reports false if either id is not indexed.
	Distance(a, b model.ElementID) (float64, bool, error)
}

// KeyValues is a key and the ids stored under it.
type KeyValues struct {
	Key    model.Value
	Values []model.ElementID
}

// FulltextResult is the outcome of a fulltext query.
type FulltextResult struct {
	Elements []FulltextElement
	MaxScore float64
}

// FulltextElement is one element matched by a fulltext query.
type FulltextElement struct {
	ID         model.ElementID
	Highlights []string
	Score      float64
}

// kindRank gives every key kind a slot in the total key order. Ints and
// floats share a slot because they compare with each other.
func kindRank(k model.Kind) int {
	switch k {
	case model.KindBool:
		return 0
	case model.KindInt, model.KindFloat:
		return 1
	case model.KindString:
		return 2
	case model.KindTime:
		return 3
	default:
		return 4
	}
}

// compareKeys is a total order over keys: by kind first, then naturally.
func compareKeys(a, b model.Value) int {
	if c := cmp.Compare(kindRank(a.Kind), kindRank(b.Kind)); c != 0 {
		return c
	}
	if c, ok := a.Compare(b); ok {
		return c
	}
	return cmp.Compare(a.Key(), b.Key())
}

func sortKeys(keys []model.Value) {
	slices.SortFunc(keys, compareKeys)
}
