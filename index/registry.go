package index

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownKind is returned by New for an unregistered kind.
var ErrUnknownKind = errors.New("unknown index kind")

// Options are implementation specific settings, for example the
// "dimensions" of a SpatialIndex.
type Options map[string]string

// Factory constructs an index from its options.
type Factory func(opts Options) (Index, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	Register(KindDictionary, func(Options) (Index, error) { return NewDictionary(), nil })
	Register(KindSingleValue, func(Options) (Index, error) { return NewSingleValue(), nil })
	Register(KindRange, func(Options) (Index, error) { return NewRange(), nil })
	Register(KindFulltext, func(Options) (Index, error) { return NewFulltext(), nil })
	Register(KindSpatial, newSpatialFromOptions)
}

// Register makes a factory available under kind, replacing any previous
// registration.
//
// Index implementations outside this package should call this from an
// init() function.
func Register(kind string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = f
}

// New creates an index of the registered kind.
func New(kind string, opts Options) (Index, error) {
	factoryMu.RLock()
	f, ok := factories[kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(opts)
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
