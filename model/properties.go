package model

import (
	"encoding/json"
	"iter"
	"maps"
	"slices"
)

// Properties is an immutable key/value bag.
//
// The zero value is an empty bag. With and Without return modified copies
// and never touch the receiver, so a bag can be shared freely between
// element versions and snapshots.
type Properties struct {
	m map[string]Value
}

// NewProperties copies m into a new bag.
func NewProperties(m map[string]Value) Properties {
	if len(m) == 0 {
		return Properties{}
	}
	return Properties{m: maps.Clone(m)}
}

// PropertiesOf builds a bag from Go values, skipping values ValueOf rejects.
func PropertiesOf(m map[string]any) Properties {
	if len(m) == 0 {
		return Properties{}
	}
	out := make(map[string]Value, len(m))
	for k, raw := range m {
		if v, ok := ValueOf(raw); ok {
			out[k] = v
		}
	}
	return Properties{m: out}
}

// Len returns the number of properties.
func (p Properties) Len() int { return len(p.m) }

// Get returns the value stored under key.
func (p Properties) Get(key string) (Value, bool) {
	v, ok := p.m[key]
	return v, ok
}

// Has reports whether key is present.
func (p Properties) Has(key string) bool {
	_, ok := p.m[key]
	return ok
}

// With returns a copy of the bag with key set to v.
func (p Properties) With(key string, v Value) Properties {
	m := make(map[string]Value, len(p.m)+1)
	maps.Copy(m, p.m)
	m[key] = v
	return Properties{m: m}
}

// Without returns a copy of the bag without key. If key is absent the
// receiver is returned unchanged.
func (p Properties) Without(key string) Properties {
	if _, ok := p.m[key]; !ok {
		return p
	}
	if len(p.m) == 1 {
		return Properties{}
	}
	m := maps.Clone(p.m)
	delete(m, key)
	return Properties{m: m}
}

// Keys returns the property keys in sorted order.
func (p Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p.m))
}

// All iterates over the properties in key order.
func (p Properties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range p.Keys() {
			if !yield(k, p.m[k]) {
				return
			}
		}
	}
}

// Map returns a mutable copy of the bag contents.
func (p Properties) Map() map[string]Value {
	return maps.Clone(p.m)
}

// MarshalJSON implements json.Marshaler.
func (p Properties) MarshalJSON() ([]byte, error) {
	if p.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) == 0 {
		p.m = nil
		return nil
	}
	p.m = m
	return nil
}
