package core

import "sort"

// Value is the closed set of types the canonicalizer (and therefore Unit
// state, UnitStateChange.old_state/new_state, and origin.calc_inputs) may
// hold: null, boolean, integer, Decimal, string, ordered mapping, or
// sequence, nested arbitrarily. Using a sealed interface instead of `any`
// keeps "no repr-style serialization" and "no hash-map iteration order"
// true at the type level rather than by
// convention.
type Value interface {
	isValue()
}

// Null is the canonicalizable null value.
type Null struct{}

func (Null) isValue() {}

// Bool is a canonicalizable boolean.
type Bool bool

func (Bool) isValue() {}

// Int is a canonicalizable signed integer.
type Int int64

func (Int) isValue() {}

// Str is a canonicalizable UTF-8 string.
type Str string

func (Str) isValue() {}

// Seq is a canonicalizable ordered sequence. Order is significant and is
// never reordered by the canonicalizer.
type Seq []Value

func (Seq) isValue() {}

func (Decimal) isValue() {}

// OrderedMap is a string-keyed mapping that remembers insertion order for
// iteration (Keys, Range) while the canonicalizer always re-sorts keys
// byte-wise before hashing, so two OrderedMaps built in different
// insertion orders but with the same key/value content canonicalize
// identically. OrderedMap is conceptually immutable once handed to a Unit
// or UnitStateChange: callers that need to change state build a new
// OrderedMap (via Clone + Set) rather than mutating a shared one.
type OrderedMap struct {
	keys []string
	vals map[string]Value
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]Value)}
}

// Set assigns key to v, preserving first-insertion position for existing
// keys. It returns the receiver to allow chaining during construction.
func (m *OrderedMap) Set(key string, v Value) *OrderedMap {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the map's keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a deep copy, safe to mutate independently of m.
func (m *OrderedMap) Clone() *OrderedMap {
	out := NewOrderedMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.vals[k]))
	}
	return out
}

func cloneValue(v Value) Value {
	switch t := v.(type) {
	case *OrderedMap:
		return t.Clone()
	case Seq:
		out := make(Seq, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		// Null, Bool, Int, Str, Decimal are immutable value types.
		return v
	}
}

// Equal reports whether m and other canonicalize identically: same keys
// (in any order) mapped to value-equal entries.
func (m *OrderedMap) Equal(other *OrderedMap) bool {
	return canonicalizeValue(wrapMap(m)) == canonicalizeValue(wrapMap(other))
}

func wrapMap(m *OrderedMap) Value {
	if m == nil {
		return NewOrderedMap()
	}
	return m
}

func (*OrderedMap) isValue() {}

// sortedKeys returns m's keys sorted byte-wise ascending, the order the
// canonicalizer emits entries in regardless of insertion order.
func (m *OrderedMap) sortedKeys() []string {
	ks := m.Keys()
	sort.Strings(ks)
	return ks
}
