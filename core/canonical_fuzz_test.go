package core

import "testing"

// FuzzCanonicalIdentity checks that canonicalizing an OrderedMap built
// from two arbitrary key/int entries, in reversed insertion order,
// always agrees for distinct keys — the property intent_id relies on.
// When both entries share a key, the later Set wins, so the two maps
// are equal only if the two values are.
func FuzzCanonicalIdentity(f *testing.F) {
	f.Add("a", int64(1), "b", int64(2))
	f.Add("", int64(0), "x", int64(-7))
	f.Add("dup", int64(5), "dup", int64(9))

	f.Fuzz(func(t *testing.T, k1 string, v1 int64, k2 string, v2 int64) {
		forward := NewOrderedMap().Set(k1, Int(v1)).Set(k2, Int(v2))
		backward := NewOrderedMap().Set(k2, Int(v2)).Set(k1, Int(v1))

		if k1 == k2 {
			if forward.Equal(backward) != (v1 == v2) {
				t.Fatalf("duplicate key %q: maps should be equal only when v1 == v2 (v1=%d v2=%d)", k1, v1, v2)
			}
		} else if !forward.Equal(backward) {
			t.Fatalf("insertion order changed canonical equality for k1=%q k2=%q", k1, k2)
		}

		again := NewOrderedMap().Set(k1, Int(v1)).Set(k2, Int(v2))
		if canonicalizeValue(wrapMap(forward)) != canonicalizeValue(wrapMap(again)) {
			t.Fatal("canonicalization is not deterministic for identical input")
		}
	})
}
