package core

// canonical.go implements the deterministic byte serialization that
// backs intent_id. No repr-style serialization and no
// iteration over a bare Go map are used anywhere in this file: every
// ordered mapping goes through OrderedMap.sortedKeys, and every sort is
// an explicit, stable, byte-wise sort.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// canonicalizeValue renders v to its canonical byte sequence, returned as a
// string for convenient concatenation. Two values canonicalize identically
// iff they are value-equal.
func canonicalizeValue(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Decimal:
		return t.ToCanonicalString()
	case Str:
		return canonicalizeString(string(t))
	case Seq:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = canonicalizeValue(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case *OrderedMap:
		return canonicalizeMap(t)
	default:
		panic(fmt.Sprintf("core: value %T is not canonicalizable", v))
	}
}

// canonicalizeString uses a length-prefixed form so no escaping scheme is
// needed to disambiguate delimiters inside the string itself.
func canonicalizeString(s string) string {
	return fmt.Sprintf("s:%d:%s", len(s), s)
}

func canonicalizeMap(m *OrderedMap) string {
	if m == nil {
		m = NewOrderedMap()
	}
	keys := m.sortedKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := m.Get(k)
		parts = append(parts, canonicalizeString(k)+"="+canonicalizeValue(v))
	}
	return "{" + strings.Join(parts, ";") + "}"
}

// canonicalTimestamp renders t as a fixed-precision ISO-8601 string in UTC
// with nanosecond resolution, so two logically equal instants constructed
// with different monotonic readings or locations still canonicalize
// identically.
func canonicalTimestamp(t LogicalTime) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// hashBitsToHexLen maps the hash_bits configuration option to the
// number of hex characters taken from the SHA-256 digest.
func hashBitsToHexLen(hashBits int) int {
	switch hashBits {
	case 256:
		return 64
	default:
		return 32 // 128 bits, the default
	}
}

// computeIntentID implements the six-step canonicalization algorithm. It is a
// pure function of its arguments: no ledger state, no clock, no randomness.
func computeIntentID(moves []Move, stateChanges []UnitStateChange, unitsToCreate []Unit, origin Origin, proposedTimestamp LogicalTime, hashBits int) string {
	var b strings.Builder

	// 1. Moves, stably ordered by (unit_symbol, source, dest, contract_id, quantity).
	orderedMoves := append([]Move(nil), moves...)
	sort.SliceStable(orderedMoves, func(i, j int) bool {
		a, c := orderedMoves[i], orderedMoves[j]
		if a.UnitSymbol != c.UnitSymbol {
			return a.UnitSymbol < c.UnitSymbol
		}
		if a.Source != c.Source {
			return a.Source < c.Source
		}
		if a.Dest != c.Dest {
			return a.Dest < c.Dest
		}
		if a.ContractID != c.ContractID {
			return a.ContractID < c.ContractID
		}
		return a.Quantity.ToCanonicalString() < c.Quantity.ToCanonicalString()
	})
	b.WriteString("mv:")
	for _, m := range orderedMoves {
		b.WriteString(fmt.Sprintf("(%s,%s,%s,%s,%s)",
			canonicalizeString(m.UnitSymbol), canonicalizeString(string(m.Source)),
			canonicalizeString(string(m.Dest)), canonicalizeString(m.ContractID),
			m.Quantity.ToCanonicalString()))
	}

	// 2. State changes, sorted by unit_symbol.
	orderedSC := append([]UnitStateChange(nil), stateChanges...)
	sort.SliceStable(orderedSC, func(i, j int) bool { return orderedSC[i].UnitSymbol < orderedSC[j].UnitSymbol })
	b.WriteString("|sc:")
	for _, sc := range orderedSC {
		b.WriteString(fmt.Sprintf("sc:%s|%s|%s;", sc.UnitSymbol, canonicalizeValue(wrapMap(sc.OldState)), canonicalizeValue(wrapMap(sc.NewState))))
	}

	// 3. units_to_create, sorted by symbol, declarative fields only.
	orderedUnits := append([]Unit(nil), unitsToCreate...)
	sort.SliceStable(orderedUnits, func(i, j int) bool { return orderedUnits[i].Symbol < orderedUnits[j].Symbol })
	b.WriteString("|uc:")
	for _, u := range orderedUnits {
		b.WriteString(fmt.Sprintf("uc:%s,%s,%s,%s,%s,%s;",
			canonicalizeString(u.Symbol), canonicalizeString(u.Name), canonicalizeString(u.UnitType),
			u.MinBalance.ToCanonicalString(), u.MaxBalance.ToCanonicalString(), decimalPlacesCanon(u.DecimalPlaces)))
	}

	// 4. proposed_timestamp.
	b.WriteString("|ts:")
	b.WriteString(canonicalTimestamp(proposedTimestamp))

	// 5. origin.
	b.WriteString("|og:")
	b.WriteString(canonicalizeOrigin(origin))

	sum := sha256.Sum256([]byte(b.String()))
	hexLen := hashBitsToHexLen(hashBits)
	return hex.EncodeToString(sum[:])[:hexLen]
}

// computeEventID derives a deterministic event id from the scheduled
// action, unit symbol, trigger time, and params payload, using the same
// canonicalization building blocks computeIntentID uses. Two Events with
// identical (action, symbol, trigger_time, params) always collide on
// event_id, which is what lets Scheduler.Schedule and MarkExecuted
// deduplicate by content rather than by a caller-chosen name.
func computeEventID(action, symbol string, triggerTime LogicalTime, params *OrderedMap, hashBits int) string {
	var b strings.Builder
	b.WriteString("ac:")
	b.WriteString(canonicalizeString(action))
	b.WriteString("|sym:")
	b.WriteString(canonicalizeString(symbol))
	b.WriteString("|tt:")
	b.WriteString(canonicalTimestamp(triggerTime))
	b.WriteString("|pr:")
	b.WriteString(canonicalizeValue(wrapMap(params)))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:hashBitsToHexLen(hashBits)]
}

func decimalPlacesCanon(p *int32) string {
	if p == nil {
		return "none"
	}
	return strconv.FormatInt(int64(*p), 10)
}

func canonicalizeOrigin(o Origin) string {
	m := NewOrderedMap()
	m.Set("source", Str(o.Source))
	if o.RandomSeed != nil {
		m.Set("random_seed", Str(*o.RandomSeed))
	} else {
		m.Set("random_seed", Null{})
	}
	if o.CalcInputs != nil {
		m.Set("calc_inputs", o.CalcInputs)
	} else {
		m.Set("calc_inputs", Null{})
	}
	return canonicalizeValue(m)
}
