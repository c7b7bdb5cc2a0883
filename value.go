package crmap

import (
	"fmt"
	"math"
	"sort"
)

// Kind distinguishes the shapes a Value can take. Its numeric value is
// the payload tag in the update format.
type Kind uint8

const (
	kindInvalid Kind = iota
	// KindScalar holds nil, bool, int64, float64, string or []byte.
	KindScalar
	// KindMap holds ordered string-keyed entries.
	KindMap
	// KindSequence holds an ordered list of values.
	KindSequence
	// KindTombstone marks the deletion of a key. It is only valid as a
	// Block payload, never nested.
	KindTombstone
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindSequence:
		return "sequence"
	case KindTombstone:
		return "tombstone"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a payload: a scalar, a nested map, a nested sequence, or a
// tombstone. Documents copy values on the way in and out, so a stored
// payload can't be changed through a caller's slices. Floats must be
// finite.
type Value struct {
	Kind    Kind
	Scalar  interface{}
	Entries []MapEntry
	Items   []Value
}

// MapEntry is one key of a nested map value.
type MapEntry struct {
	Key   string
	Value Value
}

// Null returns the null scalar.
func Null() Value { return Value{Kind: KindScalar} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{Kind: KindScalar, Scalar: b} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{Kind: KindScalar, Scalar: i} }

// Float returns a floating-point scalar.
func Float(f float64) Value { return Value{Kind: KindScalar, Scalar: f} }

// String returns a string scalar.
func String(s string) Value { return Value{Kind: KindScalar, Scalar: s} }

// Bytes returns a binary scalar.
func Bytes(b []byte) Value { return Value{Kind: KindScalar, Scalar: b} }

// Tombstone returns the deletion marker.
func Tombstone() Value { return Value{Kind: KindTombstone} }

// Map returns a nested map value with entries in the given order.
func Map(entries ...MapEntry) Value { return Value{Kind: KindMap, Entries: entries} }

// Sequence returns a nested sequence value.
func Sequence(items ...Value) Value { return Value{Kind: KindSequence, Items: items} }

// IsTombstone reports whether v marks a deletion.
func (v Value) IsTombstone() bool { return v.Kind == KindTombstone }

// clone returns a deep copy of v that shares no slices with it.
func (v Value) clone() Value {
	switch v.Kind {
	case KindScalar:
		if b, ok := v.Scalar.([]byte); ok && b != nil {
			v.Scalar = append([]byte{}, b...)
		}
	case KindMap:
		if v.Entries != nil {
			entries := make([]MapEntry, len(v.Entries))
			for i, e := range v.Entries {
				entries[i] = MapEntry{e.Key, e.Value.clone()}
			}
			v.Entries = entries
		}
	case KindSequence:
		if v.Items != nil {
			items := make([]Value, len(v.Items))
			for i, item := range v.Items {
				items[i] = item.clone()
			}
			v.Items = items
		}
	}
	return v
}

// ValueOf converts a plain Go value. Keys of a map[string]interface{}
// are sorted so the result is deterministic; an *OrderedMap keeps its
// order.
func ValueOf(i interface{}) (Value, error) {
	switch x := i.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, validateValue(x, 0, false)
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return uintValue(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case []interface{}:
		if len(x) == 0 {
			return Sequence(), nil
		}
		items := make([]Value, len(x))
		for n, item := range x {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", n, err)
			}
			items[n] = v
		}
		return Sequence(items...), nil
	case map[string]interface{}:
		if len(x) == 0 {
			return Map(), nil
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]MapEntry, len(keys))
		for n, k := range keys {
			v, err := ValueOf(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries[n] = MapEntry{k, v}
		}
		return Map(entries...), nil
	case *OrderedMap:
		if x == nil {
			return Value{}, fmt.Errorf("nil *OrderedMap")
		}
		var entries []MapEntry
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries = append(entries, MapEntry{k, v})
		}
		return Map(entries...), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", i)
}

// MustValueOf is like ValueOf but panics on unsupported types. It is
// meant for literals in tests and examples.
func MustValueOf(i interface{}) Value {
	v, err := ValueOf(i)
	if err != nil {
		panic(err)
	}
	return v
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// maxDepth bounds value nesting, so hostile input can't exhaust the stack.
const maxDepth = 64

// validateValue checks v is well-formed. Tombstones are only allowed at
// the top level of a Block payload.
func validateValue(v Value, depth int, topLevel bool) error {
	if depth > maxDepth {
		return fmt.Errorf("value nested deeper than %d", maxDepth)
	}
	switch v.Kind {
	case KindScalar:
		switch s := v.Scalar.(type) {
		case float64:
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return fmt.Errorf("non-finite float %v", s)
			}
			return nil
		case nil, bool, int64, string, []byte:
			return nil
		}
		return fmt.Errorf("unsupported scalar type %T", v.Scalar)
	case KindMap:
		for _, e := range v.Entries {
			if err := validateValue(e.Value, depth+1, false); err != nil {
				return fmt.Errorf("key %q: %w", e.Key, err)
			}
		}
		return nil
	case KindSequence:
		for n, item := range v.Items {
			if err := validateValue(item, depth+1, false); err != nil {
				return fmt.Errorf("item %d: %w", n, err)
			}
		}
		return nil
	case KindTombstone:
		if !topLevel {
			return fmt.Errorf("nested tombstone")
		}
		return nil
	}
	return fmt.Errorf("unknown %s", v.Kind)
}
