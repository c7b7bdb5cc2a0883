package crmap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers the order in which
// keys were first set. It is the map node of a projected value tree.
type OrderedMap struct {
	keys   []string
	values map[string]interface{}
}

// NewOrderedMap returns an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: map[string]interface{}{}}
}

// Set sets key to value, appending key if it is new, and returns m.
func (m *OrderedMap) Set(key string, value interface{}) *OrderedMap {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value of key.
func (m *OrderedMap) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in order.
func (m *OrderedMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// MarshalJSON writes the map as a JSON object in key order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Project returns the document's visible entries as a plain value tree:
// *OrderedMap for maps, []interface{} for sequences, and nil, bool,
// int64, float64, string or []byte for scalars. Top-level keys are
// ordered by their first write, which is the same on every replica that
// has integrated the same blocks.
func (d *Doc) Project() (*OrderedMap, error) {
	out := NewOrderedMap()
	for _, k := range d.sortedKeys() {
		tree, err := project(d.keys[k].winner().Payload, 0)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out.Set(k, tree)
	}
	return out, nil
}

func project(v Value, depth int) (interface{}, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nested deeper than %d", ErrProjection, maxDepth)
	}
	switch v.Kind {
	case KindScalar:
		switch s := v.Scalar.(type) {
		case []byte:
			return append([]byte{}, s...), nil
		case nil, bool, int64, float64, string:
			return v.Scalar, nil
		}
		return nil, fmt.Errorf("%w: unsupported scalar %T", ErrProjection, v.Scalar)
	case KindMap:
		m := NewOrderedMap()
		for _, e := range v.Entries {
			tree, err := project(e.Value, depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.Key, err)
			}
			m.Set(e.Key, tree)
		}
		return m, nil
	case KindSequence:
		seq := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			tree, err := project(item, depth+1)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			seq[i] = tree
		}
		return seq, nil
	}
	return nil, fmt.Errorf("%w: unexpected %s payload", ErrProjection, v.Kind)
}
