package crmap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// RenderJSON pretty-prints a projected value tree as indented JSON,
// keeping map key order. Bytes are rendered as base64 strings.
func RenderJSON(tree interface{}) ([]byte, error) {
	compact, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent: %w", err)
	}
	return buf.Bytes(), nil
}

// ToStructValue converts a projected value tree to a protobuf Value.
// Integers become numbers, so those beyond 2^53 lose precision, and
// bytes become base64 strings. Map key order is not preserved by
// protobuf.
func ToStructValue(tree interface{}) (*structpb.Value, error) {
	switch t := tree.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(t), nil
	case int64:
		return structpb.NewNumberValue(float64(t)), nil
	case float64:
		return structpb.NewNumberValue(t), nil
	case string:
		return structpb.NewStringValue(t), nil
	case []byte:
		return structpb.NewStringValue(base64.StdEncoding.EncodeToString(t)), nil
	case []interface{}:
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(t))}
		for i, item := range t {
			v, err := ToStructValue(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			list.Values[i] = v
		}
		return structpb.NewListValue(list), nil
	case *OrderedMap:
		s := &structpb.Struct{Fields: make(map[string]*structpb.Value, t.Len())}
		for _, k := range t.keys {
			v, err := ToStructValue(t.values[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			s.Fields[k] = v
		}
		return structpb.NewStructValue(s), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T", ErrProjection, tree)
}
