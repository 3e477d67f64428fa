// Package record models the dynamically-typed records crossing the host
// boundary, and their materialization into typed rows.
//
// The representation is a closed variant: all internal branching switches
// on Kind, never on a runtime tag of the host value. No reflection and no
// fmt-based stringification on hot paths.
package record

import (
	"fmt"
	"sort"

	"github.com/soumenms2015/tuplex/types"
)

// Value is a dynamically-typed record or record field.
//
// Only value kinds appear here (Null, Bool, I64, F64, Str, Tuple, List,
// Map); Option, Any and Unknown are type-level notions.
type Value struct {
	Kind  types.Kind
	I64   int64
	F64   float64
	S     string
	B     bool
	Items []Value // Tuple, List elements
	Pairs []Entry // Map entries, in encounter order
}

// Entry is one key/value pair of a map-shaped Value.
type Entry struct {
	Key   Value
	Value Value
}

// Null returns a null Value.
func Null() Value { return Value{Kind: types.KindNull} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: types.KindBool, B: v} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: types.KindI64, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: types.KindF64, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: types.KindStr, S: v} }

// TupleOf returns a tuple Value over the given fields.
func TupleOf(items ...Value) Value {
	return Value{Kind: types.KindTuple, Items: items}
}

// ListOf returns a list Value over the given elements.
func ListOf(items ...Value) Value {
	return Value{Kind: types.KindList, Items: items}
}

// MapOf returns a map Value over the given entries, preserving order.
func MapOf(pairs ...Entry) Value {
	return Value{Kind: types.KindMap, Pairs: pairs}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == types.KindNull }

// Lookup returns the value stored under a string key of a map Value.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.Pairs {
		if e.Key.Kind == types.KindStr && e.Key.S == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep equality of two values.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case types.KindNull:
		return true
	case types.KindBool:
		return a.B == b.B
	case types.KindI64:
		return a.I64 == b.I64
	case types.KindF64:
		return a.F64 == b.F64
	case types.KindStr:
		return a.S == b.S
	case types.KindTuple, types.KindList:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case types.KindMap:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if !Equal(a.Pairs[i].Key, b.Pairs[i].Key) || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromAny adapts a Go value tree into a Value.
//
// This is the convenience entry point at the host boundary for untyped
// input. Slices become tuples (a record's fields are fixed-arity);
// explicit lists take ListOf. Map keys are sorted so inference over the
// same input is deterministic.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
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
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > 1<<63-1 {
			// Avoid silently truncating large values.
			return Value{}, fmt.Errorf("record: uint64 out of int64 range: %d", x)
		}
		return Int(int64(x)), nil
	case []any:
		items := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			items[i] = vv
		}
		return TupleOf(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]Entry, 0, len(x))
		for _, k := range keys {
			vv, err := FromAny(x[k])
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Entry{Key: String(k), Value: vv})
		}
		return MapOf(pairs...), nil
	default:
		return Value{}, fmt.Errorf("record: unsupported host value type %T", v)
	}
}

// Slice adapts a []any into a record sequence, one Value per element.
func Slice(in []any) ([]Value, error) {
	out := make([]Value, len(in))
	for i := range in {
		v, err := FromAny(in[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
