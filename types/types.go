// Package types defines the closed set of row shapes the transcoding core
// can represent, together with the unification and subtype rules used to
// derive a normal-case type from a sample.
package types

import "strings"

// Kind identifies the concrete shape of a Type.
type Kind uint8

const (
	// KindUnknown marks a shape the classifier could not determine.
	KindUnknown Kind = iota
	// KindNull is the type of the null value.
	KindNull
	// KindBool is a boolean.
	KindBool
	// KindI64 is a 64-bit signed integer.
	KindI64
	// KindF64 is a 64-bit IEEE754 float.
	KindF64
	// KindStr is a UTF-8 string.
	KindStr
	// KindTuple is an ordered, fixed-arity composite.
	KindTuple
	// KindOption wraps a type that additionally admits null.
	KindOption
	// KindMap is a homogeneous key/value mapping.
	KindMap
	// KindList is a homogeneous variable-length sequence.
	KindList
	// KindAny admits every value.
	KindAny
)

// Type is a tagged variant over Kind. The zero value is Unknown.
//
// Types are small immutable values; share them freely.
type Type struct {
	Kind   Kind
	Elem   *Type  // Option, List
	KeyT   *Type  // Map key
	ValT   *Type  // Map value
	Params []Type // Tuple fields, in order
}

// Unknown returns the Unknown type.
func Unknown() Type { return Type{Kind: KindUnknown} }

// Null returns the Null type.
func Null() Type { return Type{Kind: KindNull} }

// Bool returns the Bool type.
func Bool() Type { return Type{Kind: KindBool} }

// I64 returns the I64 type.
func I64() Type { return Type{Kind: KindI64} }

// F64 returns the F64 type.
func F64() Type { return Type{Kind: KindF64} }

// Str returns the Str type.
func Str() Type { return Type{Kind: KindStr} }

// Any returns the Any type.
func Any() Type { return Type{Kind: KindAny} }

// Option wraps t so it additionally admits null.
// Option(Option(T)) collapses to Option(T), and Option(Null) is Null.
func Option(t Type) Type {
	if t.Kind == KindOption || t.Kind == KindNull {
		return t
	}
	return Type{Kind: KindOption, Elem: &t}
}

// List returns a list type with element type elem.
func List(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// Map returns a map type with the given key and value types.
func Map(key, value Type) Type {
	return Type{Kind: KindMap, KeyT: &key, ValT: &value}
}

// Tuple returns a tuple type over the given field types.
func Tuple(params ...Type) Type {
	return Type{Kind: KindTuple, Params: params}
}

// IsOption reports whether t is an Option.
func (t Type) IsOption() bool { return t.Kind == KindOption }

// IsTuple reports whether t is a Tuple.
func (t Type) IsTuple() bool { return t.Kind == KindTuple }

// IsScalar reports whether t is one of the flat primitive types
// eligible for a fast transcoding path.
func (t Type) IsScalar() bool {
	switch t.Kind {
	case KindBool, KindI64, KindF64, KindStr:
		return true
	}
	return false
}

// IsFlatTuple reports whether t is a tuple composed solely of flat
// primitives.
func (t Type) IsFlatTuple() bool {
	if t.Kind != KindTuple || len(t.Params) == 0 {
		return false
	}
	for _, p := range t.Params {
		if !p.IsScalar() {
			return false
		}
	}
	return true
}

// Unwrap returns the wrapped type of an Option, or t itself otherwise.
func (t Type) Unwrap() Type {
	if t.Kind == KindOption {
		return *t.Elem
	}
	return t
}

// Arity returns the number of tuple fields, or 0 for non-tuples.
func (t Type) Arity() int {
	if t.Kind != KindTuple {
		return 0
	}
	return len(t.Params)
}

// Equal reports structural equality.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindOption, KindList:
		return Equal(*a.Elem, *b.Elem)
	case KindMap:
		return Equal(*a.KeyT, *b.KeyT) && Equal(*a.ValT, *b.ValT)
	case KindTuple:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Key returns a stable, parseable descriptor for t, suitable as a map key
// and for persistence in spill manifests. ParseType inverts it.
func (t Type) Key() string {
	var sb strings.Builder
	t.appendKey(&sb)
	return sb.String()
}

func (t Type) appendKey(sb *strings.Builder) {
	switch t.Kind {
	case KindUnknown:
		sb.WriteString("unknown")
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString("bool")
	case KindI64:
		sb.WriteString("i64")
	case KindF64:
		sb.WriteString("f64")
	case KindStr:
		sb.WriteString("str")
	case KindAny:
		sb.WriteString("any")
	case KindOption:
		sb.WriteString("opt(")
		t.Elem.appendKey(sb)
		sb.WriteByte(')')
	case KindList:
		sb.WriteString("list(")
		t.Elem.appendKey(sb)
		sb.WriteByte(')')
	case KindMap:
		sb.WriteString("map(")
		t.KeyT.appendKey(sb)
		sb.WriteByte(',')
		t.ValT.appendKey(sb)
		sb.WriteByte(')')
	case KindTuple:
		sb.WriteString("tup(")
		for i := range t.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			t.Params[i].appendKey(sb)
		}
		sb.WriteByte(')')
	}
}

// String returns the descriptor form of t.
func (t Type) String() string { return t.Key() }
