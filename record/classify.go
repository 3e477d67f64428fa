package record

import (
	"fmt"

	"github.com/soumenms2015/tuplex/types"
)

// Row is an ephemeral materialized tuple of typed values. It lives only
// for the duration of an encode or decode and is never persisted.
type Row struct {
	Values []Value
}

// NewRow builds a Row over the given field values.
func NewRow(values ...Value) Row { return Row{Values: values} }

// Arity returns the number of fields.
func (r Row) Arity() int { return len(r.Values) }

// Classifier maps host values to Types and materializes them into Rows.
// It is treated as an opaque, possibly slow capability by the sampler and
// the fallback transcoder.
//
// Classify and Materialize borrow their arguments; implementations must
// not retain handles past the call.
type Classifier interface {
	Classify(v Value) types.Type
	Materialize(v Value, row types.Type) (Row, error)
}

// StdClassifier is the structural classifier over the Value model.
type StdClassifier struct{}

// Classify derives the structural type of v: scalars map to primitives,
// fixed-arity composites of classified fields to tuples, and sequences or
// maps whose members fail to unify degrade to Any-parameterized shapes.
func (StdClassifier) Classify(v Value) types.Type {
	switch v.Kind {
	case types.KindNull:
		return types.Null()
	case types.KindBool:
		return types.Bool()
	case types.KindI64:
		return types.I64()
	case types.KindF64:
		return types.F64()
	case types.KindStr:
		return types.Str()
	case types.KindTuple:
		params := make([]types.Type, len(v.Items))
		for i := range v.Items {
			params[i] = StdClassifier{}.Classify(v.Items[i])
		}
		return types.Tuple(params...)
	case types.KindList:
		return types.List(commonType(v.Items))
	case types.KindMap:
		keys := make([]Value, len(v.Pairs))
		vals := make([]Value, len(v.Pairs))
		for i, e := range v.Pairs {
			keys[i] = e.Key
			vals[i] = e.Value
		}
		return types.Map(commonType(keys), commonType(vals))
	default:
		return types.Unknown()
	}
}

// commonType unifies the element types of a homogeneous collection,
// degrading to Any when unification fails.
func commonType(items []Value) types.Type {
	if len(items) == 0 {
		return types.Any()
	}
	t := StdClassifier{}.Classify(items[0])
	for _, it := range items[1:] {
		u, ok := types.Unify(t, StdClassifier{}.Classify(it))
		if !ok {
			return types.Any()
		}
		t = u
	}
	return t
}

// Materialize converts v into a Row conforming to the Tuple-shaped row
// type. Non-tuple records materialize as single-field rows. The caller
// must have established conformance via types.Subtype beforehand; a
// mismatch here is reported as an error, never encoded.
func (StdClassifier) Materialize(v Value, row types.Type) (Row, error) {
	if row.Kind != types.KindTuple {
		return Row{}, fmt.Errorf("record: row type must be a tuple, got %s", row)
	}
	fields := v.Items
	if v.Kind != types.KindTuple {
		fields = []Value{v}
	}
	if len(fields) != len(row.Params) {
		return Row{}, fmt.Errorf("record: arity %d does not match row type %s", len(fields), row)
	}
	out := make([]Value, len(fields))
	for i := range fields {
		fv, err := coerce(fields[i], row.Params[i])
		if err != nil {
			return Row{}, err
		}
		out[i] = fv
	}
	return Row{Values: out}, nil
}

// coerce checks a field value against a field type, unwrapping options.
func coerce(v Value, t types.Type) (Value, error) {
	switch t.Kind {
	case types.KindOption:
		if v.IsNull() {
			return v, nil
		}
		return coerce(v, *t.Elem)
	case types.KindAny:
		return v, nil
	case types.KindNull:
		if !v.IsNull() {
			return Value{}, fmt.Errorf("record: expected null, got kind %d", v.Kind)
		}
		return v, nil
	case types.KindTuple:
		if v.Kind != types.KindTuple || len(v.Items) != len(t.Params) {
			return Value{}, fmt.Errorf("record: value does not fit tuple %s", t)
		}
		items := make([]Value, len(v.Items))
		for i := range v.Items {
			fv, err := coerce(v.Items[i], t.Params[i])
			if err != nil {
				return Value{}, err
			}
			items[i] = fv
		}
		return TupleOf(items...), nil
	case types.KindList:
		if v.Kind != types.KindList {
			return Value{}, fmt.Errorf("record: value does not fit %s", t)
		}
		return v, nil
	case types.KindMap:
		if v.Kind != types.KindMap {
			return Value{}, fmt.Errorf("record: value does not fit %s", t)
		}
		return v, nil
	default:
		if v.Kind != t.Kind {
			return Value{}, fmt.Errorf("record: value kind %d does not fit %s", v.Kind, t)
		}
		return v, nil
	}
}
