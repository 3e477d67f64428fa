package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionCollapse(t *testing.T) {
	assert.True(t, Equal(Option(Option(I64())), Option(I64())))
	assert.True(t, Equal(Option(Null()), Null()))
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{"Scalar", I64()},
		{"Option", Option(Str())},
		{"List", List(F64())},
		{"Map", Map(Str(), Option(I64()))},
		{"EmptyTuple", Tuple()},
		{"Nested", Tuple(I64(), Option(Tuple(Str(), Bool())), List(Any()))},
		{"Null", Null()},
		{"Unknown", Unknown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseType(tt.typ.Key())
			require.NoError(t, err)
			assert.True(t, Equal(tt.typ, parsed), "key %q", tt.typ.Key())
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, in := range []string{"", "in", "opt(", "opt()", "tup(i64", "i64x", "map(str)"} {
		_, err := ParseType(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "tup(i64,opt(str))", Tuple(I64(), Option(Str())).Key())
	assert.Equal(t, "map(str,any)", Map(Str(), Any()).Key())
}

func TestUnify(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want Type
		ok   bool
	}{
		{"Same", I64(), I64(), I64(), true},
		{"OptionAbsorbs", Option(I64()), I64(), Option(I64()), true},
		{"OptionNull", Option(I64()), Null(), Option(I64()), true},
		{"NullMakesOption", Null(), Str(), Option(Str()), true},
		{"TupleElementwise", Tuple(I64(), Null()), Tuple(Null(), Str()), Tuple(Option(I64()), Option(Str())), true},
		{"ArityMismatch", Tuple(I64()), Tuple(I64(), I64()), Unknown(), false},
		{"Incompatible", I64(), Str(), Unknown(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unify(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, Equal(tt.want, got), "got %s", got)
			}

			// Commutative.
			rev, revOK := Unify(tt.b, tt.a)
			require.Equal(t, ok, revOK)
			if ok {
				assert.True(t, Equal(got, rev))
			}
		})
	}
}

func TestUnifyIdempotent(t *testing.T) {
	u, ok := Unify(Null(), I64())
	require.True(t, ok)
	again, ok := Unify(u, u)
	require.True(t, ok)
	assert.True(t, Equal(u, again))
}

func TestSubtype(t *testing.T) {
	tests := []struct {
		name     string
		sub, sup Type
		want     bool
	}{
		{"Reflexive", I64(), I64(), true},
		{"IntoOption", I64(), Option(I64()), true},
		{"NullIntoOption", Null(), Option(I64()), true},
		{"IntoAny", Map(Str(), I64()), Any(), true},
		{"TupleFieldwise", Tuple(I64(), Null()), Tuple(I64(), Option(Str())), true},
		{"OptionNotIntoPlain", Option(I64()), I64(), false},
		{"WrongScalar", Str(), Option(I64()), false},
		{"ArityMismatch", Tuple(I64()), Tuple(I64(), I64()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subtype(tt.sub, tt.sup))
		})
	}
}

func TestSubtypeTransitive(t *testing.T) {
	a := Tuple(Null())
	b := Tuple(Option(I64()))
	require.True(t, Subtype(a, b))
	require.True(t, Subtype(b, b))
	assert.True(t, Subtype(a, b))
}

func TestNewSchema(t *testing.T) {
	_, err := NewSchema(I64(), nil)
	assert.Error(t, err)

	_, err = NewSchema(Tuple(I64(), Str()), []string{"a"})
	assert.Error(t, err)

	s, err := NewSchema(Tuple(I64(), Str()), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumFields())
	assert.True(t, Equal(Str(), s.Field(1)))
}
