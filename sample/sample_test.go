package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

func ints(vals ...int64) []record.Value {
	out := make([]record.Value, len(vals))
	for i, v := range vals {
		out[i] = record.Int(v)
	}
	return out
}

func TestInferTypeEmpty(t *testing.T) {
	got := InferType(nil, Options{})
	assert.Equal(t, types.KindUnknown, got.Kind)
}

func TestInferTypeUniform(t *testing.T) {
	got := InferType(ints(1, 2, 3), Options{})
	assert.True(t, types.Equal(types.I64(), got))
}

func TestInferTypeMajorityWinsOverOutlier(t *testing.T) {
	// A string outlier does not unify with i64, so the majority stays
	// plain I64 and the outlier becomes a runtime exception later.
	records := append(ints(1, 2, 3), record.String("x"), record.Int(4))
	got := InferType(records, Options{OptionalThreshold: 0.8})
	assert.True(t, types.Equal(types.I64(), got))
}

func TestInferTypeNullBand(t *testing.T) {
	// 3 ints, 2 nulls: null fraction 0.4 inside (0.2, 0.8) widens the
	// majority to Option(I64).
	records := []record.Value{
		record.Int(1), record.Null(), record.Int(2), record.Null(), record.Int(3),
	}
	got := InferType(records, Options{OptionalThreshold: 0.8})
	assert.True(t, types.Equal(types.Option(types.I64()), got), "got %s", got)
}

func TestInferTypeBandBoundaries(t *testing.T) {
	// 100 records with k nulls: optionize iff 1-t < k/100 < t, strict.
	// Once nulls dominate the sample they are the majority type
	// themselves.
	const t80 = 0.8
	tests := []struct {
		name  string
		nulls int
		want  types.Type
	}{
		{"BelowLowerBound", 10, types.I64()},
		{"AtLowerBound", 20, types.I64()},
		{"JustInside", 21, types.Option(types.I64())},
		{"WellInside", 49, types.Option(types.I64())},
		{"NullsDominant", 79, types.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]record.Value, 0, 100)
			for i := 0; i < 100-tt.nulls; i++ {
				records = append(records, record.Int(int64(i)))
			}
			for i := 0; i < tt.nulls; i++ {
				records = append(records, record.Null())
			}
			got := InferType(records, Options{OptionalThreshold: t80})
			assert.True(t, types.Equal(tt.want, got), "got %s", got)
		})
	}
}

func TestInferTypeTupleOptionize(t *testing.T) {
	// Majority tuple (i64, str); a 30% minority with a null second field
	// unifies into (i64, opt(str)) under t=0.8.
	var records []record.Value
	for i := 0; i < 7; i++ {
		records = append(records, record.TupleOf(record.Int(int64(i)), record.String("s")))
	}
	for i := 0; i < 3; i++ {
		records = append(records, record.TupleOf(record.Int(int64(i)), record.Null()))
	}
	got := InferType(records, Options{OptionalThreshold: 0.8})
	want := types.Tuple(types.I64(), types.Option(types.Str()))
	assert.True(t, types.Equal(want, got), "got %s", got)
}

func TestInferTypeSampleBound(t *testing.T) {
	// The string outlier sits beyond the sample prefix and must not
	// influence the result.
	records := append(ints(1, 2, 3, 4), record.String("x"))
	got := InferType(records, Options{SampleSize: 4})
	assert.True(t, types.Equal(types.I64(), got))
}

func mapRec(pairs ...record.Entry) record.Value {
	return record.MapOf(pairs...)
}

func ent(k string, v record.Value) record.Entry {
	return record.Entry{Key: record.String(k), Value: v}
}

func TestInferColumns(t *testing.T) {
	// "a" appears 3/3, "b" 2/3; at threshold 0.8 only "a" survives.
	records := []record.Value{
		mapRec(ent("a", record.Int(1)), ent("b", record.String("x"))),
		mapRec(ent("a", record.Int(2)), ent("b", record.String("y"))),
		mapRec(ent("a", record.Int(3))),
	}

	columns, rowType, err := InferColumns(records, nil, Options{ColumnThreshold: 0.8})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, columns)
	assert.True(t, types.Equal(types.Tuple(types.I64()), rowType), "got %s", rowType)
}

func TestInferColumnsKeepsCallerOrder(t *testing.T) {
	records := []record.Value{
		mapRec(ent("a", record.Int(1)), ent("b", record.String("x"))),
		mapRec(ent("a", record.Int(2)), ent("b", record.String("y"))),
	}

	columns, rowType, err := InferColumns(records, []string{"b", "a", "missing"}, Options{ColumnThreshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "missing"}, columns)
	want := types.Tuple(types.Str(), types.I64(), types.Any())
	assert.True(t, types.Equal(want, rowType), "got %s", rowType)
}

func TestInferColumnsPerColumnOptionize(t *testing.T) {
	records := []record.Value{
		mapRec(ent("a", record.Int(1))),
		mapRec(ent("a", record.Null())),
		mapRec(ent("a", record.Int(2))),
	}

	_, rowType, err := InferColumns(records, nil, Options{ColumnThreshold: 0.8, OptionalThreshold: 0.8})
	require.NoError(t, err)
	want := types.Tuple(types.Option(types.I64()))
	assert.True(t, types.Equal(want, rowType), "got %s", rowType)
}

func TestInferColumnsWeakFallback(t *testing.T) {
	// No key clears the threshold, so the first all-string-keyed record
	// dictates the schema.
	records := []record.Value{
		mapRec(ent("a", record.Int(1))),
		mapRec(ent("b", record.String("x"))),
		mapRec(ent("c", record.Float(1.5))),
	}

	columns, rowType, err := InferColumns(records, nil, Options{ColumnThreshold: 0.9})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, columns)
	assert.True(t, types.Equal(types.Tuple(types.I64()), rowType))
}

func TestInferColumnsFailsWithoutUsableRecord(t *testing.T) {
	records := []record.Value{
		mapRec(record.Entry{Key: record.Int(1), Value: record.Int(2)}),
	}
	_, _, err := InferColumns(records, nil, Options{ColumnThreshold: 0.9})
	assert.ErrorIs(t, err, ErrSchemaInference)
}
