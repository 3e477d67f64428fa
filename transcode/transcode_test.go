package transcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

func newTestDriver() *partition.Driver {
	return partition.NewDriver(func(o *partition.DriverOptions) { o.MinAllocSize = 256 })
}

func mustSchema(t *testing.T, row types.Type, columns ...string) types.Schema {
	t.Helper()
	s, err := types.NewSchema(row, columns)
	require.NoError(t, err)
	return s
}

// decodeAll reads every row back out of the produced partitions.
func decodeAll(t *testing.T, schema types.Schema, parts []*partition.Partition) []record.Row {
	t.Helper()

	layout, err := codec.NewLayout(schema)
	require.NoError(t, err)

	var rows []record.Row
	for _, p := range parts {
		buf := p.Payload()
		for i := uint64(0); i < p.NumRows(); i++ {
			row, n, err := layout.Decode(buf)
			require.NoError(t, err)
			rows = append(rows, row)
			buf = buf[n:]
		}
	}
	return rows
}

func releaseAll(parts []*partition.Partition) {
	for _, p := range parts {
		p.Release()
	}
}

func TestFlatScalar(t *testing.T) {
	ctx := context.Background()
	schema := mustSchema(t, types.Tuple(types.I64()))
	records := []record.Value{
		record.Int(1), record.Int(2), record.Int(3), record.String("x"), record.Int(4),
	}

	parts, exc, err := FlatScalar(ctx, newTestDriver(), schema, records, Options{})
	require.NoError(t, err)
	defer releaseAll(parts)

	rows := decodeAll(t, schema, parts)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(1), rows[0].Values[0].I64)
	assert.Equal(t, int64(4), rows[3].Values[0].I64)

	require.Equal(t, 1, exc.Len())
	assert.True(t, exc.Contains(3))
	assert.Equal(t, record.String("x"), exc.Records()[0].Record)
}

func TestFlatScalarAutoUpcast(t *testing.T) {
	ctx := context.Background()

	t.Run("BoolIntoInt", func(t *testing.T) {
		schema := mustSchema(t, types.Tuple(types.I64()))
		records := []record.Value{record.Bool(true), record.Int(7), record.Bool(false)}

		parts, exc, err := FlatScalar(ctx, newTestDriver(), schema, records, Options{AutoUpcast: true})
		require.NoError(t, err)
		defer releaseAll(parts)

		rows := decodeAll(t, schema, parts)
		require.Len(t, rows, 3)
		assert.Equal(t, int64(1), rows[0].Values[0].I64)
		assert.Equal(t, int64(7), rows[1].Values[0].I64)
		assert.Equal(t, int64(0), rows[2].Values[0].I64)
		assert.Zero(t, exc.Len())
	})

	t.Run("IntAndBoolIntoFloat", func(t *testing.T) {
		schema := mustSchema(t, types.Tuple(types.F64()))
		records := []record.Value{record.Float(1.5), record.Int(2), record.Bool(true)}

		parts, exc, err := FlatScalar(ctx, newTestDriver(), schema, records, Options{AutoUpcast: true})
		require.NoError(t, err)
		defer releaseAll(parts)

		rows := decodeAll(t, schema, parts)
		require.Len(t, rows, 3)
		assert.Equal(t, 1.5, rows[0].Values[0].F64)
		assert.Equal(t, 2.0, rows[1].Values[0].F64)
		assert.Equal(t, 1.0, rows[2].Values[0].F64)
		assert.Zero(t, exc.Len())
	})

	t.Run("DisabledRoutesToExceptions", func(t *testing.T) {
		schema := mustSchema(t, types.Tuple(types.I64()))
		records := []record.Value{record.Bool(true), record.Int(7)}

		parts, exc, err := FlatScalar(ctx, newTestDriver(), schema, records, Options{})
		require.NoError(t, err)
		defer releaseAll(parts)

		rows := decodeAll(t, schema, parts)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, exc.Len())
		assert.True(t, exc.Contains(0))
	})
}

func TestFlatTuple(t *testing.T) {
	ctx := context.Background()
	schema := mustSchema(t, types.Tuple(types.I64(), types.Str()))
	records := []record.Value{
		record.TupleOf(record.Int(1), record.String("a")),
		record.TupleOf(record.Int(2)),                      // wrong arity
		record.Int(3),                                      // not a tuple
		record.TupleOf(record.String("b"), record.Int(4)),  // fields swapped
		record.TupleOf(record.Int(5), record.String("ok")), // conforms
	}

	parts, exc, err := FlatTuple(ctx, newTestDriver(), schema, records, Options{})
	require.NoError(t, err)
	defer releaseAll(parts)

	rows := decodeAll(t, schema, parts)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Values[0].I64)
	assert.Equal(t, "a", rows[0].Values[1].S)
	assert.Equal(t, int64(5), rows[1].Values[0].I64)
	assert.Equal(t, "ok", rows[1].Values[1].S)

	assert.Equal(t, []uint64{1, 2, 3}, exc.Indices())
}

func TestMapUnpack(t *testing.T) {
	ctx := context.Background()
	schema := mustSchema(t, types.Tuple(types.I64(), types.Option(types.Str())), "a", "b")
	records := []record.Value{
		record.MapOf(
			record.Entry{Key: record.String("a"), Value: record.Int(1)},
			record.Entry{Key: record.String("b"), Value: record.String("x")},
		),
		record.MapOf(
			record.Entry{Key: record.String("a"), Value: record.Int(2)},
			record.Entry{Key: record.String("b"), Value: record.Null()},
		),
		record.MapOf( // "b" missing
			record.Entry{Key: record.String("a"), Value: record.Int(3)},
		),
		record.Int(4), // not a map
		record.MapOf( // "a" has wrong type
			record.Entry{Key: record.String("a"), Value: record.String("bad")},
			record.Entry{Key: record.String("b"), Value: record.String("y")},
		),
		record.MapOf( // extra key beyond the recognized columns
			record.Entry{Key: record.String("a"), Value: record.Int(5)},
			record.Entry{Key: record.String("b"), Value: record.String("z")},
			record.Entry{Key: record.String("c"), Value: record.Bool(true)},
		),
	}

	parts, exc, err := MapUnpack(ctx, newTestDriver(), schema, records, Options{})
	require.NoError(t, err)
	defer releaseAll(parts)

	rows := decodeAll(t, schema, parts)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Values[0].I64)
	assert.Equal(t, "x", rows[0].Values[1].S)
	assert.Equal(t, int64(2), rows[1].Values[0].I64)
	assert.True(t, rows[1].Values[1].IsNull(), "null survives into an option column")

	assert.Equal(t, []uint64{2, 3, 4, 5}, exc.Indices())
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	maj := types.Option(types.I64())
	schema := mustSchema(t, types.Tuple(maj))
	records := []record.Value{
		record.Int(1), record.Null(), record.Int(2), record.String("x"), record.Null(),
	}

	parts, exc, err := Fallback(ctx, newTestDriver(), schema, maj, records, Options{})
	require.NoError(t, err)
	defer releaseAll(parts)

	rows := decodeAll(t, schema, parts)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(1), rows[0].Values[0].I64)
	assert.True(t, rows[1].Values[0].IsNull())
	assert.Equal(t, int64(2), rows[2].Values[0].I64)
	assert.True(t, rows[3].Values[0].IsNull())

	require.Equal(t, 1, exc.Len())
	assert.True(t, exc.Contains(3))
}

func TestFallbackNestedTuple(t *testing.T) {
	ctx := context.Background()
	maj := types.Tuple(types.I64(), types.Tuple(types.Str(), types.F64()))
	schema := mustSchema(t, maj)
	records := []record.Value{
		record.TupleOf(record.Int(1), record.TupleOf(record.String("a"), record.Float(0.5))),
		record.TupleOf(record.Int(2), record.TupleOf(record.String("b"), record.Float(1.5))),
	}

	parts, exc, err := Fallback(ctx, newTestDriver(), schema, maj, records, Options{})
	require.NoError(t, err)
	defer releaseAll(parts)

	rows := decodeAll(t, schema, parts)
	require.Len(t, rows, 2)
	assert.Zero(t, exc.Len())
}

func TestFallbackInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	maj := types.Option(types.I64())
	schema := mustSchema(t, types.Tuple(maj))

	parts, exc, err := Fallback(ctx, newTestDriver(), schema, maj, []record.Value{record.Int(1)}, Options{})
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Nil(t, parts)
	assert.Nil(t, exc)
}

func TestExceptions(t *testing.T) {
	exc := NewExceptions()
	exc.Add(5, record.String("b"))
	exc.Add(2, record.String("a"))

	assert.Equal(t, 2, exc.Len())
	assert.True(t, exc.Contains(2))
	assert.False(t, exc.Contains(3))
	assert.Equal(t, []uint64{2, 5}, exc.Indices(), "indices come out sorted")

	recs := exc.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(5), recs[0].Index, "records keep insertion order")

	var nilExc *Exceptions
	assert.Zero(t, nilExc.Len())
	assert.False(t, nilExc.Contains(0))
	assert.Nil(t, nilExc.Indices())
}
