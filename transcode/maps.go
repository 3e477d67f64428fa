package transcode

import (
	"context"

	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

// MapUnpack encodes map-shaped records against a column layout derived
// from their keys. A record must carry exactly as many keys as there
// are columns; fewer or extra keys, a non-map record, a missing column,
// or a value outside the column's type routes the whole record to
// exceptions.
func MapUnpack(ctx context.Context, driver *partition.Driver, schema types.Schema, records []record.Value, opts Options) ([]*partition.Partition, *Exceptions, error) {
	opts = opts.normalize()

	layout, err := codec.NewLayout(schema)
	if err != nil {
		return nil, nil, err
	}

	w := partition.NewWriter(ctx, driver, schema)
	exc := NewExceptions()
	vals := make([]record.Value, len(schema.Columns))
	for i, v := range records {
		if v.Kind != types.KindMap || len(v.Pairs) != len(schema.Columns) {
			exc.Add(uint64(i), v)
			continue
		}
		ok := true
		for j, col := range schema.Columns {
			fv, found := v.Lookup(col)
			if !found {
				ok = false
				break
			}
			// Subtype routing keeps Option columns usable: both the
			// unwrapped type and null conform.
			if !types.Subtype(opts.Classifier.Classify(fv), schema.Row.Params[j]) {
				ok = false
				break
			}
			vals[j] = fv
		}
		if !ok {
			exc.Add(uint64(i), v)
			continue
		}
		row, err := opts.Classifier.Materialize(record.TupleOf(vals...), schema.Row)
		if err != nil {
			exc.Add(uint64(i), v)
			continue
		}
		if err := encodeRow(w, layout, row); err != nil {
			w.Discard()
			return nil, nil, err
		}
	}
	return w.Finish(), exc, nil
}
