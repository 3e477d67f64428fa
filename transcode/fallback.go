package transcode

import (
	"context"

	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

// Fallback handles majority types outside the fast paths: nested
// tuples, options, lists, maps and null. Each record is classified,
// tested for subtype-conformance against maj, converted and collected;
// conforming rows are bulk-encoded at the end. Cancellation is polled
// once per record; a pending cancellation releases everything
// collected so far and reports ErrInterrupted instead of a partial
// result.
func Fallback(ctx context.Context, driver *partition.Driver, schema types.Schema, maj types.Type, records []record.Value, opts Options) ([]*partition.Partition, *Exceptions, error) {
	opts = opts.normalize()

	layout, err := codec.NewLayout(schema)
	if err != nil {
		return nil, nil, err
	}

	exc := NewExceptions()
	rows := make([]record.Row, 0, len(records))
	for i, v := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, ErrInterrupted
		}
		if !types.Subtype(opts.Classifier.Classify(v), maj) {
			exc.Add(uint64(i), v)
			continue
		}
		row, err := opts.Classifier.Materialize(v, schema.Row)
		if err != nil {
			exc.Add(uint64(i), v)
			continue
		}
		rows = append(rows, row)
	}

	w := partition.NewWriter(ctx, driver, schema)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			w.Discard()
			return nil, nil, ErrInterrupted
		}
		if err := encodeRow(w, layout, row); err != nil {
			w.Discard()
			return nil, nil, err
		}
	}
	return w.Finish(), exc, nil
}
