// Package transcode converts dynamically-typed records into encoded
// partitions. Records matching the majority type are written through
// the row codec; everything else is routed to an exception list so
// that one bad record never aborts the batch.
package transcode

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

// ErrInterrupted is returned when a pending cancellation is observed
// mid-batch. No partial partitions are published in that case.
var ErrInterrupted = errors.New("transcode: interrupted")

// Options control conversion behavior shared by all transcoders.
type Options struct {
	// AutoUpcast permits bool values in integer columns (true=1) and
	// bool/integer values in float columns.
	AutoUpcast bool

	// Classifier maps values to types. Nil means record.StdClassifier.
	Classifier record.Classifier

	// Logger receives conversion diagnostics. Nil means no output.
	Logger *slog.Logger
}

func (o Options) normalize() Options {
	if o.Classifier == nil {
		o.Classifier = record.StdClassifier{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// conformScalar validates v against a flat primitive kind, applying
// the upcast policy when enabled. It returns the value to encode.
func conformScalar(v record.Value, kind types.Kind, upcast bool) (record.Value, bool) {
	if v.Kind == kind {
		return v, true
	}
	if !upcast {
		return record.Value{}, false
	}
	switch kind {
	case types.KindI64:
		if v.Kind == types.KindBool {
			if v.B {
				return record.Int(1), true
			}
			return record.Int(0), true
		}
	case types.KindF64:
		switch v.Kind {
		case types.KindI64:
			return record.Float(float64(v.I64)), true
		case types.KindBool:
			if v.B {
				return record.Float(1), true
			}
			return record.Float(0), true
		}
	}
	return record.Value{}, false
}

// FlatScalar encodes records against a single flat primitive majority
// type. schema.Row must be a one-field tuple of that primitive.
func FlatScalar(ctx context.Context, driver *partition.Driver, schema types.Schema, records []record.Value, opts Options) ([]*partition.Partition, *Exceptions, error) {
	opts = opts.normalize()

	layout, err := codec.NewLayout(schema)
	if err != nil {
		return nil, nil, err
	}
	kind := schema.Row.Params[0].Kind

	w := partition.NewWriter(ctx, driver, schema)
	exc := NewExceptions()
	for i, v := range records {
		cv, ok := conformScalar(v, kind, opts.AutoUpcast)
		if !ok {
			exc.Add(uint64(i), v)
			continue
		}
		if err := encodeRow(w, layout, record.NewRow(cv)); err != nil {
			w.Discard()
			return nil, nil, err
		}
	}
	return w.Finish(), exc, nil
}

// FlatTuple encodes records against a tuple-of-flat-primitives
// majority type. Arity and per-field kinds are checked directly, no
// recursive classification is needed.
func FlatTuple(ctx context.Context, driver *partition.Driver, schema types.Schema, records []record.Value, opts Options) ([]*partition.Partition, *Exceptions, error) {
	opts = opts.normalize()

	layout, err := codec.NewLayout(schema)
	if err != nil {
		return nil, nil, err
	}
	arity := schema.Row.Arity()

	w := partition.NewWriter(ctx, driver, schema)
	exc := NewExceptions()
	vals := make([]record.Value, arity)
	for i, v := range records {
		if v.Kind != types.KindTuple || len(v.Items) != arity {
			exc.Add(uint64(i), v)
			continue
		}
		ok := true
		for j := 0; j < arity; j++ {
			cv, conf := conformScalar(v.Items[j], schema.Row.Params[j].Kind, opts.AutoUpcast)
			if !conf {
				ok = false
				break
			}
			vals[j] = cv
		}
		if !ok {
			exc.Add(uint64(i), v)
			continue
		}
		if err := encodeRow(w, layout, record.NewRow(vals...)); err != nil {
			w.Discard()
			return nil, nil, err
		}
	}
	return w.Finish(), exc, nil
}

// encodeRow reserves exactly the row's encoded size and writes it.
func encodeRow(w *partition.Writer, layout *codec.Layout, row record.Row) error {
	size, err := layout.EncodedSize(row)
	if err != nil {
		return err
	}
	buf, err := w.Next(size)
	if err != nil {
		return err
	}
	n, err := layout.Encode(row, buf[:size])
	if err != nil {
		return err
	}
	w.Commit(n)
	return nil
}
