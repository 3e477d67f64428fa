package tuplex

import (
	"context"

	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/sample"
	"github.com/soumenms2015/tuplex/transcode"
	"github.com/soumenms2015/tuplex/types"
)

// Context converts heterogeneous record collections into typed,
// encoded datasets. A Context is safe for concurrent use; each
// Parallelize call works on its own partitions.
type Context struct {
	opts   options
	driver *partition.Driver
	logger *Logger
}

// New creates a Context.
func New(optFns ...Option) *Context {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	driver := partition.NewDriver(func(o *partition.DriverOptions) {
		o.MinAllocSize = opts.minAllocSize
		o.Controller = opts.controller
	})
	return &Context{opts: opts, driver: driver, logger: opts.logger}
}

// ParallelizeAny adapts native Go values and converts them. It is a
// convenience wrapper around Parallelize for []any inputs.
func (c *Context) ParallelizeAny(ctx context.Context, in []any) *Dataset {
	records, err := record.Slice(in)
	if err != nil {
		return makeError(err)
	}
	return c.Parallelize(ctx, records)
}

// Parallelize infers the normal-case type of records (unless a schema
// was fixed via WithSchema), encodes conforming records into
// partitions and routes the rest to the exception list. Failures, a
// pending cancellation included, yield an error Dataset.
func (c *Context) Parallelize(ctx context.Context, records []record.Value) *Dataset {
	if len(records) == 0 {
		return makeError(ErrEmptyInput)
	}

	sampleOpts := sample.Options{
		SampleSize:        c.opts.sampleSize,
		OptionalThreshold: c.opts.optionalThreshold,
		ColumnThreshold:   c.opts.columnThreshold,
		Classifier:        c.opts.classifier,
		Logger:            c.logger.Logger,
	}

	majType := types.Unknown()
	if c.opts.schema != nil {
		majType = *c.opts.schema
	} else {
		majType = sample.InferType(records, sampleOpts)
	}
	if majType.Kind == types.KindUnknown {
		err := &ErrUnsupportedType{Type: majType}
		c.logger.LogParallelize(ctx, majType, 0, 0, err)
		return makeError(err)
	}
	c.logger.LogInference(ctx, majType, min(len(records), sampleOpts.SampleSize))

	columns := c.opts.columns
	tcOpts := transcode.Options{
		AutoUpcast: c.opts.autoUpcast,
		Classifier: c.opts.classifier,
		Logger:     c.logger.Logger,
	}

	var (
		parts []*partition.Partition
		exc   *transcode.Exceptions
		err   error
	)
	switch {
	case isStringKeyedMap(majType):
		// Automatic unpacking: keys become columns.
		var rowType types.Type
		columns, rowType, err = sample.InferColumns(records, columns, sampleOpts)
		if err != nil {
			return makeError(err)
		}
		schema, serr := types.NewSchema(rowType, columns)
		if serr != nil {
			return makeError(serr)
		}
		parts, exc, err = transcode.MapUnpack(ctx, c.driver, schema, records, tcOpts)
		if err == nil {
			ds := fromPartitions(schema, parts, exc)
			c.logger.LogParallelize(ctx, rowType, ds.NumRows(), exc.Len(), nil)
			return ds
		}

	case majType.IsScalar():
		var schema types.Schema
		schema, err = c.makeSchema(types.Tuple(majType), columns)
		if err == nil {
			parts, exc, err = transcode.FlatScalar(ctx, c.driver, schema, records, tcOpts)
		}
		if err == nil {
			ds := fromPartitions(schema, parts, exc)
			c.logger.LogParallelize(ctx, majType, ds.NumRows(), exc.Len(), nil)
			return ds
		}

	case majType.IsFlatTuple():
		var schema types.Schema
		schema, err = c.makeSchema(majType, columns)
		if err == nil {
			parts, exc, err = transcode.FlatTuple(ctx, c.driver, schema, records, tcOpts)
		}
		if err == nil {
			ds := fromPartitions(schema, parts, exc)
			c.logger.LogParallelize(ctx, majType, ds.NumRows(), exc.Len(), nil)
			return ds
		}

	default:
		rowType := majType
		if !rowType.IsTuple() {
			rowType = types.Tuple(majType)
		}
		var schema types.Schema
		schema, err = c.makeSchema(rowType, columns)
		if err == nil {
			parts, exc, err = transcode.Fallback(ctx, c.driver, schema, majType, records, tcOpts)
		}
		if err == nil {
			ds := fromPartitions(schema, parts, exc)
			c.logger.LogParallelize(ctx, majType, ds.NumRows(), exc.Len(), nil)
			return ds
		}
	}

	c.logger.LogParallelize(ctx, majType, 0, 0, err)
	return makeError(err)
}

func (c *Context) makeSchema(rowType types.Type, columns []string) (types.Schema, error) {
	if len(columns) != 0 && len(columns) != rowType.Arity() {
		// Positional fallback keeps the original behavior of ignoring
		// a column list that does not fit the row shape.
		c.logger.Warn("column names do not match row arity, using positional layout",
			"columns", len(columns), "arity", rowType.Arity())
		columns = nil
	}
	return types.NewSchema(rowType, columns)
}

// isStringKeyedMap reports whether t is a concrete map type keyed by
// strings, the shape eligible for automatic column unpacking.
func isStringKeyedMap(t types.Type) bool {
	return t.Kind == types.KindMap && t.KeyT != nil && t.KeyT.Kind == types.KindStr
}
