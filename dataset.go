package tuplex

import (
	"fmt"

	"github.com/soumenms2015/tuplex/codec"
	"github.com/soumenms2015/tuplex/partition"
	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/transcode"
	"github.com/soumenms2015/tuplex/types"
)

// Dataset is the result of a conversion: an ordered sequence of sealed
// partitions holding encoded rows, plus the schema they were encoded
// under and the exceptions that did not make it in. A Dataset owns its
// partitions; Close releases them.
//
// A failed conversion yields an error Dataset: IsError reports true,
// Err carries the cause and all other accessors return empty results.
type Dataset struct {
	schema     types.Schema
	partitions []*partition.Partition
	exceptions *transcode.Exceptions
	err        error
}

// FromPartitions wraps already-encoded partitions into a Dataset. The
// Dataset takes ownership of the partitions.
func FromPartitions(schema types.Schema, parts []*partition.Partition, exc *transcode.Exceptions) *Dataset {
	return &Dataset{schema: schema, partitions: parts, exceptions: exc}
}

// MakeError creates an error Dataset carrying err.
func MakeError(err error) *Dataset {
	return &Dataset{err: err}
}

func fromPartitions(schema types.Schema, parts []*partition.Partition, exc *transcode.Exceptions) *Dataset {
	return FromPartitions(schema, parts, exc)
}

func makeError(err error) *Dataset {
	return MakeError(err)
}

// IsError reports whether the conversion failed.
func (d *Dataset) IsError() bool { return d.err != nil }

// Err returns the conversion failure, or nil.
func (d *Dataset) Err() error { return d.err }

// Schema returns the row schema the partitions were encoded under.
func (d *Dataset) Schema() types.Schema { return d.schema }

// Columns returns the column names, empty for positional data.
func (d *Dataset) Columns() []string { return d.schema.Columns }

// Partitions returns the sealed partitions in row order.
func (d *Dataset) Partitions() []*partition.Partition { return d.partitions }

// NumRows returns the total number of encoded rows.
func (d *Dataset) NumRows() uint64 {
	var n uint64
	for _, p := range d.partitions {
		n += p.NumRows()
	}
	return n
}

// Exceptions returns the records that did not conform to the majority
// type, with their original input positions.
func (d *Dataset) Exceptions() *transcode.Exceptions { return d.exceptions }

// Rows decodes every partition back into rows, in input order minus
// the exceptions. Intended for result collection and tests, not for
// bulk processing.
func (d *Dataset) Rows() ([]record.Row, error) {
	if d.err != nil {
		return nil, d.err
	}
	layout, err := codec.NewLayout(d.schema)
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, 0, d.NumRows())
	for _, p := range d.partitions {
		payload := p.Payload()
		for off, want := 0, p.NumRows(); want > 0; want-- {
			row, consumed, err := layout.Decode(payload[off:])
			if err != nil {
				return nil, fmt.Errorf("tuplex: decode partition: %w", err)
			}
			rows = append(rows, row)
			off += consumed
		}
	}
	return rows, nil
}

// Close releases all partitions back to the driver. The Dataset must
// not be used afterwards. Close is idempotent.
func (d *Dataset) Close() {
	for _, p := range d.partitions {
		p.Release()
	}
	d.partitions = nil
}
