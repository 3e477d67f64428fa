package transcode

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/soumenms2015/tuplex/record"
)

// Exception is a record that did not conform to the majority type,
// kept with its position in the original input so it can be merged
// back after a resolution pass.
type Exception struct {
	Index  uint64
	Record record.Value
}

// Exceptions collects non-conforming records in input order. Indices
// are kept in a compressed bitmap so membership checks and merges stay
// cheap even for adversarial inputs where most rows deviate.
type Exceptions struct {
	indices *roaring64.Bitmap
	records []Exception
}

func NewExceptions() *Exceptions {
	return &Exceptions{indices: roaring64.New()}
}

// Add records a non-conforming value at the given input position.
func (e *Exceptions) Add(index uint64, v record.Value) {
	e.indices.Add(index)
	e.records = append(e.records, Exception{Index: index, Record: v})
}

// Len returns the number of collected exceptions.
func (e *Exceptions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.records)
}

// Contains reports whether the record at index was routed here.
func (e *Exceptions) Contains(index uint64) bool {
	if e == nil {
		return false
	}
	return e.indices.Contains(index)
}

// Indices returns the exception positions in ascending order.
func (e *Exceptions) Indices() []uint64 {
	if e == nil {
		return nil
	}
	return e.indices.ToArray()
}

// Records returns the collected exceptions in input order.
func (e *Exceptions) Records() []Exception {
	if e == nil {
		return nil
	}
	return e.records
}
