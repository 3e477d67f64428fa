package partition

import (
	"context"
	"encoding/binary"

	"github.com/soumenms2015/tuplex/types"
)

// Writer drives the per-row append loop over a sequence of partitions.
// Before each row it checks remaining capacity; when the next row does
// not fit, the open partition is sealed and pushed to the output and a
// new one sized to at least that row's requirement is allocated. Every
// produced partition therefore holds a whole number of rows.
type Writer struct {
	ctx    context.Context
	driver *Driver
	schema types.Schema

	cur  *Partition
	raw  []byte // cur's full buffer while write-locked
	used int    // payload bytes written to cur
	out  []*Partition
	done bool
}

// NewWriter creates a Writer. The first partition is allocated lazily on
// the first Next call, so empty inputs produce no partitions.
func NewWriter(ctx context.Context, driver *Driver, schema types.Schema) *Writer {
	return &Writer{ctx: ctx, driver: driver, schema: schema}
}

// Next returns a write window of at least required bytes. The caller
// encodes exactly one row into it and then calls Commit with the number
// of bytes written.
func (w *Writer) Next(required int) ([]byte, error) {
	if w.done {
		panic("partition: writer used after Finish or Discard")
	}
	if w.cur == nil || w.cur.Capacity()-w.used < required {
		w.seal()
		p, err := w.driver.Allocate(w.ctx, required, w.schema)
		if err != nil {
			return nil, err
		}
		w.cur = p
		w.raw = p.LockWrite()
		binary.LittleEndian.PutUint64(w.raw, 0)
		w.used = 0
	}
	return w.raw[HeaderSize+w.used:], nil
}

// Commit records a successfully encoded row of n bytes, bumping the
// partition's row counter.
func (w *Writer) Commit(n int) {
	if w.cur == nil {
		panic("partition: commit without Next")
	}
	w.used += n
	rows := binary.LittleEndian.Uint64(w.raw)
	binary.LittleEndian.PutUint64(w.raw, rows+1)
}

// Rows returns the total number of committed rows across all partitions.
func (w *Writer) Rows() int {
	n := 0
	for _, p := range w.out {
		n += int(p.NumRows())
	}
	if w.cur != nil {
		n += int(binary.LittleEndian.Uint64(w.raw))
	}
	return n
}

func (w *Writer) seal() {
	if w.cur == nil {
		return
	}
	w.cur.UnlockWrite(w.used)
	w.cur.Seal()
	w.out = append(w.out, w.cur)
	w.cur = nil
	w.raw = nil
	w.used = 0
}

// Finish seals the open partition and returns the ordered partition
// sequence. The writer must not be used afterwards.
func (w *Writer) Finish() []*Partition {
	if w.done {
		panic("partition: writer finished twice")
	}
	w.seal()
	w.done = true
	return w.out
}

// Discard releases every partition this writer produced, publishing
// nothing. Used on interruption so partially-filled partitions never
// escape.
func (w *Writer) Discard() {
	if w.done {
		return
	}
	if w.cur != nil {
		w.cur.UnlockWrite(w.used)
		w.cur.Release()
		w.cur = nil
		w.raw = nil
	}
	for _, p := range w.out {
		p.Release()
	}
	w.out = nil
	w.done = true
}
