package partition

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumenms2015/tuplex/resource"
	"github.com/soumenms2015/tuplex/types"
)

func testSchema(t *testing.T) types.Schema {
	t.Helper()
	s, err := types.NewSchema(types.Tuple(types.I64()), nil)
	require.NoError(t, err)
	return s
}

func TestAllocate(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(func(o *DriverOptions) { o.MinAllocSize = 64 })

	p, err := d.Allocate(ctx, 16, testSchema(t))
	require.NoError(t, err)
	defer p.Release()

	assert.GreaterOrEqual(t, p.Capacity(), 64, "minimum allocation size applies")
	assert.EqualValues(t, 0, p.NumRows())
	assert.Equal(t, HeaderSize, p.Size())

	big, err := d.Allocate(ctx, 1024, testSchema(t))
	require.NoError(t, err)
	defer big.Release()
	assert.GreaterOrEqual(t, big.Capacity(), 1024)
}

func TestWriteProtocolPanics(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(func(o *DriverOptions) { o.MinAllocSize = 64 })

	p, err := d.Allocate(ctx, 64, testSchema(t))
	require.NoError(t, err)
	defer p.Release()

	assert.Panics(t, func() { p.UnlockWrite(0) }, "unlock without lock")

	buf := p.LockWrite()
	require.Len(t, buf, HeaderSize+p.Capacity())
	assert.Panics(t, func() { p.LockWrite() }, "double lock")
	assert.Panics(t, func() { p.Seal() }, "seal while locked")
	assert.Panics(t, func() { p.Bytes() }, "read while locked")
	assert.Panics(t, func() { p.UnlockWrite(p.Capacity() + 1) }, "used out of range")

	p.UnlockWrite(8)
	p.Seal()
	assert.Panics(t, func() { p.LockWrite() }, "lock after seal")
	assert.Equal(t, HeaderSize+8, len(p.Bytes()))
	assert.Equal(t, 8, len(p.Payload()))
}

func TestReleaseIdempotent(t *testing.T) {
	ctrl := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	d := NewDriver(func(o *DriverOptions) {
		o.MinAllocSize = 64
		o.Controller = ctrl
	})

	p, err := d.Allocate(context.Background(), 64, testSchema(t))
	require.NoError(t, err)
	require.Greater(t, ctrl.MemoryUsage(), int64(0))

	p.Release()
	p.Release()
	assert.EqualValues(t, 0, ctrl.MemoryUsage())
}

func TestFromBytesAdoptsSealedImage(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(func(o *DriverOptions) { o.MinAllocSize = 64 })

	image := make([]byte, HeaderSize+16)
	binary.LittleEndian.PutUint64(image, 2)

	p, err := d.FromBytes(ctx, image, testSchema(t))
	require.NoError(t, err)
	defer p.Release()

	assert.True(t, p.Sealed())
	assert.EqualValues(t, 2, p.NumRows())
	assert.Equal(t, 16, len(p.Payload()))

	_, err = d.FromBytes(ctx, image[:4], testSchema(t))
	assert.Error(t, err)
}

func TestWriterRowsNeverStraddle(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(func(o *DriverOptions) { o.MinAllocSize = 32 })
	w := NewWriter(ctx, d, testSchema(t))

	const rowSize = 24
	const numRows = 10
	for i := 0; i < numRows; i++ {
		buf, err := w.Next(rowSize)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(buf), rowSize)
		binary.LittleEndian.PutUint64(buf, uint64(i))
		w.Commit(rowSize)
	}
	require.Equal(t, numRows, w.Rows())

	parts := w.Finish()
	require.NotEmpty(t, parts)

	total := uint64(0)
	seq := uint64(0)
	for _, p := range parts {
		assert.True(t, p.Sealed())
		payload := p.Payload()
		assert.Zero(t, len(payload)%rowSize, "whole rows only")
		assert.EqualValues(t, len(payload)/rowSize, p.NumRows())
		for off := 0; off < len(payload); off += rowSize {
			assert.Equal(t, seq, binary.LittleEndian.Uint64(payload[off:]), "row order preserved")
			seq++
		}
		total += p.NumRows()
		p.Release()
	}
	assert.EqualValues(t, numRows, total)
	assert.Greater(t, len(parts), 1, "small partitions force a seal-and-reallocate")
}

func TestWriterOversizedRowGetsOwnPartition(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(func(o *DriverOptions) { o.MinAllocSize = 32 })
	w := NewWriter(ctx, d, testSchema(t))

	buf, err := w.Next(128)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), 128)
	w.Commit(128)

	parts := w.Finish()
	require.Len(t, parts, 1)
	assert.EqualValues(t, 1, parts[0].NumRows())
	parts[0].Release()
}

func TestWriterEmptyInputProducesNoPartitions(t *testing.T) {
	w := NewWriter(context.Background(), NewDriver(), testSchema(t))
	assert.Empty(t, w.Finish())
}

func TestWriterDiscardReleasesEverything(t *testing.T) {
	ctrl := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	d := NewDriver(func(o *DriverOptions) {
		o.MinAllocSize = 32
		o.Controller = ctrl
	})
	w := NewWriter(context.Background(), d, testSchema(t))

	for i := 0; i < 5; i++ {
		_, err := w.Next(24)
		require.NoError(t, err)
		w.Commit(24)
	}
	require.Greater(t, ctrl.MemoryUsage(), int64(0))

	w.Discard()
	assert.EqualValues(t, 0, ctrl.MemoryUsage())
	assert.Panics(t, func() { _, _ = w.Next(8) }, "writer unusable after discard")
}
