package partition

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/soumenms2015/tuplex/internal/mem"
	"github.com/soumenms2015/tuplex/resource"
	"github.com/soumenms2015/tuplex/types"
)

// DefaultMinAllocSize is the default minimum partition payload capacity.
const DefaultMinAllocSize = 64 << 10

// DriverOptions configures a Driver.
type DriverOptions struct {
	// MinAllocSize is the minimum payload capacity of any allocation.
	MinAllocSize int
	// Controller charges allocations against a memory budget. Nil means
	// unbudgeted.
	Controller *resource.Controller
}

// Driver allocates partitions. Safe for concurrent calls; any single
// ingestion call holds only one partition open for writing at a time.
type Driver struct {
	minAlloc int
	ctrl     *resource.Controller
}

// NewDriver creates a Driver.
func NewDriver(optFns ...func(*DriverOptions)) *Driver {
	opts := DriverOptions{MinAllocSize: DefaultMinAllocSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MinAllocSize <= 0 {
		opts.MinAllocSize = DefaultMinAllocSize
	}
	return &Driver{minAlloc: opts.MinAllocSize, ctrl: opts.Controller}
}

// MinAllocSize returns the configured minimum payload capacity.
func (d *Driver) MinAllocSize() int { return d.minAlloc }

// Allocate returns a partition with payload capacity of at least
// max(minBytes, the configured minimum), exclusively owned by the
// caller. Blocks while the memory budget is exhausted.
func (d *Driver) Allocate(ctx context.Context, minBytes int, schema types.Schema) (*Partition, error) {
	capacity := minBytes
	if capacity < d.minAlloc {
		capacity = d.minAlloc
	}
	total := HeaderSize + capacity
	if err := d.ctrl.AcquireMemory(ctx, int64(total)); err != nil {
		return nil, fmt.Errorf("partition: allocate %d bytes: %w", total, err)
	}
	buf := mem.AllocAligned(total)
	binary.LittleEndian.PutUint64(buf, 0)
	return &Partition{buf: buf, schema: schema, driver: d}, nil
}

// FromBytes adopts an existing encoded partition image (header + rows),
// for example one loaded back from spill storage. The returned partition
// is already sealed.
func (d *Driver) FromBytes(ctx context.Context, data []byte, schema types.Schema) (*Partition, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("partition: image of %d bytes is shorter than the header", len(data))
	}
	if err := d.ctrl.AcquireMemory(ctx, int64(len(data))); err != nil {
		return nil, fmt.Errorf("partition: adopt %d bytes: %w", len(data), err)
	}
	buf := mem.AllocAligned(len(data))
	copy(buf, data)
	p := &Partition{buf: buf, schema: schema, driver: d, used: len(data) - HeaderSize}
	p.sealed = true
	return p, nil
}

func (d *Driver) release(bytes int) {
	d.ctrl.ReleaseMemory(int64(bytes))
}
