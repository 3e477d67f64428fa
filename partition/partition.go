// Package partition provides the fixed-capacity, append-then-seal byte
// buffers that encoded rows are written into, and the driver that
// allocates them against a memory budget.
//
// A partition has exactly one writer until it is sealed. Acquiring write
// access, releasing it, and sealing must happen in that order; violating
// the protocol is a programming error and panics. Once sealed a
// partition is immutable and may be shared by any number of readers.
package partition

import (
	"encoding/binary"

	"github.com/soumenms2015/tuplex/types"
)

// HeaderSize is the size of the partition header: an 8-byte row counter,
// incremented on every successful row append.
const HeaderSize = 8

// Partition is an exclusively-owned, fixed-capacity byte buffer holding
// a whole number of encoded rows.
type Partition struct {
	buf      []byte // header + payload
	schema   types.Schema
	driver   *Driver
	used     int // payload bytes written
	locked   bool
	sealed   bool
	released bool
}

// Schema returns the row schema this partition was allocated for.
func (p *Partition) Schema() types.Schema { return p.schema }

// Capacity returns the payload capacity in bytes, excluding the header.
func (p *Partition) Capacity() int { return len(p.buf) - HeaderSize }

// Size returns the bytes in use, including the header.
func (p *Partition) Size() int { return HeaderSize + p.used }

// NumRows returns the row counter.
func (p *Partition) NumRows() uint64 {
	return binary.LittleEndian.Uint64(p.buf)
}

// LockWrite acquires raw write access and returns the full buffer,
// header included. The caller must call UnlockWrite before the
// partition can be read or published.
func (p *Partition) LockWrite() []byte {
	if p.sealed {
		panic("partition: write lock on sealed partition")
	}
	if p.locked {
		panic("partition: write lock held twice")
	}
	if p.released {
		panic("partition: write lock on released partition")
	}
	p.locked = true
	return p.buf
}

// UnlockWrite releases write access, recording used payload bytes.
func (p *Partition) UnlockWrite(used int) {
	if !p.locked {
		panic("partition: unlock without lock")
	}
	if used < 0 || used > p.Capacity() {
		panic("partition: used bytes out of range")
	}
	p.locked = false
	p.used = used
}

// Seal freezes the partition. Sealed content is immutable.
func (p *Partition) Seal() {
	if p.locked {
		panic("partition: seal while write-locked")
	}
	p.sealed = true
}

// Sealed reports whether the partition has been sealed.
func (p *Partition) Sealed() bool { return p.sealed }

// Bytes returns the used region (header + payload). Only valid once the
// write lock has been released.
func (p *Partition) Bytes() []byte {
	if p.locked {
		panic("partition: read while write-locked")
	}
	return p.buf[:HeaderSize+p.used]
}

// Payload returns the encoded-row region, without the header.
func (p *Partition) Payload() []byte {
	if p.locked {
		panic("partition: read while write-locked")
	}
	return p.buf[HeaderSize : HeaderSize+p.used]
}

// Release returns the partition's memory to the driver's budget. The
// last holder releases; further access panics.
func (p *Partition) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.driver != nil {
		p.driver.release(len(p.buf))
	}
	p.buf = nil
}
