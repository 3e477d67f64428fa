// Package codec encodes and decodes typed rows against a schema into the
// fixed-slot binary row format used by partitions.
//
// Layout, per row:
//
//	[null bitmap slot]            only if the schema has Option fields
//	[field slot 0..n-1]           8 bytes each, in schema order
//	[varlen total slot]           only if any field is variable-length
//	[varlen payload]
//
// Bool and I64 slots hold an 8-byte integer, F64 an IEEE754 double. A
// variable-length field's slot packs (offset | length<<32): offset is the
// byte distance from the slot itself to the field's payload, and length
// includes an explicit trailing terminator byte, so payloads can be bulk
// copied without scanning. A row's encoded size is always computed before
// writing, so no row may straddle a partition boundary.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

var (
	// ErrCapacityExceeded signals that the target buffer is too small for
	// the row. It is always recoverable by allocating a larger partition
	// and is never surfaced past the partition writer.
	ErrCapacityExceeded = errors.New("codec: capacity exceeded")
	// ErrTypeMismatch signals that a row does not conform to the schema.
	ErrTypeMismatch = errors.New("codec: row does not match schema")
)

// SlotSize is the size of one header slot in bytes.
const SlotSize = 8

type fieldClass uint8

const (
	classFixed  fieldClass = iota // bool, i64, f64, null
	classString                   // raw string payload + terminator
	classBoxed                    // self-describing tagged value payload
)

type fieldInfo struct {
	typ      types.Type
	base     types.Type // option-unwrapped type
	class    fieldClass
	optional bool // participates in the null bitmap
}

// Layout is the precomputed slot layout of a schema. Compute it once per
// batch and reuse it for every row.
type Layout struct {
	fields      []fieldInfo
	hasBitmap   bool
	hasVarlen   bool
	headerSlots int
	bitmapSlots int
}

// NewLayout analyzes a schema into a Layout.
func NewLayout(schema types.Schema) (*Layout, error) {
	if schema.Row.Kind != types.KindTuple {
		return nil, fmt.Errorf("%w: row type %s is not a tuple", ErrTypeMismatch, schema.Row)
	}
	l := &Layout{fields: make([]fieldInfo, len(schema.Row.Params))}
	for i, ft := range schema.Row.Params {
		fi := fieldInfo{typ: ft, base: ft}
		if ft.Kind == types.KindOption {
			fi.base = ft.Unwrap()
		}
		switch fi.base.Kind {
		case types.KindBool, types.KindI64, types.KindF64, types.KindNull:
			fi.class = classFixed
			fi.optional = ft.Kind == types.KindOption
		case types.KindStr:
			fi.class = classString
			fi.optional = ft.Kind == types.KindOption
		default:
			// Complex shapes carry a self-describing tag, so nulls need
			// no bitmap bit.
			fi.class = classBoxed
		}
		if fi.class != classFixed {
			l.hasVarlen = true
		}
		if fi.optional {
			l.hasBitmap = true
		}
		l.fields[i] = fi
	}
	if l.hasBitmap && len(l.fields) > 64 {
		return nil, fmt.Errorf("%w: option fields beyond 64-bit bitmap", ErrTypeMismatch)
	}
	if l.hasBitmap {
		l.bitmapSlots = 1
	}
	l.headerSlots = l.bitmapSlots + len(l.fields)
	if l.hasVarlen {
		l.headerSlots++
	}
	return l, nil
}

// HeaderSize returns the fixed header size in bytes for one row.
func (l *Layout) HeaderSize() int { return l.headerSlots * SlotSize }

// EncodedSize returns the exact number of bytes Encode will write for row.
func (l *Layout) EncodedSize(row record.Row) (int, error) {
	if len(row.Values) != len(l.fields) {
		return 0, fmt.Errorf("%w: arity %d, want %d", ErrTypeMismatch, len(row.Values), len(l.fields))
	}
	size := l.HeaderSize()
	for i, fi := range l.fields {
		n, err := l.payloadSize(row.Values[i], fi)
		if err != nil {
			return 0, err
		}
		size += n
	}
	return size, nil
}

func (l *Layout) payloadSize(v record.Value, fi fieldInfo) (int, error) {
	if v.IsNull() {
		if fi.class == classBoxed {
			return 2, nil // tag + terminator
		}
		if !fi.optional && fi.base.Kind != types.KindNull {
			return 0, fmt.Errorf("%w: null in non-option field %s", ErrTypeMismatch, fi.typ)
		}
		return 0, nil
	}
	switch fi.class {
	case classFixed:
		if v.Kind != fi.base.Kind {
			return 0, fmt.Errorf("%w: kind %d in field %s", ErrTypeMismatch, v.Kind, fi.typ)
		}
		return 0, nil
	case classString:
		if v.Kind != types.KindStr {
			return 0, fmt.Errorf("%w: kind %d in field %s", ErrTypeMismatch, v.Kind, fi.typ)
		}
		return len(v.S) + 1, nil
	default:
		return boxedSize(v) + 1, nil
	}
}

// Encode writes row into buf and returns the number of bytes written.
// It fails with ErrCapacityExceeded if buf is too small and with
// ErrTypeMismatch if the row does not conform to the layout's schema.
// The encoded size is decided before any byte is written.
func (l *Layout) Encode(row record.Row, buf []byte) (int, error) {
	size, err := l.EncodedSize(row)
	if err != nil {
		return 0, err
	}
	if size > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrCapacityExceeded, size, len(buf))
	}

	c := cursor{buf: buf[:size]}
	var bitmap uint64
	varOff := l.headerSlots * SlotSize // next payload write position
	varTotal := 0

	for i, fi := range l.fields {
		v := row.Values[i]
		slotPos := (l.bitmapSlots + i) * SlotSize

		if v.IsNull() && fi.class != classBoxed {
			if fi.optional {
				bitmap |= 1 << uint(i)
			}
			if err := c.putU64(slotPos, 0); err != nil {
				return 0, err
			}
			continue
		}

		switch fi.class {
		case classFixed:
			var word uint64
			switch fi.base.Kind {
			case types.KindBool:
				if v.B {
					word = 1
				}
			case types.KindI64:
				word = uint64(v.I64)
			case types.KindF64:
				word = math.Float64bits(v.F64)
			}
			if err := c.putU64(slotPos, word); err != nil {
				return 0, err
			}
		case classString, classBoxed:
			var payload []byte
			if fi.class == classString {
				payload = make([]byte, 0, len(v.S)+1)
				payload = append(payload, v.S...)
			} else {
				payload = appendBoxed(nil, v)
			}
			payload = append(payload, 0) // explicit terminator
			info := uint64(varOff-slotPos) | uint64(len(payload))<<32
			if err := c.putU64(slotPos, info); err != nil {
				return 0, err
			}
			if err := c.copyAt(varOff, payload); err != nil {
				return 0, err
			}
			varOff += len(payload)
			varTotal += len(payload)
		}
	}

	if l.hasBitmap {
		if err := c.putU64(0, bitmap); err != nil {
			return 0, err
		}
	}
	if l.hasVarlen {
		if err := c.putU64((l.bitmapSlots+len(l.fields))*SlotSize, uint64(varTotal)); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// Decode reads one row from buf and returns it together with the number
// of bytes consumed.
func (l *Layout) Decode(buf []byte) (record.Row, int, error) {
	c := cursor{buf: buf}
	if len(buf) < l.HeaderSize() {
		return record.Row{}, 0, fmt.Errorf("codec: short buffer: %d bytes for %d-byte header", len(buf), l.HeaderSize())
	}

	var bitmap uint64
	if l.hasBitmap {
		bitmap, _ = c.u64(0)
	}

	values := make([]record.Value, len(l.fields))
	for i, fi := range l.fields {
		slotPos := (l.bitmapSlots + i) * SlotSize
		word, err := c.u64(slotPos)
		if err != nil {
			return record.Row{}, 0, err
		}

		if fi.optional && bitmap&(1<<uint(i)) != 0 {
			values[i] = record.Null()
			continue
		}

		switch fi.class {
		case classFixed:
			switch fi.base.Kind {
			case types.KindBool:
				values[i] = record.Bool(word != 0)
			case types.KindI64:
				values[i] = record.Int(int64(word))
			case types.KindF64:
				values[i] = record.Float(math.Float64frombits(word))
			case types.KindNull:
				values[i] = record.Null()
			}
		case classString, classBoxed:
			offset := int(uint32(word))
			length := int(word >> 32)
			if length == 0 {
				return record.Row{}, 0, fmt.Errorf("codec: zero-length varlen field %d", i)
			}
			payload, err := c.bytes(slotPos+offset, length)
			if err != nil {
				return record.Row{}, 0, err
			}
			if fi.class == classString {
				values[i] = record.String(string(payload[:length-1]))
			} else {
				v, rest, perr := parseBoxed(payload[:length-1])
				if perr != nil {
					return record.Row{}, 0, perr
				}
				if len(rest) != 0 {
					return record.Row{}, 0, fmt.Errorf("codec: %d trailing bytes in boxed field %d", len(rest), i)
				}
				values[i] = v
			}
		}
	}

	consumed := l.HeaderSize()
	if l.hasVarlen {
		total, err := c.u64((l.bitmapSlots + len(l.fields)) * SlotSize)
		if err != nil {
			return record.Row{}, 0, err
		}
		consumed += int(total)
	}
	if consumed > len(buf) {
		return record.Row{}, 0, fmt.Errorf("codec: row of %d bytes exceeds buffer of %d", consumed, len(buf))
	}
	return record.Row{Values: values}, consumed, nil
}

// cursor is a bounds-checked view over a byte buffer. All reads and
// writes are offset-addressed and checked; there is no raw pointer
// arithmetic anywhere in the codec.
type cursor struct {
	buf []byte
}

func (c cursor) need(off, n int) error {
	if off < 0 || off+n > len(c.buf) {
		return fmt.Errorf("%w: access [%d,%d) of %d", ErrCapacityExceeded, off, off+n, len(c.buf))
	}
	return nil
}

func (c cursor) putU64(off int, v uint64) error {
	if err := c.need(off, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(c.buf[off:], v)
	return nil
}

func (c cursor) u64(off int) (uint64, error) {
	if err := c.need(off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.buf[off:]), nil
}

func (c cursor) copyAt(off int, b []byte) error {
	if err := c.need(off, len(b)); err != nil {
		return err
	}
	copy(c.buf[off:], b)
	return nil
}

func (c cursor) bytes(off, n int) ([]byte, error) {
	if err := c.need(off, n); err != nil {
		return nil, err
	}
	return c.buf[off : off+n], nil
}
