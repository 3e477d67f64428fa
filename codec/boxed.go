package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/soumenms2015/tuplex/record"
	"github.com/soumenms2015/tuplex/types"
)

// Boxed encoding: the self-describing tagged form used for complex row
// fields (lists, maps, nested tuples, Any). One kind byte, then a
// kind-specific payload, recursively.

func boxedSize(v record.Value) int {
	n := 1 // kind tag
	switch v.Kind {
	case types.KindNull:
	case types.KindBool:
		n++
	case types.KindI64:
		var tmp [binary.MaxVarintLen64]byte
		n += binary.PutVarint(tmp[:], v.I64)
	case types.KindF64:
		n += 8
	case types.KindStr:
		n += uvarintLen(uint64(len(v.S))) + len(v.S)
	case types.KindTuple, types.KindList:
		n += uvarintLen(uint64(len(v.Items)))
		for i := range v.Items {
			n += boxedSize(v.Items[i])
		}
	case types.KindMap:
		n += uvarintLen(uint64(len(v.Pairs)))
		for i := range v.Pairs {
			n += boxedSize(v.Pairs[i].Key)
			n += boxedSize(v.Pairs[i].Value)
		}
	}
	return n
}

func uvarintLen(v uint64) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], v)
}

func appendBoxed(buf []byte, v record.Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case types.KindNull:
	case types.KindBool:
		if v.B {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case types.KindI64:
		buf = binary.AppendVarint(buf, v.I64)
	case types.KindF64:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.F64))
	case types.KindStr:
		buf = binary.AppendUvarint(buf, uint64(len(v.S)))
		buf = append(buf, v.S...)
	case types.KindTuple, types.KindList:
		buf = binary.AppendUvarint(buf, uint64(len(v.Items)))
		for i := range v.Items {
			buf = appendBoxed(buf, v.Items[i])
		}
	case types.KindMap:
		buf = binary.AppendUvarint(buf, uint64(len(v.Pairs)))
		for i := range v.Pairs {
			buf = appendBoxed(buf, v.Pairs[i].Key)
			buf = appendBoxed(buf, v.Pairs[i].Value)
		}
	}
	return buf
}

func parseBoxed(data []byte) (record.Value, []byte, error) {
	if len(data) == 0 {
		return record.Value{}, nil, errors.New("codec: short buffer for boxed kind")
	}
	kind := types.Kind(data[0])
	data = data[1:]

	switch kind {
	case types.KindNull:
		return record.Null(), data, nil
	case types.KindBool:
		if len(data) == 0 {
			return record.Value{}, nil, errors.New("codec: short buffer for bool")
		}
		return record.Bool(data[0] != 0), data[1:], nil
	case types.KindI64:
		i, n := binary.Varint(data)
		if n <= 0 {
			return record.Value{}, nil, errors.New("codec: invalid boxed int")
		}
		return record.Int(i), data[n:], nil
	case types.KindF64:
		if len(data) < 8 {
			return record.Value{}, nil, errors.New("codec: short buffer for float")
		}
		bits := binary.LittleEndian.Uint64(data)
		return record.Float(math.Float64frombits(bits)), data[8:], nil
	case types.KindStr:
		sLen, n := binary.Uvarint(data)
		if n <= 0 {
			return record.Value{}, nil, errors.New("codec: invalid boxed string length")
		}
		data = data[n:]
		if uint64(len(data)) < sLen {
			return record.Value{}, nil, errors.New("codec: short buffer for string")
		}
		return record.String(string(data[:sLen])), data[sLen:], nil
	case types.KindTuple, types.KindList:
		count, n := binary.Uvarint(data)
		if n <= 0 {
			return record.Value{}, nil, errors.New("codec: invalid boxed item count")
		}
		data = data[n:]
		// Every element occupies at least its kind tag, so a count
		// beyond the remaining bytes cannot be honest. Checked before
		// allocating to keep corrupt input from forcing huge slices.
		if count > uint64(len(data)) {
			return record.Value{}, nil, errors.New("codec: boxed item count exceeds input")
		}
		items := make([]record.Value, count)
		for i := uint64(0); i < count; i++ {
			item, rest, err := parseBoxed(data)
			if err != nil {
				return record.Value{}, nil, err
			}
			items[i] = item
			data = rest
		}
		if kind == types.KindTuple {
			return record.TupleOf(items...), data, nil
		}
		return record.ListOf(items...), data, nil
	case types.KindMap:
		count, n := binary.Uvarint(data)
		if n <= 0 {
			return record.Value{}, nil, errors.New("codec: invalid boxed entry count")
		}
		data = data[n:]
		// Each entry carries a key and a value tag, two bytes minimum.
		if count > uint64(len(data))/2 {
			return record.Value{}, nil, errors.New("codec: boxed entry count exceeds input")
		}
		pairs := make([]record.Entry, count)
		for i := uint64(0); i < count; i++ {
			key, rest, err := parseBoxed(data)
			if err != nil {
				return record.Value{}, nil, err
			}
			val, rest2, err := parseBoxed(rest)
			if err != nil {
				return record.Value{}, nil, err
			}
			pairs[i] = record.Entry{Key: key, Value: val}
			data = rest2
		}
		return record.MapOf(pairs...), data, nil
	default:
		return record.Value{}, nil, fmt.Errorf("codec: unknown boxed kind %d", kind)
	}
}

// AppendValue appends the self-describing encoding of v to buf. The
// result round-trips through ParseValue without a schema, which makes
// it suitable for persisting free-form values such as exception
// records.
func AppendValue(buf []byte, v record.Value) []byte {
	return appendBoxed(buf, v)
}

// ParseValue decodes one self-describing value from data and returns
// it along with the remaining bytes.
func ParseValue(data []byte) (record.Value, []byte, error) {
	return parseBoxed(data)
}
