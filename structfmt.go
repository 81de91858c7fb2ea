package ioframe

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// StructFormat describes a fixed-width record, the Go analog of a Python
// struct.Struct object: a byte order plus an ordered list of fields, each
// either a fixed-width integer/float or a fixed-length raw byte run. It is
// the argument to the ReadStruct trap and the StructUnit descriptor.
type StructFormat struct {
	order  binary.ByteOrder
	fields []structField
	size   int
}

type structKind int

const (
	fieldInt structKind = iota
	fieldFloat
	fieldBytes
)

type structField struct {
	kind   structKind
	width  int
	signed bool
}

// Size returns the exact byte length this format decodes from or encodes
// to.
func (f StructFormat) Size() int { return f.size }

// MustParseStructFormat is ParseStructFormat but panics on a malformed
// format string; intended for package-level format literals.
func MustParseStructFormat(format string) StructFormat {
	f, err := ParseStructFormat(format)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseStructFormat parses a small subset of Python's struct format
// mini-language: an optional leading byte-order marker ('!' or '>' for
// big-endian, '<' for little-endian, defaulting to little-endian), followed
// by field codes:
//
//	b/B  int8/uint8       h/H  int16/uint16      i/I/l/L  int32/uint32
//	q/Q  int64/uint64      f    float32            d    float64
//	Ns   N raw bytes (e.g. "16s")
//
// This is enough to express every fixed-width record the descriptor
// algebra and protocol exemplars need.
func ParseStructFormat(format string) (StructFormat, error) {
	order := binary.ByteOrder(binary.LittleEndian)
	i := 0
	if len(format) > 0 {
		switch format[0] {
		case '!', '>':
			order = binary.BigEndian
			i = 1
		case '<':
			order = binary.LittleEndian
			i = 1
		case '=', '@':
			i = 1
		}
	}
	var f StructFormat
	f.order = order
	for i < len(format) {
		c := format[i]
		switch c {
		case 'b':
			f.fields = append(f.fields, structField{fieldInt, 1, true})
			f.size += 1
			i++
		case 'B':
			f.fields = append(f.fields, structField{fieldInt, 1, false})
			f.size += 1
			i++
		case 'h':
			f.fields = append(f.fields, structField{fieldInt, 2, true})
			f.size += 2
			i++
		case 'H':
			f.fields = append(f.fields, structField{fieldInt, 2, false})
			f.size += 2
			i++
		case 'i', 'l':
			f.fields = append(f.fields, structField{fieldInt, 4, true})
			f.size += 4
			i++
		case 'I', 'L':
			f.fields = append(f.fields, structField{fieldInt, 4, false})
			f.size += 4
			i++
		case 'q':
			f.fields = append(f.fields, structField{fieldInt, 8, true})
			f.size += 8
			i++
		case 'Q':
			f.fields = append(f.fields, structField{fieldInt, 8, false})
			f.size += 8
			i++
		case 'f':
			f.fields = append(f.fields, structField{fieldFloat, 4, false})
			f.size += 4
			i++
		case 'd':
			f.fields = append(f.fields, structField{fieldFloat, 8, false})
			f.size += 8
			i++
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			j := i
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			if j >= len(format) || format[j] != 's' {
				return StructFormat{}, errors.Wrapf(ErrInvalidArgument, "struct format %q: digits must be followed by 's'", format)
			}
			n, _ := strconv.Atoi(format[i:j])
			f.fields = append(f.fields, structField{fieldBytes, n, false})
			f.size += n
			i = j + 1
		default:
			return StructFormat{}, errors.Wrapf(ErrInvalidArgument, "struct format %q: unsupported code %q", format, c)
		}
	}
	return f, nil
}

// Decode unpacks raw (which must be exactly f.Size() bytes) into one value
// per field, in declaration order. Integer fields decode as int64/uint64,
// float fields as float32/float64, and byte-run fields as []byte.
func (f StructFormat) Decode(raw []byte) ([]any, error) {
	if len(raw) != f.size {
		return nil, errors.Wrapf(ErrInvalidArgument, "struct decode: need %d bytes, got %d", f.size, len(raw))
	}
	out := make([]any, 0, len(f.fields))
	off := 0
	for _, fl := range f.fields {
		switch fl.kind {
		case fieldInt:
			v := decodeInt(raw[off:off+fl.width], f.order, fl.signed)
			if fl.signed {
				out = append(out, v)
			} else {
				out = append(out, uint64(v))
			}
		case fieldFloat:
			if fl.width == 4 {
				bits := f.order.Uint32(raw[off : off+4])
				out = append(out, math.Float32frombits(bits))
			} else {
				bits := f.order.Uint64(raw[off : off+8])
				out = append(out, math.Float64frombits(bits))
			}
		case fieldBytes:
			b := make([]byte, fl.width)
			copy(b, raw[off:off+fl.width])
			out = append(out, b)
		}
		off += fl.width
	}
	return out, nil
}

// Encode packs values, one per field in declaration order, into raw bytes.
func (f StructFormat) Encode(values ...any) ([]byte, error) {
	if len(values) != len(f.fields) {
		return nil, errors.Wrapf(ErrInvalidArgument, "struct encode: need %d values, got %d", len(f.fields), len(values))
	}
	return encodeStructFieldsInto(f.order, f.fields, values)
}

// encodeStructFields infers a StructFormat from the runtime type of each
// value (used by Buffer.PushStruct, which has no explicit format).
func encodeStructFields(order binary.ByteOrder, values []any) ([]byte, error) {
	fields := make([]structField, len(values))
	for i, v := range values {
		switch vv := v.(type) {
		case int8:
			fields[i] = structField{fieldInt, 1, true}
		case uint8:
			fields[i] = structField{fieldInt, 1, false}
		case int16:
			fields[i] = structField{fieldInt, 2, true}
		case uint16:
			fields[i] = structField{fieldInt, 2, false}
		case int32:
			fields[i] = structField{fieldInt, 4, true}
		case uint32:
			fields[i] = structField{fieldInt, 4, false}
		case int64:
			fields[i] = structField{fieldInt, 8, true}
		case uint64:
			fields[i] = structField{fieldInt, 8, false}
		case float32:
			fields[i] = structField{fieldFloat, 4, false}
		case float64:
			fields[i] = structField{fieldFloat, 8, false}
		case []byte:
			fields[i] = structField{fieldBytes, len(vv), false}
		default:
			return nil, errors.Wrapf(ErrInvalidArgument, "push_struct: unsupported value type %T", v)
		}
	}
	return encodeStructFieldsInto(order, fields, values)
}

func encodeStructFieldsInto(order binary.ByteOrder, fields []structField, values []any) ([]byte, error) {
	size := 0
	for _, f := range fields {
		size += f.width
	}
	out := make([]byte, size)
	off := 0
	for i, fl := range fields {
		switch fl.kind {
		case fieldInt:
			n, err := asInt64(values[i])
			if err != nil {
				return nil, err
			}
			encodeInt(out[off:off+fl.width], n, order)
		case fieldFloat:
			if fl.width == 4 {
				v, err := asFloat32(values[i])
				if err != nil {
					return nil, err
				}
				order.PutUint32(out[off:off+4], math.Float32bits(v))
			} else {
				v, err := asFloat64(values[i])
				if err != nil {
					return nil, err
				}
				order.PutUint64(out[off:off+8], math.Float64bits(v))
			}
		case fieldBytes:
			b, ok := values[i].([]byte)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidArgument, "struct encode: field %d wants []byte, got %T", i, values[i])
			}
			if len(b) != fl.width {
				return nil, errors.Wrapf(ErrInvalidArgument, "struct encode: field %d wants %d bytes, got %d", i, fl.width, len(b))
			}
			copy(out[off:off+fl.width], b)
		}
		off += fl.width
	}
	return out, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "expected an integer, got %T", v)
	}
}

func asFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "expected a float32, got %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "expected a float64, got %T", v)
	}
}

func decodeInt(raw []byte, order binary.ByteOrder, signed bool) int64 {
	var u uint64
	switch len(raw) {
	case 1:
		u = uint64(raw[0])
	case 2:
		u = uint64(order.Uint16(raw))
	case 3:
		u = decodeUint24(raw, order)
	case 4:
		u = uint64(order.Uint32(raw))
	case 8:
		u = order.Uint64(raw)
	default:
		// arbitrary width, big/little as requested
		if order == binary.BigEndian {
			for _, b := range raw {
				u = u<<8 | uint64(b)
			}
		} else {
			for i := len(raw) - 1; i >= 0; i-- {
				u = u<<8 | uint64(raw[i])
			}
		}
	}
	if !signed {
		return int64(u)
	}
	bits := uint(len(raw)) * 8
	if bits >= 64 {
		return int64(u)
	}
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

func encodeInt(out []byte, v int64, order binary.ByteOrder) {
	switch len(out) {
	case 1:
		out[0] = byte(v)
	case 2:
		order.PutUint16(out, uint16(v))
	case 3:
		encodeUint24(out, uint32(v), order)
	case 4:
		order.PutUint32(out, uint32(v))
	case 8:
		order.PutUint64(out, uint64(v))
	default:
		u := uint64(v)
		if order == binary.BigEndian {
			for i := len(out) - 1; i >= 0; i-- {
				out[i] = byte(u)
				u >>= 8
			}
		} else {
			for i := 0; i < len(out); i++ {
				out[i] = byte(u)
				u >>= 8
			}
		}
	}
}

func decodeUint24(raw []byte, order binary.ByteOrder) uint64 {
	if order == binary.BigEndian {
		return uint64(raw[0])<<16 | uint64(raw[1])<<8 | uint64(raw[2])
	}
	return uint64(raw[0]) | uint64(raw[1])<<8 | uint64(raw[2])<<16
}

func encodeUint24(out []byte, v uint32, order binary.ByteOrder) {
	if order == binary.BigEndian {
		out[0] = byte(v >> 16)
		out[1] = byte(v >> 8)
		out[2] = byte(v)
		return
	}
	out[0] = byte(v)
	out[1] = byte(v >> 8)
	out[2] = byte(v >> 16)
}
