package ioframe

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/pkg/errors"
)

// Descriptor is the closed algebra of bidirectional field kinds a Schema
// composes. Every concrete kind below implements it; the set is not meant
// to be extended from outside the package. Protocol exemplars compose the
// exported constructors instead of adding new kinds.
type Descriptor interface {
	read(y *Yielder, ctx *Context) (any, error)
	write(ctx *Context, v any) ([]byte, error)
}

// defaultValuer is implemented by descriptors (currently only MustEqual)
// that can stand in a value of their own when a field is built with
// UseDefault.
type defaultValuer interface {
	defaultValue() any
}

// UseDefault marks a field argument to Schema.New/Build as "use whatever
// default this descriptor knows how to produce" (the Python original's
// bare Ellipsis). Passing it to a descriptor with no default is an error.
var UseDefault = &struct{ name string }{"ioframe.UseDefault"}

// --- StructUnit ---------------------------------------------------------

type structUnitDescriptor struct {
	format StructFormat
}

// NewStructUnit decodes and encodes a single value through a struct
// format string (see ParseStructFormat); the format must declare exactly
// one field; StructUnit is for formats like "f" or ">H", not multi-field
// records (use ReadStruct directly for those, as the protocol exemplars
// that need a whole fixed header at once do).
func NewStructUnit(format string) Descriptor {
	return &structUnitDescriptor{format: MustParseStructFormat(format)}
}

func (d *structUnitDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	tuple, err := ReadStruct(y, d.format)
	if err != nil {
		return nil, err
	}
	if len(tuple) != 1 {
		return nil, errors.Errorf("ioframe: StructUnit format must declare exactly one field, got %d", len(tuple))
	}
	return tuple[0], nil
}

func (d *structUnitDescriptor) write(ctx *Context, v any) ([]byte, error) {
	return d.format.Encode(v)
}

// --- IntUnit -------------------------------------------------------------

type intUnitDescriptor struct {
	width  int
	order  binary.ByteOrder
	signed bool
}

// NewIntUnit decodes and encodes a fixed-width integer of width bytes.
func NewIntUnit(width int, order binary.ByteOrder, signed bool) Descriptor {
	return &intUnitDescriptor{width: width, order: order, signed: signed}
}

func (d *intUnitDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	return ReadInt(y, d.width, d.order, d.signed)
}

func (d *intUnitDescriptor) write(ctx *Context, v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, d.width)
	encodeInt(out, n, d.order)
	return out, nil
}

// Canonical integer descriptors. The *BE variants are big-endian
// ("network byte order"); the unsuffixed variants are little-endian.
var (
	Int8  = NewIntUnit(1, binary.LittleEndian, true)
	Uint8 = NewIntUnit(1, binary.LittleEndian, false)

	Int16    = NewIntUnit(2, binary.LittleEndian, true)
	Int16BE  = NewIntUnit(2, binary.BigEndian, true)
	Uint16   = NewIntUnit(2, binary.LittleEndian, false)
	Uint16BE = NewIntUnit(2, binary.BigEndian, false)

	Int24    = NewIntUnit(3, binary.LittleEndian, true)
	Int24BE  = NewIntUnit(3, binary.BigEndian, true)
	Uint24   = NewIntUnit(3, binary.LittleEndian, false)
	Uint24BE = NewIntUnit(3, binary.BigEndian, false)

	Int32    = NewIntUnit(4, binary.LittleEndian, true)
	Int32BE  = NewIntUnit(4, binary.BigEndian, true)
	Uint32   = NewIntUnit(4, binary.LittleEndian, false)
	Uint32BE = NewIntUnit(4, binary.BigEndian, false)

	Int64    = NewIntUnit(8, binary.LittleEndian, true)
	Int64BE  = NewIntUnit(8, binary.BigEndian, true)
	Uint64   = NewIntUnit(8, binary.LittleEndian, false)
	Uint64BE = NewIntUnit(8, binary.BigEndian, false)
)

// --- FloatUnit -----------------------------------------------------------

type floatUnitDescriptor struct {
	width int
	order binary.ByteOrder
}

func (d *floatUnitDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	raw, err := Read(y, d.width)
	if err != nil {
		return nil, err
	}
	switch d.width {
	case 2:
		return halfToFloat32(d.order.Uint16(raw)), nil
	case 4:
		return math.Float32frombits(d.order.Uint32(raw)), nil
	default:
		return math.Float64frombits(d.order.Uint64(raw)), nil
	}
}

func (d *floatUnitDescriptor) write(ctx *Context, v any) ([]byte, error) {
	out := make([]byte, d.width)
	switch d.width {
	case 2:
		f, err := asFloat32(v)
		if err != nil {
			return nil, err
		}
		d.order.PutUint16(out, float32ToHalf(f))
	case 4:
		f, err := asFloat32(v)
		if err != nil {
			return nil, err
		}
		d.order.PutUint32(out, math.Float32bits(f))
	default:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		d.order.PutUint64(out, math.Float64bits(f))
	}
	return out, nil
}

// Canonical float descriptors.
var (
	Float16   = &floatUnitDescriptor{width: 2, order: binary.LittleEndian}
	Float16BE = &floatUnitDescriptor{width: 2, order: binary.BigEndian}
	Float32   = &floatUnitDescriptor{width: 4, order: binary.LittleEndian}
	Float32BE = &floatUnitDescriptor{width: 4, order: binary.BigEndian}
	Float64   = &floatUnitDescriptor{width: 8, order: binary.LittleEndian}
	Float64BE = &floatUnitDescriptor{width: 8, order: binary.BigEndian}
)

// --- Bytes -----------------------------------------------------------------

type bytesDescriptor struct {
	length int // -1 means "all remaining bytes"
}

// NewBytes reads/writes exactly length raw bytes. NewBytes(-1) reads
// whatever is currently buffered (a sink field, only meaningful as the
// last field of a schema whose length is bounded some other way, e.g. by
// an enclosing LengthPrefixedObject).
func NewBytes(length int) Descriptor {
	return &bytesDescriptor{length: length}
}

func (d *bytesDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	if d.length < 0 {
		return Read(y, 0)
	}
	return Read(y, d.length)
}

func (d *bytesDescriptor) write(ctx *Context, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("ioframe: Bytes.write wants []byte, got %T", v)
	}
	if d.length >= 0 && len(b) != d.length {
		return nil, errors.Wrapf(ErrInvalidArgument, "Bytes: wanted %d bytes, got %d", d.length, len(b))
	}
	return b, nil
}

// --- MustEqual ---------------------------------------------------------

type mustEqualDescriptor struct {
	inner    Descriptor
	expected any
}

// NewMustEqual wraps inner, failing to parse unless the decoded value
// equals expected, and on write emitting expected: the argument must be
// UseDefault or equal to expected, any other value is rejected (protocol
// magic numbers and fixed tags).
func NewMustEqual(inner Descriptor, expected any) Descriptor {
	return &mustEqualDescriptor{inner: inner, expected: expected}
}

func (d *mustEqualDescriptor) defaultValue() any { return d.expected }

func (d *mustEqualDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	v, err := d.inner.read(y, ctx)
	if err != nil {
		return nil, err
	}
	if !reflect.DeepEqual(v, d.expected) {
		return nil, newParseError("MustEqual mismatch", v, errors.Errorf("want %v, got %v", d.expected, v))
	}
	return v, nil
}

func (d *mustEqualDescriptor) write(ctx *Context, v any) ([]byte, error) {
	if v != UseDefault && !reflect.DeepEqual(v, d.expected) {
		return nil, errors.Wrapf(ErrInvalidArgument, "MustEqual: want %v, got %v", d.expected, v)
	}
	return d.inner.write(ctx, d.expected)
}

// --- EndWith -------------------------------------------------------------

type endWithDescriptor struct {
	delim []byte
}

// NewEndWith reads bytes up to and excluding delim, writing delim back on
// the way out (length-terminated-by-sentinel fields, e.g. a C string).
func NewEndWith(delim []byte) Descriptor {
	return &endWithDescriptor{delim: delim}
}

func (d *endWithDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	return ReadUntil(y, d.delim, false)
}

func (d *endWithDescriptor) write(ctx *Context, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("ioframe: EndWith.write wants []byte, got %T", v)
	}
	out := make([]byte, 0, len(b)+len(d.delim))
	out = append(out, b...)
	out = append(out, d.delim...)
	return out, nil
}

// --- LengthPrefixedBytes -------------------------------------------------

type lengthPrefixedBytesDescriptor struct {
	lenDesc Descriptor
}

// NewLengthPrefixedBytes reads lenDesc as a byte count, then exactly that
// many raw bytes; on write it computes and emits the count itself.
func NewLengthPrefixedBytes(lenDesc Descriptor) Descriptor {
	return &lengthPrefixedBytesDescriptor{lenDesc: lenDesc}
}

func (d *lengthPrefixedBytesDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	lv, err := d.lenDesc.read(y, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	return Read(y, n)
}

func (d *lengthPrefixedBytesDescriptor) write(ctx *Context, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("ioframe: LengthPrefixedBytes.write wants []byte, got %T", v)
	}
	lenBytes, err := d.lenDesc.write(ctx, len(b))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenBytes)+len(b))
	out = append(out, lenBytes...)
	out = append(out, b...)
	return out, nil
}

// --- LengthPrefixedObject / LengthPrefixedObjectList ----------------------

type lengthPrefixedObjectDescriptor struct {
	lenDesc Descriptor
	inner   Descriptor
}

// NewLengthPrefixedObject reads lenDesc as a byte count, carves exactly
// that many bytes off the stream, and parses inner from them in an
// isolated nested Parser, so a malformed or short inner object cannot
// desynchronize the outer stream.
func NewLengthPrefixedObject(lenDesc Descriptor, inner Descriptor) Descriptor {
	return &lengthPrefixedObjectDescriptor{lenDesc: lenDesc, inner: inner}
}

func (d *lengthPrefixedObjectDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	lv, err := d.lenDesc.read(y, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if n > 0 {
		if raw, err = Read(y, n); err != nil {
			return nil, err
		}
	}
	return runNestedSingle(d.inner, ctx, raw)
}

func (d *lengthPrefixedObjectDescriptor) write(ctx *Context, v any) ([]byte, error) {
	raw, err := d.inner.write(ctx, v)
	if err != nil {
		return nil, err
	}
	lenBytes, err := d.lenDesc.write(ctx, len(raw))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenBytes)+len(raw))
	out = append(out, lenBytes...)
	out = append(out, raw...)
	return out, nil
}

type lengthPrefixedObjectListDescriptor struct {
	lenDesc Descriptor
	inner   Descriptor
}

// NewLengthPrefixedObjectList is NewLengthPrefixedObject's repeating
// sibling: the carved byte run is parsed as a sequence of inner values
// until it is exhausted, rather than as exactly one.
func NewLengthPrefixedObjectList(lenDesc Descriptor, inner Descriptor) Descriptor {
	return &lengthPrefixedObjectListDescriptor{lenDesc: lenDesc, inner: inner}
}

func (d *lengthPrefixedObjectListDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	lv, err := d.lenDesc.read(y, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if n > 0 {
		if raw, err = Read(y, n); err != nil {
			return nil, err
		}
	}
	return runNestedList(d.inner, ctx, raw)
}

func (d *lengthPrefixedObjectListDescriptor) write(ctx *Context, v any) ([]byte, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("ioframe: LengthPrefixedObjectList.write wants []any, got %T", v)
	}
	var body []byte
	for _, item := range items {
		raw, err := d.inner.write(ctx, item)
		if err != nil {
			return nil, err
		}
		body = append(body, raw...)
	}
	lenBytes, err := d.lenDesc.write(ctx, len(body))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenBytes)+len(body))
	out = append(out, lenBytes...)
	out = append(out, body...)
	return out, nil
}

// runNestedSingle parses exactly one inner value out of a self-contained
// byte slice, failing if bytes remain afterward.
func runNestedSingle(inner Descriptor, ctx *Context, data []byte) (any, error) {
	comp := func(y *Yielder) (any, error) {
		parser := GetParser(y)
		v, err := inner.read(y, ctx)
		if err != nil {
			return nil, err
		}
		if parser.HasMoreData() {
			return nil, newParseError("nested object left redundant data", v, nil)
		}
		return v, nil
	}
	p := NewParserWithBuffer(comp, NewBuffer(len(data)+1))
	if err := p.Send(data); err != nil {
		return nil, err
	}
	v, err := p.GetResult()
	if err != nil {
		if err == ErrNoResult {
			return nil, newParseError("nested object: insufficient bytes", nil, err)
		}
		return nil, err
	}
	return v, nil
}

// runNestedList parses inner repeatedly out of a self-contained byte
// slice until it is exhausted. The computation issues a Wait once before
// looping so the engine hands it the already-populated nested buffer
// instead of observing it empty on the first HasMoreData check.
func runNestedList(inner Descriptor, ctx *Context, data []byte) (any, error) {
	comp := func(y *Yielder) (any, error) {
		parser := GetParser(y)
		Wait(y)
		list := []any{}
		for parser.HasMoreData() {
			v, err := inner.read(y, ctx)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}
	p := NewParserWithBuffer(comp, NewBuffer(len(data)+1))
	if err := p.Send(data); err != nil {
		return nil, err
	}
	v, err := p.GetResult()
	if err != nil {
		if err == ErrNoResult {
			return nil, newParseError("nested object list: insufficient bytes", nil, err)
		}
		return nil, err
	}
	return v, nil
}

// --- Switch ----------------------------------------------------------------

type switchDescriptor struct {
	ref   string
	cases map[any]Descriptor
	def   Descriptor // used when no case matches; nil means "error"
}

// NewSwitch dispatches to one of cases by the already-decoded (or
// already-assigned) value of the sibling field named ref, consulted
// through Context rather than global state. def, if non-nil, handles any
// value with no matching case (e.g. a TLS extension type this schema
// doesn't model explicitly).
func NewSwitch(ref string, cases map[any]Descriptor, def Descriptor) Descriptor {
	return &switchDescriptor{ref: ref, cases: cases, def: def}
}

func (d *switchDescriptor) pick(key any) (Descriptor, error) {
	if real, ok := d.cases[key]; ok {
		return real, nil
	}
	if d.def != nil {
		return d.def, nil
	}
	return nil, newParseError("Switch: no case", key, errors.Errorf("unhandled switch value %v for %q", key, d.ref))
}

func (d *switchDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	key, ok := ctx.mappingValue(d.ref)
	if !ok {
		return nil, errors.Errorf("ioframe: Switch: no sibling field %q in the current mapping", d.ref)
	}
	real, err := d.pick(key)
	if err != nil {
		return nil, err
	}
	return real.read(y, ctx)
}

func (d *switchDescriptor) write(ctx *Context, v any) ([]byte, error) {
	key, ok := ctx.parentValue(d.ref)
	if !ok {
		return nil, errors.Errorf("ioframe: Switch: no sibling field %q on the instance under construction", d.ref)
	}
	real, err := d.pick(key)
	if err != nil {
		return nil, err
	}
	return real.write(ctx, v)
}

// --- SizedIntEnum ----------------------------------------------------------

// EnumSet maps an integer wire value to a symbolic name and back.
type EnumSet map[int64]string

func (e EnumSet) nameFor(v int64) (string, bool) {
	name, ok := e[v]
	return name, ok
}

func (e EnumSet) valueFor(name string) (int64, bool) {
	for v, n := range e {
		if n == name {
			return v, true
		}
	}
	return 0, false
}

type sizedIntEnumDescriptor struct {
	sizeDesc Descriptor
	set      EnumSet
}

// NewSizedIntEnum reads sizeDesc as an integer and maps it through set to
// a symbolic string, failing to parse on an unrecognized value.
func NewSizedIntEnum(sizeDesc Descriptor, set EnumSet) Descriptor {
	return &sizedIntEnumDescriptor{sizeDesc: sizeDesc, set: set}
}

func (d *sizedIntEnumDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	v, err := d.sizeDesc.read(y, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	name, ok := d.set.nameFor(n)
	if !ok {
		return nil, newParseError("SizedIntEnum: unrecognized value", n, nil)
	}
	return name, nil
}

func (d *sizedIntEnumDescriptor) write(ctx *Context, v any) ([]byte, error) {
	name, ok := v.(string)
	if !ok {
		return nil, errors.Errorf("ioframe: SizedIntEnum.write wants string, got %T", v)
	}
	n, ok := d.set.valueFor(name)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidArgument, "SizedIntEnum: unrecognized name %q", name)
	}
	return d.sizeDesc.write(ctx, n)
}

// --- Convert -----------------------------------------------------------

type convertDescriptor struct {
	inner  Descriptor
	encode func(any) any
	decode func(any) any
}

// NewConvert wraps inner with a pair of pure functions applied after
// decode and before encode, the escape hatch for any field whose surface
// type differs from its wire representation.
func NewConvert(inner Descriptor, encode func(any) any, decode func(any) any) Descriptor {
	return &convertDescriptor{inner: inner, encode: encode, decode: decode}
}

func (d *convertDescriptor) read(y *Yielder, ctx *Context) (any, error) {
	v, err := d.inner.read(y, ctx)
	if err != nil {
		return nil, err
	}
	return d.decode(v), nil
}

func (d *convertDescriptor) write(ctx *Context, v any) ([]byte, error) {
	return d.inner.write(ctx, d.encode(v))
}

// String and LengthPrefixedString are Convert built atop Bytes and
// LengthPrefixedBytes respectively, for UTF-8 text fields.
func NewString(length int) Descriptor {
	return NewConvert(NewBytes(length),
		func(v any) any { return []byte(v.(string)) },
		func(v any) any { return string(v.([]byte)) },
	)
}

func NewLengthPrefixedString(lenDesc Descriptor) Descriptor {
	return NewConvert(NewLengthPrefixedBytes(lenDesc),
		func(v any) any { return []byte(v.(string)) },
		func(v any) any { return string(v.([]byte)) },
	)
}

// --- shared helpers ------------------------------------------------------

func toInt(v any) (int, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "expected an integer length, got %T", v)
	}
}
