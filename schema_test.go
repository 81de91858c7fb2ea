package ioframe

import (
	"testing"
)

var pointSchema = NewSchema("Point",
	F("tag", NewMustEqual(Uint8, int64(0xAA))),
	F("x", Int16BE),
	F("y", Int16BE),
)

func TestSchemaRoundTrip(t *testing.T) {
	inst, err := pointSchema.Build(UseDefault, int64(10), int64(-5))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	raw, err := inst.Bytes(NewContext())
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	want := []byte{0xAA, 0x00, 0x0A, 0xFF, 0xFB}
	if len(raw) != len(want) {
		t.Fatalf("got %x, want %x", raw, want)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("got %x, want %x", raw, want)
		}
	}

	parsed, err := pointSchema.Parse(raw, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !inst.Equal(parsed) {
		t.Fatalf("round trip mismatch: %+v vs %+v", inst.Fields, parsed.Fields)
	}
}

func TestSchemaMustEqualRejectsMismatch(t *testing.T) {
	raw := []byte{0xBB, 0x00, 0x01, 0x00, 0x02}
	_, err := pointSchema.Parse(raw, true)
	if err == nil {
		t.Fatalf("expected a parse error on a bad tag byte")
	}
}

func TestSchemaDirtyBitRecomputesOnSet(t *testing.T) {
	inst, err := pointSchema.Build(UseDefault, int64(1), int64(1))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := NewContext()
	before, _ := inst.Bytes(ctx)
	inst.Set("x", int64(2))
	after, _ := inst.Bytes(ctx)
	if string(before) == string(after) {
		t.Fatalf("expected the cached serialization to change after Set")
	}
}

var taggedUnionSchema = NewSchema("TaggedUnion",
	F("kind", Uint8),
	F("payload", NewSwitch("kind", map[any]Descriptor{
		int64(1): Uint16BE,
		int64(2): NewLengthPrefixedString(Uint8),
	}, nil)),
)

func TestSchemaSwitchByDecodedSibling(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x2A}
	inst, err := taggedUnionSchema.Parse(raw, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inst.Get("payload").(int64) != 42 {
		t.Fatalf("got %v", inst.Get("payload"))
	}
}

func TestSchemaSwitchByAssignedSiblingOnWrite(t *testing.T) {
	inst, err := taggedUnionSchema.Build(int64(2), "hi")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	raw, err := inst.Bytes(NewContext())
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	want := []byte{0x02, 0x02, 'h', 'i'}
	if len(raw) != len(want) {
		t.Fatalf("got %x", raw)
	}
}

func TestSchemaSwitchUnhandledValueFails(t *testing.T) {
	_, err := taggedUnionSchema.Parse([]byte{0x09, 0x00}, false)
	if err == nil {
		t.Fatalf("expected an error for an unmapped switch value")
	}
}

var listSchema = NewSchema("List",
	F("items", NewLengthPrefixedObjectList(Uint16BE, Uint8)),
)

func TestSchemaLengthPrefixedObjectList(t *testing.T) {
	raw := []byte{0x00, 0x03, 1, 2, 3}
	inst, err := listSchema.Parse(raw, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	items := inst.Get("items").([]any)
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	for i, want := range []int64{1, 2, 3} {
		if items[i].(int64) != want {
			t.Fatalf("item %d = %v, want %d", i, items[i], want)
		}
	}
}

var nestedObjectSchema = NewSchema("Outer",
	F("body", NewLengthPrefixedObject(Uint16BE, pointSchema)),
)

func TestSchemaLengthPrefixedObjectRejectsResidualBytes(t *testing.T) {
	pointRaw := []byte{0xAA, 0x00, 0x01, 0x00, 0x02}
	raw := append([]byte{0x00, byte(len(pointRaw) + 1)}, append(pointRaw, 0x00)...)
	_, err := nestedObjectSchema.Parse(raw, true)
	if err == nil {
		t.Fatalf("expected a nested residual-bytes error")
	}
}

func TestSchemaLengthPrefixedObjectRoundTrip(t *testing.T) {
	pointRaw := []byte{0xAA, 0x00, 0x01, 0x00, 0x02}
	raw := append([]byte{0x00, byte(len(pointRaw))}, pointRaw...)
	inst, err := nestedObjectSchema.Parse(raw, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	body := inst.Get("body").(*Instance)
	if body.Get("x").(int64) != 1 {
		t.Fatalf("got %v", body.Get("x"))
	}
}

func TestStructFormatDecodeEncode(t *testing.T) {
	f := MustParseStructFormat(">Hb2s")
	raw, err := f.Encode(uint16(300), int8(-1), []byte("hi"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	vals, err := f.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[0].(uint64) != 300 {
		t.Fatalf("got %v", vals[0])
	}
	if vals[1].(int64) != -1 {
		t.Fatalf("got %v", vals[1])
	}
	if string(vals[2].([]byte)) != "hi" {
		t.Fatalf("got %v", vals[2])
	}
}
