package ioframe

import (
	"encoding/binary"
	"testing"
)

func TestReadRejectsNegativeN(t *testing.T) {
	y := newYielder()
	_, err := Read(y, -1)
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestReadMoreRejectsZero(t *testing.T) {
	y := newYielder()
	if _, err := ReadMore(y, 0); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestReadUntilRejectsEmptyDelim(t *testing.T) {
	y := newYielder()
	if _, err := ReadUntil(y, nil, false); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestReadIntRejectsNilOrder(t *testing.T) {
	y := newYielder()
	if _, err := ReadInt(y, 2, nil, false); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestPeekRejectsZero(t *testing.T) {
	y := newYielder()
	if _, err := Peek(y, 0); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestParserPeekThenReadInt(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		peeked, err := Peek(y, 2)
		if err != nil {
			return nil, err
		}
		n, err := ReadInt(y, 2, binary.BigEndian, false)
		if err != nil {
			return nil, err
		}
		return []any{peeked, n}, nil
	})
	_ = p.Send([]byte{0x01, 0x02})
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	pair := v.([]any)
	if pair[0].([]byte)[0] != 0x01 {
		t.Fatalf("peek result wrong: %v", pair[0])
	}
	if pair[1].(int64) != 0x0102 {
		t.Fatalf("int result wrong: %v", pair[1])
	}
}

func TestRuntimeErrorOnPanic(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		panic("boom")
	})
	_, err := p.GetResult()
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("want *ParseError wrapping the panic, got %T: %v", err, err)
	}
	if _, ok := pe.Unwrap().(*RuntimeError); !ok {
		t.Fatalf("want *RuntimeError cause, got %T", pe.Unwrap())
	}
}
