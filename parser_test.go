package ioframe

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestParserReadExactAcrossSends(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		return Read(y, 5)
	})
	if p.HasResult() {
		t.Fatalf("must not have a result before enough bytes arrive")
	}
	if err := p.Send([]byte("ab")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if p.HasResult() {
		t.Fatalf("must still be waiting")
	}
	if err := p.Send([]byte("cde")); err != nil {
		t.Fatalf("send: %v", err)
	}
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if string(v.([]byte)) != "abcde" {
		t.Fatalf("got %q", v)
	}
}

// TestStarvingPartition checks that a computation asking for more bytes
// than are available suspends rather than fails, and resumes
// transparently once enough bytes arrive, with no Starving ever visible
// outside the engine.
func TestStarvingPartition(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		a, err := Read(y, 3)
		if err != nil {
			return nil, err
		}
		b, err := Read(y, 3)
		if err != nil {
			return nil, err
		}
		return append(a, b...), nil
	})
	parts := [][]byte{{'a'}, {'b', 'c'}, {'d', 'e'}, {'f'}}
	for _, part := range parts {
		if err := p.Send(part); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if string(v.([]byte)) != "abcdef" {
		t.Fatalf("got %q", v)
	}
}

func TestParserReadUntilResumesAcrossSends(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		return ReadUntil(y, []byte("\r\n"), false)
	})
	_ = p.Send([]byte("hel"))
	_ = p.Send([]byte("lo\r"))
	_ = p.Send([]byte("\nworld"))
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if string(v.([]byte)) != "hello" {
		t.Fatalf("got %q", v)
	}
	if !p.HasMoreData() {
		t.Fatalf("expected leftover bytes after the delimiter")
	}
	if !bytes.Equal(p.ReadAll(), []byte("world")) {
		t.Fatalf("leftover = %q", p.ReadAll())
	}
}

func TestParserWaitLatchesFreshPerCall(t *testing.T) {
	var seen []int
	p := NewParserWithBuffer(func(y *Yielder) (any, error) {
		for i := 0; i < 3; i++ {
			Wait(y)
			seen = append(seen, i)
		}
		return len(seen), nil
	}, NewBuffer(8))

	if len(seen) != 0 {
		t.Fatalf("wait must suspend before any loop body runs")
	}
	_ = p.Send(nil)
	if len(seen) != 1 {
		t.Fatalf("first send must resolve exactly one wait, got %v", seen)
	}
	_ = p.Send(nil)
	_ = p.Send(nil)
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if v.(int) != 3 {
		t.Fatalf("got %v", v)
	}
}

func TestParserRespondViaGetParser(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		self := GetParser(y)
		self.Respond([]byte("ack"), false, nil, nil, false)
		n, err := Read(y, 1)
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	ev, ok := p.NextEvent()
	if !ok || string(ev.BytesToSend) != "ack" {
		t.Fatalf("expected an ack event, got %+v ok=%v", ev, ok)
	}
	_ = p.Send([]byte("x"))
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if string(v.([]byte)) != "x" {
		t.Fatalf("got %q", v)
	}
}

// TestParserHeaderRespondThenRawReads feeds an HTTP-shaped byte stream in
// arbitrary-sized chunks against a single hand-written computation that
// reads the status line and headers with ReadUntil, surfaces the headers
// as a non-terminal Respond result, then keeps reading raw traps (Read,
// ReadStruct, ReadInt, Peek) against the same still-live buffer. This
// checks that Respond's non-terminal events and the raw trap helpers
// compose on one parser without the computation ever finishing early.
func TestParserHeaderRespondThenRawReads(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nH: v\r\n\r\nhaha\x08\x08\x11\x11\x11content")
	shortFmt := MustParseStructFormat("!H")

	p := NewParser(func(y *Yielder) (any, error) {
		if _, err := ReadUntil(y, []byte("\r\n"), false); err != nil {
			return nil, err
		}
		var headers []string
		for {
			line, err := ReadUntil(y, []byte("\r\n"), false)
			if err != nil {
				return nil, err
			}
			if len(line) == 0 {
				break
			}
			headers = append(headers, string(line))
		}
		GetParser(y).Respond(nil, false, nil, headers, false)

		haha, err := Read(y, 4)
		if err != nil {
			return nil, err
		}
		fields, err := ReadStruct(y, shortFmt)
		if err != nil {
			return nil, err
		}
		n, err := ReadInt(y, 3, binary.BigEndian, false)
		if err != nil {
			return nil, err
		}
		co, err := Peek(y, 2)
		if err != nil {
			return nil, err
		}
		content, err := Read(y, 7)
		if err != nil {
			return nil, err
		}
		return []any{string(haha), fields[0], n, string(co), string(content)}, nil
	})

	for _, chunk := range chunkedBySizes(raw, []int{29, 1, 7, 13, 2, 19, 3, 11, 23, 5}) {
		if err := p.Send(chunk); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	ev, ok := p.NextEvent()
	if !ok {
		t.Fatalf("expected a non-terminal header event")
	}
	if ev.HasResult {
		t.Fatalf("header event must not be terminal")
	}
	headers, ok := ev.Result.([]string)
	if !ok || len(headers) != 1 || headers[0] != "H: v" {
		t.Fatalf("got headers %v", ev.Result)
	}
	if !p.HasResult() {
		t.Fatalf("expected a terminal result once every chunk is fed")
	}

	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	pieces := v.([]any)
	if pieces[0].(string) != "haha" {
		t.Fatalf("read(4) = %v", pieces[0])
	}
	if pieces[1].(uint64) != 2056 {
		t.Fatalf("read_struct(!H) = %v", pieces[1])
	}
	if pieces[2].(int64) != 1118481 {
		t.Fatalf("read_int(3) = %v", pieces[2])
	}
	if pieces[3].(string) != "co" {
		t.Fatalf("peek(2) = %v", pieces[3])
	}
	if pieces[4].(string) != "content" {
		t.Fatalf("read(7) = %v", pieces[4])
	}
}

// chunkedBySizes splits data into pieces of the given sizes, cycling
// through sizes and truncating the last piece, so a byte stream can be
// fed to a Parser across many differently-placed trap boundaries without
// depending on a random source.
func chunkedBySizes(data []byte, sizes []int) [][]byte {
	var out [][]byte
	for i := 0; i < len(data); {
		n := sizes[len(out)%len(sizes)]
		if i+n > len(data) {
			n = len(data) - i
		}
		out = append(out, data[i:i+n])
		i += n
	}
	return out
}

func TestParserSendEventAndWaitEvent(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		return WaitEvent(y), nil
	})
	if p.HasResult() {
		t.Fatalf("must wait for an event")
	}
	p.SendEvent("tick")
	v, err := p.GetResult()
	if err != nil {
		t.Fatalf("get_result: %v", err)
	}
	if v.(string) != "tick" {
		t.Fatalf("got %v", v)
	}
}

func TestParserGetResultBeforeDoneIsNoResult(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		return Read(y, 10)
	})
	_, err := p.GetResult()
	if err != ErrNoResult {
		t.Fatalf("want ErrNoResult, got %v", err)
	}
}

func TestParserInvalidArgumentRejectedAtCallSite(t *testing.T) {
	p := NewParser(func(y *Yielder) (any, error) {
		return Read(y, -1)
	})
	_, err := p.GetResult()
	var pe *ParseError
	if !AsParseError(err, &pe) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

// AsParseError is a small local errors.As wrapper kept here instead of
// importing errors in every test file that only needs this one check.
func AsParseError(err error, target **ParseError) bool {
	for err != nil {
		if pe, ok := err.(*ParseError); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
