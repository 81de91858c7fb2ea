package ioframe

import (
	"bytes"
	"strings"
	"testing"
)

// TestParserChainTransform chains two parsers, each a looping computation
// that responds once per newline-delimited record rather than terminating
// after one, and feeds 10 records through in a single Send. It checks
// that the first stage's result never escapes the chain (only the second
// stage's reversed output does) and that all 10 records survive the
// chain's FIFO forwarding in order, with none lost or reordered.
func TestParserChainTransform(t *testing.T) {
	upper := func(y *Yielder) (any, error) {
		self := GetParser(y)
		for {
			line, err := ReadUntil(y, []byte("\n"), false)
			if err != nil {
				return nil, err
			}
			out := append([]byte(strings.ToUpper(string(line))), '\n')
			self.Respond(nil, false, nil, out, true)
		}
	}
	reverse := func(y *Yielder) (any, error) {
		self := GetParser(y)
		for {
			line, err := ReadUntil(y, []byte("\n"), false)
			if err != nil {
				return nil, err
			}
			out := make([]byte, len(line))
			for i, b := range line {
				out[len(line)-1-i] = b
			}
			self.Respond(nil, false, nil, out, true)
		}
	}

	chain := NewChain(NewParser(upper), NewParser(reverse))

	records := []string{
		"alpha", "bravo", "charlie", "delta", "echo",
		"foxtrot", "golf", "hotel", "india", "juliet",
	}
	var payload bytes.Buffer
	for _, r := range records {
		payload.WriteString(r)
		payload.WriteByte('\n')
	}
	if err := chain.Send(payload.Bytes()); err != nil {
		t.Fatalf("send: %v", err)
	}

	var got []string
	for {
		ev, ok := chain.NextEvent()
		if !ok {
			break
		}
		if !ev.HasResult {
			continue
		}
		got = append(got, string(ev.Result.([]byte)))
	}

	// If the first stage's uppercased-only result ever escaped unmasked,
	// got would contain 20 entries (10 leaked, 10 real) instead of 10.
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d: %v", len(got), len(records), got)
	}
	for i, r := range records {
		want := reverseBytes([]byte(strings.ToUpper(r)))
		if got[i] != string(want) {
			t.Fatalf("record %d: got %q, want %q", i, got[i], want)
		}
	}
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func TestChainRequiresAtLeastOneParser(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for zero parsers")
		}
	}()
	NewChain()
}

func TestChainTailIsLastStage(t *testing.T) {
	a := NewParser(func(y *Yielder) (any, error) { return Read(y, 1) })
	b := NewParser(func(y *Yielder) (any, error) { return Read(y, 1) })
	c := NewChain(a, b)
	if c.Tail() != b {
		t.Fatalf("tail must be the last stage")
	}
}
