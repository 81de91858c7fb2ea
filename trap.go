package ioframe

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type trapKind int

const (
	trapRead trapKind = iota
	trapReadMore
	trapReadUntil
	trapReadStruct
	trapReadInt
	trapPeek
	trapWait
	trapWaitEvent
	trapGetParser
)

// Trap is a tagged read request yielded by a parse computation through a
// Yielder. It carries the exact arguments needed to satisfy it; the
// enumeration is closed.
type Trap struct {
	kind     trapKind
	n        int
	delim    []byte
	keepTail bool
	format   StructFormat
	order    binary.ByteOrder
	signed   bool
	latch    *bool
}

// Yielder is the handoff between a parse computation, running on its own
// goroutine, and the Parser driving it. A computation calls the trap
// helper functions (Read, ReadUntil, ...), each of which yields a Trap
// through the Yielder and blocks until the Parser resolves it.
type Yielder struct {
	trapCh   chan Trap
	resumeCh chan any
}

func newYielder() *Yielder {
	return &Yielder{trapCh: make(chan Trap), resumeCh: make(chan any)}
}

// yield hands a trap to the driving Parser and blocks for the resolved
// value. It is the single point of suspension in a parse computation.
func (y *Yielder) yield(t Trap) any {
	y.trapCh <- t
	return <-y.resumeCh
}

// Read yields Read(n). n == 0 returns all currently readable bytes (which
// may be empty) and never suspends; n > 0 requires exactly n bytes.
func Read(y *Yielder, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "read: n must be >= 0")
	}
	v := y.yield(Trap{kind: trapRead, n: n})
	return asBytes(v), nil
}

// ReadMore yields ReadMore(n): all readable bytes, requiring at least n.
func ReadMore(y *Yielder, n int) ([]byte, error) {
	if n < 1 {
		return nil, errors.Wrap(ErrInvalidArgument, "read_more: n must be >= 1")
	}
	v := y.yield(Trap{kind: trapReadMore, n: n})
	return asBytes(v), nil
}

// ReadUntil yields ReadUntil(delim, keepTail): bytes up to, and optionally
// including, the first occurrence of delim.
func ReadUntil(y *Yielder, delim []byte, keepTail bool) ([]byte, error) {
	if len(delim) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "read_until: delim must not be empty")
	}
	v := y.yield(Trap{kind: trapReadUntil, delim: delim, keepTail: keepTail})
	return asBytes(v), nil
}

// ReadStruct yields ReadStruct(fmt): the decoded tuple of size fmt.Size().
func ReadStruct(y *Yielder, format StructFormat) ([]any, error) {
	v := y.yield(Trap{kind: trapReadStruct, format: format})
	return v.([]any), nil
}

// ReadInt yields ReadInt(n, order, signed): an n-byte integer.
func ReadInt(y *Yielder, n int, order binary.ByteOrder, signed bool) (int64, error) {
	if n < 1 {
		return 0, errors.Wrap(ErrInvalidArgument, "read_int: n must be >= 1")
	}
	if order == nil {
		return 0, errors.Wrap(ErrInvalidArgument, "read_int: byteorder must not be nil")
	}
	v := y.yield(Trap{kind: trapReadInt, n: n, order: order, signed: signed})
	return v.(int64), nil
}

// Peek yields Peek(n): the first n bytes, left in the buffer.
func Peek(y *Yielder, n int) ([]byte, error) {
	if n < 1 {
		return nil, errors.Wrap(ErrInvalidArgument, "peek: n must be >= 1")
	}
	v := y.yield(Trap{kind: trapPeek, n: n})
	return asBytes(v), nil
}

// Wait yields Wait: it forces a single suspension regardless of buffer
// state, so the computation observes at least one external Send or
// SendEvent before it resumes. The latch is a property of this call site
// (a fresh *bool per invocation), not of the Parser, per the Design Notes:
// a loop that calls Wait on every iteration latches fresh every time.
func Wait(y *Yielder) {
	latch := new(bool)
	y.yield(Trap{kind: trapWait, latch: latch})
}

// WaitEvent yields WaitEvent: the next externally queued event, suspending
// if the queue is empty.
func WaitEvent(y *Yielder) any {
	return y.yield(Trap{kind: trapWaitEvent})
}

// GetParser yields GetParser: a handle to the driving Parser itself, most
// often used to call Parser.Respond or to check Parser.HasMoreData.
func GetParser(y *Yielder) *Parser {
	v := y.yield(Trap{kind: trapGetParser})
	return v.(*Parser)
}

func asBytes(v any) []byte {
	if v == nil {
		return nil
	}
	return v.([]byte)
}
