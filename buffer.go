package ioframe

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Buffer is a fixed-capacity byte store with two cursors, tail <= head <=
// capacity. The readable region is [tail, head); the free region is
// [head, capacity) plus [0, tail). Buffer is exclusively owned by the
// Parser it is attached to and is not safe for concurrent access.
type Buffer struct {
	data []byte
	tail int
	head int
}

// NewBuffer allocates a Buffer with the given fixed capacity. Capacity
// must be at least 2.
func NewBuffer(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Capacity returns the buffer's total byte capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// DataSize returns the number of currently readable bytes.
func (b *Buffer) DataSize() int { return b.head - b.tail }

// AvailableSize returns the number of bytes that can still be pushed
// before Push fails with ErrOverflow.
func (b *Buffer) AvailableSize() int { return len(b.data) - b.head + b.tail }

func (b *Buffer) rightBlankSize() int { return len(b.data) - b.head }

// IsFull reports whether the buffer has no room left to push into.
func (b *Buffer) IsFull() bool { return b.AvailableSize() == 0 }

// IsEmpty reports whether the buffer currently holds no readable bytes.
func (b *Buffer) IsEmpty() bool { return b.head == b.tail }

// Clear resets both cursors to zero without touching the underlying array.
func (b *Buffer) Clear() { b.head, b.tail = 0, 0 }

// Resize reconfigures the buffer's capacity, discarding its contents.
func (b *Buffer) Resize(capacity int) {
	if capacity < 2 {
		capacity = 2
	}
	b.data = make([]byte, capacity)
	b.Clear()
}

// compact moves [tail, head) to offset zero, making the entire tail of the
// array available for a subsequent push.
func (b *Buffer) compact() {
	n := b.head - b.tail
	if n == 0 {
		b.head, b.tail = 0, 0
		return
	}
	copy(b.data[0:n], b.data[b.tail:b.head])
	b.tail = 0
	b.head = n
}

// Next returns a mutable view of the buffer's free region, for callers
// that want to read directly into the buffer (e.g. PushFromReader).
func (b *Buffer) Next() []byte { return b.data[b.head:] }

// Advance moves head forward by n bytes, as if n bytes had just been
// written into the slice returned by Next.
func (b *Buffer) Advance(n int) { b.head += n }

// Push copies data into the free region, compacting first if data fits in
// AvailableSize but not in the contiguous blank region past head.
func (b *Buffer) Push(data []byte) error {
	n := len(data)
	if n > b.AvailableSize() {
		return errors.Wrapf(ErrOverflow, "push %d bytes, %d available", n, b.AvailableSize())
	}
	if n > b.rightBlankSize() {
		b.compact()
	}
	copy(b.data[b.head:b.head+n], data)
	b.Advance(n)
	return nil
}

// PushFromReader reads as many bytes as r makes available in one Read call
// directly into the buffer's free region, mirroring the source's
// push_from_socket(recv_into): no intermediate copy buffer, just whatever
// Next() currently exposes.
func (b *Buffer) PushFromReader(r io.Reader) (int, error) {
	if b.rightBlankSize() == 0 {
		b.compact()
	}
	n, err := r.Read(b.Next())
	if n > 0 {
		b.Advance(n)
	}
	return n, err
}

// PushStruct encodes fields into the buffer using order, failing with
// ErrOverflow on insufficient room.
func (b *Buffer) PushStruct(order binary.ByteOrder, fields ...any) error {
	raw, err := encodeStructFields(order, fields)
	if err != nil {
		return err
	}
	return b.Push(raw)
}

// Pull removes and returns bytes from the readable region. n == 0 returns
// all currently readable bytes (possibly none) and empties the buffer; n >
// 0 requires exactly n readable bytes or fails with Starving.
func (b *Buffer) Pull(n int) ([]byte, error) {
	if n == 0 {
		out := make([]byte, b.DataSize())
		copy(out, b.data[b.tail:b.head])
		b.Clear()
		return out, nil
	}
	if b.DataSize() < n {
		return nil, newStarving()
	}
	out := make([]byte, n)
	copy(out, b.data[b.tail:b.tail+n])
	b.tail += n
	if b.tail == b.head {
		b.Clear()
	}
	return out, nil
}

// PullAmap pulls everything currently readable, requiring at least minN
// bytes to be available; it fails with Starving otherwise.
func (b *Buffer) PullAmap(minN int) ([]byte, error) {
	if b.DataSize() < minN {
		return nil, newStarving()
	}
	return b.Pull(0)
}

// Peek returns the first n readable bytes without consuming them. n must
// be at least 1.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if n < 1 {
		return nil, errors.Wrap(ErrInvalidArgument, "peek: n must be >= 1")
	}
	if b.DataSize() < n {
		return nil, newStarving()
	}
	out := make([]byte, n)
	copy(out, b.data[b.tail:b.tail+n])
	return out, nil
}

// PullStruct decodes a fixed-width record described by fmt, requiring
// fmt.Size() readable bytes.
func (b *Buffer) PullStruct(fmt StructFormat) ([]any, error) {
	if b.DataSize() < fmt.Size() {
		return nil, newStarving()
	}
	raw, _ := b.Pull(fmt.Size())
	return fmt.Decode(raw)
}

// PullInt decodes an n-byte integer in the given byte order.
func (b *Buffer) PullInt(n int, order binary.ByteOrder, signed bool) (int64, error) {
	if b.DataSize() < n {
		return 0, newStarving()
	}
	raw, _ := b.Pull(n)
	return decodeInt(raw, order, signed), nil
}

// PullUntil searches [initPos, head) for delim. On a miss it fails with a
// Starving signal carrying resumePos = max(tail, head-len(delim)+1) so a
// subsequent search, after more bytes are pushed, needs only inspect the
// newly appended region. On a hit at index i it advances tail to
// i+len(delim) and returns [oldTail, i+len(delim)) if keepTail, else
// [oldTail, i).
func (b *Buffer) PullUntil(delim []byte, initPos int, keepTail bool) ([]byte, int, error) {
	if len(delim) == 0 {
		return nil, 0, errors.Wrap(ErrInvalidArgument, "pull_until: delimiter must not be empty")
	}
	start := initPos
	if start < b.tail {
		start = b.tail
	}
	idx := indexFrom(b.data[:b.head], delim, start)
	if idx == -1 {
		resume := b.head - len(delim) + 1
		if resume < b.tail {
			resume = b.tail
		}
		return nil, resume, newStarvingAt(resume)
	}
	oldTail := b.tail
	end := idx + len(delim)
	b.tail = end
	var out []byte
	if keepTail {
		out = make([]byte, end-oldTail)
		copy(out, b.data[oldTail:end])
	} else {
		out = make([]byte, idx-oldTail)
		copy(out, b.data[oldTail:idx])
	}
	if b.tail == b.head {
		b.Clear()
	}
	return out, 0, nil
}

func indexFrom(haystack, needle []byte, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(haystack) {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
