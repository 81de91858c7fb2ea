package ioframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// starvingError is the buffer's internal "not enough bytes yet" signal. It
// never escapes the package: the engine catches it in Step and turns it
// into a suspension, not a visible error.
type starvingError struct {
	// resumePos is set by PullUntil on a miss so the next search only
	// inspects newly appended bytes.
	resumePos    int
	hasResumePos bool
}

func (e *starvingError) Error() string { return "ioframe: starving" }

func newStarving() error { return &starvingError{} }

func newStarvingAt(pos int) error { return &starvingError{resumePos: pos, hasResumePos: true} }

func isStarving(err error) (*starvingError, bool) {
	s, ok := err.(*starvingError)
	return s, ok
}

// ErrOverflow is returned when a push would exceed the buffer's capacity.
var ErrOverflow = errors.New("ioframe: buffer overflow")

// ErrInvalidArgument is returned by trap-helper constructors when called
// with an out-of-range argument (n <= 0 where n >= 1 is required, an empty
// delimiter, an unsupported byte order).
var ErrInvalidArgument = errors.New("ioframe: invalid argument")

// ErrNoResult is returned by Parser.GetResult when the parse computation
// has not yet produced a terminal value.
var ErrNoResult = errors.New("ioframe: no result")

// ParseError is the externally visible parse failure: a semantic mismatch,
// residual bytes in strict mode, or a panic/error surfacing from inside a
// parse computation. It carries whatever partial diagnostic context was
// available when the failure occurred (a schema's partially filled field
// mapping, or the resume value that triggered the failure).
type ParseError struct {
	msg     string
	Partial any
	cause   error
}

func newParseError(msg string, partial any, cause error) *ParseError {
	return &ParseError{msg: msg, Partial: partial, cause: cause}
}

func (e *ParseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("ioframe: parse error: %s: %v", e.msg, e.cause)
	}
	return fmt.Sprintf("ioframe: parse error: %s", e.msg)
}

func (e *ParseError) Unwrap() error { return e.cause }

// RuntimeError indicates a broken parse computation: it yielded a value the
// engine does not recognize as a Trap, or it panicked, in which case Value
// holds the recovered panic value.
type RuntimeError struct {
	Value any
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("ioframe: runtime error: expected a Trap, got %#v", e.Value)
}
