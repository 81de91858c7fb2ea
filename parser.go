package ioframe

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultBufferCapacity is the capacity a Parser allocates for its input
// Buffer when none is supplied explicitly.
const DefaultBufferCapacity = 4096

// Computation is a suspendable producer of traps terminating in a return
// value. It runs on its own goroutine and communicates with its owning
// Parser only through the Yielder it is given. Its only observable
// effects are trap requests (via y.yield, through the trap helper
// functions) and its return value.
type Computation func(y *Yielder) (any, error)

type lifecycleState int

const (
	stateWaiting lifecycleState = iota
	stateAdvancing
	stateEnded
)

// OutputEvent is the 4-field record a parse computation produces via
// Parser.Respond (or that the engine produces automatically when a
// computation returns): bytes to hand to the host's byte sink, whether the
// host should close the connection, a fatal error the host should
// surface, and an optional terminal result.
type OutputEvent struct {
	BytesToSend []byte
	ShouldClose bool
	FatalErr    error
	Result      any
	HasResult   bool
}

type compOutcome struct {
	value any
	err   error
}

// Parser drives a suspendable parse computation: it dispatches each trap
// the computation yields against its input Buffer, resuming the
// computation when the buffer can satisfy the trap and suspending
// (lifecycle state Waiting) when it cannot. A Parser and its Buffer are
// single-owner and not safe for concurrent use; cross-thread use requires
// external synchronization.
type Parser struct {
	buf *Buffer
	y   *Yielder

	doneCh  chan compOutcome
	started bool

	pendingTrap     *Trap
	resumeValue     any
	resumeSearchPos int

	events    []OutputEvent
	extEvents []any

	result    any
	hasResult bool
	err       error

	state lifecycleState
}

// NewParser attaches comp to a freshly allocated Buffer of
// DefaultBufferCapacity and immediately runs the engine until the first
// suspension or termination.
func NewParser(comp Computation) *Parser {
	return NewParserWithBuffer(comp, NewBuffer(DefaultBufferCapacity))
}

// NewParserWithBuffer attaches comp to an externally supplied Buffer and
// immediately runs the engine until the first suspension or termination.
// This lets the computation register its first trap before any input
// arrives.
func NewParserWithBuffer(comp Computation, buf *Buffer) *Parser {
	p := &Parser{
		buf:    buf,
		y:      newYielder(),
		doneCh: make(chan compOutcome, 1),
		state:  stateAdvancing,
	}
	go p.runComputation(comp)
	p.step()
	return p
}

func (p *Parser) runComputation(comp Computation) {
	defer func() {
		if r := recover(); r != nil {
			p.doneCh <- compOutcome{err: &RuntimeError{Value: r}}
		}
	}()
	v, err := comp(p.y)
	p.doneCh <- compOutcome{value: v, err: err}
}

// step drives the engine: while Advancing, either advance the computation
// to its next trap (or termination) or dispatch the pending trap against
// the buffer, looping until the computation ends or the buffer signals
// Starving.
func (p *Parser) step() {
	for p.state == stateAdvancing {
		if p.pendingTrap == nil {
			if p.started {
				p.y.resumeCh <- p.resumeValue
			}
			p.started = true
			select {
			case t := <-p.y.trapCh:
				tt := t
				p.pendingTrap = &tt
			case out := <-p.doneCh:
				p.state = stateEnded
				if out.err != nil {
					pe := newParseError("computation failed", p.resumeValue, out.err)
					p.err = pe
					p.events = append(p.events, OutputEvent{FatalErr: pe})
					return
				}
				p.result = out.value
				p.hasResult = true
				p.events = append(p.events, OutputEvent{Result: out.value, HasResult: true})
				return
			}
		}

		val, suspended, err := p.dispatch(*p.pendingTrap)
		if err != nil {
			p.state = stateEnded
			p.err = err
			p.events = append(p.events, OutputEvent{FatalErr: err})
			return
		}
		if suspended {
			p.state = stateWaiting
			return
		}
		p.pendingTrap = nil
		p.resumeValue = val
	}
}

// dispatch resolves a single trap against the buffer and parser state,
// returning (value, suspended, error). suspended means the buffer (or, for
// Wait, the latch) reported Starving: the trap stays pending.
func (p *Parser) dispatch(t Trap) (any, bool, error) {
	switch t.kind {
	case trapRead:
		v, err := p.buf.Pull(t.n)
		return bufResult(v, err)
	case trapReadMore:
		v, err := p.buf.PullAmap(t.n)
		return bufResult(v, err)
	case trapReadUntil:
		v, resumePos, err := p.buf.PullUntil(t.delim, p.resumeSearchPos, t.keepTail)
		if err != nil {
			if _, ok := isStarving(err); ok {
				p.resumeSearchPos = resumePos
				return nil, true, nil
			}
			return nil, false, err
		}
		p.resumeSearchPos = 0
		return v, false, nil
	case trapReadStruct:
		v, err := p.buf.PullStruct(t.format)
		return bufResult(v, err)
	case trapReadInt:
		v, err := p.buf.PullInt(t.n, t.order, t.signed)
		return bufResult(v, err)
	case trapPeek:
		v, err := p.buf.Peek(t.n)
		return bufResult(v, err)
	case trapWait:
		if !*t.latch {
			*t.latch = true
			return nil, true, nil
		}
		return nil, false, nil
	case trapWaitEvent:
		if len(p.extEvents) == 0 {
			return nil, true, nil
		}
		ev := p.extEvents[0]
		p.extEvents = p.extEvents[1:]
		return ev, false, nil
	case trapGetParser:
		return p, false, nil
	default:
		return nil, false, &RuntimeError{Value: t}
	}
}

func bufResult(v any, err error) (any, bool, error) {
	if err != nil {
		if _, ok := isStarving(err); ok {
			return nil, true, nil
		}
		return nil, false, err
	}
	return v, false, nil
}

// Send appends data to the input buffer and runs the engine. data may be
// empty, which is how a host kicks progress after enqueuing an external
// event or after a latched Wait.
func (p *Parser) Send(data []byte) error {
	if err := p.buf.Push(data); err != nil {
		return err
	}
	if p.state == stateEnded {
		return nil
	}
	p.state = stateAdvancing
	p.step()
	return nil
}

// SendEvent enqueues an out-of-band event consumed by WaitEvent, and runs
// the engine. Multiple events may be queued with no pending WaitEvent; the
// queue is unbounded; callers that expect bursts of out-of-band signals
// should apply their own backpressure.
func (p *Parser) SendEvent(event any) {
	p.extEvents = append(p.extEvents, event)
	if p.state == stateEnded {
		return
	}
	p.state = stateAdvancing
	p.step()
}

// Respond enqueues an output event. A computation obtains its Parser via
// GetParser and calls this directly (it is not itself a trap). Setting
// hasResult also sets the parser's terminal result.
func (p *Parser) Respond(bytesToSend []byte, shouldClose bool, fatalErr error, result any, hasResult bool) {
	p.events = append(p.events, OutputEvent{
		BytesToSend: bytesToSend,
		ShouldClose: shouldClose,
		FatalErr:    fatalErr,
		Result:      result,
		HasResult:   hasResult,
	})
	if hasResult {
		p.result = result
		p.hasResult = true
	}
	if fatalErr != nil {
		p.err = fatalErr
	}
}

// NextEvent removes and returns the oldest pending output event in FIFO
// order. The second return value is false once the queue is exhausted.
// That means no events are pending right now, not that the stream has
// ended.
func (p *Parser) NextEvent() (OutputEvent, bool) {
	if len(p.events) == 0 {
		return OutputEvent{}, false
	}
	e := p.events[0]
	p.events = p.events[1:]
	return e, true
}

// ReadOutputBytes drains all pending output events and concatenates the
// byte-valued results they carry, in order. Events whose result is not a
// []byte are drained and contribute nothing.
func (p *Parser) ReadOutputBytes() []byte {
	var out []byte
	for {
		e, ok := p.NextEvent()
		if !ok {
			break
		}
		if e.HasResult {
			if b, ok := e.Result.([]byte); ok {
				out = append(out, b...)
			}
		}
	}
	return out
}

// HasResult reports whether the computation has produced a terminal
// value.
func (p *Parser) HasResult() bool { return p.hasResult }

// GetResult runs the engine once more and returns the terminal result, or
// fails with ErrNoResult if the computation has not finished.
func (p *Parser) GetResult() (any, error) {
	if p.state != stateEnded {
		p.state = stateAdvancing
		p.step()
	}
	if p.err != nil {
		return nil, p.err
	}
	if !p.hasResult {
		return nil, ErrNoResult
	}
	return p.result, nil
}

// Finished reports whether the computation has reached a terminal state
// (returned, errored, or panicked).
func (p *Parser) Finished() bool { return p.state == stateEnded }

// HasMoreData reports whether the input buffer holds unconsumed bytes.
func (p *Parser) HasMoreData() bool { return !p.buf.IsEmpty() }

// ReadAll takes whatever bytes remain buffered, without requiring the
// computation to have asked for them.
func (p *Parser) ReadAll() []byte {
	b, _ := p.buf.Pull(0)
	return b
}

// Parse is a convenience wrapper: Send(data), then, if strict and bytes
// remain buffered, fail with a ParseError("redundant data"), then
// GetResult().
func (p *Parser) Parse(data []byte, strict bool) (any, error) {
	if err := p.Send(data); err != nil {
		return nil, err
	}
	if strict && p.HasMoreData() {
		return nil, newParseError("redundant data", nil, nil)
	}
	return p.GetResult()
}

// Run is a reference blocking driver: per loop iteration it drains output
// events (writing BytesToSend to conn, closing on ShouldClose, returning
// FatalErr, returning Result), then pumps more bytes from conn straight
// into the buffer's own free region with Buffer.PushFromReader (mirroring
// the source's push_from_socket: no intermediate copy buffer) and runs
// the engine. On EOF before a result, it fails with a ParseError("need
// data"); if the buffer fills up with no computation progress to free
// room, it fails with ErrOverflow rather than spinning. log may be nil;
// when non-nil it receives connection-lifecycle diagnostics (bytes read,
// events drained, fatal errors); the engine itself never logs on the
// caller's behalf.
func (p *Parser) Run(conn io.ReadWriter, log *logrus.Entry) (any, error) {
	for {
		for {
			ev, ok := p.NextEvent()
			if !ok {
				break
			}
			if log != nil {
				log.WithFields(logrus.Fields{
					"bytes":  len(ev.BytesToSend),
					"close":  ev.ShouldClose,
					"result": ev.HasResult,
					"fatal":  ev.FatalErr != nil,
				}).Debug("ioframe: draining output event")
			}
			if len(ev.BytesToSend) > 0 {
				if _, err := conn.Write(ev.BytesToSend); err != nil {
					return nil, err
				}
			}
			if ev.ShouldClose {
				if c, ok := conn.(io.Closer); ok {
					_ = c.Close()
				}
			}
			if ev.FatalErr != nil {
				if log != nil {
					log.WithError(ev.FatalErr).Error("ioframe: computation reported a fatal error")
				}
				return nil, ev.FatalErr
			}
			if ev.HasResult {
				return ev.Result, nil
			}
		}

		n, err := p.buf.PushFromReader(conn)
		if n > 0 {
			if log != nil {
				log.WithField("bytes", n).Debug("ioframe: read from connection")
			}
			if p.state != stateEnded {
				p.state = stateAdvancing
				p.step()
			}
		} else if err == nil && p.buf.IsFull() {
			return nil, errors.Wrap(ErrOverflow, "ioframe: Run: buffer full with no room for more input")
		}
		if err != nil {
			if err == io.EOF {
				if !p.HasResult() {
					return nil, newParseError("need data", nil, io.EOF)
				}
				return p.GetResult()
			}
			return nil, err
		}
	}
}
