package ioframe

// Chain is a linked list of Parsers forming a linear pipeline: each
// parser's terminal result feeds the next as input bytes. Send pushes data
// into the head; draining the chain's output events forwards any
// non-terminal event from the head outward unchanged, but whenever an
// event carries a result and a successor stage exists, that result is fed
// downstream as bytes instead of being surfaced. Each result flows
// exactly once to its immediate successor.
type Chain struct {
	head *Parser
	next *Chain
}

// NewChain links parsers into a pipeline in the given order. It panics if
// given no parsers: a chain of zero stages is not a meaningful pipeline.
func NewChain(parsers ...*Parser) *Chain {
	if len(parsers) == 0 {
		panic("ioframe: NewChain requires at least one parser")
	}
	c := &Chain{head: parsers[0]}
	cur := c
	for _, p := range parsers[1:] {
		cur.next = &Chain{head: p}
		cur = cur.next
	}
	return c
}

// Send pushes data into the first parser in the chain.
func (c *Chain) Send(data []byte) error {
	return c.head.Send(data)
}

// NextEvent drains the chain: it walks forward from the current stage,
// forwarding any terminal result into the next stage's input and masking
// it from the outward event, returning the first genuinely outward event
// it finds. It returns false once every stage is exhausted.
func (c *Chain) NextEvent() (OutputEvent, bool) {
	stage := c
	for stage != nil {
		ev, ok := stage.head.NextEvent()
		if !ok {
			stage = stage.next
			continue
		}
		if ev.HasResult && stage.next != nil {
			if b, isBytes := ev.Result.([]byte); isBytes {
				_ = stage.next.head.Send(b)
			}
			ev.HasResult = false
			ev.Result = nil
		}
		return ev, true
	}
	return OutputEvent{}, false
}

// Tail returns the last stage in the chain, the stage whose result (if
// any) is the chain's own terminal result, since no successor masks it.
func (c *Chain) Tail() *Parser {
	stage := c
	for stage.next != nil {
		stage = stage.next
	}
	return stage.head
}
