// Package httpframing is an exemplar built directly on ioframe's trap
// helpers (rather than the descriptor algebra, since an HTTP header block
// is a dynamically-shaped map, not a fixed field list): HTTP/1.1 response
// status line, headers, and Content-Length or chunked body framing. It
// exists to exercise the engine's line-oriented (ReadUntil) path against
// real response framing; it does not implement HTTP requests, trailers,
// or keep-alive reuse.
package httpframing

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/kungfusheep/ioframe"
)

var crlf = []byte("\r\n")

// Response is the decoded result of parsing one HTTP/1.1 response.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Headers    []Header
	Body       []byte
}

// Header preserves declaration order and repeated keys, unlike a plain
// map.
type Header struct {
	Name  string
	Value string
}

// Get returns the first header value matching name, case-insensitively.
func (r *Response) Get(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// NewParser returns a Parser that decodes one Response from the stream it
// is fed.
func NewParser() *ioframe.Parser {
	return ioframe.NewParser(readResponse)
}

// Parse is a one-shot convenience over NewParser for a response that
// already fits in one buffer.
func Parse(data []byte) (*Response, error) {
	p := NewParser()
	v, err := p.Parse(data, false)
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*Response)
	if !ok {
		return nil, errors.Errorf("ioframe/httpframing: parse produced %T, not *Response", v)
	}
	return resp, nil
}

func readResponse(y *ioframe.Yielder) (any, error) {
	statusLine, err := ioframe.ReadUntil(y, crlf, false)
	if err != nil {
		return nil, err
	}
	proto, code, reason, err := parseStatusLine(string(statusLine))
	if err != nil {
		return nil, err
	}

	resp := &Response{Proto: proto, StatusCode: code, Reason: reason}
	for {
		line, err := ioframe.ReadUntil(y, crlf, false)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		name, value, err := parseHeaderLine(string(line))
		if err != nil {
			return nil, err
		}
		resp.Headers = append(resp.Headers, Header{Name: name, Value: value})
	}

	body, err := readBody(y, resp)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

func parseStatusLine(line string) (proto string, code int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", newMalformed("status line", line)
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", newMalformed("status code", parts[1])
	}
	reason = ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return parts[0], code, reason, nil
}

func parseHeaderLine(line string) (name, value string, err error) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", newMalformed("header line", line)
	}
	return line[:i], strings.TrimSpace(line[i+1:]), nil
}

func readBody(y *ioframe.Yielder, resp *Response) ([]byte, error) {
	if te, ok := resp.Get("Transfer-Encoding"); ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		return readChunkedBody(y)
	}
	if cl, ok := resp.Get("Content-Length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil {
			return nil, newMalformed("Content-Length", cl)
		}
		if n == 0 {
			return nil, nil
		}
		return ioframe.Read(y, n)
	}
	// neither header present: the body runs to connection close, which a
	// sans-I/O parser cannot observe directly. The host is expected to
	// call GetResult once it knows no more bytes are coming, surfacing
	// whatever was read so far via ReadAll rather than this trap path.
	return nil, nil
}

func readChunkedBody(y *ioframe.Yielder) ([]byte, error) {
	var body []byte
	for {
		sizeLine, err := ioframe.ReadUntil(y, crlf, false)
		if err != nil {
			return nil, err
		}
		sizeStr := string(sizeLine)
		if i := strings.IndexByte(sizeStr, ';'); i >= 0 {
			sizeStr = sizeStr[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if err != nil {
			return nil, newMalformed("chunk size", sizeStr)
		}
		if size == 0 {
			// trailing CRLF after the zero-size chunk, no trailers modeled
			if _, err := ioframe.ReadUntil(y, crlf, false); err != nil {
				return nil, err
			}
			return body, nil
		}
		chunk, err := ioframe.Read(y, int(size))
		if err != nil {
			return nil, err
		}
		body = append(body, chunk...)
		if _, err := ioframe.ReadUntil(y, crlf, false); err != nil {
			return nil, err
		}
	}
}

func newMalformed(what, got string) error {
	return errors.Wrapf(ioframe.ErrInvalidArgument, "ioframe/httpframing: malformed %s: %q", what, got)
}
