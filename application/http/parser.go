package http

import (
	"bytes"
	"io"

	"tinyhttpd/application/util/rule"
	iolib "tinyhttpd/lib/io"

	"github.com/pkg/errors"
)

type ParseOptions struct {
	// MaxLineLength caps the request line and every field line.
	// Longer lines are truncated and the rest of the line is dropped.
	MaxLineLength int

	// MaxBodyLength caps the Content-Length accepted for a POST body.
	MaxBodyLength uint
}

var DefaultParseOptions = ParseOptions{
	MaxLineLength: 1024,
	MaxBodyLength: 1 << 20,
}

var ErrBodyTooLarge = errors.New("declared content length exceeds limit")

type parseState uint8

const (
	stateRequestLine parseState = iota
	stateHeaders
	stateBody
	stateDone
)

// RequestParser assembles one request out of the chunks read from a
// non-blocking socket. Each call to Feed resumes where the previous one
// stopped, so a slow peer never holds up the caller.
//
// A body is only collected for POST requests carrying a Content-Length.
type RequestParser struct {
	opts  ParseOptions
	state parseState

	pending []byte
	line    []byte

	// discarding is set while the tail of a truncated line is skipped.
	discarding bool
	bodyLeft   uint

	req Request
}

func NewRequestParser(opts ParseOptions) *RequestParser {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultParseOptions.MaxLineLength
	}

	return &RequestParser{
		opts: opts,
		line: make([]byte, opts.MaxLineLength),
	}
}

// Feed appends b to the parser's input and consumes as much of it as
// possible. done reports whether a whole request is available through
// [RequestParser.Request]. Bytes fed after that are ignored.
func (p *RequestParser) Feed(b []byte) (done bool, err error) {
	if p.state == stateDone {
		return true, nil
	}

	p.pending = append(p.pending, b...)

	for {
		switch p.state {
		case stateRequestLine, stateHeaders:
			line, ok := p.nextLine()
			if !ok {
				return false, nil
			}
			if err := p.handleLine(line); err != nil {
				return false, err
			}
		case stateBody:
			n := min(uint(len(p.pending)), p.bodyLeft)
			p.req.Body = append(p.req.Body, p.pending[:n]...)
			p.pending = p.pending[n:]
			p.bodyLeft -= n
			if p.bodyLeft > 0 {
				return false, nil
			}
			p.state = stateDone
		case stateDone:
			// Anything past the declared body is not ours to consume.
			p.pending = nil
			return true, nil
		}
	}
}

// Done reports whether a whole request was parsed.
func (p *RequestParser) Done() bool { return p.state == stateDone }

// Request returns the parsed request. It's only complete once Feed reported done.
func (p *RequestParser) Request() *Request { return &p.req }

// nextLine cuts the next complete line off pending.
// The returned slice is only valid until the next call.
func (p *RequestParser) nextLine() ([]byte, bool) {
	for len(p.pending) > 0 {
		r := bytes.NewReader(p.pending)
		n, err := iolib.ReadLine(r, p.line)
		line := p.line[:n]
		terminated := iolib.IsTerminated(line)

		if err == io.EOF && !terminated {
			// Line isn't complete yet.
			return nil, false
		}

		consumed := len(p.pending) - r.Len()
		if terminated && consumed == len(p.pending) && p.pending[consumed-1] == rule.CR {
			// A CR at the very end might still be followed by LF.
			return nil, false
		}
		p.pending = p.pending[consumed:]

		if p.discarding {
			// Rest of an over-long line.
			p.discarding = !terminated
			continue
		}

		if !terminated {
			// Capacity reached. Keep the head, drop the tail.
			p.discarding = true
			return line, true
		}

		return line[:len(line)-1], true
	}

	return nil, false
}

func (p *RequestParser) handleLine(line []byte) error {
	switch p.state {
	case stateRequestLine:
		// An empty line can be received before message.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(bytes.TrimSpace(line)) == 0 {
			return nil
		}
		p.req.Line = bytes.Clone(line)
		p.state = stateHeaders

	case stateHeaders:
		if len(line) > 0 {
			field, err := ParseField(line)
			if err != nil {
				// Only Content-Length matters to us, so a bad line is skipped.
				return nil
			}
			p.req.Headers = append(p.req.Headers, Field{
				Name:  bytes.Clone(field.Name),
				Value: bytes.Clone(field.Value),
			})
			return nil
		}

		// An empty line. This means that there are no more headers.
		return p.endHead()
	}

	return nil
}

func (p *RequestParser) endHead() error {
	p.state = stateDone

	method, _ := rule.NextToken(p.req.Line)
	if !bytes.EqualFold(method, []byte("POST")) {
		return nil
	}

	length, ok := p.req.ContentLength()
	if !ok || length == 0 {
		return nil
	}

	if p.opts.MaxBodyLength > 0 && length > p.opts.MaxBodyLength {
		return errors.Wrapf(ErrBodyTooLarge, "%d > %d", length, p.opts.MaxBodyLength)
	}

	p.bodyLeft = length
	p.req.Body = make([]byte, 0, length)
	p.state = stateBody

	return nil
}
