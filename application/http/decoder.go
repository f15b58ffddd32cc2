package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"tinyhttpd/application/util/rule"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// MaxFieldLineLength sets the limit of field line length on headers.
	MaxFieldLineLength uint

	// MaxStatusLineLength sets the limit of status line length.
	MaxStatusLineLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         false,
	MaxFieldLineLength:  0,
	MaxStatusLineLength: 0,
}

var (
	errLineTooLong         = errors.New("line length exceeeds limit")
	ErrMissingCRBeforeLF   = errors.New("missing CR before LF")
	ErrFieldLineTooLong    = errors.New("field line length exceeds limit")
	ErrMalformedFieldLine  = errors.New("field line is malformed")
	ErrStatusLineTooLong   = errors.New("status line length exceeds limit")
	ErrMalformedStatusLine = errors.New("status line is malformed")
)

// ResponseDecoder reads responses produced by [ResponseEncoder].
// The server never decodes responses itself; this is the client side of
// the wire format.
type ResponseDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{br: bufio.NewReader(r), opts: opts}
}

// readLine returns the next line without its terminator. Lines longer
// than limit bytes, terminator included, fail with errLineTooLong; a zero
// limit means no limit.
func (rd *ResponseDecoder) readLine(limit uint) ([]byte, error) {
	b, err := rd.br.ReadBytes(rule.LF)
	switch {
	case err == io.EOF && len(b) > 0:
		return nil, io.ErrUnexpectedEOF
	case err != nil:
		return nil, err
	case limit > 0 && uint(len(b)) > limit:
		return nil, errLineTooLong
	}

	line, _ := bytes.CutSuffix(b, []byte{rule.LF})
	line, hasCR := bytes.CutSuffix(line, []byte{rule.CR})
	if !hasCR && !rd.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	return line, nil
}

// Decode reads the status line and headers into r.
// r.Body is left reading from the rest of the stream.
// r MUST be a non-nil pointer
func (rd *ResponseDecoder) Decode(r *Response) error {
	line, err := rd.statusLine()
	if err != nil {
		return errors.Wrap(err, "parsing status line")
	}
	if r.StatusLine, err = parseStatusLine(line); err != nil {
		return errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	r.Headers = r.Headers[:0]
	for {
		line, err := rd.readLine(rd.opts.MaxFieldLineLength)
		if errors.Is(err, errLineTooLong) {
			return errors.Wrap(ErrFieldLineTooLong, "parsing headers")
		} else if err != nil {
			return errors.Wrap(err, "parsing headers")
		}

		if len(line) == 0 {
			break
		}

		field, err := ParseField(line)
		if err != nil {
			return errors.Wrap(ErrMalformedFieldLine, err.Error())
		}
		r.Headers = append(r.Headers, field)
	}

	r.Body = rd.br

	return nil
}

// statusLine skips the empty lines a message may be preceded by.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
func (rd *ResponseDecoder) statusLine() ([]byte, error) {
	for {
		line, err := rd.readLine(rd.opts.MaxStatusLineLength)
		if errors.Is(err, errLineTooLong) {
			return nil, ErrStatusLineTooLong
		} else if err != nil {
			return nil, err
		}

		if len(line) > 0 {
			return line, nil
		}
	}
}

func parseStatusLine(line []byte) (StatusLine, error) {
	verText, rest, ok1 := bytes.Cut(line, []byte{rule.SP})
	codeText, reason, ok2 := bytes.Cut(rest, []byte{rule.SP})
	if !ok1 || !ok2 {
		return StatusLine{}, errors.Errorf("status line %q", line)
	}

	ver, err := ParseVersion(verText)
	if err != nil {
		return StatusLine{}, err
	}

	code, err := strconv.ParseUint(string(codeText), 10, 16)
	if err != nil || len(codeText) != 3 {
		return StatusLine{}, errors.Errorf("status code %q", codeText)
	}

	// reason-phrase may be empty.
	return StatusLine{Version: ver, StatusCode: uint(code), ReasonPhrase: string(reason)}, nil
}

// Field returns the value of the first header named name.
func (r *Response) Field(name string) (string, bool) {
	for _, f := range r.Headers {
		if bytes.EqualFold(f.Name, []byte(name)) {
			return string(f.Value), true
		}
	}
	return "", false
}
