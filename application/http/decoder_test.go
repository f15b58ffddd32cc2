package http

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ResponseDecoderTestSuite struct {
	suite.Suite
}

func TestResponseDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseDecoderTestSuite))
}

func (s *ResponseDecoderTestSuite) TestReadLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		limit    uint
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "simple line with CRLF",
			input:    "Hello\r\n",
			expected: "Hello",
		},
		{
			desc:    "line exceeding limit",
			input:   "Hey\r\n",
			limit:   1,
			wantErr: errLineTooLong,
		},
		{
			desc:    "Sole LF (fail)",
			input:   "Hello\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "Sole LF (success)",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Hello\n",
			expected: "Hello",
		},
		{
			desc:    "no terminator",
			input:   "Hello",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			d := NewResponseDecoder(strings.NewReader(tc.input), tc.opts)

			b, err := d.readLine(tc.limit)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, string(b))
		})
	}
}

func (s *ResponseDecoderTestSuite) TestDecode() {
	input := "\r\n" +
		"HTTP/1.0 200 OK\r\n" +
		"Server: tinyhttpd/0.0.1\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	var res Response
	err := NewResponseDecoder(strings.NewReader(input), DefaultDecodeOptions).Decode(&res)
	s.Require().NoError(err)

	s.Equal(StatusLine{Version: Version10, StatusCode: 200, ReasonPhrase: "OK"}, res.StatusLine)
	s.Len(res.Headers, 2)

	server, ok := res.Field("server")
	s.True(ok)
	s.Equal("tinyhttpd/0.0.1", server)

	_, ok = res.Field("Content-Type")
	s.False(ok)

	body, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	s.Equal("hello", string(body))
}

func (s *ResponseDecoderTestSuite) TestDecodeErrors() {
	testcases := []struct {
		desc    string
		opts    DecodeOptions
		input   string
		wantErr error
	}{
		{
			desc:    "malformed status line",
			input:   "HTTP/1.0 200\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "malformed status code",
			input:   "HTTP/1.0 2000 OK\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "status line too long",
			opts:    DecodeOptions{MaxStatusLineLength: 4},
			input:   "HTTP/1.0 200 OK\r\n\r\n",
			wantErr: ErrStatusLineTooLong,
		},
		{
			desc:    "malformed field line",
			input:   "HTTP/1.0 200 OK\r\nbroken\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "field line too long",
			opts:    DecodeOptions{MaxFieldLineLength: 4},
			input:   "HTTP/1.0 200 OK\r\nServer: x\r\n\r\n",
			wantErr: ErrFieldLineTooLong,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var res Response
			err := NewResponseDecoder(strings.NewReader(tc.input), tc.opts).Decode(&res)
			s.ErrorIs(err, tc.wantErr)
		})
	}
}
