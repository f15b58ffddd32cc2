package http

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ResponseEncoderTestSuite struct {
	suite.Suite
}

func TestResponseEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseEncoderTestSuite))
}

func (s *ResponseEncoderTestSuite) TestEncode() {
	testcases := []struct {
		desc     string
		opts     EncodeOptions
		input    Response
		expected string
	}{
		{
			desc: "status line and headers",
			input: Response{
				StatusLine: StatusLine{Version: Version10, StatusCode: 200, ReasonPhrase: "OK"},
				Headers: []Field{
					{Name: []byte("Content-Type"), Value: []byte("text/html")},
					{Name: []byte("Content-Length"), Value: []byte("5")},
				},
				Body: strings.NewReader("hello"),
			},
			expected: "HTTP/1.0 200 OK\r\n" +
				"Content-Type: text/html\r\n" +
				"Content-Length: 5\r\n" +
				"\r\n" +
				"hello",
		},
		{
			desc: "no body",
			input: Response{
				StatusLine: StatusLine{Version: Version10, StatusCode: 404, ReasonPhrase: "Not Found"},
			},
			expected: "HTTP/1.0 404 Not Found\r\n\r\n",
		},
		{
			desc: "sole LF",
			opts: EncodeOptions{UseSoleLF: true},
			input: Response{
				StatusLine: StatusLine{Version: Version10, StatusCode: 200, ReasonPhrase: "OK"},
				Headers:    []Field{{Name: []byte("A"), Value: []byte("b")}},
			},
			expected: "HTTP/1.0 200 OK\nA: b\n\n",
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			buf := bytes.NewBuffer(nil)

			err := NewResponseEncoder(buf, tc.opts).Encode(tc.input)
			s.Require().NoError(err)
			s.Equal(tc.expected, buf.String())
		})
	}
}

// writeCounter records every Write it gets.
type writeCounter struct {
	bytes.Buffer
	writes int
}

func (w *writeCounter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func (s *ResponseEncoderTestSuite) TestEncodeSingleWrite() {
	page := "<html><body><h1>404 Not Found</h1></body></html>"
	w := &writeCounter{}

	err := NewResponseEncoder(w, DefaultEncodeOptions).Encode(Response{
		StatusLine: StatusLine{Version: Version10, StatusCode: 404, ReasonPhrase: "Not Found"},
		Headers: []Field{
			{Name: []byte("Content-Type"), Value: []byte("text/html; charset=utf-8")},
			{Name: []byte("Content-Length"), Value: []byte(strconv.Itoa(len(page)))},
		},
		Body: strings.NewReader(page),
	})
	s.Require().NoError(err)

	s.Equal(1, w.writes)
	s.True(strings.HasSuffix(w.String(), "\r\n\r\n"+page))
}

func (s *ResponseEncoderTestSuite) TestEncodeLargeBody() {
	body := strings.Repeat("x", 64*1024)
	buf := bytes.NewBuffer(nil)

	err := NewResponseEncoder(buf, DefaultEncodeOptions).Encode(Response{
		StatusLine: StatusLine{Version: Version10, StatusCode: 200, ReasonPhrase: "OK"},
		Body:       strings.NewReader(body),
	})
	s.Require().NoError(err)
	s.True(strings.HasSuffix(buf.String(), "\r\n\r\n"+body))
}
