package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected Version
		wantErr  bool
	}{
		{
			desc:     "http 1.0",
			input:    []byte("HTTP/1.0"),
			expected: Version10,
		},
		{
			desc:    "missing prefix",
			input:   []byte("1.0"),
			wantErr: true,
		},
		{
			desc:    "missing prefix (partial)",
			input:   []byte("HTTP1.0"),
			wantErr: true,
		},
		{
			desc:    "missing seperator",
			input:   []byte("HTTP/1"),
			wantErr: true,
		},
		{
			desc:    "two seperators",
			input:   []byte("HTTP/1.0.1"),
			wantErr: true,
		},
		{
			desc:    "negative version",
			input:   []byte("HTTP/1.-1"),
			wantErr: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			ver, err := ParseVersion(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ver)
			assert.Equal(t, string(tc.input), ver.String())
		})
	}
}

func TestParseField(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Field
		wantErr  bool
	}{
		{
			desc:     "simple field",
			input:    "Content-Length: 12",
			expected: Field{Name: []byte("Content-Length"), Value: []byte("12")},
		},
		{
			desc:     "value with surrounding whitespace",
			input:    "Host:\t example.com \t",
			expected: Field{Name: []byte("Host"), Value: []byte("example.com")},
		},
		{
			desc:     "empty value",
			input:    "X-Empty:",
			expected: Field{Name: []byte("X-Empty"), Value: []byte{}},
		},
		{
			desc:    "missing colon",
			input:   "Host example.com",
			wantErr: true,
		},
		{
			desc:    "whitespace before colon",
			input:   "Host : example.com",
			wantErr: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			field, err := ParseField([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, string(tc.expected.Name), string(field.Name))
			assert.Equal(t, string(tc.expected.Value), string(field.Value))
		})
	}
}

func TestFieldText(t *testing.T) {
	f := Field{Name: []byte("Server"), Value: []byte("tinyhttpd/0.0.1")}
	assert.Equal(t, "Server: tinyhttpd/0.0.1", string(f.Text()))
}

func TestRequestContentLength(t *testing.T) {
	testcases := []struct {
		desc     string
		headers  []Field
		expected uint
		ok       bool
	}{
		{
			desc:     "present",
			headers:  []Field{{Name: []byte("Content-Length"), Value: []byte("42")}},
			expected: 42,
			ok:       true,
		},
		{
			desc:     "case insensitive name",
			headers:  []Field{{Name: []byte("content-length"), Value: []byte("7")}},
			expected: 7,
			ok:       true,
		},
		{
			desc:    "zero",
			headers: []Field{{Name: []byte("Content-Length"), Value: []byte("0")}},
			ok:      true,
		},
		{
			desc:    "missing",
			headers: []Field{{Name: []byte("Host"), Value: []byte("a")}},
		},
		{
			desc:    "not a number",
			headers: []Field{{Name: []byte("Content-Length"), Value: []byte("12abc")}},
		},
		{
			desc:    "negative",
			headers: []Field{{Name: []byte("Content-Length"), Value: []byte("-1")}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := Request{Headers: tc.headers}
			length, ok := r.ContentLength()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, length)
		})
	}
}
