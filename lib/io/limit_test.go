package iolib

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitReader(t *testing.T) {
	r := LimitReader(strings.NewReader("Hello, World!"), 5)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello"), b)
}

func TestCopyCapped(t *testing.T) {
	testcases := []struct {
		desc      string
		input     string
		limit     uint
		expected  string
		discarded int64
	}{
		{
			desc:     "under limit",
			input:    "Hello",
			limit:    10,
			expected: "Hello",
		},
		{
			desc:     "exact limit",
			input:    "Hello",
			limit:    5,
			expected: "Hello",
		},
		{
			desc:      "over limit",
			input:     "Hello, World!",
			limit:     5,
			expected:  "Hello",
			discarded: 8,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			src := strings.NewReader(tc.input)
			var dst bytes.Buffer

			kept, discarded, err := CopyCapped(&dst, src, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tc.expected)), kept)
			assert.Equal(t, tc.discarded, discarded)
			assert.Equal(t, tc.expected, dst.String())
			assert.Zero(t, src.Len())
		})
	}
}
