package transport

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyOf(t *testing.T) {
	testcases := []struct {
		addr     string
		expected Family
	}{
		{addr: "127.0.0.1", expected: IPv4},
		{addr: "0.0.0.0", expected: IPv4},
		{addr: "::1", expected: IPv6},
		{addr: "::ffff:127.0.0.1", expected: IPv6},
	}
	for _, tc := range testcases {
		t.Run(tc.addr, func(t *testing.T) {
			f := FamilyOf(netip.MustParseAddr(tc.addr))
			assert.Equal(t, tc.expected, f)
		})
	}

	assert.Equal(t, "ipv4", IPv4.String())
	assert.Equal(t, "ipv6", IPv6.String())
	assert.Equal(t, "unknown", Family(0).String())
}
