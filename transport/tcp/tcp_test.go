//go:build linux

package tcp

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"tinyhttpd/transport"
	"tinyhttpd/transport/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sys/unix"
)

var loopback4 = netip.MustParseAddrPort("127.0.0.1:0")

// acceptOne polls l until a connection arrives.
func acceptOne(t *testing.T, l *Listener) *Conn {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c, err := l.Accept()
		if err == nil {
			return c
		}
		require.ErrorIs(t, err, transport.ErrWouldBlock)
		time.Sleep(time.Millisecond)
	}

	t.Fatal("no connection accepted")
	return nil
}

// dial connects a raw socket to addr and adopts it.
func dial(t *testing.T, addr netip.AddrPort) *Conn {
	t.Helper()

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	sa, err := toSockaddr(transport.IPv4, addr)
	require.NoError(t, err)
	require.NoError(t, unix.Connect(fd, sa))

	c, err := NewConn(fd)
	require.NoError(t, err)
	return c
}

type TCPConnTestSuite struct {
	test.ConnTestSuite
	l *Listener
}

func TestTCPConnTestSuite(t *testing.T) {
	suite.Run(t, new(TCPConnTestSuite))
}

func (s *TCPConnTestSuite) SetupTest() {
	s.ConnTestSuite.SetupTest()

	var err error
	s.l, err = Listen(transport.IPv4, loopback4, 0)
	s.Require().NoError(err)

	client := dial(s.T(), s.l.Addr())
	server := acceptOne(s.T(), s.l)
	s.C1, s.C2 = client, server
}

func (s *TCPConnTestSuite) TearDownTest() {
	s.NoError(s.l.Close())
	s.ConnTestSuite.TearDownTest()
}

func (s *TCPConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C1.RemoteAddr(), s.C2.LocalAddr())
	s.Equal(s.l.Addr(), s.C2.LocalAddr())
}

func TestListen(t *testing.T) {
	l, err := Listen(transport.IPv4, loopback4, 0)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, transport.IPv4, l.Family())
	assert.NotZero(t, l.Addr().Port())
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), l.Addr().Addr())

	// Nothing queued yet.
	_, err = l.Accept()
	assert.ErrorIs(t, err, transport.ErrWouldBlock)

	nc, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer nc.Close()

	c := acceptOne(t, l)
	defer c.Close()
	assert.Equal(t, nc.LocalAddr().String(), c.RemoteAddr().String())

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Close(), transport.ErrListenerClosed)

	_, err = l.Accept()
	assert.ErrorIs(t, err, transport.ErrListenerClosed)
}

func TestListenIPv6(t *testing.T) {
	l, err := Listen(transport.IPv6, netip.MustParseAddrPort("[::1]:0"), 0)
	if err != nil {
		t.Skipf("ipv6 loopback unavailable: %v", err)
	}
	defer l.Close()

	assert.Equal(t, transport.IPv6, l.Family())
	assert.True(t, l.Addr().Addr().Is6())

	// The same port is still free for ipv4 thanks to V6ONLY.
	l4, err := Listen(transport.IPv4, netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), l.Addr().Port()), 0)
	if err == nil {
		l4.Close()
	}
}

func TestListenFamilyMismatch(t *testing.T) {
	_, err := Listen(transport.IPv4, netip.MustParseAddrPort("[::1]:0"), 0)
	assert.Error(t, err)

	_, err = Listen(transport.IPv6, loopback4, 0)
	assert.Error(t, err)

	_, err = Listen(transport.Family(0), loopback4, 0)
	assert.Error(t, err)
}

func TestListenAddrInUse(t *testing.T) {
	l, err := Listen(transport.IPv4, loopback4, 0)
	require.NoError(t, err)
	defer l.Close()

	_, err = Listen(transport.IPv4, l.Addr(), 0)
	assert.Error(t, err)
}

func TestShutdown(t *testing.T) {
	l, err := Listen(transport.IPv4, loopback4, 0)
	require.NoError(t, err)
	defer l.Close()

	nc, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer nc.Close()

	c := acceptOne(t, l)
	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Shutdown(), transport.ErrConnClosed)

	require.NoError(t, nc.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := nc.Read(make([]byte, 1))
	assert.Zero(t, n)
	assert.Error(t, err)
}
