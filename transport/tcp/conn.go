//go:build linux

package tcp

import (
	"io"
	"net/netip"
	"sync/atomic"
	"time"

	"tinyhttpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Conn struct {
	fd int

	local, remote netip.AddrPort

	clock        clock.Clock
	writeTimeout time.Duration

	closed atomic.Bool
}

var _ transport.Conn = (*Conn)(nil)

func newConn(fd int, local, remote netip.AddrPort) *Conn {
	return &Conn{fd: fd, local: local, remote: remote, clock: clock.New()}
}

// NewConn adopts an already connected socket and switches it to
// non-blocking mode. The Conn owns fd from now on.
func NewConn(fd int) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, errors.Wrap(err, "setting non-blocking mode")
	}

	var local, remote netip.AddrPort
	if sa, err := unix.Getsockname(fd); err == nil {
		local = fromSockaddr(sa)
	}
	if sa, err := unix.Getpeername(fd); err == nil {
		remote = fromSockaddr(sa)
	}

	return newConn(fd, local, remote), nil
}

func (c *Conn) Fd() int { return c.fd }

func (c *Conn) LocalAddr() netip.AddrPort  { return c.local }
func (c *Conn) RemoteAddr() netip.AddrPort { return c.remote }

// SetClock replaces the clock write timeouts are measured with.
func (c *Conn) SetClock(clk clock.Clock) { c.clock = clk }

// SetWriteTimeout bounds how long a single Write may wait for the socket
// to drain. Zero waits forever.
func (c *Conn) SetWriteTimeout(d time.Duration) { c.writeTimeout = d }

func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, transport.ErrConnClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, transport.ErrWouldBlock
		default:
			return 0, errors.Wrap(err, "reading")
		}
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, transport.ErrConnClosed
	}

	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = c.clock.Now().Add(c.writeTimeout)
	}

	written := 0
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if err := c.waitWritable(deadline); err != nil {
				return written, err
			}
		default:
			return written, errors.Wrap(err, "writing")
		}
	}

	return written, nil
}

func (c *Conn) waitWritable(deadline time.Time) error {
	for {
		msec := -1
		if !deadline.IsZero() {
			left := deadline.Sub(c.clock.Now())
			if left <= 0 {
				return transport.ErrDeadLineExceeded
			}
			// Round up so a sub-millisecond remainder still waits.
			msec = int((left + time.Millisecond - 1) / time.Millisecond)
		}

		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, msec)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return errors.Wrap(err, "waiting for socket to drain")
		case n == 0:
			return transport.ErrDeadLineExceeded
		}

		return nil
	}
}

func (c *Conn) CloseWrite() error {
	if c.closed.Load() {
		return transport.ErrConnClosed
	}
	return errors.Wrap(ignoreNotConn(unix.Shutdown(c.fd, unix.SHUT_WR)), "shutting down write side")
}

// Shutdown shuts down both directions without releasing the descriptor.
func (c *Conn) Shutdown() error {
	if c.closed.Load() {
		return transport.ErrConnClosed
	}
	return errors.Wrap(ignoreNotConn(unix.Shutdown(c.fd, unix.SHUT_RDWR)), "shutting down")
}

// The peer may already be gone.
func ignoreNotConn(err error) error {
	if errors.Is(err, unix.ENOTCONN) {
		return nil
	}
	return err
}

func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return transport.ErrConnClosed
	}
	return errors.Wrap(unix.Close(c.fd), "closing")
}
