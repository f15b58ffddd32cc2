//go:build linux

package tcp

import (
	"net/netip"
	"sync/atomic"

	"tinyhttpd/transport"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultBacklog asks for the longest accept queue the kernel allows
// (net.core.somaxconn caps it).
const DefaultBacklog = unix.SOMAXCONN

// Listener is a non-blocking listening socket.
type Listener struct {
	fd     int
	family transport.Family
	addr   netip.AddrPort

	closed atomic.Bool
}

// Listen binds a socket of the given family to addr and starts listening.
// Port 0 picks a free port; [Listener.Addr] reports the one bound.
func Listen(family transport.Family, addr netip.AddrPort, backlog int) (*Listener, error) {
	domain, err := domainOf(family)
	if err != nil {
		return nil, err
	}

	sa, err := toSockaddr(family, addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "creating socket")
	}

	l, err := listen(fd, family, sa, backlog)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return l, nil
}

func listen(fd int, family transport.Family, sa unix.Sockaddr, backlog int) (*Listener, error) {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, errors.Wrap(err, "setting SO_REUSEADDR")
	}

	if family == transport.IPv6 {
		// Keep the families apart so both can bind the same port.
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			return nil, errors.Wrap(err, "setting IPV6_V6ONLY")
		}
	}

	if err := unix.Bind(fd, sa); err != nil {
		return nil, errors.Wrap(err, "binding")
	}

	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, errors.Wrap(err, "listening")
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		return nil, errors.Wrap(err, "getting bound address")
	}

	return &Listener{fd: fd, family: family, addr: fromSockaddr(bound)}, nil
}

// Accept takes one pending connection off the queue.
// It returns [transport.ErrWouldBlock] if there is none.
func (l *Listener) Accept() (*Conn, error) {
	if l.closed.Load() {
		return nil, transport.ErrListenerClosed
	}

	for {
		fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			return newConn(fd, l.addr, fromSockaddr(sa)), nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, transport.ErrWouldBlock
		default:
			return nil, errors.Wrap(err, "accepting")
		}
	}
}

func (l *Listener) Fd() int                  { return l.fd }
func (l *Listener) Family() transport.Family { return l.family }
func (l *Listener) Addr() netip.AddrPort     { return l.addr }

func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return transport.ErrListenerClosed
	}
	return errors.Wrap(unix.Close(l.fd), "closing listener")
}
