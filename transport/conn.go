package transport

import (
	"net/netip"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed       = errors.New("connection is closed")
	ErrListenerClosed   = errors.New("listener is closed")
	ErrDeadLineExceeded = errors.New("deadline exceeded")

	// ErrWouldBlock is returned by non-blocking operations that can't make
	// progress until the descriptor becomes ready again.
	ErrWouldBlock = errors.New("operation would block")
)

// Conn is a non-blocking stream socket.
//
// Read never blocks: it returns [ErrWouldBlock] when nothing is buffered
// and io.EOF once the peer finished sending. Write blocks until p is
// written or the write timeout passes.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)

	// CloseWrite shuts down the sending side.
	CloseWrite() error
	Close() error

	LocalAddr() netip.AddrPort
	RemoteAddr() netip.AddrPort

	SetWriteTimeout(d time.Duration)
}
