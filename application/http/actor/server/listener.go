//go:build linux

package server

import (
	"tinyhttpd/transport"
	"tinyhttpd/transport/poll"
	"tinyhttpd/transport/tcp"

	"github.com/pkg/errors"
)

// listener accepts clients for one listening socket.
type listener struct {
	l   *tcp.Listener
	srv *Server
}

var _ poll.Handler = (*listener)(nil)

// OnReady accepts one client per readiness. The listener is
// level-triggered, so any others still queued trigger it again.
func (l *listener) OnReady(ev poll.Events) {
	conn, err := l.l.Accept()
	if err != nil {
		if !errors.Is(err, transport.ErrWouldBlock) {
			l.srv.logger.Error("failed to accept", "family", l.l.Family(), "error", err)
		}
		return
	}

	sess := l.srv.newSession(conn)
	if err := l.srv.reg.add(sess); err != nil {
		sess.logger.Error("failed to register session", "error", err)
		_ = conn.Close()
		return
	}

	sess.logger.Debug("accepted connection")
}

func (l *listener) close() error {
	if err := l.srv.poller.Deregister(l.l.Fd()); err != nil && !errors.Is(err, poll.ErrNotRegistered) {
		_ = l.l.Close()
		return err
	}
	return l.l.Close()
}
