//go:build linux

package server

import (
	"log/slog"
	"sync/atomic"

	"tinyhttpd/transport/poll"
)

// Sessions are edge-triggered: OnReady drains the socket every time.
const sessionInterest = poll.EventRead | poll.EventPeerClosed | poll.EventHangup | poll.EventError | poll.EdgeTriggered

type Stats struct {
	Live     int64
	Accepted uint64
	Closed   uint64
}

// registry owns every live session.
// Only the event loop goroutine touches the map; the counters can be read
// from anywhere.
type registry struct {
	poller   *poll.Poller
	sessions map[int]*session
	logger   *slog.Logger

	live     atomic.Int64
	accepted atomic.Uint64
	closed   atomic.Uint64
}

func newRegistry(poller *poll.Poller, logger *slog.Logger) *registry {
	return &registry{
		poller:   poller,
		sessions: make(map[int]*session),
		logger:   logger,
	}
}

func (r *registry) add(s *session) error {
	if err := r.poller.Register(s.conn.Fd(), sessionInterest, s); err != nil {
		return err
	}

	r.sessions[s.conn.Fd()] = s
	r.live.Add(1)
	r.accepted.Add(1)

	return nil
}

// remove tears s down. Sessions no longer in the registry are left alone,
// so a second teardown is a no-op.
func (r *registry) remove(s *session) {
	fd := s.conn.Fd()
	if cur, ok := r.sessions[fd]; !ok || cur != s {
		return
	}

	if err := r.poller.Deregister(fd); err != nil {
		s.logger.Error("failed to deregister session", "error", err)
	}
	if err := s.conn.Shutdown(); err != nil {
		s.logger.Debug("failed to shut down connection", "error", err)
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Error("failed to close connection", "error", err)
	}

	delete(r.sessions, fd)
	s.closed = true

	r.live.Add(-1)
	r.closed.Add(1)

	s.logger.Debug("connection closed")
}

func (r *registry) closeAll() {
	for _, s := range r.sessions {
		r.remove(s)
	}
}

func (r *registry) len() int { return len(r.sessions) }

func (r *registry) stats() Stats {
	return Stats{
		Live:     r.live.Load(),
		Accepted: r.accepted.Load(),
		Closed:   r.closed.Load(),
	}
}
