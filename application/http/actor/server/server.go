//go:build linux

package server

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"

	"tinyhttpd/transport"
	"tinyhttpd/transport/poll"
	"tinyhttpd/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrNoListener = errors.New("no listener could be started")

// Endpoint is an address to listen on.
type Endpoint struct {
	Family transport.Family
	Addr   netip.AddrPort
}

// Server multiplexes every connection on one goroutine, the one running
// [Server.Serve].
type Server struct {
	poller    *poll.Poller
	listeners []*listener
	reg       *registry

	handler *handler
	readBuf []byte

	logger *slog.Logger
	clock  clock.Clock
	opts   Options

	closeOnce sync.Once
	closeErr  error
}

// New binds every endpoint. Endpoints that fail are logged and skipped;
// New only fails if none could be bound or the poller can't be created.
func New(
	endpoints []Endpoint,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) (*Server, error) {
	poller, err := poll.New(opts.Loop.MaxEvents)
	if err != nil {
		return nil, errors.Wrap(err, "creating poller")
	}

	s := &Server{
		poller:  poller,
		handler: newHandler(logger, clock, opts),
		readBuf: make([]byte, 4096),
		logger:  logger,
		clock:   clock,
		opts:    opts,
	}
	s.reg = newRegistry(poller, logger)

	for _, ep := range endpoints {
		l, err := s.listen(ep)
		if err != nil {
			logger.Error("failed to listen", "family", ep.Family, "addr", ep.Addr, "error", err)
			continue
		}
		s.listeners = append(s.listeners, l)
		logger.Info("listening", "family", ep.Family, "addr", l.l.Addr())
	}

	if len(s.listeners) == 0 {
		_ = poller.Close()
		return nil, ErrNoListener
	}

	return s, nil
}

func (s *Server) listen(ep Endpoint) (*listener, error) {
	l, err := tcp.Listen(ep.Family, ep.Addr, s.opts.Loop.Backlog)
	if err != nil {
		return nil, err
	}

	lis := &listener{l: l, srv: s}
	if err := s.poller.Register(l.Fd(), poll.EventRead, lis); err != nil {
		_ = l.Close()
		return nil, errors.Wrap(err, "registering listener")
	}

	return lis, nil
}

// Addrs returns the bound address of every listener.
func (s *Server) Addrs() []netip.AddrPort {
	addrs := make([]netip.AddrPort, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.l.Addr())
	}
	return addrs
}

// Serve runs the event loop until ctx is done, then shuts the server down.
// Cancellation is noticed between two waits, so it takes at most one poll
// timeout.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return s.Close()
		default:
		}

		batch, err := s.poller.Wait(s.opts.Loop.PollTimeout)
		if err != nil {
			if errors.Is(err, poll.ErrPollerClosed) {
				return err
			}
			s.logger.Error("failed to wait for events", "error", err)
			continue
		}

		for _, ev := range batch {
			ev.Handler.OnReady(ev.Events)
		}
	}
}

func (s *Server) newSession(conn *tcp.Conn) *session {
	conn.SetClock(s.clock)
	conn.SetWriteTimeout(s.opts.Loop.WriteTimeout)

	return &session{
		conn:    conn,
		srv:     s,
		parser:  newParser(s.opts),
		logger:  s.logger.With("remote", conn.RemoteAddr()),
		started: s.clock.Now(),
	}
}

// Stats returns connection counters. Safe to call from any goroutine.
func (s *Server) Stats() Stats { return s.reg.stats() }

// Close tears down every session, then the listeners, then the poller.
// Serve calls it on its way out; calling it while Serve is still running
// on another goroutine isn't allowed.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.reg.closeAll()

		for _, l := range s.listeners {
			if err := l.close(); err != nil {
				s.logger.Error("failed to close listener", "error", err)
			}
		}

		s.closeErr = s.poller.Close()
		s.logger.Info("server closed")
	})

	return s.closeErr
}
