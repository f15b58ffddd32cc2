//go:build linux

package server

import (
	"io"
	"log/slog"
	"time"

	"tinyhttpd/application/http"
	"tinyhttpd/application/http/semantic/status"
	"tinyhttpd/transport"
	"tinyhttpd/transport/poll"
	"tinyhttpd/transport/tcp"

	"github.com/pkg/errors"
)

// session is one accepted client. It serves a single request, as HTTP/1.0
// does, then waits for the client to hang up.
type session struct {
	conn *tcp.Conn
	srv  *Server

	parser    *http.RequestParser
	responded bool

	// closed is set once the registry tore the session down. Events for it
	// may still be queued in the current batch.
	closed bool

	logger  *slog.Logger
	started time.Time
}

var _ poll.Handler = (*session)(nil)

func newParser(opts Options) *http.RequestParser {
	return http.NewRequestParser(opts.Serve.Parse)
}

func (s *session) OnReady(ev poll.Events) {
	if s.closed {
		return
	}

	if ev.Has(poll.EventRead) {
		if finished := s.drain(); finished {
			s.srv.reg.remove(s)
			return
		}
	}

	// Data that arrived with the hangup was handled above.
	if ev.IsClosing() {
		s.srv.reg.remove(s)
	}
}

// drain reads until the socket would block.
// It reports whether the session is finished.
func (s *session) drain() (finished bool) {
	buf := s.srv.readBuf
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if !s.consume(buf[:n]) {
				return true
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, transport.ErrWouldBlock):
			return false
		case errors.Is(err, io.EOF):
			s.logger.Debug("peer finished sending")
			return true
		default:
			s.logger.Debug("failed to read", "error", err)
			return true
		}
	}
}

// consume feeds b to the parser and answers once a request is complete.
// It returns false if the connection should be torn down.
func (s *session) consume(b []byte) bool {
	if s.responded {
		// HTTP/1.0 has one request per connection. The rest is noise.
		return true
	}

	done, err := s.parser.Feed(b)
	switch {
	case err != nil:
		s.logger.Info("rejecting request", "error", err)
		err = s.srv.handler.respondError(s.conn, status.BadRequest.Code)
	case done:
		err = s.srv.handler.serve(s.conn, s.conn.RemoteAddr(), s.parser.Request())
	default:
		return true
	}

	s.responded = true
	if err != nil {
		s.logger.Info("failed to write response", "error", err)
		return false
	}

	// Signal the end of the response. The peer closing its side finishes
	// the session.
	if err := s.conn.CloseWrite(); err != nil {
		s.logger.Debug("failed to close write side", "error", err)
		return false
	}

	return true
}
