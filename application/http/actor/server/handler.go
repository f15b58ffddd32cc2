package server

import (
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strings"

	"tinyhttpd/application/http"
	"tinyhttpd/application/http/semantic"
	"tinyhttpd/application/http/semantic/status"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// handler turns requests into responses.
type handler struct {
	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

func newHandler(logger *slog.Logger, clock clock.Clock, opts Options) *handler {
	return &handler{logger: logger, clock: clock, opts: opts}
}

// serve answers raw on w.
// The error is only about writing; failures to serve go to the client.
func (h *handler) serve(w io.Writer, remote netip.AddrPort, raw *http.Request) error {
	start := h.clock.Now()

	request, err := semantic.RequestFrom(raw, h.opts.Serve.Request)
	if err != nil {
		code := status.StatusOf(err).Code
		h.logger.Info("request rejected",
			"remote", remote,
			"line", string(raw.Line),
			"status", code,
			"error", err,
		)
		return h.respondError(w, code)
	}

	response, err := h.route(request, remote)
	if err != nil {
		response = semantic.ErrorResponse(status.StatusOf(err))
		if response.Status.Code >= 500 {
			h.logger.Error("failed to serve", "path", request.Path, "error", err)
		}
	}
	defer closeBody(response)

	if err := h.write(w, response); err != nil {
		return err
	}

	h.logger.Info("request served",
		"remote", remote,
		"method", request.Method,
		"target", request.RawPath,
		"path", request.Path,
		"status", response.Status.Code,
		"length", response.ContentLength,
		"elapsed", h.clock.Since(start),
	)

	return nil
}

// route resolves the request to a file and decides how it's served.
func (h *handler) route(request *semantic.Request, remote netip.AddrPort) (*semantic.Response, error) {
	target := h.opts.Serve.WebRoot + request.Path
	if strings.HasSuffix(target, "/") {
		target += h.opts.Serve.IndexFile
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, status.NewError(err, status.NotFound)
	}

	if info.IsDir() {
		target += "/" + h.opts.Serve.IndexFile
		if info, err = os.Stat(target); err != nil {
			return nil, status.NewError(err, status.NotFound)
		}
		if info.IsDir() {
			return nil, status.NewError(errors.Errorf("%s is a directory", target), status.NotFound)
		}
	}
	request.Target = target

	if request.IsCGI() || info.Mode().Perm()&0o111 != 0 {
		return h.serveCGI(request, remote)
	}

	return h.serveStatic(request)
}

// respondError writes the error page for code.
// Codes without one are answered as 500.
func (h *handler) respondError(w io.Writer, code uint) error {
	s, _ := status.FromCode(code)
	return h.write(w, semantic.ErrorResponse(s))
}

func (h *handler) write(w io.Writer, response *semantic.Response) error {
	enc := http.NewResponseEncoder(w, h.opts.Serve.Encode)
	if err := enc.Encode(response.RawResponse()); err != nil {
		return errors.Wrap(err, "encoding response")
	}
	return nil
}

func closeBody(response *semantic.Response) {
	if c, ok := response.Body.(io.Closer); ok {
		_ = c.Close()
	}
}
