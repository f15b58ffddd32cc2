package server

import (
	"bytes"
	"net/netip"

	"tinyhttpd/application/cgi"
	"tinyhttpd/application/http/semantic"
	"tinyhttpd/application/http/semantic/status"

	"github.com/pkg/errors"
)

func (h *handler) serveCGI(request *semantic.Request, remote netip.AddrPort) (*semantic.Response, error) {
	// A POST has to carry a body.
	if request.Method == semantic.MethodPost && (!request.HasContentLength || request.ContentLength == 0) {
		return nil, status.NewError(errors.New("POST without a body"), status.BadRequest)
	}

	logger := h.logger.With("script", request.Target)

	meta := cgi.Meta{
		Method:         string(request.Method),
		Query:          request.Query,
		ContentLength:  request.ContentLength,
		ContentType:    request.ContentType,
		ScriptName:     request.Path,
		ScriptFilename: request.Target,
		RemoteAddr:     remote,
		ServerSoftware: semantic.ServerName,
		ServerProtocol: "HTTP/1.0",
	}

	proc, err := cgi.Start(request.Target, cgi.Options{
		Env:    meta.Env(h.opts.CGI.InheritEnv),
		Stderr: h.opts.CGI.Stderr,
	})
	switch {
	case errors.Is(err, cgi.ErrExec):
		// Same outcome as a program that exits right away.
		logger.Warn("failed to execute program", "error", err)
		return semantic.NewResponse(semantic.ContentTypeHTML, 0, nil), nil
	case err != nil:
		return nil, status.NewError(err, status.InternalServerError)
	}
	defer proc.Close()

	out, discarded, err := proc.Exchange(request.Body, h.opts.CGI.OutputLimit)
	if err != nil {
		logger.Warn("failed to exchange data with program", "error", err)
	}
	if discarded > 0 {
		logger.Warn("program output truncated", "kept", len(out), "discarded", discarded)
	}

	if err := proc.Wait(); err != nil {
		logger.Warn("program exited abnormally", "pid", proc.Pid(), "code", proc.ExitCode(), "error", err)
	}

	return semantic.NewResponse(semantic.ContentTypeHTML, int64(len(out)), bytes.NewReader(out)), nil
}
