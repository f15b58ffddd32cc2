package server

import (
	"io"
	"mime"
	"os"
	"path/filepath"

	"tinyhttpd/application/http/semantic"
	"tinyhttpd/application/http/semantic/status"
	iolib "tinyhttpd/lib/io"

	"github.com/pkg/errors"
)

// fileBody streams at most the size the file had when it was opened.
type fileBody struct {
	io.Reader
	f *os.File
}

func (b *fileBody) Close() error { return b.f.Close() }

func (h *handler) serveStatic(request *semantic.Request) (*semantic.Response, error) {
	f, err := os.Open(request.Target)
	if err != nil {
		return nil, status.NewError(err, status.NotFound)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, status.NewError(errors.Wrap(err, "stat"), status.InternalServerError)
	}
	if info.IsDir() {
		f.Close()
		return nil, status.NewError(errors.Errorf("%s is a directory", request.Target), status.NotFound)
	}

	size := info.Size()
	body := &fileBody{Reader: iolib.LimitReader(f, uint(size)), f: f}

	return semantic.NewResponse(h.contentType(request.Target), size, body), nil
}

func (h *handler) contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return h.opts.Static.DefaultContentType
}
