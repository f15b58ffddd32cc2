package server

import (
	"io"
	"time"

	"tinyhttpd/application/http"
	"tinyhttpd/application/http/semantic"

	"golang.org/x/sys/unix"
)

type Options struct {
	Serve  ServeOptions
	Loop   LoopOptions
	Static StaticOptions
	CGI    CGIOptions
}

type ServeOptions struct {
	Encode http.EncodeOptions
	Parse  http.ParseOptions

	Request semantic.ParseRequestOptions

	WebRoot   string
	IndexFile string
}

type LoopOptions struct {
	MaxEvents    int
	PollTimeout  time.Duration
	WriteTimeout time.Duration

	// Backlog is the accept queue length of every listener.
	Backlog int
}

type StaticOptions struct {
	// DefaultContentType is used when the extension says nothing.
	DefaultContentType string
}

type CGIOptions struct {
	OutputLimit uint
	InheritEnv  bool

	// Stderr receives the programs' standard error. Nil discards it.
	Stderr io.Writer
}

func DefaultOptions() Options {
	return Options{
		Serve: ServeOptions{
			Encode:    http.DefaultEncodeOptions,
			Parse:     http.DefaultParseOptions,
			Request:   semantic.DefaultParseRequestOptions,
			WebRoot:   "htdocs",
			IndexFile: "index.html",
		},
		Loop: LoopOptions{
			MaxEvents:    10,
			PollTimeout:  time.Second,
			WriteTimeout: 10 * time.Second,
			Backlog:      unix.SOMAXCONN,
		},
		Static: StaticOptions{
			DefaultContentType: semantic.ContentTypeHTML,
		},
		CGI: CGIOptions{
			OutputLimit: 8192,
			InheritEnv:  true,
		},
	}
}
