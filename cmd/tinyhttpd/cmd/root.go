//go:build linux

// Package cmd wires up the CLI flags, the configuration and the server.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tinyhttpd/application/http/actor/server"
	"tinyhttpd/config"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tinyhttpd/cmd/tinyhttpd/cmd.version=0.1.0"
var version = "0.0.1" //nolint:gochecknoglobals

type flags struct {
	configPath string
	webRoot    string
	listen4    string
	listen6    string
	ipv4       bool
	ipv6       bool
	backlog    int
	verbose    int
	logFormat  string
}

func (f *flags) bind(fs *flag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Configuration file (YAML or JSON)")
	fs.StringVarP(&f.webRoot, "root", "r", "", "Directory documents are served from")
	fs.StringVar(&f.listen4, "listen4", "", "IPv4 listen address (host:port)")
	fs.StringVar(&f.listen6, "listen6", "", "IPv6 listen address ([host]:port)")
	fs.BoolVar(&f.ipv4, "ipv4", false, "Accept connections over IPv4")
	fs.BoolVar(&f.ipv6, "ipv6", false, "Accept connections over IPv6")
	fs.IntVar(&f.backlog, "backlog", 0, "Accept queue length of each listener")
	fs.CountVarP(&f.verbose, "verbose", "v", "Log at debug level")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
}

// NewRootCmd returns the tinyhttpd command. Logs go to the command's
// error stream.
func NewRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "tinyhttpd",
		Short:         "A small HTTP/1.0 server for static files and CGI programs",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	f.bind(root.Flags())

	return root
}

// Execute parses args and runs the server until ctx is done.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// loadConfig layers flags over environment over file over defaults.
func loadConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	cfg := config.Default()

	path := f.configPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	if path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	config.LoadFromEnv(cfg)

	if fs.Changed("root") {
		cfg.WebRoot = f.webRoot
	}
	if fs.Changed("listen4") {
		cfg.Listen.IPv4.Address = f.listen4
	}
	if fs.Changed("listen6") {
		cfg.Listen.IPv6.Address = f.listen6
	}
	if fs.Changed("ipv4") {
		cfg.Listen.IPv4.Enabled = f.ipv4
	}
	if fs.Changed("ipv6") {
		cfg.Listen.IPv6.Enabled = f.ipv6
	}
	if fs.Changed("backlog") {
		cfg.Backlog = f.backlog
	}
	// Info is the default level, so any -v means debug.
	if f.verbose > 0 {
		cfg.Log.Level = slog.LevelDebug.String()
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logOutput io.Writer) error {
	logger, err := newLogger(logOutput, cfg)
	if err != nil {
		return err
	}

	endpoints, err := cfg.Endpoints()
	if err != nil {
		return err
	}
	eps := make([]server.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		eps = append(eps, server.Endpoint{Family: ep.Family, Addr: ep.Addr})
	}

	opts, err := serverOptions(cfg, logOutput)
	if err != nil {
		return err
	}

	srv, err := server.New(eps, logger, clock.New(), opts)
	if err != nil {
		return err
	}

	logger.Info("serving", "root", opts.Serve.WebRoot, "version", version)
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	logger.Info("stopped", "stats", srv.Stats())

	return nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

func serverOptions(cfg *config.Config, stderr io.Writer) (server.Options, error) {
	root, err := filepath.Abs(cfg.WebRoot)
	if err != nil {
		return server.Options{}, errors.Wrap(err, "resolving web root")
	}
	info, err := os.Stat(root)
	if err != nil {
		return server.Options{}, errors.Wrap(err, "web root")
	}
	if !info.IsDir() {
		return server.Options{}, errors.Errorf("web root %s is not a directory", root)
	}

	opts := server.DefaultOptions()

	opts.Serve.WebRoot = root
	opts.Serve.IndexFile = cfg.IndexFile
	opts.Serve.Parse.MaxLineLength = cfg.MaxLineLength
	opts.Serve.Parse.MaxBodyLength = cfg.MaxBodyLength
	opts.Serve.Request.MaxPathLength = cfg.MaxPathLength
	opts.Serve.Encode.BufferSize = cfg.Static.BufferSize

	opts.Loop.MaxEvents = cfg.MaxEvents
	opts.Loop.PollTimeout = cfg.PollTimeout
	opts.Loop.WriteTimeout = cfg.WriteTimeout
	opts.Loop.Backlog = cfg.Backlog

	opts.CGI.OutputLimit = cfg.CGI.OutputLimit
	opts.CGI.InheritEnv = cfg.CGI.InheritEnv
	opts.CGI.Stderr = stderr

	return opts, nil
}
