// Package config holds the runtime configuration of tinyhttpd.
//
// Precedence order (highest wins):
//  1. CLI flags (cmd/tinyhttpd/cmd)
//  2. Environment variables (LoadFromEnv)
//  3. Configuration file (Load)
//  4. Defaults (Default)
package config

import (
	"log/slog"
	"net/netip"
	"time"

	"tinyhttpd/transport"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Config struct {
	Listen ListenConfig `yaml:"listen"`

	WebRoot   string `yaml:"web_root"`
	IndexFile string `yaml:"index_file"`

	MaxEvents    int           `yaml:"max_events"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Backlog      int           `yaml:"backlog"`

	MaxLineLength int  `yaml:"max_line_length"`
	MaxPathLength uint `yaml:"max_path_length"`
	MaxBodyLength uint `yaml:"max_body_length"`

	Static StaticConfig `yaml:"static"`
	CGI    CGIConfig    `yaml:"cgi"`
	Log    LogConfig    `yaml:"log"`
}

type ListenConfig struct {
	IPv4 EndpointConfig `yaml:"ipv4"`
	IPv6 EndpointConfig `yaml:"ipv6"`
}

type EndpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type StaticConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

type CGIConfig struct {
	OutputLimit uint `yaml:"output_limit"`
	InheritEnv  bool `yaml:"inherit_env"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			IPv4: EndpointConfig{Enabled: true, Address: "0.0.0.0:8080"},
			IPv6: EndpointConfig{Enabled: false, Address: "[::]:8080"},
		},
		WebRoot:       "./htdocs",
		IndexFile:     "index.html",
		MaxEvents:     10,
		PollTimeout:   time.Second,
		WriteTimeout:  10 * time.Second,
		Backlog:       unix.SOMAXCONN,
		MaxLineLength: 1024,
		MaxPathLength: 255,
		MaxBodyLength: 1 << 20,
		Static:        StaticConfig{BufferSize: 8192},
		CGI:           CGIConfig{OutputLimit: 8192, InheritEnv: true},
		Log:           LogConfig{Level: "info", Format: LogFormatText},
	}
}

// Endpoint is an enabled listen address.
type Endpoint struct {
	Family transport.Family
	Addr   netip.AddrPort
}

// Endpoints returns the enabled listen addresses, IPv4 first.
func (c *Config) Endpoints() ([]Endpoint, error) {
	var eps []Endpoint

	for _, ep := range []struct {
		family transport.Family
		conf   EndpointConfig
	}{
		{transport.IPv4, c.Listen.IPv4},
		{transport.IPv6, c.Listen.IPv6},
	} {
		if !ep.conf.Enabled {
			continue
		}

		addr, err := netip.ParseAddrPort(ep.conf.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "%s listen address", ep.family)
		}
		if transport.FamilyOf(addr.Addr()) != ep.family {
			return nil, errors.Errorf("%s listen address %s belongs to another family", ep.family, addr)
		}

		eps = append(eps, Endpoint{Family: ep.family, Addr: addr})
	}

	return eps, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return level, nil
}

// Validate checks the configuration for values the server can't run with.
func (c *Config) Validate() error {
	if !c.Listen.IPv4.Enabled && !c.Listen.IPv6.Enabled {
		return errors.New("at least one of ipv4 and ipv6 must be enabled")
	}
	if _, err := c.Endpoints(); err != nil {
		return err
	}

	if c.WebRoot == "" {
		return errors.New("web root must not be empty")
	}
	if c.IndexFile == "" {
		return errors.New("index file must not be empty")
	}

	switch {
	case c.MaxEvents <= 0:
		return errors.Errorf("max_events must be positive, got %d", c.MaxEvents)
	case c.PollTimeout <= 0:
		return errors.Errorf("poll_timeout must be positive, got %s", c.PollTimeout)
	case c.WriteTimeout < 0:
		return errors.Errorf("write_timeout must not be negative, got %s", c.WriteTimeout)
	case c.Backlog <= 0:
		return errors.Errorf("backlog must be positive, got %d", c.Backlog)
	case c.MaxLineLength <= 0:
		return errors.Errorf("max_line_length must be positive, got %d", c.MaxLineLength)
	case c.MaxPathLength == 0:
		return errors.New("max_path_length must be positive")
	case c.MaxBodyLength == 0:
		return errors.New("max_body_length must be positive")
	case c.Static.BufferSize <= 0:
		return errors.Errorf("static.buffer_size must be positive, got %d", c.Static.BufferSize)
	case c.CGI.OutputLimit == 0:
		return errors.New("cgi.output_limit must be positive")
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		return errors.Errorf("log format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.Log.Format)
	}

	return nil
}
