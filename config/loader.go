package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load overlays the YAML file at path onto cfg. JSON is valid YAML, so a
// JSON file works too. Unknown keys are rejected.
func Load(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file.
			return nil
		}
		return errors.Wrapf(err, "parsing %s", path)
	}

	return nil
}

// Every supported variable uses the TINYHTTPD_ prefix. Booleans accept
// "1", "true", "yes" and "0", "false", "no" (case-insensitive).
const envPrefix = "TINYHTTPD_"

// LoadFromEnv overlays environment variables onto cfg. Unset or
// unparsable variables leave the existing value alone.
func LoadFromEnv(cfg *Config) {
	if v, ok := envBool("IPV4"); ok {
		cfg.Listen.IPv4.Enabled = v
	}
	if v := envString("LISTEN4"); v != "" {
		cfg.Listen.IPv4.Address = v
	}
	if v, ok := envBool("IPV6"); ok {
		cfg.Listen.IPv6.Enabled = v
	}
	if v := envString("LISTEN6"); v != "" {
		cfg.Listen.IPv6.Address = v
	}

	if v := envString("WEB_ROOT"); v != "" {
		cfg.WebRoot = v
	}
	if v := envString("INDEX_FILE"); v != "" {
		cfg.IndexFile = v
	}

	if v, ok := envInt("MAX_EVENTS"); ok {
		cfg.MaxEvents = v
	}
	if v, ok := envDuration("POLL_TIMEOUT"); ok {
		cfg.PollTimeout = v
	}
	if v, ok := envDuration("WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v, ok := envInt("BACKLOG"); ok {
		cfg.Backlog = v
	}
	if v, ok := envInt("MAX_BODY_LENGTH"); ok && v > 0 {
		cfg.MaxBodyLength = uint(v)
	}

	if v, ok := envInt("CGI_OUTPUT_LIMIT"); ok && v > 0 {
		cfg.CGI.OutputLimit = uint(v)
	}
	if v, ok := envBool("CGI_INHERIT_ENV"); ok {
		cfg.CGI.InheritEnv = v
	}

	if v := envString("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := envString("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// ConfigPathFromEnv returns the config file named by TINYHTTPD_CONFIG.
func ConfigPathFromEnv() string { return envString("CONFIG") }

func envString(key string) string {
	return os.Getenv(envPrefix + key)
}

func envInt(key string) (int, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (value, ok bool) {
	switch strings.ToLower(envString(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func envDuration(key string) (time.Duration, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
