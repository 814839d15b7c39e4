// Package config provides shared configuration types for stache.
// This package is decoupled from CLI concerns and is used by both the
// command line and the HTTP server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/stache/internal/template"
)

// DelimiterConfig holds the opening and closing directive markers.
type DelimiterConfig struct {
	Open  string `koanf:"open"`
	Close string `koanf:"close"`
}

// IsSet reports whether either marker was configured.
func (d *DelimiterConfig) IsSet() bool {
	return d != nil && (d.Open != "" || d.Close != "")
}

// Delimiters converts the config to the engine type.
func (d *DelimiterConfig) Delimiters() template.Delimiters {
	if !d.IsSet() {
		return template.DefaultDelimiters
	}
	return template.Delimiters{Open: d.Open, Close: d.Close}
}

// Validate checks that both markers are present and usable.
func (d *DelimiterConfig) Validate() error {
	if !d.IsSet() {
		return nil
	}
	if d.Open == "" || d.Close == "" {
		return errors.New("delimiters need both open and close")
	}
	return template.ValidateDelimiters(d.Delimiters())
}

// ParseDelimiters parses the "<open> <close>" form used by the --delims flag.
func ParseDelimiters(s string) (*DelimiterConfig, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil, fmt.Errorf("invalid delimiters %q: expected two markers separated by a space", s)
	}
	d := &DelimiterConfig{Open: fields[0], Close: fields[1]}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delimiters %q: %w", s, err)
	}
	return d, nil
}

// ServerConfig holds configuration for the HTTP render server.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

// ProjectConfig holds the project settings shared by the CLI and server.
type ProjectConfig struct {
	TemplatesDir string           `koanf:"templates_dir"`
	Vars         []string         `koanf:"vars"`
	Delimiters   *DelimiterConfig `koanf:"delimiters"`
	MaxDepth     int              `koanf:"max_depth"`
	Server       *ServerConfig    `koanf:"server"`

	// Set holds inline variables, applied after vars files.
	Set map[string]any `koanf:"set"`
}

// CompileOptions returns the engine options implied by the config.
func (c *ProjectConfig) CompileOptions() []template.Option {
	if c == nil {
		return nil
	}
	var opts []template.Option
	if c.Delimiters.IsSet() {
		opts = append(opts, template.WithDelimiters(c.Delimiters.Open, c.Delimiters.Close))
	}
	if c.MaxDepth > 0 {
		opts = append(opts, template.WithMaxDepth(c.MaxDepth))
	}
	return opts
}

// Validate checks if the project configuration is valid.
func (c *ProjectConfig) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if err := c.Delimiters.Validate(); err != nil {
		return fmt.Errorf("delimiters: %w", err)
	}
	if c.Server != nil && c.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.read_header_timeout must not be negative")
	}
	if c.Server != nil && c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}
	return nil
}
