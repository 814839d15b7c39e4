// Package config provides configuration management for the stache CLI.
//
// This package extends the shared project configuration from
// internal/config with CLI-specific fields (verbosity, output format) and
// the layered loading of defaults, stache.yaml, STACHE_* environment
// variables and command-line flags.
package config

import (
	"fmt"

	sharedcfg "github.com/leapstack-labs/stache/internal/config"
	"github.com/leapstack-labs/stache/internal/template"
)

// DelimiterConfig is an alias for the shared delimiter configuration.
type DelimiterConfig = sharedcfg.DelimiterConfig

// ServerConfig is an alias for the shared server configuration.
type ServerConfig = sharedcfg.ServerConfig

// Config holds all CLI configuration options.
type Config struct {
	TemplatesDir string           `koanf:"templates_dir"`
	Vars         []string         `koanf:"vars"`
	Set          map[string]any   `koanf:"set"`
	Delimiters   *DelimiterConfig `koanf:"delimiters"`
	MaxDepth     int              `koanf:"max_depth"`
	Server       *ServerConfig    `koanf:"server"`
	Verbose      bool             `koanf:"verbose"`
	OutputFormat string           `koanf:"output"`

	// ProjectRoot is the directory relative paths in the config file
	// resolve against. Not read from the file.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultTemplatesDir = sharedcfg.DefaultTemplatesDir
	DefaultMaxDepth     = sharedcfg.DefaultMaxDepth
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Project returns the shared project view of the config.
func (c *Config) Project() *sharedcfg.ProjectConfig {
	return &sharedcfg.ProjectConfig{
		TemplatesDir: c.TemplatesDir,
		Vars:         c.Vars,
		Delimiters:   c.Delimiters,
		MaxDepth:     c.MaxDepth,
		Server:       c.Server,
		Set:          c.Set,
	}
}

// CompileOptions returns the engine options implied by the config.
func (c *Config) CompileOptions() []template.Option {
	return c.Project().CompileOptions()
}

// GetServerConfig returns the server config with defaults applied for any
// unset values.
func (c *Config) GetServerConfig() *ServerConfig {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	c.Server.ApplyDefaults()
	return c.Server
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("invalid output format %q (want auto, text, markdown or json)", c.OutputFormat)
	}
	return c.Project().Validate()
}
