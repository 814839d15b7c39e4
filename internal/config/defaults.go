package config

import "time"

// Default configuration values.
const (
	DefaultTemplatesDir      = "templates"
	DefaultMaxDepth          = 256
	DefaultAddr              = "127.0.0.1:8080"
	DefaultReadHeaderTimeout = 5 * time.Second
)

// ApplyDefaults applies default values to a ServerConfig.
func (s *ServerConfig) ApplyDefaults() {
	if s == nil {
		return
	}
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
}
