// Package config provides configuration loading for leapbind.
//
// Values are layered with koanf: defaults, then the config file
// (leapbind.yaml or leapbind.yml), then LEAPBIND_ environment variables,
// then explicitly set command line flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// Config holds all configuration options.
type Config struct {
	Technology   string          `koanf:"technology"`
	Transport    string          `koanf:"transport"`
	LogLevel     string          `koanf:"log_level"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	Server       *ServerConfig   `koanf:"server"`
	HTTP         *HTTPConfig     `koanf:"http"`
	WS           *WSConfig       `koanf:"ws"`
	Dispatch     *DispatchConfig `koanf:"dispatch"`

	// Backends holds free-form options per backend name. They override
	// the values derived from the typed sections.
	Backends map[string]map[string]any `koanf:"backends"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `koanf:"-"`
}

// ServerConfig configures the browser server of the web backend.
type ServerConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Title         string `koanf:"title"`
}

// HTTPConfig configures request-style calls. Durations are strings such
// as "5s".
type HTTPConfig struct {
	Timeout        string `koanf:"timeout"`
	ConnectTimeout string `koanf:"connect_timeout"`
	TLSTimeout     string `koanf:"tls_timeout"`
}

// WSConfig configures duplex channels.
type WSConfig struct {
	HandshakeTimeout string `koanf:"handshake_timeout"`
	WriteTimeout     string `koanf:"write_timeout"`
	ReadLimit        int64  `koanf:"read_limit"`
}

// DispatchConfig configures the dispatch loop of rendering backends.
type DispatchConfig struct {
	QueueWarn int `koanf:"queue_warn"`
}

// Validate checks the values that can be checked without the registry.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Server != nil && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	for key, value := range c.durations() {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}
	return nil
}

// ValidateBackends checks that the selected backends are registered.
// The registry is filled by the backend packages the binary links in.
func (c *Config) ValidateBackends() error {
	techOK := c.Technology == "" || contains(bind.ListTechnologies(), c.Technology)
	transportOK := c.Transport == "" || contains(bind.ListTransports(), c.Transport)
	if techOK && transportOK {
		return nil
	}
	return &bind.LookupError{
		Technology:            c.Technology,
		Transport:             c.Transport,
		AvailableTechnologies: bind.ListTechnologies(),
		AvailableTransports:   bind.ListTransports(),
	}
}

func (c *Config) durations() map[string]string {
	d := make(map[string]string)
	if c.HTTP != nil {
		d["http.timeout"] = c.HTTP.Timeout
		d["http.connect_timeout"] = c.HTTP.ConnectTimeout
		d["http.tls_timeout"] = c.HTTP.TLSTimeout
	}
	if c.WS != nil {
		d["ws.handshake_timeout"] = c.WS.HandshakeTimeout
		d["ws.write_timeout"] = c.WS.WriteTimeout
	}
	return d
}

// Selection builds the backend selection for bind.NewContext. technology
// overrides the configured rendering backend when not empty.
func (c *Config) Selection(technology string, logger *slog.Logger) bind.Selection {
	if technology == "" {
		technology = c.Technology
	}
	return bind.Selection{
		Technology: technology,
		Transport:  c.Transport,
		Settings:   c.BackendSettings(),
		Logger:     logger,
	}
}

// BackendSettings returns the options handed to backend factories, keyed
// by backend name. The typed sections fill the http transport and every
// registered rendering backend; backends.<name> entries win.
func (c *Config) BackendSettings() map[string]bind.Settings {
	settings := make(map[string]bind.Settings)
	set := func(backend, key string, value any) {
		if value == nil || value == "" {
			return
		}
		if settings[backend] == nil {
			settings[backend] = make(bind.Settings)
		}
		settings[backend][key] = value
	}

	if c.HTTP != nil {
		set(TransportHTTP, "timeout", c.HTTP.Timeout)
		set(TransportHTTP, "connect_timeout", c.HTTP.ConnectTimeout)
		set(TransportHTTP, "tls_timeout", c.HTTP.TLSTimeout)
	}
	if c.WS != nil {
		set(TransportHTTP, "handshake_timeout", c.WS.HandshakeTimeout)
		set(TransportHTTP, "write_timeout", c.WS.WriteTimeout)
		if c.WS.ReadLimit > 0 {
			set(TransportHTTP, "read_limit", c.WS.ReadLimit)
		}
	}
	if c.Dispatch != nil && c.Dispatch.QueueWarn > 0 {
		for _, name := range bind.ListTechnologies() {
			set(name, "queue_warn", c.Dispatch.QueueWarn)
		}
	}
	if c.Server != nil {
		set(TechnologyWeb, "title", c.Server.Title)
	}

	for backend, opts := range c.Backends {
		for key, value := range opts {
			set(strings.ToLower(backend), key, value)
		}
	}
	return settings
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
