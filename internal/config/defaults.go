package config

// Backend names the typed sections map to.
const (
	TransportHTTP = "http"
	TechnologyWeb = "web"
)

// Default configuration values.
const (
	DefaultLogLevel         = "info"
	DefaultOutput           = "auto" // TTY=table, otherwise json
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8770
	DefaultTitle            = "LeapBind"
	DefaultTimeout          = "30s"
	DefaultConnectTimeout   = "10s"
	DefaultTLSTimeout       = "10s"
	DefaultHandshakeTimeout = "10s"
	DefaultWriteTimeout     = "10s"
	DefaultReadLimit        = 1 << 20
	DefaultQueueWarn        = 1024
)

// defaults returns the lowest-precedence configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"log_level":            DefaultLogLevel,
		"verbose":              false,
		"output":               DefaultOutput,
		"server.host":          DefaultHost,
		"server.port":          DefaultPort,
		"server.title":         DefaultTitle,
		"http.timeout":         DefaultTimeout,
		"http.connect_timeout": DefaultConnectTimeout,
		"http.tls_timeout":     DefaultTLSTimeout,
		"ws.handshake_timeout": DefaultHandshakeTimeout,
		"ws.write_timeout":     DefaultWriteTimeout,
		"ws.read_limit":        DefaultReadLimit,
		"dispatch.queue_warn":  DefaultQueueWarn,
	}
}

// Default returns a Config holding only the default values.
func Default() *Config {
	return &Config{
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		Server: &ServerConfig{
			Host:  DefaultHost,
			Port:  DefaultPort,
			Title: DefaultTitle,
		},
		HTTP: &HTTPConfig{
			Timeout:        DefaultTimeout,
			ConnectTimeout: DefaultConnectTimeout,
			TLSTimeout:     DefaultTLSTimeout,
		},
		WS: &WSConfig{
			HandshakeTimeout: DefaultHandshakeTimeout,
			WriteTimeout:     DefaultWriteTimeout,
			ReadLimit:        DefaultReadLimit,
		},
		Dispatch: &DispatchConfig{QueueWarn: DefaultQueueWarn},
	}
}

// DefaultValues returns the default of every config key, keyed by its
// dotted path.
func DefaultValues() map[string]any {
	return defaults()
}
