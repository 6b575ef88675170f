// Package config provides configuration types for the passthrough proxy.
//
// This is a deliberately small schema compared to a full gateway: it
// configures exactly one source transport, one target transport, and the
// ambient concerns (logging, tracing, metrics) the proxy needs to run. It
// intentionally excludes anything that belongs to a concrete hook product
// (policy rules, identities, audit sinks, rate limits) — those are owned by
// whatever hooks are registered in the chain, not by this proxy core.
package config


// ProxyConfig is the top-level configuration for the passthrough proxy.
type ProxyConfig struct {
	// Server configures the metrics/health HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Source configures the client-facing transport.
	Source SourceConfig `yaml:"source" mapstructure:"source"`

	// Target configures the MCP target server transport.
	Target TargetConfig `yaml:"target" mapstructure:"target"`

	// Metadata controls `_meta` stamping on forwarded payloads.
	Metadata MetadataConfig `yaml:"metadata" mapstructure:"metadata"`

	// Tracing configures OpenTelemetry span emission for hook invocations.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// DevMode enables verbose logging and lets Validate accept a config
	// with no target. serve still needs a target (from the config or a
	// command after --) to start.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the metrics/health HTTP listener.
type ServerConfig struct {
	// MetricsAddr is the address the Prometheus/health endpoints listen on.
	// Defaults to "127.0.0.1:9090" if empty; because SetDefaults fills an
	// empty value, the listener cannot be turned off through this field.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// SourceConfig configures the client-facing transport. Exactly one
// transport kind is active.
type SourceConfig struct {
	// Transport selects the source transport: "stdio" (proxy's own
	// stdin/stdout) is the only kind today; reserved for future HTTP
	// (Streamable HTTP server) support.
	Transport string `yaml:"transport" mapstructure:"transport" validate:"omitempty,oneof=stdio"`
}

// TargetConfig configures the MCP target server. Either HTTP or Command
// must be specified, never both.
type TargetConfig struct {
	// HTTP is the URL of a remote MCP target server (e.g. "http://localhost:3000/mcp").
	HTTP string `yaml:"http" mapstructure:"http" validate:"omitempty,url"`

	// Command is the path to an MCP target executable to spawn as a subprocess.
	Command string `yaml:"command" mapstructure:"command"`

	// Args are the arguments passed to Command.
	Args []string `yaml:"args" mapstructure:"args"`

	// HTTPTimeout is the timeout for HTTP requests to the target (e.g. "30s").
	HTTPTimeout string `yaml:"http_timeout" mapstructure:"http_timeout" validate:"omitempty"`
}

// MetadataConfig controls `_meta` stamping on the wire.
type MetadataConfig struct {
	// Request stamps `_meta` onto outgoing (target-bound) requests.
	Request bool `yaml:"request" mapstructure:"request"`
	// Response stamps `_meta` onto outgoing (source-bound) responses.
	Response bool `yaml:"response" mapstructure:"response"`
	// Notification stamps `_meta` onto forwarded notifications.
	Notification bool `yaml:"notification" mapstructure:"notification"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on the stdout span exporter. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the resource attribute attached to emitted spans.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// SetDevDefaults applies permissive defaults for development mode: a stdio
// source, verbose logging, and no hard requirement on the target being
// configured (it can be set later via flags).
func (c *ProxyConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Source.Transport == "" {
		c.Source.Transport = "stdio"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "debug"
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *ProxyConfig) SetDefaults() {
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = "127.0.0.1:9090"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Source.Transport == "" {
		c.Source.Transport = "stdio"
	}
	if c.Target.HTTPTimeout == "" {
		c.Target.HTTPTimeout = "30s"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "mcp-gate"
	}
}

