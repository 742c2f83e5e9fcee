// Package config defines the proxy's Config type and the ambient
// viper/yaml loading and validator-tag validation around it, matching the
// teacher's config.go/loader.go/validator.go split.
package config

import "time"

// TransportType selects the inbound transport the dispatcher serves on
// (§6).
type TransportType string

const (
	TransportStdio      TransportType = "STDIO"
	TransportHTTPStream TransportType = "HTTP_STREAM"
)

// DefaultHTTPPort is used when transportType is HTTP_STREAM and no port is
// configured.
const DefaultHTTPPort = 8080

// DefaultHookTimeout is the recommended per-call deadline for a remote
// hook invocation (§4.2).
const DefaultHookTimeout = 30 * time.Second

// Target names the single upstream MCP server the proxy forwards to:
// either a subprocess command line or an HTTP-stream URL. Exactly one must
// be set (validated by validateTargetMutualExclusion).
type Target struct {
	Command string `mapstructure:"command" yaml:"command,omitempty"`
	URL     string `mapstructure:"url" yaml:"url,omitempty"`
}

// HookEntry is one ordered entry in the hook chain's configuration: a
// remote hook reached at URL. Name is optional and defaults to URL.
type HookEntry struct {
	URL  string `mapstructure:"url" yaml:"url" validate:"required,url"`
	Name string `mapstructure:"name" yaml:"name,omitempty"`
}

// ServerInfo is the {name, version} pair the proxy advertises to clients
// (serverInfo) or to the target (clientInfo).
type ServerInfo struct {
	Name    string `mapstructure:"name" yaml:"name,omitempty"`
	Version string `mapstructure:"version" yaml:"version,omitempty"`
}

// Config is the proxy's full runtime configuration (§3, §6).
type Config struct {
	TransportType TransportType `mapstructure:"transportType" yaml:"transportType" validate:"required,oneof=STDIO HTTP_STREAM"`
	Port          int           `mapstructure:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	Target Target      `mapstructure:"target" yaml:"target" validate:"required"`
	Hooks  []HookEntry `mapstructure:"hooks" yaml:"hooks,omitempty" validate:"dive"`

	ServerInfo ServerInfo `mapstructure:"serverInfo" yaml:"serverInfo,omitempty"`
	ClientInfo ServerInfo `mapstructure:"clientInfo" yaml:"clientInfo,omitempty"`

	AuthToken string `mapstructure:"authToken" yaml:"authToken,omitempty"`

	// HookTimeoutSeconds overrides the per-remote-hook-call deadline.
	// Zero selects DefaultHookTimeout.
	HookTimeoutSeconds int `mapstructure:"hookTimeoutSeconds" yaml:"hookTimeoutSeconds,omitempty" validate:"omitempty,min=1"`

	// CacheHookNotImplemented opts into caching a remote hook's
	// "not implemented" result for the lifetime of the process (§9 open
	// question, default off).
	CacheHookNotImplemented bool `mapstructure:"cacheHookNotImplemented" yaml:"cacheHookNotImplemented,omitempty"`

	// ShutdownGraceSeconds is loaded, validated and returned by
	// ShutdownGrace; no shutdown path reads it. The HTTP transport's
	// shutdown uses its own fixed 10s timeout, and the stdio transport has
	// no drain timeout.
	ShutdownGraceSeconds int `mapstructure:"shutdownGraceSeconds" yaml:"shutdownGraceSeconds,omitempty" validate:"omitempty,min=0"`

	// DevMode raises log verbosity; it is set via CLI flag, never
	// persisted to a config file.
	DevMode bool `mapstructure:"-" yaml:"-"`
}

// HookTimeout returns the configured per-hook-call deadline, or
// DefaultHookTimeout if unset.
func (c *Config) HookTimeout() time.Duration {
	if c.HookTimeoutSeconds <= 0 {
		return DefaultHookTimeout
	}
	return time.Duration(c.HookTimeoutSeconds) * time.Second
}

// ShutdownGrace returns the configured drain grace period, defaulting to
// 10s.
func (c *Config) ShutdownGrace() time.Duration {
	if c.ShutdownGraceSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// SetDefaults fills in zero-valued fields the way the teacher's
// SetDefaults does. A field holding its zero value counts as unset, so an
// explicit zero (e.g. port 0 with HTTP_STREAM) is replaced by the default.
func (c *Config) SetDefaults() {
	if c.TransportType == "" {
		c.TransportType = TransportStdio
	}
	if c.TransportType == TransportHTTPStream && c.Port == 0 {
		c.Port = DefaultHTTPPort
	}
	if c.ServerInfo.Name == "" {
		c.ServerInfo.Name = "mcphook"
	}
	if c.ServerInfo.Version == "" {
		c.ServerInfo.Version = "0.1.0"
	}
	if c.ClientInfo.Name == "" {
		c.ClientInfo.Name = c.ServerInfo.Name
	}
	if c.ClientInfo.Version == "" {
		c.ClientInfo.Version = c.ServerInfo.Version
	}
}

// SetDevDefaults is the hook for development-mode overrides, mirroring the
// teacher's SetDevDefaults. This Config has no dev-mode overrides to
// apply, so it leaves the Config unchanged whether or not DevMode is set;
// it never turns dev mode on by itself.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
}
