package observability

// Config configures the observability provider. The zero value is valid
// and disables tracing/metrics entirely (Enabled defaults to false), so a
// proxy that never sets this up still runs — instrumentation is additive.
type Config struct {
	// Enabled turns on the stdout trace and metric exporters. Default: false.
	Enabled bool `yaml:"enabled,omitempty"`

	// ServiceName identifies this process in emitted spans/metrics.
	ServiceName string `yaml:"service_name,omitempty"`

	// SamplingRate is the fraction of chain traversals traced, 0.0-1.0.
	// Default: 1.0 (trace everything — chain traversals are low volume
	// compared to, say, per-packet telemetry, so full sampling is cheap).
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`
}

// SetDefaults fills in zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
}
