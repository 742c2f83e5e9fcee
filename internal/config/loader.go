package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "MCPHOOK"

// InitViper wires up viper the way the teacher's loader does: an explicit
// config file path if given, otherwise a search across the working
// directory, the user's home config directory, and the OS config
// directory, requiring an explicit .yaml/.yml extension so a bare
// "mcphook" binary on PATH is never mistaken for a config file.
func InitViper(configFile string) error {
	viper.SetConfigType("yaml")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		path, err := findConfigFile()
		if err != nil {
			return err
		}
		if path != "" {
			viper.SetConfigFile(path)
		} else {
			viper.SetConfigName("mcphook")
			for _, dir := range searchPaths() {
				viper.AddConfigPath(dir)
			}
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	bindNestedEnvKeys()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func searchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mcphook"))
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "mcphook"))
		}
	} else {
		paths = append(paths, "/etc/mcphook")
	}
	return paths
}

func findConfigFile() (string, error) {
	for _, dir := range searchPaths() {
		for _, ext := range []string{"yaml", "yml"} {
			candidate := filepath.Join(dir, "mcphook."+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", nil
}

// bindNestedEnvKeys binds every nested Config field to its
// MCPHOOK_-prefixed environment variable, since viper's AutomaticEnv alone
// does not reach nested keys without an explicit BindEnv per key.
func bindNestedEnvKeys() {
	keys := []string{
		"transportType", "port", "authToken",
		"target.command", "target.url",
		"serverInfo.name", "serverInfo.version",
		"clientInfo.name", "clientInfo.version",
		"hookTimeoutSeconds", "cacheHookNotImplemented", "shutdownGraceSeconds",
	}
	for _, key := range keys {
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = viper.BindEnv(key, envVar)
	}
}

// LoadConfig reads, unmarshals, defaults and validates a Config.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigRaw reads and unmarshals a Config (plus the legacy env vars)
// without applying SetDefaults or validating it — letting a caller apply
// CLI flag overrides (e.g. --dev) first, then defaults and validation.
func LoadConfigRaw() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyLegacyEnvVars(&cfg)
	return &cfg, nil
}

// applyLegacyEnvVars honors the small set of plain (non-MCPHOOK_-prefixed)
// environment variables named in §6, on top of whatever the config file
// and MCPHOOK_ env vars already produced. CONFIG_FILE itself is consumed
// earlier, by cmd/mcphook/cmd/root.go's initConfig, as a fallback for the
// --config flag before InitViper ever runs.
func applyLegacyEnvVars(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if url := os.Getenv("TARGET_SERVER_URL"); url != "" {
		cfg.Target.URL = url
		cfg.Target.Command = ""
	}
	if transport := os.Getenv("TARGET_SERVER_TRANSPORT"); transport != "" {
		if strings.EqualFold(transport, "sse") {
			cfg.TransportType = TransportHTTPStream
		}
	}
	if hooks := os.Getenv("HOOKS"); hooks != "" {
		cfg.Hooks = nil
		for _, url := range strings.Split(hooks, ",") {
			url = strings.TrimSpace(url)
			if url != "" {
				cfg.Hooks = append(cfg.Hooks, HookEntry{URL: url})
			}
		}
	}
}

// ConfigFileUsed returns the path viper resolved to, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
