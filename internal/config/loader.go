// Package config provides configuration loading for the passthrough proxy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for mcp-gate.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("mcp-gate")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MCP_GATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an mcp-gate config file
// with an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".mcp-gate"),
		"/etc/mcp-gate",
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for mcp-gate.yaml or
// .yml, preferring .yaml. Returns "" if none is found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "mcp-gate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds config keys for environment variable support.
// Example: MCP_GATE_SERVER_METRICS_ADDR overrides server.metrics_addr.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.metrics_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("source.transport")
	_ = viper.BindEnv("target.http")
	_ = viper.BindEnv("target.command")
	_ = viper.BindEnv("target.http_timeout")
	_ = viper.BindEnv("metadata.request")
	_ = viper.BindEnv("metadata.response")
	_ = viper.BindEnv("metadata.notification")
	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.service_name")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the ProxyConfig.
func LoadConfig() (*ProxyConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg ProxyConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or "" if none was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
