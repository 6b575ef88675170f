package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProxyConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg ProxyConfig
	cfg.SetDefaults()

	if cfg.Server.MetricsAddr != "127.0.0.1:9090" {
		t.Errorf("MetricsAddr = %q, want %q", cfg.Server.MetricsAddr, "127.0.0.1:9090")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, "info")
	}
	if cfg.Source.Transport != "stdio" {
		t.Errorf("Source.Transport = %q, want %q", cfg.Source.Transport, "stdio")
	}
	if cfg.Target.HTTPTimeout != "30s" {
		t.Errorf("Target.HTTPTimeout = %q, want %q", cfg.Target.HTTPTimeout, "30s")
	}
	if cfg.Tracing.ServiceName != "mcp-gate" {
		t.Errorf("Tracing.ServiceName = %q, want %q", cfg.Tracing.ServiceName, "mcp-gate")
	}
}

func TestProxyConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := ProxyConfig{
		Server: ServerConfig{MetricsAddr: ":9999", LogLevel: "debug"},
		Target: TargetConfig{HTTPTimeout: "5s"},
	}
	cfg.SetDefaults()

	if cfg.Server.MetricsAddr != ":9999" {
		t.Errorf("MetricsAddr was overwritten: got %q, want %q", cfg.Server.MetricsAddr, ":9999")
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel was overwritten: got %q, want %q", cfg.Server.LogLevel, "debug")
	}
	if cfg.Target.HTTPTimeout != "5s" {
		t.Errorf("HTTPTimeout was overwritten: got %q, want %q", cfg.Target.HTTPTimeout, "5s")
	}
}

func TestProxyConfig_SetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := ProxyConfig{DevMode: true}
	cfg.SetDevDefaults()

	if cfg.Source.Transport != "stdio" {
		t.Errorf("Source.Transport = %q, want %q", cfg.Source.Transport, "stdio")
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, "debug")
	}
}

func TestProxyConfig_SetDevDefaults_NoOpWhenNotDev(t *testing.T) {
	t.Parallel()

	cfg := ProxyConfig{}
	cfg.SetDevDefaults()

	if cfg.Source.Transport != "" {
		t.Errorf("Source.Transport = %q, want empty when DevMode is false", cfg.Source.Transport)
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths(empty dir) = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcp-gate.yaml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  metrics_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcp-gate.yml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  metrics_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "mcp-gate"), []byte("\x7fELF binary"), 0755)

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths matched binary = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "mcp-gate.yaml")
	ymlPath := filepath.Join(dir, "mcp-gate.yml")
	_ = os.WriteFile(yamlPath, []byte("server:\n  metrics_addr: :8080\n"), 0644)
	_ = os.WriteFile(ymlPath, []byte("server:\n  metrics_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != yamlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q (.yaml preferred)", got, yamlPath)
	}
}
