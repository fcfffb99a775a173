package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/qobject"
)

func TestNew(t *testing.T) {
	cfg := New()

	if !cfg.Dev {
		t.Error("Dev should default to true")
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.TracerName != DefaultTracerName {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Limits.MaxScriptOps != DefaultMaxScriptOps {
		t.Errorf("Limits.MaxScriptOps = %d, want %d", cfg.Limits.MaxScriptOps, DefaultMaxScriptOps)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if code := errors.CodeOf(err); code != "Q102" {
		t.Errorf("code = %q, want Q102", code)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "dev": false,
  "logLevel": "DEBUG",
  "metrics": {
    "enabled": false,
    "subsystem": "store"
  },
  "tracing": {
    "enabled": true
  },
  "server": {
    "host": "0.0.0.0",
    "port": 8080
  },
  "limits": {
    "maxScriptOps": 50
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Dev {
		t.Error("Dev should be false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want default", cfg.Metrics.Namespace)
	}
	if cfg.Metrics.Subsystem != "store" {
		t.Errorf("Metrics.Subsystem = %q, want %q", cfg.Metrics.Subsystem, "store")
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.TracerName != DefaultTracerName {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("ServerAddress = %q, want %q", cfg.ServerAddress(), "0.0.0.0:8080")
	}
	if cfg.Limits.MaxScriptOps != 50 {
		t.Errorf("Limits.MaxScriptOps = %d, want 50", cfg.Limits.MaxScriptOps)
	}
	if cfg.Path() != configPath || cfg.Dir() != tmpDir {
		t.Errorf("Path/Dir = %q/%q", cfg.Path(), cfg.Dir())
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "Q100") {
		t.Errorf("Expected Q100 error, got: %v", err)
	}
}

func TestLoadFile_InvalidValue(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte(`{"logLevel": "loud"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if code := errors.CodeOf(err); code != "Q101" {
		t.Errorf("code = %q, want Q101 (err=%v)", code, err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Dev = false
	cfg.Server.Port = 9000

	// Save should fail without configPath set
	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Dev {
		t.Error("Dev = true after round trip, want false")
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", loaded.Server.Port, 9000)
	}

	loaded.Server.Port = 9001
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reloaded.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want %d", reloaded.Server.Port, 9001)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative limit", func(c *Config) { c.Limits.MaxScriptOps = -1 }, true},
		{"unknown level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"warning alias", func(c *Config) { c.LogLevel = "warning" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errors.CodeOf(err) != "Q101" {
				t.Errorf("code = %q, want Q101", errors.CodeOf(err))
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.LogLevel = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "code", "Q005")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "code=Q005") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestContainerOptions(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.LogLevel = "debug"

	c := qobject.NewContainer(cfg.ContainerOptions(cfg.Logger(&buf))...)
	if !c.DevMode() {
		t.Error("container should be in dev mode")
	}
	if _, err := c.GetOrCreate(map[string]any{}, 0); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !strings.Contains(buf.String(), "handle created") {
		t.Errorf("expected debug log from container, got: %s", buf.String())
	}

	cfg.Dev = false
	c = qobject.NewContainer(cfg.ContainerOptions(nil)...)
	if c.DevMode() {
		t.Error("container should not be in dev mode")
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should return false for empty directory")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should return true when config exists")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "scripts", "nested")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(subDir)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}

	// Resolve symlinks for comparison (macOS /tmp -> /private/tmp)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	if actualRoot != expectedRoot {
		t.Errorf("FindProjectRoot = %q, want %q", actualRoot, expectedRoot)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{LogLevel: "WARN"}
	cfg.applyDefaults()

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Tracing.TracerName != DefaultTracerName {
		t.Errorf("Tracing.TracerName = %q, want %q", cfg.Tracing.TracerName, DefaultTracerName)
	}
	if cfg.Limits.MaxScriptOps != DefaultMaxScriptOps {
		t.Errorf("Limits.MaxScriptOps = %d, want %d", cfg.Limits.MaxScriptOps, DefaultMaxScriptOps)
	}
}
