package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/qobject"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "qstate.json"

	// DefaultPort is the default dev server port.
	DefaultPort = 7070

	// DefaultHost is the default dev server host.
	DefaultHost = "localhost"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "qstate"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "qstate"

	// DefaultMaxScriptOps is the default limit on operations per script.
	DefaultMaxScriptOps = 10000
)

// Config represents the complete qstate.json configuration.
type Config struct {
	// Dev enables development checks: serializability verification,
	// render-phase write warnings and double-wrap detection.
	Dev bool `json:"dev"`

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `json:"logLevel,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Server contains dev server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Limits contains replay limits.
	Limits LimitsConfig `json:"limits,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the Prometheus observer.
	Enabled bool `json:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`

	// Subsystem is the metrics subsystem.
	Subsystem string `json:"subsystem,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled registers the tracing observer.
	Enabled bool `json:"enabled"`

	// TracerName is the name passed to otel.Tracer.
	TracerName string `json:"tracerName,omitempty"`
}

// ServerConfig contains dev server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`
}

// LimitsConfig bounds replayed scripts.
type LimitsConfig struct {
	// MaxScriptOps is the maximum number of operations in one script.
	MaxScriptOps int `json:"maxScriptOps,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Dev:      true,
		LogLevel: DefaultLogLevel,
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Limits: LimitsConfig{
			MaxScriptOps: DefaultMaxScriptOps,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for qstate.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("Q102").
				WithDetail("No qstate.json found in " + filepath.Dir(path))
		}
		return nil, errors.New("Q100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("Q100").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("Q100").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("Q100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Limits.MaxScriptOps == 0 {
		c.Limits.MaxScriptOps = DefaultMaxScriptOps
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("Q101").
			WithDetail("server.port must be between 0 and 65535")
	}
	if c.Limits.MaxScriptOps < 0 {
		return errors.New("Q101").
			WithDetail("limits.maxScriptOps must not be negative")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return errors.New("Q101").
			WithDetailf("logLevel %q is not one of debug, info, warn, error", c.LogLevel).
			WithSuggestion("Set logLevel to debug, info, warn or error")
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

// ServerAddress returns the listen address for the dev server.
func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ContainerOptions returns the qobject options implied by the configuration.
// Observers are not included; callers own their registries and providers.
func (c *Config) ContainerOptions(logger *slog.Logger) []qobject.Option {
	opts := []qobject.Option{qobject.WithDevMode(c.Dev)}
	if logger != nil {
		opts = append(opts, qobject.WithLogger(logger))
	}
	return opts
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing qstate.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("Q102").
				WithDetail("No qstate.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest qstate.json at or
// above the working directory. When none exists, defaults are returned.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if errors.CodeOf(err) == "Q102" {
			return New(), nil
		}
		return nil, err
	}

	return Load(root)
}
