package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/pkg/store"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "sharedstore.json"

	// DefaultName is the default project name.
	DefaultName = "sharedstore"

	// DefaultPort is the default inspector port.
	DefaultPort = 7070

	// DefaultHost is the default inspector host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "sharedstore"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "sharedstore"
)

// Config represents the complete sharedstore.json configuration.
type Config struct {
	// Name identifies the store in logs.
	Name string `json:"name,omitempty"`

	Store     StoreConfig     `json:"store"`
	Inspector InspectorConfig `json:"inspector"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
	Tracing   TracingConfig   `json:"tracing"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StoreConfig configures the shared store.
type StoreConfig struct {
	// ChangePolicy is "writes" (Set always reports its key) or "changes".
	ChangePolicy string `json:"changePolicy,omitempty"`

	// Initial seeds the store before any consumer subscribes.
	Initial map[string]any `json:"initial,omitempty"`
}

// InspectorConfig configures the HTTP inspector.
type InspectorConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`

	// ReadOnly disables the write endpoints.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures the Prometheus middleware.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig configures the OpenTelemetry middleware.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: DefaultName,
		Store: StoreConfig{
			ChangePolicy: store.PolicyReportWrites.String(),
		},
		Inspector: InspectorConfig{
			Enabled: true,
			Host:    DefaultHost,
			Port:    DefaultPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for sharedstore.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
// Fields missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		se := errors.New(errors.CodeConfigParse).Wrap(err)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntaxErr):
			se.WithOffset(path, data, syntaxErr.Offset)
		case stderrors.As(err, &typeErr):
			se.WithOffset(path, data, typeErr.Offset)
		}
		return nil, se.WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

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
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Newf(errors.CategoryConfig, "write %s", path).Wrap(err)
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
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Store.ChangePolicy == "" {
		c.Store.ChangePolicy = store.PolicyReportWrites.String()
	}
	if c.Inspector.Host == "" {
		c.Inspector.Host = DefaultHost
	}
	if c.Inspector.Port == 0 {
		c.Inspector.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
}

// Validate checks if the configuration is valid. All problems are reported
// together, each as a coded error.
func (c *Config) Validate() error {
	var errs []error

	if c.Inspector.Port < 1 || c.Inspector.Port > 65535 {
		errs = append(errs, errors.New(errors.CodeConfigPort).
			WithDetail(fmt.Sprintf("inspector.port is %d; it must be between 1 and 65535", c.Inspector.Port)))
	}
	if _, err := c.ChangePolicy(); err != nil {
		errs = append(errs, errors.New(errors.CodeConfigChangePolicy).Wrap(err))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, errors.New(errors.CodeConfigLogLevel).Wrap(err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, errors.New(errors.CodeConfigLogFormat).
			WithDetail(fmt.Sprintf("log.format is %q", c.Log.Format)))
	}
	for key := range c.Store.Initial {
		if key == "" {
			errs = append(errs, errors.New(errors.CodeConfigInitial))
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.New(errors.CodeConfigInvalid).Wrap(stderrors.Join(errs...))
}

// ChangePolicy parses store.changePolicy.
func (c *Config) ChangePolicy() (store.ChangePolicy, error) {
	return store.ParseChangePolicy(c.Store.ChangePolicy)
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// InspectorAddress returns the host:port the inspector listens on.
func (c *Config) InspectorAddress() string {
	return net.JoinHostPort(c.Inspector.Host, strconv.Itoa(c.Inspector.Port))
}

// InspectorURL returns the base URL of the inspector.
func (c *Config) InspectorURL() string {
	return "http://" + c.InspectorAddress()
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// sharedstore.json.
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
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
