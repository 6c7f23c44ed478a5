package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/pkg/store"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Name != DefaultName {
		t.Errorf("Name = %q, want %q", cfg.Name, DefaultName)
	}
	if cfg.Inspector.Port != DefaultPort {
		t.Errorf("Inspector.Port = %d, want %d", cfg.Inspector.Port, DefaultPort)
	}
	if cfg.Inspector.Host != DefaultHost {
		t.Errorf("Inspector.Host = %q, want %q", cfg.Inspector.Host, DefaultHost)
	}
	if cfg.Store.ChangePolicy != "writes" {
		t.Errorf("Store.ChangePolicy = %q, want writes", cfg.Store.ChangePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if !errors.HasCode(err, errors.CodeConfigNotFound) {
		t.Errorf("Expected %s, got: %v", errors.CodeConfigNotFound, err)
	}

	configJSON := `{
  "name": "orders",
  "store": {
    "changePolicy": "changes",
    "initial": {"clicked": false, "count": 3}
  },
  "inspector": {
    "enabled": false,
    "port": 8080
  },
  "log": {"level": "debug", "format": "json"},
  "tracing": {"enabled": true}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "orders" {
		t.Errorf("Name = %q, want orders", cfg.Name)
	}
	if cfg.Inspector.Enabled {
		t.Error("Inspector.Enabled should be false")
	}
	if cfg.Inspector.Port != 8080 {
		t.Errorf("Inspector.Port = %d, want 8080", cfg.Inspector.Port)
	}
	if cfg.Inspector.Host != DefaultHost {
		t.Errorf("Inspector.Host = %q, want default", cfg.Inspector.Host)
	}
	if cfg.Store.Initial["count"] != float64(3) {
		t.Errorf("Store.Initial = %v", cfg.Store.Initial)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should keep its default")
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.TracerName != DefaultTracerName {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}

	policy, err := cfg.ChangePolicy()
	if err != nil || policy != store.PolicyReportChanges {
		t.Errorf("ChangePolicy() = %v, %v", policy, err)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, %v", level, err)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("{\n  \"name\": \"x\",\n  oops\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !errors.HasCode(err, errors.CodeConfigParse) {
		t.Errorf("Expected %s error, got: %v", errors.CodeConfigParse, err)
	}

	se := errors.FromError(err, "")
	if se.Location == nil || se.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", se.Location)
	}
}

func TestLoadFile_WrongType(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte(`{"inspector": {"port": "high"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if !errors.HasCode(err, errors.CodeConfigParse) {
		t.Fatalf("Expected %s error, got: %v", errors.CodeConfigParse, err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Inspector.Port = 9000
	cfg.Store.Initial = map[string]any{"clicked": false}

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
	if loaded.Inspector.Port != 9000 {
		t.Errorf("Inspector.Port = %d, want 9000", loaded.Inspector.Port)
	}
	if v, ok := loaded.Store.Initial["clicked"]; !ok || v != false {
		t.Errorf("Store.Initial = %v", loaded.Store.Initial)
	}

	loaded.Name = "renamed"
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, err := LoadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", again.Name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   string
	}{
		{"port zero", func(c *Config) { c.Inspector.Port = 0 }, errors.CodeConfigPort},
		{"port too high", func(c *Config) { c.Inspector.Port = 70000 }, errors.CodeConfigPort},
		{"bad policy", func(c *Config) { c.Store.ChangePolicy = "sometimes" }, errors.CodeConfigChangePolicy},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, errors.CodeConfigLogLevel},
		{"bad format", func(c *Config) { c.Log.Format = "yaml" }, errors.CodeConfigLogFormat},
		{"empty key", func(c *Config) { c.Store.Initial = map[string]any{"": 1} }, errors.CodeConfigInitial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := New()
	cfg.Inspector.Port = -1
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Fatalf("Validate() = %v, want %s", err, errors.CodeConfigInvalid)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Name != DefaultName {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Inspector.Port != DefaultPort || cfg.Inspector.Host != DefaultHost {
		t.Errorf("Inspector = %+v", cfg.Inspector)
	}
	if cfg.Store.ChangePolicy != "writes" {
		t.Errorf("Store.ChangePolicy = %q", cfg.Store.ChangePolicy)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestInspectorAddress(t *testing.T) {
	cfg := New()
	cfg.Inspector.Host = "0.0.0.0"
	cfg.Inspector.Port = 9090

	if got := cfg.InspectorAddress(); got != "0.0.0.0:9090" {
		t.Errorf("InspectorAddress() = %q", got)
	}
	if got := cfg.InspectorURL(); got != "http://0.0.0.0:9090" {
		t.Errorf("InspectorURL() = %q", got)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nested); err == nil {
		t.Error("Expected error when no config exists")
	}

	if err := New().SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	if !Exists(root) {
		t.Fatal("Exists() = false after SaveTo")
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if found != root {
		t.Errorf("FindProjectRoot() = %q, want %q", found, root)
	}
}
