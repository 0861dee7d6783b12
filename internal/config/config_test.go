package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config       string   `toml:"-"`
	Port         int      `toml:"server.port" env:"PORT"`
	Host         string   `toml:"server.host" env:"HOST"`
	Severity     float64  `toml:"simulator.severity" env:"SEVERITY"`
	Debug        bool     `toml:"debug" env:"DEBUG"`
	LoggingLevel string   `toml:"logging.level" env:"LOGGING_LEVEL"`
	AllowedHosts []string `toml:"server.allowed_hosts" env:"ALLOWED_HOSTS"`
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfigFile(t, `
debug = true

[server]
port = 9090
host = "0.0.0.0"
allowed_hosts = ["a.example.com", "b.example.com"]

[simulator]
severity = 0.4

[logging]
level = "debug"
`)

	opts := testOptions{Config: path, Port: 8080, Host: "localhost"}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", opts.Port)
	}
	if opts.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", opts.Host)
	}
	if opts.Severity != 0.4 {
		t.Errorf("Expected severity 0.4, got %v", opts.Severity)
	}
	if !opts.Debug {
		t.Error("Expected debug true")
	}
	if opts.LoggingLevel != "debug" {
		t.Errorf("Expected logging level debug, got %s", opts.LoggingLevel)
	}
	if len(opts.AllowedHosts) != 2 || opts.AllowedHosts[0] != "a.example.com" {
		t.Errorf("Unexpected allowed hosts: %v", opts.AllowedHosts)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090

[simulator]
severity = 0.4
`)

	t.Setenv("VISIONSIM_PORT", "7070")
	t.Setenv("VISIONSIM_SEVERITY", "0.9")

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 7070 {
		t.Errorf("Env var should override TOML: expected 7070, got %d", opts.Port)
	}
	if opts.Severity != 0.9 {
		t.Errorf("Env var should override TOML: expected 0.9, got %v", opts.Severity)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090
`)

	t.Setenv("VISIONSIM_PORT", "7070")

	cmd := &cobra.Command{}
	var port int
	cmd.Flags().IntVar(&port, "port", 8080, "")
	if err := cmd.Flags().Set("port", "6060"); err != nil {
		t.Fatal(err)
	}

	opts := testOptions{Config: path, Port: 6060}
	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 6060 {
		t.Errorf("CLI flag should win over env and TOML: expected 6060, got %d", opts.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := testOptions{Config: "/nonexistent/config.toml", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("Missing config file should not error: %v", err)
	}
	if opts.Port != 8080 {
		t.Errorf("Defaults should survive missing file: got %d", opts.Port)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"AllowedHosts", "allowed-hosts"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.in); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfigFile(t, `
[logging]
level = "warn"
format = "json"
pipeline = "debug"
api = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" {
		t.Errorf("Expected level warn, got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Expected format json, got %s", cfg.Format)
	}
	if cfg.Modules["pipeline"] != "debug" {
		t.Errorf("Expected pipeline module debug, got %s", cfg.Modules["pipeline"])
	}
	if cfg.Modules["api"] != "error" {
		t.Errorf("Expected api module error, got %s", cfg.Modules["api"])
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("/nonexistent/config.toml")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("Expected defaults info/text, got %s/%s", cfg.Level, cfg.Format)
	}
}

func TestLoadTuning(t *testing.T) {
	path := writeConfigFile(t, `
version = 1

[effects.cataract]
max_sigma = 12.0
veil_opacity = 0.5

[effects.retinopathy]
blotches = 40
seed = 7
`)

	cfg, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}

	cataract := cfg.ParamsFor("cataract")
	if cataract == nil {
		t.Fatal("Expected cataract overrides")
	}
	if got := cataract.Float("max_sigma", 8); got != 12.0 {
		t.Errorf("Expected max_sigma 12, got %v", got)
	}

	retino := cfg.ParamsFor("retinopathy")
	if got := retino.Int("blotches", 28); got != 40 {
		t.Errorf("Expected blotches 40, got %d", got)
	}

	if cfg.ParamsFor("glaucoma") != nil {
		t.Error("Expected nil params for effect without overrides")
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	cfg, err := LoadTuning(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Missing tuning file should not error: %v", err)
	}
	if cfg.ParamsFor("cataract") != nil {
		t.Error("Expected empty config for missing file")
	}
}
