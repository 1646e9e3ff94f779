package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if cfg.LogOutput == "" {
		t.Error("LogOutput not set to default")
	}
}

func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("VERBOSE", "true")
	t.Setenv("FORMAT", "json")
	t.Setenv("KINDS_FILE", "/etc/recordsync/kinds.yaml")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if !cfg.Verbose {
		t.Error("VERBOSE environment variable not loaded")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.KindsFile != "/etc/recordsync/kinds.yaml" {
		t.Errorf("KindsFile = %q", cfg.KindsFile)
	}
}

func TestConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_FORMAT=json\nLOG_OUTPUT=stdout\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("LOG_OUTPUT=discard\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("LOG_FORMAT")
		_ = os.Unsetenv("LOG_OUTPUT")
	})
	// godotenv leaves variables that are already set alone
	_ = os.Unsetenv("LOG_FORMAT")
	_ = os.Unsetenv("LOG_OUTPUT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json from .env", cfg.LogFormat)
	}
	if cfg.LogOutput != "discard" {
		t.Errorf("LogOutput = %q, want discard from .env.local", cfg.LogOutput)
	}
}

func TestConfig_UpdateFromFlags(t *testing.T) {
	cfg := &Config{Format: "yaml", KindsFile: "a.yaml"}
	cfg.UpdateFromFlags(true, false, true, "", "debug", "")

	if !cfg.Verbose || !cfg.NoColor {
		t.Error("boolean flags not applied")
	}
	if cfg.Format != "yaml" {
		t.Errorf("empty format flag replaced %q", cfg.Format)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.KindsFile != "a.yaml" {
		t.Errorf("empty kinds flag replaced %q", cfg.KindsFile)
	}
}
