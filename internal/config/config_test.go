package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8443 {
		t.Errorf("default port = %d, want 8443", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}

	// A second load reads the file it just wrote.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if again.Server.Port != cfg.Server.Port || again.Database.Path != cfg.Database.Path {
		t.Errorf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("PITUNES_PORT", "9000")
	t.Setenv("PITUNES_TRACKS_DIR", "/srv/music")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want env override 9000", cfg.Server.Port)
	}
	if cfg.Library.TracksDir != "/srv/music" {
		t.Errorf("tracks dir = %q, want env override", cfg.Library.TracksDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"empty tracks dir", func(c *Config) { c.Library.TracksDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"auth without credentials", func(c *Config) { c.Auth.Enabled = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
