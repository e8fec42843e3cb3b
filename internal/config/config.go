// Package config loads the server configuration from a TOML file, creating
// one with defaults on first run. A .env file and PITUNES_* environment
// variables override individual values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Logging  LoggingConfig  `toml:"logging"`
	Auth     AuthConfig     `toml:"auth"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int    `toml:"port"`
	Host        string `toml:"host"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains SQLite configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LibraryConfig contains media storage configuration
type LibraryConfig struct {
	TracksDir       string `toml:"tracks_dir"`
	WatchForChanges bool   `toml:"watch_for_changes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AuthConfig enables HTTP basic auth when a credential pair is set.
// PasswordHash holds a bcrypt hash, never the plain password.
type AuthConfig struct {
	Enabled      bool   `toml:"enabled"`
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	dataDir := filepath.Join(xdg.DataHome, "pitunes")
	return &Config{
		Server: ServerConfig{
			Port:        8443,
			Host:        "0.0.0.0",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "pitunes.db"),
		},
		Library: LibraryConfig{
			TracksDir:       filepath.Join(dataDir, "tracks"),
			WatchForChanges: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "pitunes", "config.toml")
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays a local .env file plus PITUNES_* variables. A missing
// .env is not an error.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("PITUNES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PITUNES_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PITUNES_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PITUNES_TRACKS_DIR"); v != "" {
		c.Library.TracksDir = v
	}
	if v := os.Getenv("PITUNES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PITUNES_AUTH_USERNAME"); v != "" {
		c.Auth.Enabled = true
		c.Auth.Username = v
	}
	if v := os.Getenv("PITUNES_AUTH_PASSWORD_HASH"); v != "" {
		c.Auth.Enabled = true
		c.Auth.PasswordHash = v
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# piTunes Server Configuration
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Library.TracksDir == "" {
		return fmt.Errorf("tracks directory cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Auth.Enabled {
		if c.Auth.Username == "" || c.Auth.PasswordHash == "" {
			return fmt.Errorf("auth enabled but username or password_hash is empty")
		}
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
