// Package config handles user configuration for docchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/diogo/docchat/internal/models"
)

// Environment variables that override the config file
const (
	EnvServerURL = "DOCCHAT_SERVER_URL"
	EnvLogLevel  = "DOCCHAT_LOG_LEVEL"
	EnvStream    = "DOCCHAT_STREAM"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`             // glamour style name or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`        // Enable word wrap in table cells
}

// Config represents the user configuration
type Config struct {
	ServerURL string `json:"server_url"`
	// Stream selects the streaming chat endpoint. When false, replies are
	// fetched whole from the non-streaming endpoint.
	Stream             bool   `json:"stream"`
	TimeoutSeconds     int    `json:"timeout_seconds"` // whole request, or time to first response for streams
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	Proxy              string `json:"proxy,omitempty"`
	// Verbose prints the session id and timings on stderr
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	LogLevel        string         `json:"log_level"`
	LogFile         string         `json:"log_file,omitempty"` // TUI log destination
	TUITheme        string         `json:"tui_theme,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:       models.DefaultServerURL,
		Stream:          true,
		TimeoutSeconds:  300,
		Verbose:         false,
		CopyToClipboard: false,
		LogLevel:        "warn",
		TUITheme:        "tokyonight",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docchat")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the log file used by the TUI
func GetLogPath(cfg Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "docchat.log"), nil
}

// LoadConfig loads the configuration from disk, then applies environment
// overrides
func LoadConfig() (Config, error) {
	cfg, err := LoadFile()
	ApplyEnv(&cfg)
	return cfg, err
}

// LoadFile loads the configuration file without environment overrides.
// Defaults are returned when the file is missing or broken.
func LoadFile() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ApplyEnv overrides cfg with values from the environment
func ApplyEnv(cfg *Config) {
	cfg.ServerURL = getEnv(EnvServerURL, cfg.ServerURL)
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
	cfg.Stream = getBoolEnv(EnvStream, cfg.Stream)
}

// LogLevels lists the accepted log_level values
func LogLevels() []string {
	return []string{"debug", "info", "warn", "error", "disabled"}
}

// setters maps a config key to the function that parses and applies it
var setters = map[string]func(cfg *Config, value string) error{
	"server_url": func(cfg *Config, value string) error {
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("server_url must start with http:// or https://")
		}
		cfg.ServerURL = strings.TrimRight(value, "/")
		return nil
	},
	"stream": boolSetter(func(cfg *Config) *bool { return &cfg.Stream }),
	"timeout_seconds": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer")
		}
		cfg.TimeoutSeconds = n
		return nil
	},
	"insecure_skip_verify": boolSetter(func(cfg *Config) *bool { return &cfg.InsecureSkipVerify }),
	"proxy": func(cfg *Config, value string) error {
		cfg.Proxy = value
		return nil
	},
	"verbose":           boolSetter(func(cfg *Config) *bool { return &cfg.Verbose }),
	"copy_to_clipboard": boolSetter(func(cfg *Config) *bool { return &cfg.CopyToClipboard }),
	"log_level": func(cfg *Config, value string) error {
		level := strings.ToLower(value)
		for _, l := range LogLevels() {
			if l == level {
				cfg.LogLevel = level
				return nil
			}
		}
		return fmt.Errorf("log_level must be one of %s", strings.Join(LogLevels(), ", "))
	},
	"log_file": func(cfg *Config, value string) error {
		cfg.LogFile = value
		return nil
	},
	"tui_theme": func(cfg *Config, value string) error {
		if value == "" {
			return fmt.Errorf("tui_theme cannot be empty")
		}
		cfg.TUITheme = value
		return nil
	},
	"markdown.style": func(cfg *Config, value string) error {
		if value == "" {
			return fmt.Errorf("markdown.style cannot be empty")
		}
		cfg.Markdown.Style = value
		return nil
	},
	"markdown.enable_emoji":      boolSetter(func(cfg *Config) *bool { return &cfg.Markdown.EnableEmoji }),
	"markdown.preserve_newlines": boolSetter(func(cfg *Config) *bool { return &cfg.Markdown.PreserveNewLines }),
	"markdown.table_wrap":        boolSetter(func(cfg *Config) *bool { return &cfg.Markdown.TableWrap }),
}

func boolSetter(field func(cfg *Config) *bool) func(cfg *Config, value string) error {
	return func(cfg *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		*field(cfg) = b
		return nil
	}
}

// Keys returns the settable config keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value and applies it to key. cfg is left unchanged on error.
func Set(cfg *Config, key, value string) error {
	setter, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := setter(cfg, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
