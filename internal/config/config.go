package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for PasteBot.
type Config struct {
	General   GeneralConfig   `json:"general" yaml:"general"`
	Channels  ChannelsConfig  `json:"channels" yaml:"channels"`
	Paste     PasteConfig     `json:"paste" yaml:"paste"`
	Shortener ShortenerConfig `json:"shortener" yaml:"shortener"`
	Queue     QueueConfig     `json:"queue" yaml:"queue"`
	History   HistoryConfig   `json:"history" yaml:"history"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	CLI      CLIConfig      `json:"cli" yaml:"cli"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled" yaml:"enabled"`
	Token     string         `json:"token" yaml:"token"`
	AllowFrom FlexStringList `json:"allowFrom" yaml:"allowFrom"`
	ParseMode string         `json:"parseMode" yaml:"parseMode"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// PasteConfig configures the paste-host collaborator.
type PasteConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	AuthToken      string `json:"authToken,omitempty" yaml:"authToken,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// ShortenerConfig configures the link-shortening collaborator.
type ShortenerConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

type QueueConfig struct {
	BufferSize int `json:"bufferSize" yaml:"bufferSize"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"dbPath" yaml:"dbPath"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
// Telegram user IDs are numeric and people paste them unquoted.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	var items []yaml.Node
	if err := value.Decode(&items); err != nil {
		return err
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := item.Decode(&s); err == nil {
			result = append(result, s)
			continue
		}
		var n int64
		if err := item.Decode(&n); err == nil {
			result = append(result, strconv.FormatInt(n, 10))
			continue
		}
		result = append(result, item.Value)
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.pastebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pastebot"
	}
	return filepath.Join(home, ".pastebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file (JSON by default, YAML for .yaml/.yml paths),
// expands ${VAR} references, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Paste.TimeoutSeconds < 1 {
		errs = append(errs, "paste.timeoutSeconds must be >= 1")
	}
	if cfg.Shortener.TimeoutSeconds < 1 {
		errs = append(errs, "shortener.timeoutSeconds must be >= 1")
	}
	if cfg.Queue.BufferSize < 1 {
		errs = append(errs, "queue.bufferSize must be >= 1")
	}

	if cfg.Channels.Telegram.Enabled {
		if cfg.Channels.Telegram.Token == "" {
			errs = append(errs, "channels.telegram.token is required when telegram is enabled")
		}
		if len(cfg.Channels.Telegram.AllowFrom) == 0 {
			errs = append(errs, "channels.telegram.allowFrom must list at least one operator ID")
		}
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of the config with secrets blanked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	if out.Channels.Telegram.Token != "" {
		out.Channels.Telegram.Token = "***"
	}
	if out.Paste.AuthToken != "" {
		out.Paste.AuthToken = "***"
	}
	return &out
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
