// Package config loads the application configuration from a TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultServerURL          = "ws://127.0.0.1:8199/ws"
	defaultHandshakeTimeout   = "10s"
	defaultReconnectBaseDelay = "500ms"
	defaultReconnectMaxDelay  = "15s"
	defaultModel              = "claude-sonnet-4-20250514"
	defaultThinkingBudget     = 8192
	defaultTUITheme           = "dark"
	defaultTUIShowUsage       = true
	defaultConfigRelativePath = ".config/skiff/config.toml"
	defaultStateRelativePath  = ".local/state/skiff"
	envServerURL              = "SKIFF_SERVER_URL"
	envModel                  = "SKIFF_MODEL"
	envTheme                  = "SKIFF_THEME"
	envStateDir               = "SKIFF_STATE_DIR"
	envLogLevel               = "SKIFF_LOG_LEVEL"
	envThinkingBudget         = "SKIFF_THINKING_BUDGET"
)

var (
	// ErrInvalidConfig indicates malformed configuration input.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the application configuration root.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	TUI     TUIConfig     `toml:"tui"`
	State   StateConfig   `toml:"state"`
}

// ServerConfig configures the backend connection.
type ServerConfig struct {
	URL                string `toml:"url"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	ReconnectBaseDelay string `toml:"reconnect_base_delay"`
	ReconnectMaxDelay  string `toml:"reconnect_max_delay"`
}

// SessionConfig configures per-session defaults sent to the backend.
type SessionConfig struct {
	Model           string `toml:"model"`
	ThinkingEnabled bool   `toml:"thinking_enabled"`
	ThinkingBudget  int    `toml:"thinking_budget"`
	PlanModeEnabled bool   `toml:"plan_mode_enabled"`
}

// TUIConfig configures terminal UI defaults.
type TUIConfig struct {
	Theme     string `toml:"theme"`
	ShowUsage bool   `toml:"show_usage"`
}

// StateConfig configures local persistence and logging.
type StateConfig struct {
	Dir      string `toml:"dir"`
	LogLevel string `toml:"log_level"`
}

// LoadOptions controls config loading behavior.
type LoadOptions struct {
	Path string
}

// ServerSettings is a validated backend connection settings snapshot.
type ServerSettings struct {
	URL                string
	HandshakeTimeout   time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// Default returns application defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:                defaultServerURL,
			HandshakeTimeout:   defaultHandshakeTimeout,
			ReconnectBaseDelay: defaultReconnectBaseDelay,
			ReconnectMaxDelay:  defaultReconnectMaxDelay,
		},
		Session: SessionConfig{
			Model:          defaultModel,
			ThinkingBudget: defaultThinkingBudget,
		},
		TUI: TUIConfig{
			Theme:     defaultTUITheme,
			ShowUsage: defaultTUIShowUsage,
		},
		State: StateConfig{
			LogLevel: "info",
		},
	}
}

// Load reads the config file then applies environment variable overrides.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = defaultConfigPath()
	}

	if err := mergeConfigFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerSettings returns validated settings suitable for transport wiring.
func (c Config) ServerSettings() (ServerSettings, error) {
	handshake, err := time.ParseDuration(strings.TrimSpace(c.Server.HandshakeTimeout))
	if err != nil {
		return ServerSettings{}, fmt.Errorf("%w: parse server handshake_timeout: %v", ErrInvalidConfig, err)
	}
	baseDelay, err := time.ParseDuration(strings.TrimSpace(c.Server.ReconnectBaseDelay))
	if err != nil {
		return ServerSettings{}, fmt.Errorf("%w: parse server reconnect_base_delay: %v", ErrInvalidConfig, err)
	}
	maxDelay, err := time.ParseDuration(strings.TrimSpace(c.Server.ReconnectMaxDelay))
	if err != nil {
		return ServerSettings{}, fmt.Errorf("%w: parse server reconnect_max_delay: %v", ErrInvalidConfig, err)
	}
	return ServerSettings{
		URL:                strings.TrimSpace(c.Server.URL),
		HandshakeTimeout:   handshake,
		ReconnectBaseDelay: baseDelay,
		ReconnectMaxDelay:  maxDelay,
	}, nil
}

// StateDir resolves the local state directory, creating nothing.
func (c Config) StateDir() string {
	dir := strings.TrimSpace(c.State.Dir)
	if dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultStateRelativePath
	}
	return filepath.Join(home, defaultStateRelativePath)
}

func mergeConfigFile(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value, ok := os.LookupEnv(envServerURL); ok && strings.TrimSpace(value) != "" {
		cfg.Server.URL = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envModel); ok && strings.TrimSpace(value) != "" {
		cfg.Session.Model = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envTheme); ok && strings.TrimSpace(value) != "" {
		cfg.TUI.Theme = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envStateDir); ok && strings.TrimSpace(value) != "" {
		cfg.State.Dir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		cfg.State.LogLevel = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envThinkingBudget); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, envThinkingBudget, err)
		}
		cfg.Session.ThinkingBudget = parsed
	}
	return nil
}

func validate(cfg Config) error {
	url := strings.TrimSpace(cfg.Server.URL)
	if url == "" {
		return fmt.Errorf("%w: server url is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fmt.Errorf("%w: server url must use ws:// or wss://", ErrInvalidConfig)
	}
	if cfg.Session.ThinkingBudget < 0 {
		return fmt.Errorf("%w: session thinking_budget must be >= 0", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.TUI.Theme)) {
	case "", "dark", "light":
	default:
		return fmt.Errorf("%w: unknown tui theme %q", ErrInvalidConfig, cfg.TUI.Theme)
	}
	if _, err := cfg.ServerSettings(); err != nil {
		return err
	}
	return nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigRelativePath)
}
