package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon settings.
type Config struct {
	// PreviewWidth is the composited canvas width in pixels; height
	// follows the monitor aspect ratio.
	PreviewWidth int `yaml:"preview_width"`

	// PollIntervalMs is the cadence of the result poll loop.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// ServerPort is the preview HTTP/WebSocket port.
	ServerPort int `yaml:"server_port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		PreviewWidth:   640,
		PollIntervalMs: 32,
		ServerPort:     8089,
		LogLevel:       "info",
	}
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.PreviewWidth <= 0 {
		c.PreviewWidth = def.PreviewWidth
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = def.PollIntervalMs
	}
	if c.ServerPort <= 0 {
		c.ServerPort = def.ServerPort
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Manager loads and persists the configuration file.
type Manager struct {
	mu     sync.RWMutex
	config Config
	path   string
}

// NewManager loads the config from path, or from the default location
// when path is empty. A missing file yields defaults.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		path = filepath.Join(configDir, "hyprpeek", "config.yaml")
	}

	m := &Manager{path: path, config: DefaultConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	m.config = cfg

	return m, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetPort overrides the server port.
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel overrides the log level.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.path
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
