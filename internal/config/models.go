package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CaptureConfig holds the persisted capture switches
type CaptureConfig struct {
	Mode           string `json:"mode" yaml:"mode" mapstructure:"mode"`
	IncludePointer bool   `json:"include_pointer" yaml:"include_pointer" mapstructure:"include_pointer"`
	WindowShadow   bool   `json:"window_shadow" yaml:"window_shadow" mapstructure:"window_shadow"`
	DelaySeconds   int    `json:"delay_seconds" yaml:"delay_seconds" mapstructure:"delay_seconds"`
	Flash          bool   `json:"flash" yaml:"flash" mapstructure:"flash"`
	FallbackTool   bool   `json:"fallback_tool" yaml:"fallback_tool" mapstructure:"fallback_tool"`
	ToolPath       string `json:"tool_path" yaml:"tool_path" mapstructure:"tool_path"`
}

// SaveConfig holds save dialog defaults
type SaveConfig struct {
	Folder  string `json:"folder" yaml:"folder" mapstructure:"folder"`
	History bool   `json:"history" yaml:"history" mapstructure:"history"`
}

// Config represents the application configuration
type Config struct {
	Capture    CaptureConfig `json:"capture" yaml:"capture" mapstructure:"capture"`
	Save       SaveConfig    `json:"save" yaml:"save" mapstructure:"save"`
	ServerPort int           `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel   string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	v          *viper.Viper
	mu         sync.RWMutex
}

// DefaultPath returns $XDG_CONFIG_HOME/kasbah/config.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "kasbah", "config.yaml")
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := DefaultPath()
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
		v:          newViper(),
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("mode", m.config.Capture.Mode).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Capture: CaptureConfig{
			Mode:           capture.ModeScreen.String(),
			IncludePointer: false,
			WindowShadow:   true,
			DelaySeconds:   0,
			Flash:          true,
			FallbackTool:   true,
			ToolPath:       capture.DefaultToolPath,
		},
		Save: SaveConfig{
			Folder:  "",
			History: true,
		},
		ServerPort: 8080,
		LogLevel:   "warn",
	}
}

// newViper returns a viper instance with every known key defaulted, so
// AllKeys lists the settable keys.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	d := Defaults()
	v.SetDefault("capture.mode", d.Capture.Mode)
	v.SetDefault("capture.include_pointer", d.Capture.IncludePointer)
	v.SetDefault("capture.window_shadow", d.Capture.WindowShadow)
	v.SetDefault("capture.delay_seconds", d.Capture.DelaySeconds)
	v.SetDefault("capture.flash", d.Capture.Flash)
	v.SetDefault("capture.fallback_tool", d.Capture.FallbackTool)
	v.SetDefault("capture.tool_path", d.Capture.ToolPath)
	v.SetDefault("save.folder", d.Save.Folder)
	v.SetDefault("save.history", d.Save.History)
	v.SetDefault("server_port", d.ServerPort)
	v.SetDefault("log_level", d.LogLevel)
	return v
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	if err := m.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	fixed := normalize(&cfg)

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()

	if len(fixed) > 0 {
		logger.WithComponent("config").Warn().
			Strs("keys", fixed).
			Msg("Replaced invalid config values with defaults")
		if err := m.Save(); err != nil {
			logger.WithComponent("config").Warn().Err(err).Msg("Failed to save repaired config")
		}
	}

	return nil
}

// normalize resets invalid values to their defaults and returns the keys
// it touched.
func normalize(cfg *Config) []string {
	d := Defaults()
	var fixed []string

	if _, err := capture.ParseMode(cfg.Capture.Mode); err != nil {
		cfg.Capture.Mode = d.Capture.Mode
		fixed = append(fixed, "capture.mode")
	}
	if cfg.Capture.DelaySeconds < 0 {
		cfg.Capture.DelaySeconds = 0
		fixed = append(fixed, "capture.delay_seconds")
	}
	if cfg.Capture.ToolPath == "" {
		cfg.Capture.ToolPath = d.Capture.ToolPath
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		cfg.ServerPort = d.ServerPort
		fixed = append(fixed, "server_port")
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		cfg.LogLevel = d.LogLevel
		fixed = append(fixed, "log_level")
	}
	return fixed
}

// validate rejects values normalize would have to replace.
func validate(cfg *Config) error {
	if _, err := capture.ParseMode(cfg.Capture.Mode); err != nil {
		return err
	}
	if cfg.Capture.DelaySeconds < 0 {
		return fmt.Errorf("invalid delay: %d (must be zero or positive)", cfg.Capture.DelaySeconds)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return fmt.Errorf("invalid port number: %d", cfg.ServerPort)
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Keep viper's view in step with what is on disk.
	if err := m.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return nil
}

// Update replaces the whole configuration
func (m *Manager) Update(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	m.mu.Lock()
	c := *cfg
	m.config = &c
	m.mu.Unlock()
	return m.Save()
}

// Keys returns every settable dotted key
func (m *Manager) Keys() []string {
	m.mu.RLock()
	keys := m.v.AllKeys()
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Lookup returns the value stored under a dotted key
func (m *Manager) Lookup(key string) (interface{}, error) {
	key = strings.ToLower(key)
	if !m.known(key) {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key), nil
}

// Set parses value for a dotted key, validates the result and saves it.
func (m *Manager) Set(key, value string) error {
	key = strings.ToLower(key)
	if !m.known(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	// Decode into a scratch viper so a rejected value leaves the live
	// configuration untouched.
	scratch := newViper()
	m.mu.RLock()
	current := m.v.AllSettings()
	m.mu.RUnlock()
	if err := scratch.MergeConfigMap(current); err != nil {
		return fmt.Errorf("failed to copy config: %w", err)
	}
	scratch.Set(key, value)

	var cfg Config
	if err := scratch.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := validate(&cfg); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return m.Save()
}

func (m *Manager) known(key string) bool {
	for _, k := range m.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// CaptureSettings returns the persisted capture settings
func (m *Manager) CaptureSettings() capture.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.config.Capture
	mode, err := capture.ParseMode(c.Mode)
	if err != nil {
		mode = capture.ModeScreen
	}
	return capture.Settings{
		Mode: mode,
		Options: capture.Options{
			IncludePointer: c.IncludePointer,
			WindowShadow:   c.WindowShadow,
			DelaySeconds:   c.DelaySeconds,
		},
		Flash: c.Flash,
	}
}

// SetCaptureSettings persists capture settings
func (m *Manager) SetCaptureSettings(s capture.Settings) error {
	if !s.Mode.Valid() {
		return fmt.Errorf("invalid capture mode %d", int(s.Mode))
	}
	if err := s.Options.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config.Capture.Mode = s.Mode.String()
	m.config.Capture.IncludePointer = s.Options.IncludePointer
	m.config.Capture.WindowShadow = s.Options.WindowShadow
	m.config.Capture.DelaySeconds = s.Options.DelaySeconds
	m.config.Capture.Flash = s.Flash
	m.mu.Unlock()

	return m.Save()
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
