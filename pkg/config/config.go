// Package config handles loading and saving pengraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pengraph/config.yaml
//   - Data:    ~/.local/share/pengraph/ (local databases, exports)
//   - State:   ~/.local/state/pengraph/ (recent projects)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project represents a registered project in the config.
type Project struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// ServerConfig holds connection settings for a remote graph server.
type ServerConfig struct {
	URL   string `yaml:"url,omitempty"`   // Base API URL, e.g. http://localhost:8000/api/v1
	Token string `yaml:"token,omitempty"` // Bearer token, also passed to the websocket
}

// LocalConfig holds settings for the embedded SQLite store.
type LocalConfig struct {
	DatabasePath string `yaml:"database_path,omitempty"` // Defaults to DataDir()/pengraph.db
}

// EditorConfig holds tunables for the mutation engine.
type EditorConfig struct {
	MoveDebounce time.Duration `yaml:"move_debounce,omitempty"` // Coalescing window for position persists
}

// Config is the top-level configuration for pengraph.
type Config struct {
	Projects       []Project    `yaml:"projects,omitempty"`
	DefaultProject string       `yaml:"default_project,omitempty"`
	Server         ServerConfig `yaml:"server,omitempty"`
	Local          LocalConfig  `yaml:"local,omitempty"`
	Editor         EditorConfig `yaml:"editor,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Editor: EditorConfig{
			MoveDebounce: 500 * time.Millisecond,
		},
	}
}

// ConfigDir returns the XDG config directory for pengraph.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pengraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pengraph")
}

// DataDir returns the XDG data directory for pengraph.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "pengraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "pengraph")
}

// StateDir returns the XDG state directory for pengraph.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pengraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "pengraph")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DatabasePath returns the configured SQLite path, falling back to the
// default location under DataDir.
func (c Config) DatabasePath() string {
	if c.Local.DatabasePath != "" {
		return expandHome(c.Local.DatabasePath)
	}
	dir := DataDir()
	if dir == "" {
		return "pengraph.db"
	}
	return filepath.Join(dir, "pengraph.db")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Editor.MoveDebounce <= 0 {
		cfg.Editor.MoveDebounce = 500 * time.Millisecond
	}
	cfg.Local.DatabasePath = expandHome(cfg.Local.DatabasePath)

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindProject returns the project with the given name, or nil.
func (c Config) FindProject(name string) *Project {
	for i := range c.Projects {
		if strings.EqualFold(c.Projects[i].Name, name) {
			return &c.Projects[i]
		}
	}
	return nil
}

// ResolveProject maps a name (or empty string for the default) to a
// project ID. A name that matches no registered project is assumed to
// already be an ID.
func (c Config) ResolveProject(name string) string {
	if name == "" {
		name = c.DefaultProject
	}
	if p := c.FindProject(name); p != nil {
		return p.ID
	}
	return name
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
