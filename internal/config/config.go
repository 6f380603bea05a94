// Package config handles the ~/.introdeck directory and its
// config.yaml. The emoji catalogue and the extra-question count bounds
// live here on purpose: both have drifted between deployments, so the
// engines treat them as configuration rather than contract.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the directory created under the user's home.
	ConfigDirName = ".introdeck"

	defaultServerURL       = "http://127.0.0.1:5000"
	defaultCooldownSeconds = 60
)

var defaultReactionEmojis = []string{"👍", "❤️", "😂", "😮", "😢"}

const defaultConfigYAML = `# introdeck client configuration
version: 1

server:
  # Base URL of the introduction board service.
  base_url: http://127.0.0.1:5000

board:
  # Ordered reaction catalogue rendered on every card.
  reaction_emojis: ["👍", "❤️", "😂", "😮", "😢"]
  # Seconds the reply submit control stays disabled after a submission.
  comment_cooldown_seconds: 60

wizard:
  # Inclusive range and starting value for the extra-question count.
  extra_count_min: 1
  extra_count_max: 5
  extra_count_default: 3
`

// ServerConfig names the board service endpoint.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// BoardConfig captures board-side tunables.
type BoardConfig struct {
	ReactionEmojis         []string `yaml:"reaction_emojis"`
	CommentCooldownSeconds int      `yaml:"comment_cooldown_seconds"`
}

// WizardConfig captures the extra-question count slider bounds.
type WizardConfig struct {
	ExtraCountMin     int `yaml:"extra_count_min"`
	ExtraCountMax     int `yaml:"extra_count_max"`
	ExtraCountDefault int `yaml:"extra_count_default"`
}

// FileConfig models config.yaml.
type FileConfig struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Board   BoardConfig  `yaml:"board"`
	Wizard  WizardConfig `yaml:"wizard"`
}

// Config holds the runtime configuration for the client.
type Config struct {
	// Dir is the resolved ~/.introdeck directory.
	Dir string

	File FileConfig
}

// InitConfigDir creates the config directory structure and seeds a
// default config.yaml when none exists.
func InitConfigDir(dir string) error {
	for _, sub := range []string{dir, filepath.Join(dir, "logs")} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", sub, err)
		}
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// ResolveDir returns the config directory: INTRODECK_CONFIG_DIR when
// set, otherwise ~/.introdeck.
func ResolveDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("INTRODECK_CONFIG_DIR")); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// New loads configuration from dir, applying defaults for anything the
// file leaves out and environment overrides on top.
func New(dir string) (*Config, error) {
	cfg := &Config{Dir: dir, File: defaultFileConfig()}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.File.normalize()
	if err := cfg.File.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Path returns the on-disk location of config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, "config.yaml")
}

// LogsDir returns the directory holding the session log.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}

// ServerBaseURL returns the configured board service endpoint.
func (c *Config) ServerBaseURL() string {
	return c.File.Server.BaseURL
}

// ReactionEmojis returns the ordered reaction catalogue.
func (c *Config) ReactionEmojis() []string {
	return c.File.Board.ReactionEmojis
}

// CommentCooldown returns how long the reply submit control stays
// disabled after a submission.
func (c *Config) CommentCooldown() time.Duration {
	return time.Duration(c.File.Board.CommentCooldownSeconds) * time.Second
}

// ExtraCountBounds returns the inclusive slider range and its starting
// value.
func (c *Config) ExtraCountBounds() (min, max, initial int) {
	return c.File.Wizard.ExtraCountMin, c.File.Wizard.ExtraCountMax, c.File.Wizard.ExtraCountDefault
}

func (c *Config) load() error {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.Path(), err)
	}
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.Path(), err)
	}
	parsed.applyDefaults()
	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := strings.TrimSpace(os.Getenv("INTRODECK_SERVER")); url != "" {
		c.File.Server.BaseURL = url
	}
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		Server:  ServerConfig{BaseURL: defaultServerURL},
		Board: BoardConfig{
			ReactionEmojis:         append([]string(nil), defaultReactionEmojis...),
			CommentCooldownSeconds: defaultCooldownSeconds,
		},
		Wizard: WizardConfig{ExtraCountMin: 1, ExtraCountMax: 5, ExtraCountDefault: 3},
	}
}

func (fc *FileConfig) applyDefaults() {
	def := defaultFileConfig()
	if fc.Version == 0 {
		fc.Version = def.Version
	}
	if strings.TrimSpace(fc.Server.BaseURL) == "" {
		fc.Server.BaseURL = def.Server.BaseURL
	}
	if len(fc.Board.ReactionEmojis) == 0 {
		fc.Board.ReactionEmojis = def.Board.ReactionEmojis
	}
	if fc.Board.CommentCooldownSeconds == 0 {
		fc.Board.CommentCooldownSeconds = def.Board.CommentCooldownSeconds
	}
	if fc.Wizard.ExtraCountMin == 0 && fc.Wizard.ExtraCountMax == 0 {
		fc.Wizard = def.Wizard
	}
	if fc.Wizard.ExtraCountDefault == 0 {
		fc.Wizard.ExtraCountDefault = fc.Wizard.ExtraCountMin
	}
}

func (fc *FileConfig) normalize() {
	fc.Server.BaseURL = strings.TrimRight(strings.TrimSpace(fc.Server.BaseURL), "/")
	kept := fc.Board.ReactionEmojis[:0]
	seen := map[string]struct{}{}
	for _, emoji := range fc.Board.ReactionEmojis {
		emoji = strings.TrimSpace(emoji)
		if emoji == "" {
			continue
		}
		if _, dup := seen[emoji]; dup {
			continue
		}
		seen[emoji] = struct{}{}
		kept = append(kept, emoji)
	}
	fc.Board.ReactionEmojis = kept
	if fc.Wizard.ExtraCountDefault < fc.Wizard.ExtraCountMin {
		fc.Wizard.ExtraCountDefault = fc.Wizard.ExtraCountMin
	}
	if fc.Wizard.ExtraCountDefault > fc.Wizard.ExtraCountMax {
		fc.Wizard.ExtraCountDefault = fc.Wizard.ExtraCountMax
	}
}

func (fc FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if fc.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if len(fc.Board.ReactionEmojis) == 0 {
		return fmt.Errorf("board.reaction_emojis must list at least one emoji")
	}
	if fc.Board.CommentCooldownSeconds < 0 {
		return fmt.Errorf("board.comment_cooldown_seconds must not be negative")
	}
	if fc.Wizard.ExtraCountMin < 1 {
		return fmt.Errorf("wizard.extra_count_min must be >= 1")
	}
	if fc.Wizard.ExtraCountMax < fc.Wizard.ExtraCountMin {
		return fmt.Errorf("wizard.extra_count_max must be >= extra_count_min")
	}
	return nil
}
