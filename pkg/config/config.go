// Package config loads the bancho core's YAML configuration, following
// the teacher pack's load-and-expand-env pattern
// (psubacz-dungeongate/pkg/config/common_config.go's LoadCommonConfig).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bancho core's top-level configuration file shape.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Domain  string        `yaml:"domain"`
	Bot     BotConfig     `yaml:"bot"`
	Menu    MenuConfig    `yaml:"menu"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`
	Tuning  TuningConfig  `yaml:"tuning"`
}

// ListenConfig describes the HTTP front door's bind address.
type ListenConfig struct {
	Address string `yaml:"address"`
}

// BotConfig describes the synthetic always-online bot session (§4.D).
type BotConfig struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

// MenuConfig describes the login bootstrap's main menu icon (§4.G).
type MenuConfig struct {
	IconURL  string `yaml:"icon_url"`
	ClickURL string `yaml:"click_url"`
}

// ChatConfig describes the command-routing prefix (§6).
type ChatConfig struct {
	CommandPrefix string `yaml:"command_prefix"`
}

// LoggingConfig describes the zap logger setup.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// TuningConfig describes the timing knobs §4.I and §5 call out.
type TuningConfig struct {
	IdleThreshold    time.Duration `yaml:"idle_threshold"`
	NpTimeout        time.Duration `yaml:"np_timeout"`
	HousekeepingTick time.Duration `yaml:"housekeeping_tick"`
	SubmissionGather time.Duration `yaml:"submission_gather"`
}

// defaults applied to any zero-valued tuning knob, matching the
// thresholds spec.md's prose calls out explicitly.
func (c *Config) applyDefaults() {
	if c.Tuning.IdleThreshold == 0 {
		c.Tuning.IdleThreshold = 5 * time.Minute
	}
	if c.Tuning.NpTimeout == 0 {
		c.Tuning.NpTimeout = 5 * time.Minute
	}
	if c.Tuning.HousekeepingTick == 0 {
		c.Tuning.HousekeepingTick = 30 * time.Second
	}
	if c.Tuning.SubmissionGather == 0 {
		c.Tuning.SubmissionGather = 10 * time.Second
	}
	if c.Listen.Address == "" {
		c.Listen.Address = ":13381"
	}
	if c.Chat.CommandPrefix == "" {
		c.Chat.CommandPrefix = "!"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Load reads and parses path, expanding ${VAR}/$VAR environment
// references before unmarshaling, then fills in any unset tuning default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
