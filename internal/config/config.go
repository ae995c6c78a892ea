// Package config loads presence engine settings from the environment and
// an optional YAML tuning file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/studybuddy/presence/pkg/character"
	"github.com/studybuddy/presence/pkg/cursor"
	"github.com/studybuddy/presence/pkg/speech"
)

// Default server settings.
const (
	DefaultPort      = "8090"
	DefaultFrameRate = 60
)

// Config is the process configuration.
type Config struct {
	Port       string `env:"PRESENCE_PORT" envDefault:"8090"`
	LogLevel   string `env:"PRESENCE_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"PRESENCE_LOG_FORMAT"`
	StaticDir  string `env:"PRESENCE_STATIC_DIR"`
	FrameRate  int    `env:"PRESENCE_FRAME_RATE" envDefault:"60"`
	TuningFile string `env:"PRESENCE_TUNING_FILE"`

	RevealInterval time.Duration `env:"PRESENCE_REVEAL_INTERVAL" envDefault:"30ms"`
	MinDisplay     time.Duration `env:"PRESENCE_MIN_DISPLAY" envDefault:"3s"`
	PerRune        time.Duration `env:"PRESENCE_PER_RUNE" envDefault:"50ms"`
	BlinkPeriod    time.Duration `env:"PRESENCE_CARET_BLINK" envDefault:"500ms"`

	Tuning Tuning
}

// Tuning groups the animation and timing constants that may be
// overridden from a YAML file.
type Tuning struct {
	Cursor    cursor.Config    `yaml:"cursor"`
	Character character.Tuning `yaml:"character"`
	Speech    speech.Config    `yaml:"speech"`
}

// DefaultTuning returns the stock tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Cursor:    cursor.DefaultConfig(),
		Character: character.DefaultTuning(),
		Speech:    speech.DefaultConfig(),
	}
}

// Load reads the environment, then the tuning file if one is named.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom is Load with an explicit environment, for tests.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Tuning = DefaultTuning()
	cfg.Tuning.Speech = speech.Config{
		RevealInterval: cfg.RevealInterval,
		MinDisplay:     cfg.MinDisplay,
		PerRune:        cfg.PerRune,
	}
	if cfg.TuningFile != "" {
		t, err := LoadTuning(cfg.TuningFile, cfg.Tuning)
		if err != nil {
			return Config{}, err
		}
		cfg.Tuning = t
	}

	cfg.normalize()
	return cfg, nil
}

// LoadTuning overlays the YAML file at path onto base.
func LoadTuning(path string, base Tuning) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	t := base
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	return t, nil
}

// normalize clamps out-of-range values to defaults.
func (c *Config) normalize() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		c.FrameRate = DefaultFrameRate
	}
	if c.BlinkPeriod <= 0 {
		c.BlinkPeriod = 500 * time.Millisecond
	}
	c.Tuning.Speech = c.Tuning.Speech.Normalize()
	c.Tuning.Character = c.Tuning.Character.Normalize()
	c.Tuning.Cursor = c.Tuning.Cursor.Normalize()
	c.RevealInterval = c.Tuning.Speech.RevealInterval
	c.MinDisplay = c.Tuning.Speech.MinDisplay
	c.PerRune = c.Tuning.Speech.PerRune
}
