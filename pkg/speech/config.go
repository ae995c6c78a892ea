package speech

import "time"

// Config holds speech timing.
type Config struct {
	RevealInterval time.Duration `yaml:"reveal_interval" json:"reveal_interval"` // one rune per interval
	MinDisplay     time.Duration `yaml:"min_display" json:"min_display"`         // dismiss floor
	PerRune        time.Duration `yaml:"per_rune" json:"per_rune"`               // display budget per rune
}

// DefaultConfig returns the stock typewriter timing.
func DefaultConfig() Config {
	return Config{
		RevealInterval: 30 * time.Millisecond,
		MinDisplay:     3 * time.Second,
		PerRune:        50 * time.Millisecond,
	}
}

// Normalize replaces non-positive durations with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.RevealInterval <= 0 {
		c.RevealInterval = d.RevealInterval
	}
	if c.MinDisplay <= 0 {
		c.MinDisplay = d.MinDisplay
	}
	if c.PerRune <= 0 {
		c.PerRune = d.PerRune
	}
	return c
}
