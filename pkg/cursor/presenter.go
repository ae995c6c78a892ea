// Package cursor drives the two-layer pointer overlay. Each layer follows
// the pointer on its own spring and grows while an interactive element
// is hovered.
package cursor

import (
	"sync"

	"github.com/studybuddy/presence/pkg/pointer"
)

// LayerConfig tunes one overlay layer.
type LayerConfig struct {
	Offset     float64 `yaml:"offset" json:"offset"`           // half the layer size, centers it on the pointer
	HoverScale float64 `yaml:"hover_scale" json:"hover_scale"` // scale while hovering
	Stiffness  float64 `yaml:"stiffness" json:"stiffness"`
	Damping    float64 `yaml:"damping" json:"damping"`
}

// Config holds both layer profiles.
type Config struct {
	Inner LayerConfig `yaml:"inner" json:"inner"`
	Outer LayerConfig `yaml:"outer" json:"outer"`
}

// DefaultConfig returns the stock overlay: a tight inner dot and a
// softer glow that lags and grows more.
func DefaultConfig() Config {
	return Config{
		Inner: LayerConfig{Offset: 12, HoverScale: 1.5, Stiffness: 400, Damping: 30},
		Outer: LayerConfig{Offset: 24, HoverScale: 2, Stiffness: 200, Damping: 20},
	}
}

// LayerFrame is the rendered transform of one layer.
type LayerFrame struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Frame is both layers for one display refresh.
type Frame struct {
	Inner LayerFrame `json:"inner"`
	Outer LayerFrame `json:"outer"`
}

// Layer is one spring-driven overlay element.
type Layer struct {
	cfg         LayerConfig
	x, y, scale Spring
}

func newLayer(cfg LayerConfig) *Layer {
	return &Layer{
		cfg:   cfg,
		x:     NewSpring(cfg.Stiffness, cfg.Damping, -cfg.Offset),
		y:     NewSpring(cfg.Stiffness, cfg.Damping, -cfg.Offset),
		scale: NewSpring(cfg.Stiffness, cfg.Damping, 1),
	}
}

func (l *Layer) aim(s pointer.Sample) {
	l.x.Target = s.X - l.cfg.Offset
	l.y.Target = s.Y - l.cfg.Offset
	l.scale.Target = 1
	if s.Hovering {
		l.scale.Target = l.cfg.HoverScale
	}
}

func (l *Layer) retune(cfg LayerConfig) {
	l.cfg = cfg
	for _, sp := range []*Spring{&l.x, &l.y, &l.scale} {
		sp.Stiffness = cfg.Stiffness
		sp.Damping = cfg.Damping
	}
}

func (l *Layer) step(dt float64) LayerFrame {
	l.x.Step(dt)
	l.y.Step(dt)
	l.scale.Step(dt)
	return l.frame()
}

func (l *Layer) frame() LayerFrame {
	return LayerFrame{X: l.x.Value, Y: l.y.Value, Scale: l.scale.Value}
}

// Presenter holds the two layers. It has no state beyond the spring
// positions it is animating.
type Presenter struct {
	mu    sync.Mutex
	inner *Layer
	outer *Layer
}

// NewPresenter creates a presenter with both layers at the origin.
// Non-physical settings fall back to the defaults, as in Retune.
func NewPresenter(cfg Config) *Presenter {
	cfg = cfg.Normalize()
	return &Presenter{inner: newLayer(cfg.Inner), outer: newLayer(cfg.Outer)}
}

// Update retargets both layers from a pointer sample.
func (p *Presenter) Update(s pointer.Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inner.aim(s)
	p.outer.aim(s)
}

// Step advances both layers by dt seconds.
func (p *Presenter) Step(dt float64) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Frame{Inner: p.inner.step(dt), Outer: p.outer.step(dt)}
}

// Retune swaps the layer profiles in place. Springs keep their motion;
// new offsets and hover scales apply from the next Update.
func (p *Presenter) Retune(cfg Config) {
	cfg = cfg.Normalize()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inner.retune(cfg.Inner)
	p.outer.retune(cfg.Outer)
}

// Frame returns the current transforms without advancing.
func (p *Presenter) Frame() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Frame{Inner: p.inner.frame(), Outer: p.outer.frame()}
}

// Attach subscribes the presenter to a tracker.
func (p *Presenter) Attach(t *pointer.Tracker) func() {
	return t.Subscribe(p.Update)
}

// Normalize replaces non-physical layer settings with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	c.Inner = c.Inner.normalize(d.Inner)
	c.Outer = c.Outer.normalize(d.Outer)
	return c
}

func (l LayerConfig) normalize(d LayerConfig) LayerConfig {
	if l.Offset < 0 {
		l.Offset = d.Offset
	}
	if l.HoverScale <= 0 {
		l.HoverScale = d.HoverScale
	}
	if l.Stiffness <= 0 {
		l.Stiffness = d.Stiffness
	}
	if l.Damping <= 0 {
		l.Damping = d.Damping
	}
	return l
}
