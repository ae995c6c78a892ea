// Package metrics exposes engine counters in Prometheus format.
package metrics

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/studybuddy/presence/pkg/speech"
)

// Metrics holds one registry per engine so tests can build several.
type Metrics struct {
	reg *prometheus.Registry

	Utterances    prometheus.Counter
	Superseded    prometheus.Counter
	Dismissed     prometheus.Counter
	AudioStarted  prometheus.Counter
	AudioFailures prometheus.Counter
	Frames        prometheus.Counter
	Inbound       *prometheus.CounterVec

	mu    sync.Mutex
	last  uuid.UUID
	phase speech.Phase
}

// New registers the engine metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Utterances: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_utterances_total",
			Help: "Utterances started",
		}),
		Superseded: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_utterances_superseded_total",
			Help: "Utterances replaced before their dismiss timer fired",
		}),
		Dismissed: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_utterances_dismissed_total",
			Help: "Utterances hidden by their dismiss timer",
		}),
		AudioStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_audio_started_total",
			Help: "Utterances that started narration audio",
		}),
		AudioFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_audio_failures_total",
			Help: "Playback failures reported by presenters",
		}),
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_frames_total",
			Help: "Render frames produced",
		}),
		Inbound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_inbound_messages_total",
			Help: "Presenter messages received, by type",
		}, []string{"type"}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}

// ObserveSession follows the speech controller's snapshots and counts
// lifecycle edges.
func (m *Metrics) ObserveSession(s speech.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID != m.last {
		if m.last != uuid.Nil && m.phase != speech.PhaseDismissed {
			m.Superseded.Inc()
		}
		m.Utterances.Inc()
		if s.AudioID != "" {
			m.AudioStarted.Inc()
		}
		m.last = s.ID
		m.phase = s.Phase
	}
	if s.Phase == speech.PhaseDismissed && m.phase != speech.PhaseDismissed {
		m.Dismissed.Inc()
	}
	m.phase = s.Phase
}
