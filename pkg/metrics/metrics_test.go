package metrics

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/presence/pkg/speech"
)

func TestObserveSession(t *testing.T) {
	m := New()

	a := uuid.New()
	m.ObserveSession(speech.Session{ID: a, Phase: speech.PhaseTyping, AudioID: "x"})
	m.ObserveSession(speech.Session{ID: a, Phase: speech.PhaseTyping, Revealed: 1})
	m.ObserveSession(speech.Session{ID: a, Phase: speech.PhaseDisplayed})

	b := uuid.New()
	m.ObserveSession(speech.Session{ID: b, Phase: speech.PhaseTyping})
	m.ObserveSession(speech.Session{ID: b, Phase: speech.PhaseDismissed})
	m.ObserveSession(speech.Session{ID: b, Phase: speech.PhaseDismissed})

	m.ObserveSession(speech.Session{ID: uuid.New(), Phase: speech.PhaseDisplayed})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Utterances))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Superseded), "only a was replaced while showing")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dismissed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AudioStarted))
}

func TestGaugeFuncAndExposition(t *testing.T) {
	m := New()
	n := 2.0
	m.GaugeFunc("presence_presenters", "Connected presenters", func() float64 { return n })
	m.Inbound.WithLabelValues("speak").Inc()

	expected := `
# HELP presence_presenters Connected presenters
# TYPE presence_presenters gauge
presence_presenters 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "presence_presenters"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inbound.WithLabelValues("speak")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
