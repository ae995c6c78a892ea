package stage

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/presence/pkg/clock"
	"github.com/studybuddy/presence/pkg/protocol"
	"github.com/studybuddy/presence/pkg/speech"
)

func newTestApp(t *testing.T) (*App, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	a := New(DefaultConfig(), fake, nil)
	t.Cleanup(a.Close)
	return a, fake
}

func message(t *testing.T, typ protocol.MessageType, data any) []byte {
	t.Helper()
	msg, err := protocol.NewMessage(typ, data)
	require.NoError(t, err)
	b, err := msg.Bytes()
	require.NoError(t, err)
	return b
}

func TestHandleMessage_Pointer(t *testing.T) {
	a, _ := newTestApp(t)

	a.HandleMessage(nil, message(t, protocol.TypePointerMove, protocol.PointerMoveData{X: 100, Y: 50}))
	assert.Equal(t, 100.0, a.Tracker.State().X)
	assert.Equal(t, 50.0, a.Tracker.State().Y)

	a.HandleMessage(nil, message(t, protocol.TypePointerOver, protocol.PointerOverData{Path: []string{"svg", "div[role=button]", "body"}}))
	assert.True(t, a.Tracker.Hovering())

	a.HandleMessage(nil, message(t, protocol.TypePointerOver, protocol.PointerOverData{Path: []string{"p", "body"}}))
	assert.False(t, a.Tracker.Hovering())
}

func TestHandleMessage_RegionDrivesLook(t *testing.T) {
	a, _ := newTestApp(t)

	a.HandleMessage(nil, message(t, protocol.TypeCharacterRegion, protocol.RegionData{Left: 0, Top: 0, Width: 200, Height: 200}))
	a.HandleMessage(nil, message(t, protocol.TypePointerMove, protocol.PointerMoveData{X: 200, Y: 100}))

	f := a.Animator.Tick(1.0 / 60)
	assert.InDelta(t, 1.0, f.Look.X, 1e-9)
	assert.Greater(t, f.State.RotationY, 0.0)

	snap := a.Snapshot()
	assert.Equal(t, f.State, snap.Character.State)
	assert.Greater(t, snap.Cursor.Inner.X, -12.0, "cursor steps with each frame")
}

func TestHandleMessage_Speak(t *testing.T) {
	a, fake := newTestApp(t)

	a.HandleMessage(nil, message(t, protocol.TypeSpeak, map[string]string{"text": "Hi!"}))
	sess, ok := a.Speech.Current()
	require.True(t, ok)
	assert.Equal(t, "Hi!", sess.Text)
	assert.Equal(t, speech.PhaseTyping, sess.Phase)

	fake.Advance(90 * time.Millisecond)
	v := a.Bubble.View()
	assert.Equal(t, "Hi!", v.Text)
	assert.False(t, v.Typing)

	fake.Advance(3 * time.Second)
	assert.False(t, a.Bubble.View().Visible)
}

func TestHandleMessage_SpeakClampsNonString(t *testing.T) {
	a, _ := newTestApp(t)

	a.HandleMessage(nil, message(t, protocol.TypeSpeak, map[string]any{"text": 7, "audio_url": true}))
	sess, ok := a.Speech.Current()
	require.True(t, ok)
	assert.Equal(t, "", sess.Text)
	assert.Empty(t, sess.AudioID)
	assert.Equal(t, speech.PhaseDisplayed, sess.Phase)
}

func TestHandleMessage_Malformed(t *testing.T) {
	a, _ := newTestApp(t)

	a.HandleMessage(nil, []byte(`{`))
	a.HandleMessage(nil, []byte(`{"data":{}}`))
	a.HandleMessage(nil, []byte(`{"type":"pointer.move","data":"nope"}`))
	a.HandleMessage(nil, []byte(`{"type":"unknown"}`))
	a.HandleMessage(nil, message(t, protocol.TypePing, nil))

	_, ok := a.Tracker.Sample()
	assert.False(t, ok)
	_, ok = a.Speech.Current()
	assert.False(t, ok)
}

func TestHandleMessage_AudioLifecycle(t *testing.T) {
	a, _ := newTestApp(t)

	a.Speak("Listen", "https://cdn.example.com/a.mp3")
	sess, ok := a.Speech.Current()
	require.True(t, ok)
	require.NotEmpty(t, sess.AudioID)
	assert.Equal(t, sess.AudioID, a.Player.Active())

	// Stale reports are ignored.
	a.HandleMessage(nil, message(t, protocol.TypeAudioEnded, protocol.AudioEventData{ID: "other"}))
	assert.Equal(t, sess.AudioID, a.Player.Active())

	a.HandleMessage(nil, message(t, protocol.TypeAudioFailed, protocol.AudioEventData{ID: sess.AudioID, Error: "decode"}))
	assert.Empty(t, a.Player.Active())
	assert.Eventually(t, func() bool {
		s, _ := a.Speech.Current()
		return s.AudioID == ""
	}, time.Second, 5*time.Millisecond)
}

func TestSupersedeStopsAudio(t *testing.T) {
	a, _ := newTestApp(t)

	a.Speak("one", "/one.mp3")
	first := a.Player.Active()
	a.Speak("two", "/two.mp3")
	second := a.Player.Active()

	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	sess, _ := a.Speech.Current()
	assert.Equal(t, "two", sess.Text)
}

func TestCloseUnmounts(t *testing.T) {
	a, _ := newTestApp(t)

	a.Speak("before", "/a.mp3")
	require.NotEmpty(t, a.Player.Active())

	a.Close()
	a.Close()
	assert.Nil(t, a.Slot.Controller())
	assert.Empty(t, a.Player.Active(), "closing stops playback")

	a.Speak("after", "")
	sess, _ := a.Speech.Current()
	assert.Equal(t, "before", sess.Text)
}

func TestMetricsFollowEngine(t *testing.T) {
	a, fake := newTestApp(t)

	a.HandleMessage(nil, message(t, protocol.TypeSpeak, map[string]string{"text": "one", "audio_url": "/1.mp3"}))
	a.Speak("two", "")
	fake.Advance(4 * time.Second)
	a.HandleMessage(nil, []byte(`garbage`))
	a.HandleMessage(nil, []byte(`{"type":"made.up"}`))
	a.Animator.Tick(1.0 / 60)

	m := a.Metrics
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Utterances))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Superseded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dismissed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AudioStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inbound.WithLabelValues("speak")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inbound.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inbound.WithLabelValues("unknown")))
}

func TestRetune(t *testing.T) {
	a, fake := newTestApp(t)

	cfg := DefaultConfig()
	cfg.Speech.RevealInterval = 100 * time.Millisecond
	a.Retune(cfg)

	a.Speak("abc", "")
	fake.Advance(90 * time.Millisecond)
	sess, _ := a.Speech.Current()
	assert.Equal(t, 0, sess.Revealed)
	fake.Advance(10 * time.Millisecond)
	sess, _ = a.Speech.Current()
	assert.Equal(t, 1, sess.Revealed)
}
