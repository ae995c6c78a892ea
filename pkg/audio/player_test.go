package audio

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/presence/pkg/protocol"
)

type recorder struct {
	mu        sync.Mutex
	msgs      []*protocol.Message
	err       error
	dropStops int // number of audio.stop messages to reject
}

func (r *recorder) BroadcastJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if m, ok := v.(*protocol.Message); ok && m.Type == protocol.TypeAudioStop && r.dropStops > 0 {
		r.dropStops--
		return errors.New("queue full")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) types() []protocol.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []protocol.MessageType
	for _, m := range r.msgs {
		out = append(out, m.Type)
	}
	return out
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://cdn.example.com/a.mp3", true},
		{"http://localhost:8080/tts?id=1", true},
		{"/audio/greeting.mp3", true},
		{"", false},
		{"javascript:alert(1)", false},
		{"file:///etc/passwd", false},
		{"https://", false},
		{"greeting.mp3", false},
		{"http://[::1", false},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.ok {
			assert.NoError(t, err, tt.url)
		} else {
			assert.ErrorIs(t, err, ErrInvalidURL, tt.url)
		}
	}
}

func TestRemotePlayer_NewPlayStopsPrevious(t *testing.T) {
	out := &recorder{}
	p := NewRemotePlayer(out, nil)

	a, err := p.Play(context.Background(), "/a.mp3")
	require.NoError(t, err)
	b, err := p.Play(context.Background(), "/b.mp3")
	require.NoError(t, err)

	assert.Equal(t, []protocol.MessageType{
		protocol.TypeAudioPlay, protocol.TypeAudioStop, protocol.TypeAudioPlay,
	}, out.types())

	select {
	case <-a.Done():
	default:
		t.Fatal("first handle should be released")
	}
	assert.Equal(t, b.ID(), p.Active())

	var stop protocol.AudioStopData
	require.NoError(t, out.msgs[1].ParseData(&stop))
	assert.Equal(t, a.ID(), stop.ID)
}

func TestRemotePlayer_StopIsIdempotent(t *testing.T) {
	out := &recorder{}
	p := NewRemotePlayer(out, nil)
	h, err := p.Play(context.Background(), "/a.mp3")
	require.NoError(t, err)

	h.Stop()
	h.Stop()
	assert.Len(t, out.types(), 2)
	assert.Empty(t, p.Active())
}

func TestRemotePlayer_EndedReleases(t *testing.T) {
	out := &recorder{}
	p := NewRemotePlayer(out, nil)
	h, err := p.Play(context.Background(), "/a.mp3")
	require.NoError(t, err)

	p.Ended("someone-else")
	assert.Equal(t, h.ID(), p.Active())

	p.Failed(h.ID(), "decode error")
	<-h.Done()
	assert.Empty(t, p.Active())

	// Stopping after natural completion sends nothing.
	h.Stop()
	assert.Len(t, out.types(), 1)
}

func TestRemotePlayer_Errors(t *testing.T) {
	_, err := NewRemotePlayer(nil, nil).Play(context.Background(), "/a.mp3")
	assert.ErrorIs(t, err, ErrNoOutput)

	_, err = NewRemotePlayer(&recorder{}, nil).Play(context.Background(), "ftp://x/a.mp3")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewRemotePlayer(&recorder{err: errors.New("closed")}, nil).Play(context.Background(), "/a.mp3")
	assert.ErrorIs(t, err, ErrPlaybackFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRemotePlayer(&recorder{}, nil).Play(ctx, "/a.mp3")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockPlayer_SingleActive(t *testing.T) {
	m := NewMockPlayer()
	_, err := m.Play(context.Background(), "/a.mp3")
	require.NoError(t, err)
	_, err = m.Play(context.Background(), "/b.mp3")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Playing())
	assert.Equal(t, []Event{
		{Op: "play", ID: "mock-1", URL: "/a.mp3"},
		{Op: "stop", ID: "mock-1"},
		{Op: "play", ID: "mock-2", URL: "/b.mp3"},
	}, m.Events())

	m.Finish()
	assert.Equal(t, 0, m.Playing())
}

func TestRemotePlayer_UndeliveredStopBlocksNextPlay(t *testing.T) {
	rec := &recorder{}
	p := NewRemotePlayer(rec, nil)
	ctx := context.Background()

	first, err := p.Play(ctx, "/a.mp3")
	require.NoError(t, err)

	rec.mu.Lock()
	rec.dropStops = 2
	rec.mu.Unlock()

	// Stop for a.mp3 is dropped, and so is the retry: b.mp3 must not start.
	_, err = p.Play(ctx, "/b.mp3")
	assert.ErrorIs(t, err, ErrPlaybackFailed)
	assert.Empty(t, p.Active())
	assert.Equal(t, []protocol.MessageType{protocol.TypeAudioPlay}, rec.types())
	select {
	case <-first.Done():
	default:
		t.Fatal("superseded handle was not released")
	}

	// The retry goes through before c.mp3 starts.
	third, err := p.Play(ctx, "/c.mp3")
	require.NoError(t, err)
	assert.Equal(t, third.ID(), p.Active())
	assert.Equal(t, []protocol.MessageType{
		protocol.TypeAudioPlay, protocol.TypeAudioStop, protocol.TypeAudioPlay,
	}, rec.types())

	rec.mu.Lock()
	var stop protocol.AudioStopData
	require.NoError(t, rec.msgs[1].ParseData(&stop))
	rec.mu.Unlock()
	assert.Equal(t, first.ID(), stop.ID)
}

func TestRemotePlayer_EndedClearsUndeliveredStop(t *testing.T) {
	rec := &recorder{}
	p := NewRemotePlayer(rec, nil)
	ctx := context.Background()

	first, err := p.Play(ctx, "/a.mp3")
	require.NoError(t, err)
	rec.mu.Lock()
	rec.dropStops = 1
	rec.mu.Unlock()
	first.Stop()

	// The presenter reports a.mp3 finished, so no stop is owed anymore.
	p.Ended(first.ID())
	_, err = p.Play(ctx, "/b.mp3")
	require.NoError(t, err)
	assert.Equal(t, []protocol.MessageType{protocol.TypeAudioPlay, protocol.TypeAudioPlay}, rec.types())
}
