package audio

import (
	"context"
	"fmt"
	"sync"
)

// Event is one call observed by MockPlayer.
type Event struct {
	Op  string // "play" or "stop"
	ID  string
	URL string
}

// MockPlayer records playback for testing. It enforces the single
// active handle rule the same way RemotePlayer does.
type MockPlayer struct {
	mu     sync.Mutex
	seq    int
	events []Event
	active *mockHandle

	// Err, when set, is returned by Play and nothing is started.
	Err error
}

// NewMockPlayer creates a new mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records a play event.
func (m *MockPlayer) Play(ctx context.Context, rawURL string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.active != nil {
		m.stopLocked(m.active)
	}
	m.seq++
	h := &mockHandle{player: m, id: fmt.Sprintf("mock-%d", m.seq), done: make(chan struct{})}
	m.active = h
	m.events = append(m.events, Event{Op: "play", ID: h.id, URL: rawURL})
	return h, nil
}

// Finish simulates natural completion of the active handle.
func (m *MockPlayer) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	close(m.active.done)
	m.active.released = true
	m.active = nil
}

// Events returns a copy of the recorded events.
func (m *MockPlayer) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Playing reports how many handles are currently active (0 or 1).
func (m *MockPlayer) Playing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0
	}
	return 1
}

func (m *MockPlayer) stopLocked(h *mockHandle) {
	if h.released {
		return
	}
	h.released = true
	close(h.done)
	if m.active == h {
		m.active = nil
	}
	m.events = append(m.events, Event{Op: "stop", ID: h.id})
}

type mockHandle struct {
	player   *MockPlayer
	id       string
	released bool
	done     chan struct{}
}

func (h *mockHandle) ID() string            { return h.id }
func (h *mockHandle) Done() <-chan struct{} { return h.done }

func (h *mockHandle) Stop() {
	h.player.mu.Lock()
	defer h.player.mu.Unlock()
	h.player.stopLocked(h)
}
