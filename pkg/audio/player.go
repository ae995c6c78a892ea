// Package audio manages the single audio output channel. At most one
// Handle is active at a time; starting a new one stops the previous one
// first.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/studybuddy/presence/pkg/protocol"
)

// Handle is an opaque reference to one playing resource.
type Handle interface {
	// ID identifies the handle on the wire.
	ID() string

	// Stop halts playback and releases the resource. It is synchronous
	// and safe to call more than once.
	Stop()

	// Done is closed once the handle is released, either by Stop or by
	// natural completion.
	Done() <-chan struct{}
}

// Player starts playback of a resource.
type Player interface {
	Play(ctx context.Context, rawURL string) (Handle, error)
}

// ValidateURL accepts absolute http(s) URLs and site-relative paths.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidURL)
		}
		return nil
	case "":
		if u.Host == "" && len(u.Path) > 0 && u.Path[0] == '/' {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported %q", ErrInvalidURL, rawURL)
}

// Broadcaster delivers an encoded message to the presenters.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// RemotePlayer plays audio in the connected presenters. The engine only
// tracks which handle is active; decoding happens client side.
type RemotePlayer struct {
	out    Broadcaster
	logger *slog.Logger

	mu     sync.Mutex
	active *remoteHandle
	// unstopped is a released handle whose audio.stop was not delivered.
	// Presenters may still be playing it.
	unstopped string
}

// NewRemotePlayer creates a player that sends commands through out.
func NewRemotePlayer(out Broadcaster, logger *slog.Logger) *RemotePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemotePlayer{out: out, logger: logger}
}

// Play stops the active handle, if any, and starts rawURL.
func (p *RemotePlayer) Play(ctx context.Context, rawURL string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if p.out == nil {
		return nil, ErrNoOutput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		p.stopLocked(p.active)
	}
	if p.unstopped != "" && !p.sendStopLocked(p.unstopped) {
		return nil, fmt.Errorf("%w: previous handle %s not stopped", ErrPlaybackFailed, p.unstopped)
	}

	h := &remoteHandle{player: p, id: uuid.NewString(), done: make(chan struct{})}
	msg, err := protocol.NewAudioPlayMessage(h.id, rawURL)
	if err != nil {
		return nil, fmt.Errorf("encode play: %w", err)
	}
	if err := p.out.BroadcastJSON(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaybackFailed, err)
	}
	p.active = h
	p.logger.Debug("audio play", "id", h.id, "url", rawURL)
	return h, nil
}

// Ended marks id as finished. Reports for stale handles are ignored.
func (p *RemotePlayer) Ended(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id != "" && id == p.unstopped {
		p.unstopped = ""
		return
	}
	if p.active == nil || p.active.id != id {
		return
	}
	p.active.release()
	p.active = nil
	p.logger.Debug("audio ended", "id", id)
}

// Failed records a client-side playback failure and releases id.
func (p *RemotePlayer) Failed(id, reason string) {
	p.logger.Warn("audio playback failed", "id", id, "reason", reason)
	p.Ended(id)
}

// Active returns the ID of the playing handle, or "".
func (p *RemotePlayer) Active() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return ""
	}
	return p.active.id
}

func (p *RemotePlayer) stopLocked(h *remoteHandle) {
	if !h.release() {
		return
	}
	if p.active == h {
		p.active = nil
	}
	if p.sendStopLocked(h.id) {
		p.logger.Debug("audio stop", "id", h.id)
	}
}

// sendStopLocked broadcasts audio.stop for id. An undelivered stop is
// remembered so the next Play retries it before starting anything.
func (p *RemotePlayer) sendStopLocked(id string) bool {
	msg, err := protocol.NewAudioStopMessage(id)
	if err == nil {
		err = p.out.BroadcastJSON(msg)
	}
	if err != nil {
		p.unstopped = id
		p.logger.Warn("audio stop not delivered", "id", id, "error", err)
		return false
	}
	if p.unstopped == id {
		p.unstopped = ""
	}
	return true
}

type remoteHandle struct {
	player *RemotePlayer
	id     string
	once   sync.Once
	done   chan struct{}
}

func (h *remoteHandle) ID() string            { return h.id }
func (h *remoteHandle) Done() <-chan struct{} { return h.done }

func (h *remoteHandle) Stop() {
	h.player.mu.Lock()
	defer h.player.mu.Unlock()
	h.player.stopLocked(h)
}

// release closes done and reports whether this call did it.
func (h *remoteHandle) release() bool {
	released := false
	h.once.Do(func() {
		close(h.done)
		released = true
	})
	return released
}
