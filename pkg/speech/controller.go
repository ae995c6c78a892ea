// Package speech coordinates utterances: the typewriter reveal of the
// bubble text, optional audio playback and the dismiss timer. A new
// Speak supersedes the current utterance and cancels all of its pending
// effects before anything of the new one starts.
package speech

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studybuddy/presence/pkg/audio"
	"github.com/studybuddy/presence/pkg/clock"
)

// Speaker is anything that accepts narration requests.
type Speaker interface {
	Speak(text, audioURL string)
}

// Controller owns the current Session. All mutation happens under mu;
// timer callbacks carry the ID of the session that armed them and do
// nothing once that session has been superseded.
type Controller struct {
	cfg    Config
	clock  clock.Clock
	player audio.Player
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cur    *utterance
	closed bool

	// notifyMu is taken before mu is released so observers see
	// snapshots in mutation order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	nextID   int
	subs     map[int]func(Session)
}

// New creates a controller. player may be nil for text-only narration.
func New(cfg Config, clk clock.Clock, player audio.Player, logger *slog.Logger) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:    cfg.Normalize(),
		clock:  clk,
		player: player,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]func(Session)),
	}
}

// Speak replaces the current utterance with text, optionally narrated by
// the audio at audioURL. It never fails: bad input is clamped and audio
// errors leave a text-only session.
func (c *Controller) Speak(text, audioURL string) {
	req := Sanitize(Request{Text: text, AudioURL: audioURL})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if prev := c.cur; prev != nil {
		prev.cancel()
		c.logger.Debug("utterance superseded", "id", prev.snap.ID, "revealed", prev.snap.Revealed)
	}

	now := c.clock.Now()
	n := utf8.RuneCountInString(req.Text)
	u := &utterance{snap: Session{
		ID:        uuid.New(),
		Text:      req.Text,
		Length:    n,
		Typing:    true,
		Visible:   true,
		Phase:     PhaseTyping,
		CreatedAt: now,
		DismissAt: now.Add(DisplayDuration(c.cfg, n)),
	}}
	c.cur = u
	id := u.snap.ID

	if req.AudioURL != "" && c.player != nil {
		h, err := c.player.Play(c.ctx, req.AudioURL)
		if err != nil {
			c.logger.Warn("audio unavailable, continuing text only", "id", id, "url", req.AudioURL, "error", err)
		} else {
			u.audio = h
			u.snap.AudioID = h.ID()
			go c.watchAudio(id, h)
		}
	}

	if n == 0 {
		u.snap.Typing = false
		u.snap.Phase = PhaseDisplayed
	} else {
		u.reveal = c.clock.AfterFunc(c.cfg.RevealInterval, func() { c.revealNext(id) })
	}
	u.dismiss = c.clock.AfterFunc(u.snap.DismissAt.Sub(now), func() { c.dismiss(id) })

	c.logger.Debug("utterance started", "id", id, "runes", n, "audio", u.snap.AudioID != "", "dismiss_in", u.snap.DismissAt.Sub(now))
	c.publishLocked(u.snap)
}

func (c *Controller) revealNext(id uuid.UUID) {
	c.mu.Lock()
	u := c.current(id)
	if u == nil || !u.snap.Typing {
		c.mu.Unlock()
		return
	}

	u.snap.Revealed++
	if u.snap.Revealed >= u.snap.Length {
		u.snap.Revealed = u.snap.Length
		u.snap.Typing = false
		u.snap.Phase = PhaseDisplayed
		u.reveal = nil
	} else {
		u.reveal = c.clock.AfterFunc(c.cfg.RevealInterval, func() { c.revealNext(id) })
	}
	c.publishLocked(u.snap)
}

func (c *Controller) dismiss(id uuid.UUID) {
	c.mu.Lock()
	u := c.current(id)
	if u == nil {
		c.mu.Unlock()
		return
	}

	if u.reveal != nil {
		u.reveal.Stop()
		u.reveal = nil
	}
	u.dismiss = nil
	u.snap.Visible = false
	u.snap.Typing = false
	u.snap.Phase = PhaseDismissed
	c.logger.Debug("utterance dismissed", "id", id, "revealed", u.snap.Revealed, "length", u.snap.Length)
	c.publishLocked(u.snap)
}

// watchAudio clears the handle when playback ends on its own.
func (c *Controller) watchAudio(id uuid.UUID, h audio.Handle) {
	<-h.Done()

	c.mu.Lock()
	u := c.current(id)
	if u == nil || u.audio != h {
		c.mu.Unlock()
		return
	}
	u.audio = nil
	u.snap.AudioID = ""
	c.publishLocked(u.snap)
}

// current returns the utterance if id is still current. Caller holds mu.
func (c *Controller) current(id uuid.UUID) *utterance {
	if c.closed || c.cur == nil || c.cur.snap.ID != id {
		return nil
	}
	return c.cur
}

// publishLocked releases mu and delivers s to observers in order.
func (c *Controller) publishLocked(s Session) {
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	c.subsMu.Lock()
	fns := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// SetConfig changes timing for later utterances and for the remaining
// reveal ticks of the current one. Its dismiss time is already fixed.
func (c *Controller) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg.Normalize()
}

// Current returns a snapshot of the current session. ok is false before
// the first Speak.
func (c *Controller) Current() (s Session, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return Session{}, false
	}
	return c.cur.snap, true
}

// Subscribe registers fn for every session change. Snapshots arrive in
// mutation order. fn must not call back into the Controller. The
// returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// Close cancels the current utterance, stops its audio and makes further
// Speak calls no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cur != nil {
		c.cur.cancel()
	}
	c.cancel()
}
