package character

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studybuddy/presence/pkg/clock"
	"github.com/studybuddy/presence/pkg/pointer"
)

// Frame is published after every tick.
type Frame struct {
	DT     float64        `json:"dt"` // seconds since the previous frame
	State  AnimationState `json:"state"`
	Look   LookVector     `json:"look"`
	Figure Figure         `json:"figure"`
}

// Animator owns the AnimationState and the current look target.
type Animator struct {
	mu     sync.Mutex
	tuning Tuning
	region Region
	view   ViewConstraints
	state  AnimationState
	look   LookVector

	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	subsMu sync.Mutex
	nextID int
	subs   map[int]func(Frame)
}

// NewAnimator creates an animator ticking at fps frames per second.
func NewAnimator(tun Tuning, fps int, clk clock.Clock, logger *slog.Logger) *Animator {
	if fps <= 0 {
		fps = 60
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Animator{
		tuning:   tun.Normalize(),
		view:     DefaultViewConstraints(),
		clock:    clk,
		interval: time.Second / time.Duration(fps),
		logger:   logger,
		subs:     make(map[int]func(Frame)),
	}
}

// SetTuning replaces the animation constants from the next tick on.
func (a *Animator) SetTuning(t Tuning) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tuning = t.Normalize()
}

// SetRegion updates the character viewport bounds.
func (a *Animator) SetRegion(r Region) {
	a.mu.Lock()
	a.region = r
	a.mu.Unlock()
}

// Region returns the character viewport bounds.
func (a *Animator) Region() Region {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.region
}

// View returns the camera constraints.
func (a *Animator) View() ViewConstraints {
	return a.view
}

// PointAt handles a pointer sample in page coordinates. Samples outside
// the character region are ignored; the last look target is kept.
func (a *Animator) PointAt(x, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.region.Contains(x, y) {
		return
	}
	a.look = a.region.Normalize(x, y)
}

// SetLook sets the look target directly, clamped to [-1, 1].
func (a *Animator) SetLook(v LookVector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.look = Region{Width: 2, Height: 2}.Normalize(v.X+1, v.Y+1)
}

// Attach follows pointer samples from a tracker.
func (a *Animator) Attach(t *pointer.Tracker) func() {
	return t.Subscribe(func(s pointer.Sample) { a.PointAt(s.X, s.Y) })
}

// Tick advances the animation by dt seconds and publishes the frame.
func (a *Animator) Tick(dt float64) Frame {
	a.mu.Lock()
	a.state = Step(a.state, dt, a.look, a.tuning)
	f := Frame{DT: dt, State: a.state, Look: a.look, Figure: Pose(a.state, a.tuning)}
	a.mu.Unlock()

	a.publish(f)
	return f
}

// State returns the current animation state.
func (a *Animator) State() AnimationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe registers fn for every frame.
func (a *Animator) Subscribe(fn func(Frame)) func() {
	a.subsMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.subsMu.Unlock()
	return func() {
		a.subsMu.Lock()
		delete(a.subs, id)
		a.subsMu.Unlock()
	}
}

func (a *Animator) publish(f Frame) {
	a.subsMu.Lock()
	fns := make([]func(Frame), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subsMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}

// Run drives Tick from the clock until ctx is cancelled.
func (a *Animator) Run(ctx context.Context) error {
	last := a.clock.Now()
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("animator started", "interval", a.interval)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("animator stopped")
			return nil
		case now := <-ticker.C():
			dt := now.Sub(last).Seconds()
			last = now
			a.Tick(dt)
		}
	}
}
