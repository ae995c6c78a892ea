// Package bubble renders the speech bubble from utterance snapshots.
package bubble

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studybuddy/presence/pkg/clock"
	"github.com/studybuddy/presence/pkg/speech"
)

// DefaultBlinkPeriod is the caret on/off half cycle.
const DefaultBlinkPeriod = 500 * time.Millisecond

// Transition marks a visibility edge for the presenter to animate.
type Transition string

const (
	TransitionNone  Transition = ""
	TransitionEnter Transition = "enter"
	TransitionExit  Transition = "exit"
)

// View is what the bubble shows.
type View struct {
	SessionID  uuid.UUID  `json:"session_id"`
	Visible    bool       `json:"visible"`
	Text       string     `json:"text"`
	Typing     bool       `json:"typing"`
	Caret      bool       `json:"caret"`
	Transition Transition `json:"transition,omitempty"`
}

// Render maps a session to a view. The caret starts lit while typing.
func Render(s speech.Session) View {
	typing := s.Typing && s.Visible
	return View{
		SessionID: s.ID,
		Visible:   s.Visible,
		Text:      s.RevealedText(),
		Typing:    typing,
		Caret:     typing,
	}
}

// Presenter turns session snapshots into views and runs the caret blink.
type Presenter struct {
	clock  clock.Clock
	period time.Duration
	sink   func(View)

	mu    sync.Mutex
	view  View
	blink clock.Timer
	gen   uint64
}

// NewPresenter creates a presenter emitting views to sink.
func NewPresenter(clk clock.Clock, period time.Duration, sink func(View)) *Presenter {
	if clk == nil {
		clk = clock.New()
	}
	if period <= 0 {
		period = DefaultBlinkPeriod
	}
	if sink == nil {
		sink = func(View) {}
	}
	return &Presenter{clock: clk, period: period, sink: sink}
}

// Attach follows a controller. The returned func detaches and stops the
// caret.
func (p *Presenter) Attach(c *speech.Controller) func() {
	unsubscribe := c.Subscribe(p.Present)
	return func() {
		unsubscribe()
		p.mu.Lock()
		p.stopBlinkLocked()
		p.mu.Unlock()
	}
}

// Present applies a session snapshot.
func (p *Presenter) Present(s speech.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.view
	v := Render(s)
	switch {
	case v.Visible && (!prev.Visible || prev.SessionID != v.SessionID):
		v.Transition = TransitionEnter
	case !v.Visible && prev.Visible:
		v.Transition = TransitionExit
	}

	if v.Typing {
		if p.blink != nil && prev.SessionID == v.SessionID {
			v.Caret = prev.Caret
		} else {
			p.stopBlinkLocked()
			p.startBlinkLocked()
		}
	} else {
		p.stopBlinkLocked()
	}

	p.view = v
	p.sink(v)
}

// View returns the last emitted view.
func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Presenter) startBlinkLocked() {
	p.gen++
	gen := p.gen
	p.blink = p.clock.AfterFunc(p.period, func() { p.toggle(gen) })
}

func (p *Presenter) toggle(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || p.blink == nil || !p.view.Typing {
		return
	}
	p.view.Caret = !p.view.Caret
	p.view.Transition = TransitionNone
	p.startBlinkLocked()
	p.sink(p.view)
}

func (p *Presenter) stopBlinkLocked() {
	if p.blink != nil {
		p.blink.Stop()
		p.blink = nil
	}
	p.gen++
}
