// Package stage wires the presence components together: pointer input,
// cursor overlay, character animation and the speech bubble, with a
// WebSocket hub carrying their state to the presenters.
package stage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studybuddy/presence/pkg/audio"
	"github.com/studybuddy/presence/pkg/bubble"
	"github.com/studybuddy/presence/pkg/character"
	"github.com/studybuddy/presence/pkg/clock"
	"github.com/studybuddy/presence/pkg/cursor"
	"github.com/studybuddy/presence/pkg/hub"
	"github.com/studybuddy/presence/pkg/metrics"
	"github.com/studybuddy/presence/pkg/pointer"
	"github.com/studybuddy/presence/pkg/protocol"
	"github.com/studybuddy/presence/pkg/speech"
)

// Config holds everything App needs to build its components.
type Config struct {
	FrameRate   int
	BlinkPeriod time.Duration
	Cursor      cursor.Config
	Character   character.Tuning
	Speech      speech.Config
}

// DefaultConfig returns stock settings.
func DefaultConfig() Config {
	return Config{
		FrameRate:   60,
		BlinkPeriod: bubble.DefaultBlinkPeriod,
		Cursor:      cursor.DefaultConfig(),
		Character:   character.DefaultTuning(),
		Speech:      speech.DefaultConfig(),
	}
}

// Snapshot is the full presentational state at one instant.
type Snapshot struct {
	Pointer   pointer.Sample            `json:"pointer"`
	Cursor    cursor.Frame              `json:"cursor"`
	Character character.Frame           `json:"character"`
	View      character.ViewConstraints `json:"view"`
	Bubble    bubble.View               `json:"bubble"`
	Session   *speech.Session           `json:"session,omitempty"`
	Clients   int                       `json:"clients"`
}

// App owns one instance of every component. Construct it once and pass
// it to whatever needs to speak or observe.
type App struct {
	logger *slog.Logger

	Tracker  *pointer.Tracker
	Cursor   *cursor.Presenter
	Animator *character.Animator
	Speech   *speech.Controller
	Slot     *speech.Slot
	Bubble   *bubble.Presenter
	Player   *audio.RemotePlayer
	Hub      *hub.Hub
	Metrics  *metrics.Metrics

	mu       sync.RWMutex
	lastChar character.Frame
	lastCur  cursor.Frame

	detach []func()
}

// New builds the component graph. clk may be nil for the wall clock.
func New(cfg Config, clk clock.Clock, logger *slog.Logger) *App {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{logger: logger}
	a.Hub = hub.New("presence", logger)
	a.Player = audio.NewRemotePlayer(a.Hub, logger.With("component", "audio"))
	a.Tracker = pointer.NewTracker()
	a.Cursor = cursor.NewPresenter(cfg.Cursor)
	a.Animator = character.NewAnimator(cfg.Character, cfg.FrameRate, clk, logger.With("component", "character"))
	a.Speech = speech.New(cfg.Speech, clk, a.Player, logger.With("component", "speech"))
	a.Slot = speech.NewSlot(logger.With("component", "speech"))
	a.Bubble = bubble.NewPresenter(clk, cfg.BlinkPeriod, a.publishBubble)
	a.Metrics = metrics.New()
	a.Metrics.GaugeFunc("presence_presenters", "Connected presenters", func() float64 {
		return float64(a.Hub.ClientCount())
	})

	a.detach = append(a.detach,
		a.Cursor.Attach(a.Tracker),
		a.Animator.Attach(a.Tracker),
		a.Bubble.Attach(a.Speech),
		a.Speech.Subscribe(a.Metrics.ObserveSession),
		a.Animator.Subscribe(a.onFrame),
		a.Slot.Mount(a.Speech),
	)
	return a
}

// Retune applies new cursor, character and speech tuning to the running
// components. FrameRate and BlinkPeriod are fixed at construction.
func (a *App) Retune(cfg Config) {
	a.Cursor.Retune(cfg.Cursor)
	a.Animator.SetTuning(cfg.Character)
	a.Speech.SetConfig(cfg.Speech)
	a.logger.Info("tuning applied")
}

// Speak narrates through the mounted controller.
func (a *App) Speak(text, audioURL string) {
	a.Slot.Speak(text, audioURL)
}

// Run drives the hub and the render loop until ctx is cancelled, then
// unmounts the speech controller.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Hub.Run(ctx) })
	g.Go(func() error { return a.Animator.Run(ctx) })
	err := g.Wait()
	a.Close()
	return err
}

// Close unmounts and releases everything. It is safe to call twice.
func (a *App) Close() {
	a.mu.Lock()
	detach := a.detach
	a.detach = nil
	a.mu.Unlock()
	for i := len(detach) - 1; i >= 0; i-- {
		detach[i]()
	}
	a.Speech.Close()
}

// onFrame runs once per render tick.
func (a *App) onFrame(f character.Frame) {
	cf := a.Cursor.Step(f.DT)
	a.Metrics.Frames.Inc()

	a.mu.Lock()
	a.lastChar = f
	a.lastCur = cf
	a.mu.Unlock()

	if a.Hub.ClientCount() == 0 {
		return
	}
	a.broadcast(protocol.TypeCharacter, f)
	a.broadcast(protocol.TypeCursor, cf)
}

func (a *App) publishBubble(v bubble.View) {
	a.broadcast(protocol.TypeBubble, v)
}

func (a *App) broadcast(t protocol.MessageType, data any) {
	msg, err := protocol.NewMessage(t, data)
	var b []byte
	if err == nil {
		b, err = msg.Bytes()
	}
	if err != nil {
		a.logger.Error("encode message", "type", t, "error", err)
		return
	}
	if err := a.Hub.Broadcast(b); err != nil {
		a.logger.Debug("broadcast dropped", "type", t, "error", err)
	}
}

// Snapshot returns the current presentational state.
func (a *App) Snapshot() Snapshot {
	sample, _ := a.Tracker.Sample()
	a.mu.RLock()
	s := Snapshot{
		Pointer:   sample,
		Cursor:    a.lastCur,
		Character: a.lastChar,
		View:      a.Animator.View(),
		Bubble:    a.Bubble.View(),
		Clients:   a.Hub.ClientCount(),
	}
	a.mu.RUnlock()
	if sess, ok := a.Speech.Current(); ok {
		s.Session = &sess
	}
	return s
}

// HandleMessage applies one inbound presenter message. Unknown or
// malformed messages are logged and dropped.
func (a *App) HandleMessage(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		a.logger.Debug("bad presenter message", "error", err)
		a.Metrics.Inbound.WithLabelValues("invalid").Inc()
		return
	}
	a.Metrics.Inbound.WithLabelValues(inboundLabel(msg.Type)).Inc()

	switch msg.Type {
	case protocol.TypePointerMove:
		var d protocol.PointerMoveData
		if err := msg.ParseData(&d); err != nil {
			a.logger.Debug("bad pointer move", "error", err)
			return
		}
		a.Tracker.Move(d.X, d.Y)

	case protocol.TypePointerOver:
		var d protocol.PointerOverData
		if err := msg.ParseData(&d); err != nil {
			a.logger.Debug("bad pointer over", "error", err)
			return
		}
		a.Tracker.Over(pointer.Path(d.Path...))

	case protocol.TypeCharacterRegion:
		var d protocol.RegionData
		if err := msg.ParseData(&d); err != nil {
			a.logger.Debug("bad region", "error", err)
			return
		}
		a.Animator.SetRegion(character.Region(d))

	case protocol.TypeSpeak:
		var d protocol.SpeakData
		if err := msg.ParseData(&d); err != nil {
			d = protocol.SpeakData{}
		}
		a.Speak(protocol.StringOrEmpty(d.Text), protocol.StringOrEmpty(d.AudioURL))

	case protocol.TypeAudioEnded, protocol.TypeAudioFailed:
		var d protocol.AudioEventData
		if err := msg.ParseData(&d); err != nil {
			return
		}
		if msg.Type == protocol.TypeAudioFailed {
			a.Metrics.AudioFailures.Inc()
			a.Player.Failed(d.ID, d.Error)
		} else {
			a.Player.Ended(d.ID)
		}

	case protocol.TypePing:
		if c == nil {
			return
		}
		pong, err := protocol.NewPongMessage()
		if err == nil {
			err = c.SendJSON(pong)
		}
		if err != nil {
			a.logger.Debug("pong not sent", "client", c.ID(), "error", err)
		}

	default:
		a.logger.Debug("unhandled presenter message", "type", msg.Type)
	}
}

// inboundLabel bounds the label set to the known presenter messages.
func inboundLabel(t protocol.MessageType) string {
	switch t {
	case protocol.TypePointerMove, protocol.TypePointerOver, protocol.TypeCharacterRegion,
		protocol.TypeSpeak, protocol.TypeAudioEnded, protocol.TypeAudioFailed, protocol.TypePing:
		return string(t)
	}
	return "unknown"
}

// Greet sends the current bubble to a newly joined presenter.
func (a *App) Greet(c *hub.Client) {
	msg, err := protocol.NewMessage(protocol.TypeBubble, a.Bubble.View())
	if err == nil {
		err = c.SendJSON(msg)
	}
	if err != nil {
		a.logger.Debug("greeting not sent", "client", c.ID(), "error", err)
	}
}
