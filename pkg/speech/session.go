package speech

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studybuddy/presence/pkg/audio"
	"github.com/studybuddy/presence/pkg/clock"
)

// Phase is where a session is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTyping
	PhaseDisplayed
	PhaseDismissed
)

var phaseNames = [...]string{"idle", "typing", "displayed", "dismissed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Request is one call to Speak.
type Request struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Sanitize clamps a request to something safe to present: invalid UTF-8
// is replaced and unusable audio URLs are dropped.
func Sanitize(r Request) Request {
	if !utf8.ValidString(r.Text) {
		r.Text = strings.ToValidUTF8(r.Text, "\uFFFD")
	}
	r.AudioURL = strings.TrimSpace(r.AudioURL)
	if r.AudioURL != "" && audio.ValidateURL(r.AudioURL) != nil {
		r.AudioURL = ""
	}
	return r
}

// Session is a snapshot of the current utterance. Lengths count runes.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Length    int       `json:"length"`
	Revealed  int       `json:"revealed"`
	Typing    bool      `json:"typing"`
	Visible   bool      `json:"visible"`
	Phase     Phase     `json:"phase"`
	AudioID   string    `json:"audio_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	DismissAt time.Time `json:"dismiss_at"`
}

// RevealedText returns the part of Text revealed so far.
func (s Session) RevealedText() string {
	if s.Revealed <= 0 {
		return ""
	}
	n := 0
	for i := range s.Text {
		if n == s.Revealed {
			return s.Text[:i]
		}
		n++
	}
	return s.Text
}

// DisplayDuration is how long a session with n runes stays up.
func DisplayDuration(cfg Config, n int) time.Duration {
	d := time.Duration(n) * cfg.PerRune
	if d < cfg.MinDisplay {
		return cfg.MinDisplay
	}
	return d
}

// utterance is the controller-private state behind a Session.
type utterance struct {
	snap    Session
	reveal  clock.Timer
	dismiss clock.Timer
	audio   audio.Handle
}

// cancel stops every pending effect of the utterance.
func (u *utterance) cancel() {
	if u.reveal != nil {
		u.reveal.Stop()
		u.reveal = nil
	}
	if u.dismiss != nil {
		u.dismiss.Stop()
		u.dismiss = nil
	}
	if u.audio != nil {
		u.audio.Stop()
		u.audio = nil
		u.snap.AudioID = ""
	}
}
