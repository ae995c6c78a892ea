package speech

import (
	"log/slog"
	"sync"
)

// Slot is the single mount point through which external callers reach
// the mounted Controller. Speaking into an empty slot is a silent no-op.
type Slot struct {
	mu     sync.RWMutex
	c      *Controller
	logger *slog.Logger
}

// NewSlot creates an empty slot.
func NewSlot(logger *slog.Logger) *Slot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slot{logger: logger}
}

// Mount installs c, replacing any previous controller. The returned func
// unmounts c if it is still the mounted controller.
func (s *Slot) Mount(c *Controller) func() {
	s.mu.Lock()
	s.c = c
	s.mu.Unlock()
	s.logger.Debug("speech controller mounted")

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.c == c {
			s.c = nil
			s.logger.Debug("speech controller unmounted")
		}
	}
}

// Controller returns the mounted controller, or nil.
func (s *Slot) Controller() *Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c
}

// Speak forwards to the mounted controller.
func (s *Slot) Speak(text, audioURL string) {
	c := s.Controller()
	if c == nil {
		s.logger.Debug("speak ignored, no controller mounted")
		return
	}
	c.Speak(text, audioURL)
}
