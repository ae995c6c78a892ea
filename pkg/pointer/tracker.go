// Package pointer tracks the latest pointer position and whether the
// pointer is resting over an interactive element.
package pointer

import (
	"strings"
	"sync"
)

// State is the latest pointer sample in viewport coordinates.
type State struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is what subscribers receive on every update.
type Sample struct {
	State
	Hovering bool `json:"hovering"`
}

// Element is a node in the display tree. Parent returns nil at the root.
type Element interface {
	Tag() string
	Role() string
	Parent() Element
}

// Node is a simple Element implementation.
type Node struct {
	Name string
	Aria string
	Up   *Node
}

// Tag returns the element name.
func (n *Node) Tag() string { return n.Name }

// Role returns the ARIA role, if any.
func (n *Node) Role() string { return n.Aria }

// Parent returns the enclosing element.
func (n *Node) Parent() Element {
	if n.Up == nil {
		return nil
	}
	return n.Up
}

// Path builds an element chain from tags listed target first, root last.
// A tag may carry a role as "div[role=button]".
func Path(tags ...string) Element {
	var cur *Node
	for i := len(tags) - 1; i >= 0; i-- {
		n := parseTag(tags[i])
		n.Up = cur
		cur = n
	}
	if cur == nil {
		return nil
	}
	return cur
}

func parseTag(s string) *Node {
	name, rest, ok := strings.Cut(s, "[")
	n := &Node{Name: strings.TrimSpace(name)}
	if ok {
		attr := strings.TrimSuffix(rest, "]")
		if k, v, found := strings.Cut(attr, "="); found && strings.EqualFold(k, "role") {
			n.Aria = strings.Trim(v, `"'`)
		}
	}
	return n
}

// Interactive reports whether a single element is button-like or link-like.
func Interactive(el Element) bool {
	switch strings.ToLower(el.Tag()) {
	case "button", "a":
		return true
	}
	switch strings.ToLower(el.Role()) {
	case "button", "link":
		return true
	}
	return false
}

// Classify reports whether el or any ancestor up to the root is interactive.
func Classify(el Element) bool {
	for ; el != nil; el = el.Parent() {
		if Interactive(el) {
			return true
		}
	}
	return false
}

// Tracker holds the process-wide pointer state. Each sample overwrites
// the previous one; nothing is queued.
type Tracker struct {
	mu       sync.RWMutex
	state    State
	hovering bool
	seen     bool

	subsMu sync.Mutex
	nextID int
	subs   map[int]func(Sample)
}

// NewTracker creates a tracker at the origin with no hover.
func NewTracker() *Tracker {
	return &Tracker{subs: make(map[int]func(Sample))}
}

// Move records a pointer-move sample.
func (t *Tracker) Move(x, y float64) {
	t.mu.Lock()
	t.state = State{X: x, Y: y}
	t.seen = true
	s := Sample{State: t.state, Hovering: t.hovering}
	t.mu.Unlock()
	t.notify(s)
}

// Over records a pointer-over event for target.
func (t *Tracker) Over(target Element) {
	hovering := Classify(target)
	t.mu.Lock()
	t.hovering = hovering
	s := Sample{State: t.state, Hovering: hovering}
	t.mu.Unlock()
	t.notify(s)
}

// State returns the latest pointer position.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Hovering returns the latest hover classification.
func (t *Tracker) Hovering() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hovering
}

// Sample returns the latest position and hover classification, and
// whether any move has been observed yet.
func (t *Tracker) Sample() (Sample, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Sample{State: t.state, Hovering: t.hovering}, t.seen
}

// Subscribe registers fn for every update. Calls are synchronous with
// Move and Over. The returned func removes the subscription.
func (t *Tracker) Subscribe(fn func(Sample)) func() {
	t.subsMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subsMu.Unlock()
	return func() {
		t.subsMu.Lock()
		delete(t.subs, id)
		t.subsMu.Unlock()
	}
}

func (t *Tracker) notify(s Sample) {
	t.subsMu.Lock()
	fns := make([]func(Sample), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
