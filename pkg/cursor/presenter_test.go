package cursor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studybuddy/presence/pkg/pointer"
)

const frame = 1.0 / 60.0

func run(p *Presenter, seconds float64) Frame {
	var f Frame
	for t := 0.0; t < seconds; t += frame {
		f = p.Step(frame)
	}
	return f
}

func TestPresenter_ConvergesToCenteredPointer(t *testing.T) {
	p := NewPresenter(DefaultConfig())
	p.Update(pointer.Sample{State: pointer.State{X: 100, Y: 200}})

	f := run(p, 2)
	assert.InDelta(t, 88, f.Inner.X, 1e-3)
	assert.InDelta(t, 188, f.Inner.Y, 1e-3)
	assert.InDelta(t, 76, f.Outer.X, 1e-3)
	assert.InDelta(t, 176, f.Outer.Y, 1e-3)
	assert.InDelta(t, 1, f.Inner.Scale, 1e-3)
}

func TestPresenter_ZeroConfigStillMoves(t *testing.T) {
	p := NewPresenter(Config{})
	p.Update(pointer.Sample{State: pointer.State{X: 100, Y: 200}, Hovering: true})

	// Zero offsets are legal; zero stiffness and scale fall back to defaults.
	f := run(p, 3)
	assert.InDelta(t, 100, f.Inner.X, 1e-3)
	assert.InDelta(t, 200, f.Outer.Y, 1e-3)
	assert.InDelta(t, DefaultConfig().Inner.HoverScale, f.Inner.Scale, 1e-3)
}

func TestPresenter_NoInstantJump(t *testing.T) {
	p := NewPresenter(DefaultConfig())
	p.Update(pointer.Sample{State: pointer.State{X: 500, Y: 500}})

	f := p.Step(frame)
	assert.Less(t, f.Inner.X, 488.0/2, "one frame must not cover most of the distance")
	assert.Greater(t, f.Inner.X, -12.0)
}

func TestPresenter_OuterLags(t *testing.T) {
	p := NewPresenter(DefaultConfig())
	p.Update(pointer.Sample{State: pointer.State{X: 300, Y: 0}})

	f := run(p, 0.1)
	innerProgress := (f.Inner.X + 12) / 300
	outerProgress := (f.Outer.X + 24) / 300
	assert.Greater(t, innerProgress, outerProgress)
}

func TestPresenter_HoverScale(t *testing.T) {
	p := NewPresenter(DefaultConfig())
	p.Update(pointer.Sample{State: pointer.State{X: 10, Y: 10}, Hovering: true})

	f := run(p, 2)
	assert.InDelta(t, 1.5, f.Inner.Scale, 1e-3)
	assert.InDelta(t, 2.0, f.Outer.Scale, 1e-3)

	p.Update(pointer.Sample{State: pointer.State{X: 10, Y: 10}})
	f = run(p, 2)
	assert.InDelta(t, 1.0, f.Outer.Scale, 1e-3)
}

func TestPresenter_AttachFollowsTracker(t *testing.T) {
	tr := pointer.NewTracker()
	p := NewPresenter(DefaultConfig())
	detach := p.Attach(tr)
	defer detach()

	tr.Move(40, 40)
	tr.Over(pointer.Path("span", "button"))
	f := run(p, 2)
	assert.InDelta(t, 28, f.Inner.X, 1e-3)
	assert.InDelta(t, 1.5, f.Inner.Scale, 1e-3)
}

func TestSpring_LargeStepStaysStable(t *testing.T) {
	s := NewSpring(400, 30, 0)
	s.Target = 1
	s.Step(0.5)
	assert.False(t, math.IsNaN(s.Value))
	assert.Less(t, math.Abs(s.Value-1), 0.1)
}

func TestSpring_DampingRatio(t *testing.T) {
	s := NewSpring(400, 40, 0)
	assert.InDelta(t, 1.0, s.DampingRatio(), 1e-9)
}
