// Package character animates the hero figure: an idle bob plus a head
// turn that follows the pointer.
//
// The per-frame math is a pure function of the previous state, the
// elapsed time and the look target so it can be tested without a
// display surface.
package character

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ReferenceFrame is the frame duration the per-tick constants are tuned for.
const ReferenceFrame = 1.0 / 60.0

// Tuning holds the animation constants.
type Tuning struct {
	PhaseStep float64 `yaml:"phase_step" json:"phase_step"` // idle phase advance per reference frame
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`   // vertical bob, scene units
	Gain      float64 `yaml:"gain" json:"gain"`             // look vector to radians
	Lerp      float64 `yaml:"lerp" json:"lerp"`             // fraction of remaining rotation covered per reference frame
}

// DefaultTuning returns the stock animation constants.
func DefaultTuning() Tuning {
	return Tuning{
		PhaseStep: 0.02,
		Amplitude: 0.05,
		Gain:      0.5,
		Lerp:      0.05,
	}
}

// Normalize clamps out-of-range values back to defaults.
func (t Tuning) Normalize() Tuning {
	d := DefaultTuning()
	if t.PhaseStep <= 0 {
		t.PhaseStep = d.PhaseStep
	}
	if t.Amplitude < 0 {
		t.Amplitude = d.Amplitude
	}
	if t.Gain <= 0 || t.Gain >= 1 {
		t.Gain = d.Gain
	}
	if t.Lerp <= 0 || t.Lerp >= 1 {
		t.Lerp = d.Lerp
	}
	return t
}

// LookVector is the normalized direction the figure turns toward.
// Both axes are in [-1, 1]; Y grows downward like screen coordinates.
type LookVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnimationState is owned by the Animator and advanced once per frame.
type AnimationState struct {
	IdlePhase float64 `json:"idle_phase"`
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
}

// Desired returns the target rotation (pitch, yaw) for a look vector.
// Pointer up tilts the head up.
func Desired(look LookVector, gain float64) (x, y float64) {
	return -look.Y * gain, look.X * gain
}

// Alpha returns the interpolation factor for a frame of dt seconds.
// At dt == ReferenceFrame it equals lerp.
func Alpha(lerp, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return 1 - math.Pow(1-lerp, dt/ReferenceFrame)
}

// Step advances the animation by dt seconds toward look.
func Step(prev AnimationState, dt float64, look LookVector, tun Tuning) AnimationState {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		dt = 0
	}
	tx, ty := Desired(look, tun.Gain)
	a := Alpha(tun.Lerp, dt)
	return AnimationState{
		IdlePhase: prev.IdlePhase + tun.PhaseStep*dt/ReferenceFrame,
		RotationX: prev.RotationX + (tx-prev.RotationX)*a,
		RotationY: prev.RotationY + (ty-prev.RotationY)*a,
	}
}

// Bob returns the vertical idle offset for a state.
func Bob(s AnimationState, amplitude float64) float64 {
	return amplitude * math.Sin(s.IdlePhase)
}

// Figure is the transform handed to the renderer.
type Figure struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Model    mgl64.Mat4 `json:"model"`
}

// Pose builds the figure transform for a state.
func Pose(s AnimationState, tun Tuning) Figure {
	pos := mgl64.Vec3{0, Bob(s, tun.Amplitude), 0}
	rot := mgl64.Vec3{s.RotationX, s.RotationY, 0}
	model := mgl64.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(mgl64.HomogRotate3DY(rot.Y())).
		Mul4(mgl64.HomogRotate3DX(rot.X()))
	return Figure{Position: pos, Rotation: rot, Model: model}
}
