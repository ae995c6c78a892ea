package cursor

import "math"

// maxStep bounds the integration step so stiff springs stay stable at
// low frame rates.
const maxStep = 1.0 / 240.0

// settleEpsilon is the distance and speed under which a spring snaps to rest.
const settleEpsilon = 1e-4

// Spring is a unit-mass damped spring moving a value toward a target.
type Spring struct {
	Stiffness float64
	Damping   float64

	Value    float64
	Velocity float64
	Target   float64
}

// NewSpring returns a spring resting at value.
func NewSpring(stiffness, damping, value float64) Spring {
	return Spring{Stiffness: stiffness, Damping: damping, Value: value, Target: value}
}

// Step advances the spring by dt seconds.
func (s *Spring) Step(dt float64) {
	for dt > 0 {
		h := math.Min(dt, maxStep)
		accel := -s.Stiffness*(s.Value-s.Target) - s.Damping*s.Velocity
		s.Velocity += accel * h
		s.Value += s.Velocity * h
		dt -= h
	}
	if s.AtRest() {
		s.Value = s.Target
		s.Velocity = 0
	}
}

// AtRest reports whether the spring has settled on its target.
func (s *Spring) AtRest() bool {
	return math.Abs(s.Value-s.Target) < settleEpsilon && math.Abs(s.Velocity) < settleEpsilon
}

// DampingRatio is 1 for a critically damped spring.
func (s *Spring) DampingRatio() float64 {
	if s.Stiffness <= 0 {
		return 0
	}
	return s.Damping / (2 * math.Sqrt(s.Stiffness))
}
