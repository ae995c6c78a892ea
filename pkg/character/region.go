package character

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Region is the character viewport in page coordinates.
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether a point lies inside the region.
func (r Region) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// Normalize maps a point to [-1, 1] on both axes relative to the region.
// Degenerate regions yield the zero vector.
func (r Region) Normalize(x, y float64) LookVector {
	if r.Width <= 0 || r.Height <= 0 {
		return LookVector{}
	}
	nx := (x-r.Left)/r.Width*2 - 1
	ny := (y-r.Top)/r.Height*2 - 1
	if math.IsNaN(nx) || math.IsNaN(ny) {
		return LookVector{}
	}
	return LookVector{X: mgl64.Clamp(nx, -1, 1), Y: mgl64.Clamp(ny, -1, 1)}
}

// ViewConstraints bound what the viewer may do with the camera. They do
// not affect the figure's own rotation.
type ViewConstraints struct {
	MinPolar   float64    `json:"min_polar"`
	MaxPolar   float64    `json:"max_polar"`
	EnableZoom bool       `json:"enable_zoom"`
	EnablePan  bool       `json:"enable_pan"`
	CameraEye  mgl64.Vec3 `json:"camera_eye"`
}

// DefaultViewConstraints keeps the camera between 60 and 90 degrees from
// vertical with zoom and pan off.
func DefaultViewConstraints() ViewConstraints {
	return ViewConstraints{
		MinPolar:  math.Pi / 3,
		MaxPolar:  math.Pi / 2,
		CameraEye: mgl64.Vec3{0, 1.5, 4},
	}
}

// ClampPolar bounds a requested polar viewing angle.
func (v ViewConstraints) ClampPolar(angle float64) float64 {
	return mgl64.Clamp(angle, v.MinPolar, v.MaxPolar)
}
