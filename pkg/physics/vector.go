// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world's vertical axis. Yaw rotates about it.
var Up = mgl64.Vec3{0, 1, 0}

// Forward returns the horizontal unit heading for a yaw angle.
// Yaw 0 faces +Z.
func Forward(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

// Right returns the horizontal unit vector perpendicular to Forward(yaw).
func Right(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(yaw), 0, -math.Sin(yaw)}
}

// Heading returns the yaw angle whose Forward points along the horizontal
// part of v, atan2(x, z).
func Heading(v mgl64.Vec3) float64 {
	return math.Atan2(v.X(), v.Z())
}

// WrapAngle maps an angle into (-π, π]. Non-finite input yields 0.
func WrapAngle(angle float64) float64 {
	if !IsFiniteScalar(angle) {
		return 0
	}
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// Horizontal drops the vertical component of v.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// HorizontalSpeed returns the magnitude of the horizontal part of v.
func HorizontalSpeed(v mgl64.Vec3) float64 {
	return math.Hypot(v.X(), v.Z())
}

// IsFiniteScalar reports whether f is neither NaN nor infinite.
func IsFiniteScalar(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsFinite reports whether every component of v is finite.
func IsFinite(v mgl64.Vec3) bool {
	return IsFiniteScalar(v.X()) && IsFiniteScalar(v.Y()) && IsFiniteScalar(v.Z())
}
