// Package rtmath provides the small fixed-size vector, quaternion and
// matrix types used by the orientation fusion filter. All angles are in
// radians, with the (roll, pitch, yaw) Euler convention matching the
// quaternion conversions in this package.
package rtmath

import "math"

// Vector3 is a 3-component vector. For Euler poses the components are
// X=roll, Y=pitch, Z=yaw.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vector3) Dot(o Vector3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the Euclidean norm of v.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns v scaled to unit length. A zero vector is returned
// unchanged rather than producing NaNs.
func (v Vector3) Normalized() Vector3 {
	length := v.Length()
	if length == 0 {
		return v
	}
	return v.Scale(1 / length)
}

// AccelToEuler converts an accelerometer reading (gravity direction, any
// units) into a tilt pose:
//
//	roll  = atan2(y, z)
//	pitch = -atan2(x, sqrt(y² + z²))
//
// Yaw cannot be observed from gravity alone and is left at zero.
func AccelToEuler(accel Vector3) Vector3 {
	a := accel.Normalized()
	return Vector3{
		X: math.Atan2(a.Y, a.Z),
		Y: -math.Atan2(a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z)),
		Z: 0,
	}
}
