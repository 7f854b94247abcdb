package rtmath

import "math"

// Quaternion is a rotation quaternion in (scalar, x, y, z) order. A unit
// norm is required for it to represent an orientation; callers are
// responsible for renormalizing after additive updates.
type Quaternion struct {
	Scalar float64 `json:"w"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// QuaternionFromEuler builds the rotation quaternion for a (roll, pitch,
// yaw) Euler pose in radians.
func QuaternionFromEuler(v Vector3) Quaternion {
	cosX2 := math.Cos(v.X / 2)
	sinX2 := math.Sin(v.X / 2)
	cosY2 := math.Cos(v.Y / 2)
	sinY2 := math.Sin(v.Y / 2)
	cosZ2 := math.Cos(v.Z / 2)
	sinZ2 := math.Sin(v.Z / 2)

	return Quaternion{
		Scalar: cosX2*cosY2*cosZ2 + sinX2*sinY2*sinZ2,
		X:      sinX2*cosY2*cosZ2 - cosX2*sinY2*sinZ2,
		Y:      cosX2*sinY2*cosZ2 + sinX2*cosY2*sinZ2,
		Z:      cosX2*cosY2*sinZ2 - sinX2*sinY2*cosZ2,
	}
}

// ToEuler converts q back to a (roll, pitch, yaw) Euler pose in radians.
// q should be close to unit norm.
func (q Quaternion) ToEuler() Vector3 {
	return Vector3{
		X: math.Atan2(2*(q.X*q.Scalar+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y)),
		Y: math.Asin(2 * (q.Scalar*q.Y - q.X*q.Z)),
		Z: math.Atan2(2*(q.Z*q.Scalar+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z)),
	}
}

// Add returns the component-wise sum q + o.
func (q Quaternion) Add(o Quaternion) Quaternion {
	return Quaternion{q.Scalar + o.Scalar, q.X + o.X, q.Y + o.Y, q.Z + o.Z}
}

// Sub returns the component-wise difference q - o. This is not a relative
// rotation; it is the linearized error term used by the fusion filter.
func (q Quaternion) Sub(o Quaternion) Quaternion {
	return Quaternion{q.Scalar - o.Scalar, q.X - o.X, q.Y - o.Y, q.Z - o.Z}
}

// Scale returns q with every component scaled by s.
func (q Quaternion) Scale(s float64) Quaternion {
	return Quaternion{q.Scalar * s, q.X * s, q.Y * s, q.Z * s}
}

// Mul returns the Hamilton product q * o.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		Scalar: q.Scalar*o.Scalar - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X:      q.Scalar*o.X + q.X*o.Scalar + q.Y*o.Z - q.Z*o.Y,
		Y:      q.Scalar*o.Y - q.X*o.Z + q.Y*o.Scalar + q.Z*o.X,
		Z:      q.Scalar*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.Scalar,
	}
}

// Conjugate returns the quaternion conjugate of q. For a unit quaternion
// this is its inverse rotation.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{q.Scalar, -q.X, -q.Y, -q.Z}
}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.Scalar*q.Scalar + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit norm. A zero quaternion is returned
// unchanged rather than producing NaNs.
func (q Quaternion) Normalized() Quaternion {
	norm := q.Norm()
	if norm == 0 {
		return q
	}
	return q.Scale(1 / norm)
}
