package rtmath

// Matrix4 is a 4x4 real matrix, indexed [row][column]. The fusion filter
// uses it for the linearized quaternion state transition; the zero value
// is the zero matrix.
type Matrix4 [4][4]float64

// MulQuaternion treats q as the column vector (scalar, x, y, z) and
// returns m * q.
func (m Matrix4) MulQuaternion(q Quaternion) Quaternion {
	return Quaternion{
		Scalar: m[0][0]*q.Scalar + m[0][1]*q.X + m[0][2]*q.Y + m[0][3]*q.Z,
		X:      m[1][0]*q.Scalar + m[1][1]*q.X + m[1][2]*q.Y + m[1][3]*q.Z,
		Y:      m[2][0]*q.Scalar + m[2][1]*q.X + m[2][2]*q.Y + m[2][3]*q.Z,
		Z:      m[3][0]*q.Scalar + m[3][1]*q.X + m[3][2]*q.Y + m[3][3]*q.Z,
	}
}
