package rtmath

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

const tolerance = 1e-12

func close(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func toGonum(q Quaternion) quat.Number {
	return quat.Number{Real: q.Scalar, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func TestEulerQuaternionRoundTrip(t *testing.T) {
	// roll in (-π, π), pitch in (-π/2, π/2), yaw in (-π, π)
	poses := []Vector3{
		{0, 0, 0},
		{0.1, 0, 0},
		{0, 0.1, 0},
		{0, 0, 0.1},
		{0.3, -0.2, 1.1},
		{-1.5, 0.7, -2.9},
		{2.8, -1.2, 0.4},
		{-0.05, 1.45, 3.0},
	}

	for _, pose := range poses {
		q := QuaternionFromEuler(pose)
		if !close(q.Norm(), 1, tolerance) {
			t.Errorf("fromEuler(%v) not unit: |q| = %.15f", pose, q.Norm())
		}
		back := q.ToEuler()
		if !close(back.X, pose.X, 1e-9) || !close(back.Y, pose.Y, 1e-9) || !close(back.Z, pose.Z, 1e-9) {
			t.Errorf("roundtrip %v -> %v", pose, back)
		}
	}
}

func TestQuaternionMulMatchesGonum(t *testing.T) {
	pairs := [][2]Quaternion{
		{{1, 0, 0, 0}, {0.7, 0.1, -0.3, 0.2}},
		{{0.5, 0.5, 0.5, 0.5}, {0.5, -0.5, 0.5, -0.5}},
		{{0.9, 0.1, 0.2, -0.3}, {-0.2, 0.8, 0.05, 0.4}},
		{QuaternionFromEuler(Vector3{0.3, -0.2, 1.1}), QuaternionFromEuler(Vector3{-1.5, 0.7, -2.9})},
	}

	for _, pair := range pairs {
		got := pair[0].Mul(pair[1])
		want := quat.Mul(toGonum(pair[0]), toGonum(pair[1]))
		if !close(got.Scalar, want.Real, tolerance) ||
			!close(got.X, want.Imag, tolerance) ||
			!close(got.Y, want.Jmag, tolerance) ||
			!close(got.Z, want.Kmag, tolerance) {
			t.Errorf("%v * %v = %v, want %v", pair[0], pair[1], got, want)
		}
	}
}

func TestConjugateInvertsRotation(t *testing.T) {
	q := QuaternionFromEuler(Vector3{0.4, -0.8, 2.1})
	id := q.Mul(q.Conjugate())
	if !close(id.Scalar, 1, 1e-12) || !close(id.X, 0, 1e-12) ||
		!close(id.Y, 0, 1e-12) || !close(id.Z, 0, 1e-12) {
		t.Errorf("q * q̄ = %v, want identity", id)
	}

	want := quat.Conj(toGonum(q))
	got := q.Conjugate()
	if !close(got.Scalar, want.Real, tolerance) || !close(got.X, want.Imag, tolerance) ||
		!close(got.Y, want.Jmag, tolerance) || !close(got.Z, want.Kmag, tolerance) {
		t.Errorf("conjugate mismatch: %v vs %v", got, want)
	}
}

func TestNormalizedIdempotent(t *testing.T) {
	q := Quaternion{3, -1, 2, 0.5}
	n1 := q.Normalized()
	if !close(n1.Norm(), 1, tolerance) {
		t.Fatalf("|normalized| = %.15f", n1.Norm())
	}
	n2 := n1.Normalized()
	if !close(n2.Scalar, n1.Scalar, tolerance) || !close(n2.X, n1.X, tolerance) ||
		!close(n2.Y, n1.Y, tolerance) || !close(n2.Z, n1.Z, tolerance) {
		t.Errorf("normalize not idempotent: %v vs %v", n1, n2)
	}
}

func TestNormalizedZeroGuards(t *testing.T) {
	if q := (Quaternion{}).Normalized(); q != (Quaternion{}) {
		t.Errorf("zero quaternion normalized to %v", q)
	}
	if v := (Vector3{}).Normalized(); v != (Vector3{}) {
		t.Errorf("zero vector normalized to %v", v)
	}
}

func TestAccelToEuler(t *testing.T) {
	deg30 := math.Pi / 6

	cases := []struct {
		name  string
		accel Vector3
		want  Vector3
	}{
		{"level", Vector3{0, 0, 1}, Vector3{0, 0, 0}},
		{"level scaled", Vector3{0, 0, 9.81}, Vector3{0, 0, 0}},
		{"pitch forward 30", Vector3{0.5, 0, math.Sqrt(3) / 2}, Vector3{0, -deg30, 0}},
		{"roll right 30", Vector3{0, 0.5, math.Sqrt(3) / 2}, Vector3{deg30, 0, 0}},
		{"inverted", Vector3{0, 0, -1}, Vector3{math.Pi, 0, 0}},
	}

	for _, tc := range cases {
		got := AccelToEuler(tc.accel)
		if !close(got.X, tc.want.X, 1e-9) || !close(got.Y, tc.want.Y, 1e-9) || got.Z != 0 {
			t.Errorf("%s: AccelToEuler(%v) = %v, want %v", tc.name, tc.accel, got, tc.want)
		}
	}
}

func TestMatrix4MulQuaternion(t *testing.T) {
	// identity matrix passes the quaternion through
	var id Matrix4
	for i := 0; i < 4; i++ {
		id[i][i] = 1
	}
	q := Quaternion{0.7, 0.1, -0.3, 0.2}
	if got := id.MulQuaternion(q); got != q {
		t.Errorf("I*q = %v, want %v", got, q)
	}

	// the fusion state-transition form: Ω(ω)/2 applied to the identity
	// quaternion yields half the rate in the vector part
	x2, y2, z2 := 0.1, 0.2, 0.3
	fk := Matrix4{
		{0, -x2, -y2, -z2},
		{x2, 0, z2, -y2},
		{y2, -z2, 0, x2},
		{z2, y2, -x2, 0},
	}
	got := fk.MulQuaternion(Quaternion{Scalar: 1})
	want := Quaternion{0, x2, y2, z2}
	if got != want {
		t.Errorf("Fk*identity = %v, want %v", got, want)
	}
}

func TestVectorOps(t *testing.T) {
	a := Vector3{1, 2, 3}
	b := Vector3{-2, 0.5, 4}

	if got := a.Add(b); got != (Vector3{-1, 2.5, 7}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (Vector3{3, 1.5, -1}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Scale(2); got != (Vector3{2, 4, 6}) {
		t.Errorf("Scale = %v", got)
	}
	if got := a.Dot(b); !close(got, -2+1+12, tolerance) {
		t.Errorf("Dot = %v", got)
	}
	if got := (Vector3{3, 4, 0}).Length(); !close(got, 5, tolerance) {
		t.Errorf("Length = %v", got)
	}
}
