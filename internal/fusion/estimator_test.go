package fusion

import (
	"math"
	"testing"

	"github.com/relabs-tech/attitude_computer/internal/imu"
	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

const tolerance = 1e-6

func sample(ts uint64, gyro, accel rtmath.Vector3) imu.Data {
	return imu.Data{
		Timestamp: ts,
		Gyro:      gyro,
		Accel:     accel,
	}
}

func gyroOnlyOptions(mode Mode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.EnableAccel = false
	opts.EnableCompass = false
	return opts
}

func quatClose(a, b rtmath.Quaternion, tol float64) bool {
	return math.Abs(a.Scalar-b.Scalar) < tol &&
		math.Abs(a.X-b.X) < tol &&
		math.Abs(a.Y-b.Y) < tol &&
		math.Abs(a.Z-b.Z) < tol
}

func TestFirstSampleBootstrap(t *testing.T) {
	e := NewEstimator(DefaultOptions(), nil)

	// 30° pitch-forward gravity vector, no compass
	accel := rtmath.Vector3{X: 0.5, Y: 0, Z: math.Sqrt(3) / 2}
	d := sample(1000, rtmath.Vector3{X: 0.1, Y: 0.2, Z: 0.3}, accel)

	e.NewIMUData(&d, 0)

	if !d.FusionPoseValid || !d.FusionQPoseValid {
		t.Fatal("first sample did not mark fusion output valid")
	}

	want := rtmath.AccelToEuler(accel)
	if math.Abs(d.FusionPose.X-want.X) > tolerance ||
		math.Abs(d.FusionPose.Y-want.Y) > tolerance ||
		math.Abs(d.FusionPose.Z-want.Z) > tolerance {
		t.Errorf("bootstrap pose = %+v, want measured pose %+v", d.FusionPose, want)
	}
	if !quatClose(d.FusionQPose, rtmath.QuaternionFromEuler(want), tolerance) {
		t.Errorf("bootstrap quaternion = %+v, want %+v", d.FusionQPose, rtmath.QuaternionFromEuler(want))
	}
}

func TestUnitNormAfterEveryCycle(t *testing.T) {
	for _, mode := range []Mode{ModeSLERP, ModeLinear} {
		opts := DefaultOptions()
		opts.Mode = mode
		e := NewEstimator(opts, nil)

		ts := uint64(0)
		for i := 0; i < 500; i++ {
			ts += 10000 // 10 ms
			gyro := rtmath.Vector3{
				X: math.Sin(float64(i) * 0.1),
				Y: math.Cos(float64(i) * 0.07),
				Z: 0.5,
			}
			accel := rtmath.Vector3{
				X: 0.1 * math.Sin(float64(i)*0.05),
				Y: 0.1 * math.Cos(float64(i)*0.03),
				Z: 1,
			}
			d := sample(ts, gyro, accel)
			d.Compass = rtmath.Vector3{X: 22, Y: -4, Z: 40}
			d.CompassValid = true

			e.NewIMUData(&d, 0.1)

			if norm := d.FusionQPose.Norm(); math.Abs(norm-1) > tolerance {
				t.Fatalf("mode %s cycle %d: |q| = %.9f, want 1", mode, i, norm)
			}
		}
	}
}

func TestZeroRateStability(t *testing.T) {
	for _, mode := range []Mode{ModeSLERP, ModeLinear} {
		e := NewEstimator(gyroOnlyOptions(mode), nil)

		d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
		e.NewIMUData(&d, 0)
		prior := d.FusionQPose

		// wildly varying time deltas must not move a zero-rate state
		for _, dt := range []uint64{1000, 500000, 3000000, 10, 7777777} {
			d = sample(d.Timestamp+dt, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
			e.NewIMUData(&d, 0)
			if !quatClose(d.FusionQPose, prior, 1e-12) {
				t.Fatalf("mode %s: orientation drifted with zero rate: %+v -> %+v", mode, prior, d.FusionQPose)
			}
		}
	}
}

func TestSkipOnStaleTimestamp(t *testing.T) {
	e := NewEstimator(DefaultOptions(), nil)

	d := sample(1000000, rtmath.Vector3{Z: 0.5}, rtmath.Vector3{X: 0.2, Z: 1})
	e.NewIMUData(&d, 0)

	d = sample(1100000, rtmath.Vector3{Z: 0.5}, rtmath.Vector3{X: 0.2, Z: 1})
	e.NewIMUData(&d, 0)
	want := d

	// equal timestamp
	stale := sample(1100000, rtmath.Vector3{Z: 5}, rtmath.Vector3{X: -0.9, Z: 0.1})
	e.NewIMUData(&stale, 0)
	if stale.FusionPose != want.FusionPose || stale.FusionQPose != want.FusionQPose {
		t.Errorf("stale sample changed fused pose: %+v != %+v", stale.FusionPose, want.FusionPose)
	}
	if !stale.FusionPoseValid || !stale.FusionQPoseValid {
		t.Error("stale sample did not keep validity flags asserted")
	}

	// earlier timestamp
	early := sample(900000, rtmath.Vector3{Z: 5}, rtmath.Vector3{X: -0.9, Z: 0.1})
	e.NewIMUData(&early, 0)
	if early.FusionPose != want.FusionPose || early.FusionQPose != want.FusionQPose {
		t.Errorf("out-of-order sample changed fused pose: %+v != %+v", early.FusionPose, want.FusionPose)
	}
	if !early.FusionPoseValid || !early.FusionQPoseValid {
		t.Error("out-of-order sample did not keep validity flags asserted")
	}
}

func TestSlerpPowerZeroIsPureIntegration(t *testing.T) {
	slerp := DefaultOptions()
	slerp.SlerpPower = 0

	ref := NewEstimator(gyroOnlyOptions(ModeSLERP), nil)
	zero := NewEstimator(slerp, nil)

	// level accel so both estimators bootstrap to the identity pose
	accel := rtmath.Vector3{Z: 1}
	ts := uint64(0)
	var got, want rtmath.Quaternion
	for i := 0; i < 50; i++ {
		ts += 20000
		gyro := rtmath.Vector3{X: 0.3, Y: -0.2, Z: 0.7}

		a := sample(ts, gyro, accel)
		b := sample(ts, gyro, accel)
		ref.NewIMUData(&a, 0)
		zero.NewIMUData(&b, 0)
		want, got = a.FusionQPose, b.FusionQPose
	}

	if !quatClose(got, want, 1e-9) {
		t.Errorf("slerp power 0 deviated from pure integration: %+v != %+v", got, want)
	}
}

func TestSlerpPowerOneSnapsToMeasurement(t *testing.T) {
	opts := DefaultOptions()
	opts.SlerpPower = 1

	e := NewEstimator(opts, nil)

	d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)

	// tilted measurement, zero rate: one cycle must converge to it
	accel := rtmath.Vector3{X: 0.4, Y: -0.1, Z: 0.9}
	d = sample(100000, rtmath.Vector3{}, accel)
	e.NewIMUData(&d, 0)

	want := rtmath.QuaternionFromEuler(rtmath.AccelToEuler(accel))
	if !quatClose(d.FusionQPose, want, tolerance) {
		t.Errorf("slerp power 1 did not snap to measurement: %+v != %+v", d.FusionQPose, want)
	}
}

func TestLinearGainBoundaries(t *testing.T) {
	accel := rtmath.Vector3{Z: 1}
	gyro := rtmath.Vector3{X: 0.3, Y: -0.2, Z: 0.7}

	t.Run("QZeroSuppressesCorrection", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Mode = ModeLinear
		opts.Q = 0

		ref := NewEstimator(gyroOnlyOptions(ModeLinear), nil)
		e := NewEstimator(opts, nil)

		ts := uint64(0)
		var got, want rtmath.Quaternion
		for i := 0; i < 50; i++ {
			ts += 20000
			a := sample(ts, gyro, accel)
			b := sample(ts, gyro, accel)
			ref.NewIMUData(&a, 0)
			e.NewIMUData(&b, 0)
			want, got = a.FusionQPose, b.FusionQPose
		}
		if !quatClose(got, want, 1e-9) {
			t.Errorf("Q=0 deviated from pure integration: %+v != %+v", got, want)
		}
	})

	t.Run("RNearZeroSnapsToMeasurement", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Mode = ModeLinear
		opts.R = 1e-12

		e := NewEstimator(opts, nil)
		d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
		e.NewIMUData(&d, 0)

		tilted := rtmath.Vector3{X: 0.4, Y: -0.1, Z: 0.9}
		d = sample(100000, rtmath.Vector3{}, tilted)
		e.NewIMUData(&d, 0)

		want := rtmath.QuaternionFromEuler(rtmath.AccelToEuler(tilted))
		if !quatClose(d.FusionQPose, want, 1e-5) {
			t.Errorf("R→0 did not snap to measurement: %+v != %+v", d.FusionQPose, want)
		}
	})
}

func TestGyroOnlyYawIntegration(t *testing.T) {
	// 1 rad/s about Z for 0.1 s must add ~0.1 rad of yaw
	e := NewEstimator(gyroOnlyOptions(ModeSLERP), nil)

	d := sample(0, rtmath.Vector3{Z: 1}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)

	d = sample(100000, rtmath.Vector3{Z: 1}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)

	if got := d.FusionPose.Z; math.Abs(got-0.1) > 0.1*0.02 {
		t.Errorf("yaw after 0.1 s at 1 rad/s = %.5f, want 0.1 ±2%%", got)
	}
	if math.Abs(d.FusionPose.X) > 1e-9 || math.Abs(d.FusionPose.Y) > 1e-9 {
		t.Errorf("roll/pitch moved under pure Z rotation: %+v", d.FusionPose)
	}
}

func TestDisabledGyroCarriesStateForward(t *testing.T) {
	opts := gyroOnlyOptions(ModeSLERP)
	opts.EnableGyro = false
	e := NewEstimator(opts, nil)

	d := sample(0, rtmath.Vector3{Z: 3}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)
	prior := d.FusionQPose

	d = sample(500000, rtmath.Vector3{Z: 3}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)

	if !quatClose(d.FusionQPose, prior, 1e-12) {
		t.Errorf("disabled gyro still rotated the state: %+v -> %+v", prior, d.FusionQPose)
	}
}

func TestCompassYawAndDeclination(t *testing.T) {
	opts := DefaultOptions()
	opts.SlerpPower = 1 // converge within one cycle

	for _, tc := range []struct {
		name        string
		compass     rtmath.Vector3
		declination float64
		wantYaw     float64
	}{
		{"north no declination", rtmath.Vector3{X: 30}, 0, 0},
		{"east field", rtmath.Vector3{Y: 30}, 0, -math.Pi / 2},
		{"north with declination", rtmath.Vector3{X: 30}, 0.2, -0.2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEstimator(opts, nil)

			d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
			d.Compass = tc.compass
			d.CompassValid = true
			e.NewIMUData(&d, tc.declination)

			d = sample(100000, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
			d.Compass = tc.compass
			d.CompassValid = true
			e.NewIMUData(&d, tc.declination)

			if math.Abs(d.FusionPose.Z-tc.wantYaw) > 1e-4 {
				t.Errorf("yaw = %.5f, want %.5f", d.FusionPose.Z, tc.wantYaw)
			}
		})
	}
}

func TestInvalidCompassHoldsYaw(t *testing.T) {
	opts := DefaultOptions()
	opts.SlerpPower = 1

	e := NewEstimator(opts, nil)

	// establish a non-zero yaw from a valid compass reading
	d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
	d.Compass = rtmath.Vector3{Y: 30}
	d.CompassValid = true
	e.NewIMUData(&d, 0)
	wantYaw := d.FusionPose.Z

	// compass drops out: yaw must hold rather than decay toward zero
	for i := 1; i <= 10; i++ {
		d = sample(uint64(i)*100000, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
		e.NewIMUData(&d, 0)
	}

	if math.Abs(d.FusionPose.Z-wantYaw) > 1e-6 {
		t.Errorf("yaw drifted after compass dropout: %.5f, want %.5f", d.FusionPose.Z, wantYaw)
	}
}

func TestResetReturnsToBootstrap(t *testing.T) {
	e := NewEstimator(DefaultOptions(), nil)

	for i := 0; i < 5; i++ {
		d := sample(uint64(i)*100000, rtmath.Vector3{Z: 1}, rtmath.Vector3{X: 0.3, Z: 0.9})
		e.NewIMUData(&d, 0)
	}

	e.Reset()

	accel := rtmath.Vector3{Z: 1}
	d := sample(42, rtmath.Vector3{Z: 99}, accel)
	e.NewIMUData(&d, 0)

	want := rtmath.AccelToEuler(accel)
	if math.Abs(d.FusionPose.X-want.X) > tolerance ||
		math.Abs(d.FusionPose.Y-want.Y) > tolerance {
		t.Errorf("post-reset sample did not bootstrap: %+v, want %+v", d.FusionPose, want)
	}
}

func TestTraceCallback(t *testing.T) {
	var traces []Trace
	e := NewEstimator(DefaultOptions(), func(tr Trace) {
		traces = append(traces, tr)
	})

	d := sample(0, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)
	if len(traces) != 0 {
		t.Fatal("trace fired on the bootstrap sample")
	}

	d = sample(100000, rtmath.Vector3{Z: 0.2}, rtmath.Vector3{Z: 1})
	e.NewIMUData(&d, 0)
	if len(traces) != 1 {
		t.Fatalf("got %d traces after one running cycle, want 1", len(traces))
	}
	if traces[0].SampleNumber != 2 {
		t.Errorf("trace sample number = %d, want 2", traces[0].SampleNumber)
	}
	if math.Abs(traces[0].TimeDelta-0.1) > 1e-9 {
		t.Errorf("trace dt = %g, want 0.1", traces[0].TimeDelta)
	}
}

func TestNoNaNPropagationWhenAligned(t *testing.T) {
	// prediction and measurement identical: the slerp delta is the
	// identity quaternion, whose scalar can round just above 1
	e := NewEstimator(DefaultOptions(), nil)

	for i := 0; i <= 100; i++ {
		d := sample(uint64(i)*10000, rtmath.Vector3{}, rtmath.Vector3{Z: 1})
		e.NewIMUData(&d, 0)
		if math.IsNaN(d.FusionQPose.Scalar) || math.IsNaN(d.FusionQPose.X) ||
			math.IsNaN(d.FusionQPose.Y) || math.IsNaN(d.FusionQPose.Z) {
			t.Fatalf("NaN in fused quaternion at cycle %d: %+v", i, d.FusionQPose)
		}
		if math.IsNaN(d.FusionPose.X) || math.IsNaN(d.FusionPose.Y) || math.IsNaN(d.FusionPose.Z) {
			t.Fatalf("NaN in fused pose at cycle %d: %+v", i, d.FusionPose)
		}
	}
}
