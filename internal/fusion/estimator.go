package fusion

import (
	"math"

	"github.com/relabs-tech/attitude_computer/internal/imu"
	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

// Estimator is the stateful orientation filter. It is advanced one sample
// at a time via NewIMUData and is not safe for concurrent use; run one
// estimator per sensor stream.
type Estimator struct {
	opts  Options
	trace TraceFunc

	firstTime      bool
	lastFusionTime uint64
	timeDelta      float64
	sampleNumber   uint64

	gyro         rtmath.Vector3
	accel        rtmath.Vector3
	compass      rtmath.Vector3
	compassValid bool

	stateQ        rtmath.Quaternion
	stateQError   rtmath.Quaternion
	fusionPose    rtmath.Vector3
	fusionQPose   rtmath.Quaternion
	measuredPose  rtmath.Vector3
	measuredQPose rtmath.Quaternion
	fk            rtmath.Matrix4
}

// NewEstimator creates an estimator with the given options. trace may be
// nil to disable diagnostics.
func NewEstimator(opts Options, trace TraceFunc) *Estimator {
	e := &Estimator{opts: opts, trace: trace}
	e.Reset()
	return e
}

// Reset returns the estimator to its uninitialized state. The next sample
// bootstraps the orientation from its own measured pose.
func (e *Estimator) Reset() {
	e.firstTime = true
	e.sampleNumber = 0
	e.gyro = rtmath.Vector3{}
	e.accel = rtmath.Vector3{}
	e.compass = rtmath.Vector3{}
	e.compassValid = false
	e.fusionPose = rtmath.Vector3{}
	e.fusionQPose = rtmath.QuaternionFromEuler(e.fusionPose)
	e.measuredPose = rtmath.Vector3{}
	e.measuredQPose = rtmath.QuaternionFromEuler(e.measuredPose)
	e.stateQError = rtmath.Quaternion{}
	e.fk = rtmath.Matrix4{}
}

// FusionPose returns the current Euler estimate (roll/pitch/yaw, rad).
func (e *Estimator) FusionPose() rtmath.Vector3 { return e.fusionPose }

// FusionQPose returns the current quaternion estimate.
func (e *Estimator) FusionQPose() rtmath.Quaternion { return e.fusionQPose }

// NewIMUData advances the filter by one sample and writes the fused
// orientation back into d. declination is the local magnetic declination
// in radians, added into the compass-derived yaw.
//
// A sample whose timestamp is not later than the previous one is skipped:
// the internal state is left untouched and d receives the carried-forward
// previous estimate, still marked valid.
func (e *Estimator) NewIMUData(d *imu.Data, declination float64) {
	e.sampleNumber++

	if e.opts.EnableGyro {
		e.gyro = d.Gyro
	} else {
		e.gyro = rtmath.Vector3{}
	}
	e.accel = d.Accel
	e.compass = d.Compass
	e.compassValid = d.CompassValid

	if e.firstTime {
		e.lastFusionTime = d.Timestamp
		e.calculatePose(declination)
		e.fk = rtmath.Matrix4{}

		// no prior state to predict from; adopt the measured pose
		e.stateQ = rtmath.QuaternionFromEuler(e.measuredPose)
		e.fusionQPose = e.stateQ
		e.fusionPose = e.measuredPose
		e.firstTime = false
	} else {
		e.timeDelta = float64(int64(d.Timestamp)-int64(e.lastFusionTime)) / 1000000
		e.lastFusionTime = d.Timestamp
		if e.timeDelta <= 0 {
			// stale or out-of-order sample: keep the previous estimate
			d.FusionPose = e.fusionPose
			d.FusionPoseValid = true
			d.FusionQPose = e.fusionQPose
			d.FusionQPoseValid = true
			return
		}

		e.calculatePose(declination)

		e.predict()
		e.update()
		e.fusionPose = e.stateQ.ToEuler()
		e.fusionQPose = e.stateQ

		if e.trace != nil {
			e.trace(Trace{
				SampleNumber: e.sampleNumber,
				TimeDelta:    e.timeDelta,
				MeasuredPose: e.measuredPose,
				FusionPose:   e.fusionPose,
				StateQ:       e.stateQ,
				ErrorQ:       e.stateQError,
			})
		}
	}

	d.FusionPose = e.fusionPose
	d.FusionPoseValid = true
	d.FusionQPose = e.fusionQPose
	d.FusionQPoseValid = true
}

// calculatePose derives the measured pose from the accelerometer tilt and
// the tilt-compensated, declination-corrected compass heading. It only
// updates measuredPose/measuredQPose; the running state is untouched.
func (e *Estimator) calculatePose(declination float64) {
	if e.opts.EnableAccel {
		e.measuredPose = rtmath.AccelToEuler(e.accel)
	} else {
		e.measuredPose = e.fusionPose
		e.measuredPose.Z = 0
	}

	if e.opts.EnableCompass && e.compassValid {
		q := rtmath.QuaternionFromEuler(e.measuredPose)
		m := rtmath.Quaternion{X: e.compass.X, Y: e.compass.Y, Z: e.compass.Z}

		// rotate the field into the horizontal plane before taking the
		// heading
		m = q.Mul(m).Mul(q.Conjugate())
		e.measuredPose.Z = -math.Atan2(m.Y, m.X) - declination
	} else {
		// compass unusable: hold yaw at the current fused value rather
		// than fabricating one from noise
		e.measuredPose.Z = e.fusionPose.Z
	}

	e.measuredQPose = rtmath.QuaternionFromEuler(e.measuredPose)

	// q and -q encode the same rotation. If the dominant component of the
	// measured quaternion disagrees in sign with the state, flip it so the
	// correction step sees a small error instead of a near-2π one.
	maxIndex := 0
	maxVal := -1.0
	measured := [4]float64{e.measuredQPose.Scalar, e.measuredQPose.X, e.measuredQPose.Y, e.measuredQPose.Z}
	state := [4]float64{e.stateQ.Scalar, e.stateQ.X, e.stateQ.Y, e.stateQ.Z}
	for i := 0; i < 4; i++ {
		if math.Abs(measured[i]) > maxVal {
			maxVal = math.Abs(measured[i])
			maxIndex = i
		}
	}
	if (measured[maxIndex] < 0 && state[maxIndex] > 0) ||
		(measured[maxIndex] > 0 && state[maxIndex] < 0) {
		e.measuredQPose = e.measuredQPose.Scale(-1)
	}
}

// predict integrates the quaternion kinematic equation dq/dt = ½ Ω(ω) q
// one Euler step forward. The result is deliberately left unnormalized;
// update performs the single per-cycle normalization.
func (e *Estimator) predict() {
	x2 := e.gyro.X / 2
	y2 := e.gyro.Y / 2
	z2 := e.gyro.Z / 2

	e.fk = rtmath.Matrix4{
		{0, -x2, -y2, -z2},
		{x2, 0, z2, -y2},
		{y2, -z2, 0, x2},
		{z2, y2, -x2, 0},
	}

	dq := e.fk.MulQuaternion(e.stateQ).Scale(e.timeDelta)
	e.stateQ = e.stateQ.Add(dq)
}

// update pulls the predicted state toward the measured pose using the
// configured strategy, then renormalizes.
func (e *Estimator) update() {
	switch e.opts.Mode {
	case ModeSLERP:
		if e.opts.EnableCompass || e.opts.EnableAccel {
			rotationDelta := e.stateQ.Conjugate().Mul(e.measuredQPose).Normalized()

			// clamp against rounding just outside the acos domain
			theta := math.Acos(clamp(rotationDelta.Scalar, -1, 1))

			sinPowerTheta := math.Sin(theta * e.opts.SlerpPower)
			cosPowerTheta := math.Cos(theta * e.opts.SlerpPower)

			axis := rtmath.Vector3{X: rotationDelta.X, Y: rotationDelta.Y, Z: rotationDelta.Z}.Normalized()

			rotationPower := rtmath.Quaternion{
				Scalar: cosPowerTheta,
				X:      sinPowerTheta * axis.X,
				Y:      sinPowerTheta * axis.Y,
				Z:      sinPowerTheta * axis.Z,
			}.Normalized()

			e.stateQ = e.stateQ.Mul(rotationPower)
		}

	case ModeLinear:
		if e.opts.EnableCompass || e.opts.EnableAccel {
			// intentionally a component-wise difference, not a relative
			// rotation: the Q/R tuning is calibrated against this
			// small-angle linearization
			e.stateQError = e.measuredQPose.Sub(e.stateQ)
		} else {
			e.stateQError = rtmath.Quaternion{}
		}

		qt := e.opts.Q * e.timeDelta
		e.stateQ = e.stateQ.Add(e.stateQError.Scale(qt / (qt + e.opts.R)))
	}

	e.stateQ = e.stateQ.Normalized()
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
