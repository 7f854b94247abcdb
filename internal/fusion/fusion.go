// Package fusion implements the orientation filter at the heart of the
// attitude computer. It blends a gyro-integrated prediction of the current
// orientation with a measured pose derived from the accelerometer and
// compass, producing a drift-corrected estimate as both Euler angles and a
// unit quaternion.
//
// The filter is a port of the RTQF algorithm from richards-tech's
// RTIMULib: a linearized quaternion state transition driven by the gyro,
// corrected each cycle either by a fractional-power SLERP toward the
// measured pose or by a steady-state-Kalman-like linear gain blend.
package fusion

import (
	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

// Mode selects how the predicted state is pulled toward the measured pose.
type Mode int

const (
	// ModeSLERP corrects by a fractional spherical interpolation: the
	// rotation from prediction to measurement is raised to the power
	// SlerpPower and applied to the prediction.
	ModeSLERP Mode = iota

	// ModeLinear corrects by adding a gain-weighted component-wise
	// quaternion error, the discrete analogue of a steady-state Kalman
	// update with process trust Q and measurement noise R.
	ModeLinear
)

func (m Mode) String() string {
	switch m {
	case ModeSLERP:
		return "slerp"
	case ModeLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Default gain constants. These match the tuning the RTQF filter ships
// with and are sensible starting points for a 50-100 Hz sample rate.
const (
	DefaultSlerpPower = 0.02
	DefaultQ          = 0.001
	DefaultR          = 0.0005
)

// Options configures an Estimator. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	Mode Mode

	// SlerpPower in [0, 1] applies in ModeSLERP. 0 ignores the measured
	// pose entirely (pure gyro integration), 1 snaps to it every cycle.
	SlerpPower float64

	// Q and R apply in ModeLinear. Q weights the gyro prediction, R the
	// accel/compass measurement; the per-cycle blend fraction is
	// Q*dt / (Q*dt + R).
	Q float64
	R float64

	// Feature toggles. A disabled gyro is treated as zero rate; with
	// accel and compass both disabled the measurement correction is
	// skipped entirely.
	EnableGyro    bool
	EnableAccel   bool
	EnableCompass bool
}

// DefaultOptions returns SLERP fusion with all sensors enabled.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeSLERP,
		SlerpPower:    DefaultSlerpPower,
		Q:             DefaultQ,
		R:             DefaultR,
		EnableGyro:    true,
		EnableAccel:   true,
		EnableCompass: true,
	}
}

// Trace is a per-cycle diagnostic snapshot handed to the trace callback
// after each completed fusion cycle.
type Trace struct {
	SampleNumber uint64
	TimeDelta    float64 // seconds
	MeasuredPose rtmath.Vector3
	FusionPose   rtmath.Vector3
	StateQ       rtmath.Quaternion
	ErrorQ       rtmath.Quaternion
}

// TraceFunc receives fusion diagnostics. Implementations must not retain
// the Trace beyond the call and must not call back into the estimator.
type TraceFunc func(Trace)
