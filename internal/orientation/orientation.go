package orientation

import (
	"math"

	"github.com/relabs-tech/attitude_computer/internal/imu"
)

// Pose is the wire representation of a fused orientation, published over
// MQTT and consumed by the console, web and display subscribers. Angles
// are degrees; the quaternion is the same rotation in unit form.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`

	QW float64 `json:"qw"`
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`

	Valid bool `json:"valid"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// FromFusedData converts a fused sample record into the wire pose.
func FromFusedData(d imu.Data) Pose {
	return Pose{
		Roll:  d.FusionPose.X * 180.0 / math.Pi,
		Pitch: d.FusionPose.Y * 180.0 / math.Pi,
		Yaw:   d.FusionPose.Z * 180.0 / math.Pi,
		QW:    d.FusionQPose.Scalar,
		QX:    d.FusionQPose.X,
		QY:    d.FusionQPose.Y,
		QZ:    d.FusionQPose.Z,
		Valid: d.FusionPoseValid && d.FusionQPoseValid,
	}
}
