package imu

import (
	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

// Data is one calibrated IMU sample in physical units, and the record the
// fusion filter writes its result back into. Timestamps are microseconds
// from a monotonic source; the fusion fields are only meaningful when the
// corresponding valid flags are set.
type Data struct {
	Timestamp uint64 `json:"timestamp_us"`

	Gyro         rtmath.Vector3 `json:"gyro"`    // rad/s
	Accel        rtmath.Vector3 `json:"accel"`   // g
	Compass      rtmath.Vector3 `json:"compass"` // µT
	CompassValid bool           `json:"compass_valid"`

	FusionPose       rtmath.Vector3    `json:"fusion_pose"` // roll/pitch/yaw, rad
	FusionPoseValid  bool              `json:"fusion_pose_valid"`
	FusionQPose      rtmath.Quaternion `json:"fusion_q_pose"`
	FusionQPoseValid bool              `json:"fusion_q_pose_valid"`
}
