// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock orientation source that
// generates smooth changing values.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (Pose, error) {
	elapsed := time.Since(m.start).Seconds()

	roll := 20 * math.Sin(elapsed)
	pitch := 15 * math.Cos(elapsed*0.7)
	yaw := math.Mod(elapsed*30, 360)

	q := rtmath.QuaternionFromEuler(rtmath.Vector3{
		X: roll * math.Pi / 180,
		Y: pitch * math.Pi / 180,
		Z: yaw * math.Pi / 180,
	})

	return Pose{
		Roll:  roll,
		Pitch: pitch,
		Yaw:   yaw,
		QW:    q.Scalar,
		QX:    q.X,
		QY:    q.Y,
		QZ:    q.Z,
		Valid: true,
	}, nil
}
