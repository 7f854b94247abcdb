// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/attitude_computer/internal/orientation"
)

// RunMockConsole prints synthetic poses from the mock source in the same
// line format the MQTT console uses, for bench runs without hardware or a
// broker.
func RunMockConsole() error {
	src := orientation.NewMockSource()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		pose, err := src.Next()
		if err != nil {
			return err
		}

		fmt.Printf(
			"[MOCK]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f  q=(%+.4f %+.4f %+.4f %+.4f)\n",
			pose.Roll, pose.Pitch, pose.Yaw,
			pose.QW, pose.QX, pose.QY, pose.QZ,
		)
	}
	return nil
}
