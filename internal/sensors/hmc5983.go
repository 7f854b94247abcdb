// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// HMC5983 register map (shared with the HMC5883L).
const (
	hmcRegConfigA = 0x00
	hmcRegConfigB = 0x01
	hmcRegMode    = 0x02
	hmcRegDataX   = 0x03 // 6 bytes: X H/L, Z H/L, Y H/L
	hmcRegIDA     = 0x0A

	// 8-sample average, 15 Hz output, normal measurement
	hmcConfigA = 0x70
	// gain ±1.3 Ga range, 1090 LSB/Gauss
	hmcConfigB = 0x20
	// continuous measurement mode
	hmcModeContinuous = 0x00

	// counts to µT at the 1090 LSB/Gauss gain (1 Gauss = 100 µT)
	hmcScale = 100.0 / 1090.0

	// the device reports -4096 on an axis that saturated during the
	// measurement; such samples are unusable
	hmcOverflow = -4096
)

// HMC5983 is a register-level driver for the HMC5983 magnetometer on the
// host I2C bus.
type HMC5983 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// MagReading is a single magnetometer sample. X/Y/Z are µT; Overflow is
// set when any axis saturated and the sample should be discarded.
type MagReading struct {
	X, Y, Z  float64
	Counts   [3]int16 // raw counts in X, Y, Z order
	Overflow bool
}

// NewHMC5983 opens busName (empty string selects the first available bus)
// and initializes the magnetometer in continuous measurement mode.
func NewHMC5983(busName string, addr uint16) (*HMC5983, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mag: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("mag: i2c open %q: %w", busName, err)
	}

	h := &HMC5983{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
		bus: bus,
	}

	id := make([]byte, 3)
	if err := h.dev.Tx([]byte{hmcRegIDA}, id); err != nil {
		bus.Close()
		return nil, fmt.Errorf("mag: read ID: %w", err)
	}
	if string(id) != "H43" {
		bus.Close()
		return nil, fmt.Errorf("mag: unexpected ID %q at 0x%02X (want \"H43\")", id, addr)
	}

	for _, w := range [][2]byte{
		{hmcRegConfigA, hmcConfigA},
		{hmcRegConfigB, hmcConfigB},
		{hmcRegMode, hmcModeContinuous},
	} {
		if err := h.dev.Tx([]byte{w[0], w[1]}, nil); err != nil {
			bus.Close()
			return nil, fmt.Errorf("mag: write reg 0x%02X: %w", w[0], err)
		}
	}

	return h, nil
}

// Read returns the current magnetic field vector.
func (h *HMC5983) Read() (MagReading, error) {
	buf := make([]byte, 6)
	if err := h.dev.Tx([]byte{hmcRegDataX}, buf); err != nil {
		return MagReading{}, fmt.Errorf("mag: read data: %w", err)
	}

	// register order is X, Z, Y
	x := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	z := int16(uint16(buf[2])<<8 | uint16(buf[3]))
	y := int16(uint16(buf[4])<<8 | uint16(buf[5]))

	r := MagReading{
		X:      float64(x) * hmcScale,
		Y:      float64(y) * hmcScale,
		Z:      float64(z) * hmcScale,
		Counts: [3]int16{x, y, z},
	}
	if x == hmcOverflow || y == hmcOverflow || z == hmcOverflow {
		r.Overflow = true
	}
	return r, nil
}

// Close releases the I2C bus.
func (h *HMC5983) Close() error {
	return h.bus.Close()
}
