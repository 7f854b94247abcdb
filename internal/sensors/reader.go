package sensors

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/attitude_computer/internal/config"
	imu_raw "github.com/relabs-tech/attitude_computer/internal/imu"
	"github.com/relabs-tech/attitude_computer/internal/rtmath"
)

// Sensitivities at the MPU9250 power-on full-scale ranges (±2g, ±250°/s).
const (
	accelCountsPerG  = 16384.0
	gyroCountsPerDPS = 131.0
	degreesToRadians = math.Pi / 180.0
)

// Reader combines the MPU9250 and the HMC5983 into a single source of
// calibrated, timestamped samples for the fusion filter. The magnetometer
// is optional; without it samples carry CompassValid=false and the filter
// runs on gyro+accel only.
type Reader struct {
	imu IMURawReader
	mag *HMC5983
}

// NewReader initializes both sensors from the global config. A missing or
// broken magnetometer is not fatal.
func NewReader() (*Reader, error) {
	cfg := config.Get()

	src, err := NewIMUSource()
	if err != nil {
		return nil, fmt.Errorf("sensors: %w", err)
	}

	mag, err := NewHMC5983(cfg.MagI2CBus, cfg.MagI2CAddr)
	if err != nil {
		log.Printf("Warning: magnetometer unavailable, compass disabled: %v", err)
		mag = nil
	}

	return &Reader{imu: src, mag: mag}, nil
}

// NextData reads one sample from both sensors and converts it to physical
// units. The returned record also carries the raw counts for telemetry.
func (r *Reader) NextData() (imu_raw.Data, imu_raw.IMURaw, error) {
	raw, err := r.imu.ReadRaw()
	if err != nil {
		return imu_raw.Data{}, imu_raw.IMURaw{}, err
	}

	d := imu_raw.Data{
		Timestamp: uint64(time.Now().UnixMicro()),
		Accel: rtmath.Vector3{
			X: float64(raw.Ax) / accelCountsPerG,
			Y: float64(raw.Ay) / accelCountsPerG,
			Z: float64(raw.Az) / accelCountsPerG,
		},
		Gyro: rtmath.Vector3{
			X: float64(raw.Gx) / gyroCountsPerDPS * degreesToRadians,
			Y: float64(raw.Gy) / gyroCountsPerDPS * degreesToRadians,
			Z: float64(raw.Gz) / gyroCountsPerDPS * degreesToRadians,
		},
	}

	if r.mag != nil {
		m, err := r.mag.Read()
		if err != nil {
			log.Printf("magnetometer read error: %v", err)
		} else if m.Overflow {
			log.Printf("magnetometer overflow, sample discarded")
		} else {
			d.Compass = rtmath.Vector3{X: m.X, Y: m.Y, Z: m.Z}
			d.CompassValid = true
			raw.Mx = m.Counts[0]
			raw.My = m.Counts[1]
			raw.Mz = m.Counts[2]
		}
	}

	return d, raw, nil
}

// Close releases the magnetometer bus. The MPU9250 SPI handle is owned by
// its transport and lives for the process lifetime.
func (r *Reader) Close() error {
	if r.mag != nil {
		return r.mag.Close()
	}
	return nil
}
