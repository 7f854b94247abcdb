package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicPoseFused string
	TopicIMURaw    string
	TopicGPS       string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// Magnetometer (HMC5983 on host I2C)
	MagI2CBus  string
	MagI2CAddr uint16

	// Fusion
	// Mode is "slerp" or "linear"; the gain constants only apply to the
	// matching mode.
	FusionMode          string
	FusionSlerpPower    float64
	FusionQ             float64
	FusionR             float64
	FusionEnableGyro    bool
	FusionEnableAccel   bool
	FusionEnableCompass bool
	FusionDebug         bool

	// Local magnetic declination, degrees east of true north.
	CompassDeclinationDeg float64

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	IMUSampleInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DeclinationRad returns the configured magnetic declination in radians,
// as consumed by the fusion filter.
func (c *Config) DeclinationRad() float64 {
	return c.CompassDeclinationDeg * math.Pi / 180
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaultConfig()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config pre-filled with the documented fusion
// defaults, so a minimal config file only needs the hardware keys.
func defaultConfig() *Config {
	return &Config{
		FusionMode:            "slerp",
		FusionSlerpPower:      0.02,
		FusionQ:               0.001,
		FusionR:               0.0005,
		FusionEnableGyro:      true,
		FusionEnableAccel:     true,
		FusionEnableCompass:   true,
		MagI2CAddr:            0x1E,
		DisplayUpdateInterval: 250,
		WebServerPort:         8080,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_POSE_FUSED":
		c.TopicPoseFused = value
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Magnetometer
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid MAG_I2C_ADDR %q: %w", value, err)
		}
		c.MagI2CAddr = uint16(addr)

	// Fusion
	case "FUSION_MODE":
		if value != "slerp" && value != "linear" {
			return fmt.Errorf("FUSION_MODE must be \"slerp\" or \"linear\", got %q", value)
		}
		c.FusionMode = value
	case "FUSION_SLERP_POWER":
		power, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FUSION_SLERP_POWER %q: %w", value, err)
		}
		if power < 0 || power > 1 {
			return fmt.Errorf("FUSION_SLERP_POWER must be in [0, 1], got %g", power)
		}
		c.FusionSlerpPower = power
	case "FUSION_Q":
		q, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FUSION_Q %q: %w", value, err)
		}
		if q < 0 {
			return fmt.Errorf("FUSION_Q must be >= 0, got %g", q)
		}
		c.FusionQ = q
	case "FUSION_R":
		r, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FUSION_R %q: %w", value, err)
		}
		if r <= 0 {
			return fmt.Errorf("FUSION_R must be > 0, got %g", r)
		}
		c.FusionR = r
	case "FUSION_ENABLE_GYRO":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FUSION_ENABLE_GYRO %q: %w", value, err)
		}
		c.FusionEnableGyro = enabled
	case "FUSION_ENABLE_ACCEL":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FUSION_ENABLE_ACCEL %q: %w", value, err)
		}
		c.FusionEnableAccel = enabled
	case "FUSION_ENABLE_COMPASS":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FUSION_ENABLE_COMPASS %q: %w", value, err)
		}
		c.FusionEnableCompass = enabled
	case "FUSION_DEBUG":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FUSION_DEBUG %q: %w", value, err)
		}
		c.FusionDebug = enabled
	case "COMPASS_DECLINATION_DEG":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_DECLINATION_DEG %q: %w", value, err)
		}
		c.CompassDeclinationDeg = deg

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.IMUSampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPoseFused == "" {
		return fmt.Errorf("TOPIC_POSE_FUSED is required")
	}
	if c.TopicIMURaw == "" {
		return fmt.Errorf("TOPIC_IMU_RAW is required")
	}
	if c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if c.IMUCSPin == "" {
		return fmt.Errorf("IMU_CS_PIN is required")
	}
	if c.IMUSampleInterval == 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
