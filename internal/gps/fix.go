// Package gps carries the position-fix wire type shared by the NMEA
// producer and the attitude-computer subscribers (console, OLED display).
package gps

// Fix is one RMC-derived GPS fix as published over MQTT.
type Fix struct {
	Time       string  `json:"time"` // UTC, "12:34:56"
	Date       string  `json:"date"`
	Latitude   float64 `json:"lat"` // decimal degrees, south negative
	Longitude  float64 `json:"lon"` // decimal degrees, west negative
	SpeedKnots float64 `json:"speed_knots"`
	CourseDeg  float64 `json:"course_deg"`
	Validity   string  `json:"validity"` // RMC status: "A" active, "V" void
}

// Valid reports whether the receiver flagged the fix as active.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}
