package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/attitude_computer/internal/config"
	"github.com/relabs-tech/attitude_computer/internal/fusion"
	"github.com/relabs-tech/attitude_computer/internal/orientation"
	"github.com/relabs-tech/attitude_computer/internal/sensors"
)

// FusionOptionsFromConfig maps the config file keys onto estimator
// options.
func FusionOptionsFromConfig(cfg *config.Config) fusion.Options {
	opts := fusion.Options{
		Mode:          fusion.ModeSLERP,
		SlerpPower:    cfg.FusionSlerpPower,
		Q:             cfg.FusionQ,
		R:             cfg.FusionR,
		EnableGyro:    cfg.FusionEnableGyro,
		EnableAccel:   cfg.FusionEnableAccel,
		EnableCompass: cfg.FusionEnableCompass,
	}
	if cfg.FusionMode == "linear" {
		opts.Mode = fusion.ModeLinear
	}
	return opts
}

// RunFusionProducer reads IMU+mag samples at the configured rate, runs
// them through the orientation fusion filter and publishes the fused pose
// and the raw counts over MQTT.
func RunFusionProducer() error {
	log.Println("starting attitude-computer fusion producer")

	cfg := config.Get()

	reader, err := sensors.NewReader()
	if err != nil {
		return err
	}
	defer reader.Close()

	var trace fusion.TraceFunc
	if cfg.FusionDebug {
		trace = func(t fusion.Trace) {
			log.Printf("fusion sample %d: dt=%.4fs measured R=%.3f P=%.3f Y=%.3f | fused R=%.3f P=%.3f Y=%.3f | q=(%.4f, %.4f, %.4f, %.4f)",
				t.SampleNumber, t.TimeDelta,
				t.MeasuredPose.X, t.MeasuredPose.Y, t.MeasuredPose.Z,
				t.FusionPose.X, t.FusionPose.Y, t.FusionPose.Z,
				t.StateQ.Scalar, t.StateQ.X, t.StateQ.Y, t.StateQ.Z,
			)
		}
	}

	opts := FusionOptionsFromConfig(cfg)
	estimator := fusion.NewEstimator(opts, trace)
	log.Printf("fusion mode %s (slerp power %g, Q %g, R %g; gyro=%t accel=%t compass=%t)",
		opts.Mode, opts.SlerpPower, opts.Q, opts.R,
		opts.EnableGyro, opts.EnableAccel, opts.EnableCompass)

	// --- connect to MQTT ---
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	declination := cfg.DeclinationRad()
	logEvery := 0

	for range ticker.C {
		data, raw, err := reader.NextData()
		if err != nil {
			log.Printf("sensor read error: %v", err)
			continue
		}

		estimator.NewIMUData(&data, declination)
		pose := orientation.FromFusedData(data)

		payload, err := json.Marshal(pose)
		if err != nil {
			log.Printf("json marshal error (pose): %v", err)
		} else if token := client.Publish(cfg.TopicPoseFused, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicPoseFused, token.Error())
			continue
		}

		if payload, err := json.Marshal(raw); err != nil {
			log.Printf("json marshal error (imu raw): %v", err)
		} else if token := client.Publish(cfg.TopicIMURaw, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicIMURaw, token.Error())
			continue
		}

		// one status line per second regardless of sample rate
		logEvery++
		if logEvery*cfg.IMUSampleInterval >= 1000 {
			logEvery = 0
			log.Printf("pose R=%.2f P=%.2f Y=%.2f | accel ax=%d ay=%d az=%d | gyro gx=%d gy=%d gz=%d | mag mx=%d my=%d mz=%d valid=%t",
				pose.Roll, pose.Pitch, pose.Yaw,
				raw.Ax, raw.Ay, raw.Az,
				raw.Gx, raw.Gy, raw.Gz,
				raw.Mx, raw.My, raw.Mz, data.CompassValid,
			)
		}
	}
	return nil
}
