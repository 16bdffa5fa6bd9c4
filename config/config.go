// Package config centralizes the tunable parameters for everything around
// the core detector: capture device selection, calibration search bounds,
// and the serial/logging sinks. The detector itself takes its own
// detect.Config directly — this is for the system that wires it up.
package config

import "time"

// Config collects every adjustable knob outside the detector core.
type Config struct {
	Capture struct {
		DeviceName string // substring match; empty selects the system default
		PreGain    bool   // apply a soft AGC ahead of quantization
	}

	Calibrate struct {
		Enabled       bool          // run a calibration pass before live detection
		ClipDuration  time.Duration // how much audio to buffer for the FFT/Goertzel pass
		MinFrequency  float64
		MaxFrequency  float64
	}

	Sink struct {
		SerialPort    string
		SerialBaud    int
		SerialEnabled bool

		BarkEnabled bool     // play a canned audio clip back on each detection
		BarkClips   []string // WAV filenames, played in rotation
	}

	Flags struct {
		HighSensitivity bool
		LogThresholds   bool
		LogEvents       bool
		LogPeaks        bool
	}
}

// DefaultConfig returns sensible defaults: default capture device, a 2s
// calibration clip searching 600-900 Hz, serial relay disabled, normal
// sensitivity with event logging on.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Capture.DeviceName = ""
	cfg.Capture.PreGain = false

	cfg.Calibrate.Enabled = false
	cfg.Calibrate.ClipDuration = 2 * time.Second
	cfg.Calibrate.MinFrequency = 600.0
	cfg.Calibrate.MaxFrequency = 900.0

	cfg.Sink.SerialPort = "/dev/ttyUSB0"
	cfg.Sink.SerialBaud = 115200
	cfg.Sink.SerialEnabled = false
	cfg.Sink.BarkEnabled = false
	cfg.Sink.BarkClips = nil

	cfg.Flags.HighSensitivity = false
	cfg.Flags.LogThresholds = false
	cfg.Flags.LogEvents = true
	cfg.Flags.LogPeaks = false

	return cfg
}
