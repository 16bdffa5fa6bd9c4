// Package system wires the detector core and its collaborators
// (capture/replay, calibration, logging, serial relay, LED status) into one
// runnable lifecycle, matching the orchestration layer's role in the
// original: own startup/shutdown order, own the calibration buffer, own the
// replay ticker.
package system

import (
	"fmt"
	"log"
	"os"
	"time"

	"knockbell/audiosrc"
	"knockbell/config"
	"knockbell/detect"
	"knockbell/eventsink"
)

// System owns one detector's full lifecycle: audio source (live capture or
// WAV replay), the detector itself, optional calibration pass, and the
// sinks that events fan out to.
type System struct {
	cfg *config.Config

	SampleRate int

	detector *detect.Detector

	capture   *audiosrc.Capture
	wavReader *audiosrc.WavReader
	wavWriter *audiosrc.WavWriter

	logSink  *eventsink.LogDiagSink
	uart     *eventsink.UARTSink
	led      *eventsink.LEDStatus
	bark     *eventsink.BarkPlayer

	isCalibrated      bool
	calibrationBuffer []int16

	replayFile string
	recordFile string

	// OnDetections is called whenever a Scan batch reports KNOCK and/or
	// BELL, after the sinks have already been notified.
	OnDetections func(detect.Detections)
}

// New creates a system from cfg, wiring a fresh detector and, if
// cfg.Sink.SerialEnabled, a UART relay. Audio source is chosen at Start
// time based on SetReplayFile.
func New(cfg *config.Config) *System {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &System{
		cfg:        cfg,
		SampleRate: detect.SampleRate,
	}

	dcfg := detect.DefaultConfig()
	s.logSink = eventsink.NewLogDiagSink(nil)
	dcfg.Diag = s.logSink
	s.detector = detect.New(dcfg)

	if cfg.Sink.SerialEnabled {
		s.uart = eventsink.NewUARTSink(cfg.Sink.SerialPort, cfg.Sink.SerialBaud)
	}

	s.led = eventsink.NewLEDStatus(float64(s.SampleRate), 0.1, 0.05, 50, func(p eventsink.BlinkPattern) {
		log.Printf("[led] pattern -> %d", p)
	})

	if !cfg.Calibrate.Enabled {
		s.isCalibrated = true
	}

	return s
}

// EnableRecording arms writing every captured/replayed sample to filename.
func (s *System) EnableRecording(filename string) {
	s.recordFile = filename
}

// SetReplayFile switches Start into replay mode, reading filename instead
// of opening a live capture device.
func (s *System) SetReplayFile(filename string) {
	s.replayFile = filename
}

// Start brings the system up: opens the audio source, the serial relay (if
// configured), and begins feeding the detector.
func (s *System) Start() error {
	if s.replayFile != "" {
		var err error
		s.wavReader, err = audiosrc.NewWavReader(s.replayFile)
		if err != nil {
			return fmt.Errorf("system: open replay file: %w", err)
		}
		s.SampleRate = s.wavReader.SampleRate
		fmt.Printf("mode: replay (%s, %d Hz)\n", s.replayFile, s.SampleRate)
	}

	if s.uart != nil {
		if err := s.uart.Open(); err != nil {
			log.Printf("warning: serial relay unavailable: %v", err)
			s.uart = nil
		}
	}

	if s.cfg.Sink.BarkEnabled {
		if err := s.startBarkPlayer(); err != nil {
			log.Printf("warning: bark playback unavailable: %v", err)
			s.bark = nil
		}
	}

	if s.recordFile != "" {
		var err error
		s.wavWriter, err = audiosrc.NewWavWriter(s.recordFile, s.SampleRate)
		if err != nil {
			return fmt.Errorf("system: create recording file: %w", err)
		}
		fmt.Printf("recording audio to %s\n", s.recordFile)
	}

	if s.replayFile != "" {
		go s.runReplayLoop()
		return nil
	}

	return s.startAudioCapture()
}

// Stop tears the system down in reverse dependency order.
func (s *System) Stop() {
	if s.capture != nil {
		s.capture.Stop()
	}
	if s.wavWriter != nil {
		fmt.Println("saving recording...")
		s.wavWriter.Close()
	}
	if s.wavReader != nil {
		s.wavReader.Close()
	}
	if s.uart != nil {
		s.uart.Close()
	}
	if s.bark != nil {
		s.bark.Stop()
	}
}

// startBarkPlayer loads the configured clip playlist and opens the
// playback device, wiring its state-change callback to latch BlinkBark on
// the LED when a clip starts. The latch lasts only until the next
// FeedLevel call, which processAudioChunk makes for every batch, so the LED
// does not hold BlinkBark for the whole clip.
func (s *System) startBarkPlayer() error {
	clips, err := eventsink.LoadClips(s.cfg.Sink.BarkClips)
	if err != nil {
		return err
	}

	s.bark, err = eventsink.NewBarkPlayer(s.SampleRate, clips, func(playing bool) {
		if playing {
			s.led.Latch(eventsink.BlinkBark)
		}
	})
	if err != nil {
		return err
	}

	return s.bark.Start()
}

func (s *System) processAudioChunk(samples []int16) {
	if s.wavWriter != nil {
		_ = s.wavWriter.WriteSamples(samples)
	}

	if !s.isCalibrated {
		s.runCalibration(samples)
		return
	}

	var flags detect.Flags
	if s.cfg.Flags.HighSensitivity {
		flags |= detect.HighSensitivity
	}
	if s.cfg.Flags.LogThresholds {
		flags |= detect.DispThresholds
	}
	if s.cfg.Flags.LogEvents {
		flags |= detect.DispEvents
	}
	if s.cfg.Flags.LogPeaks {
		flags |= detect.DispPeaks
	}

	batchID := eventsink.NewBatchCorrelationID()
	s.detector.SetDiag(s.logSink.WithCorrelationID(batchID))

	detections := s.detector.Scan(samples, nil, flags)

	stats := s.detector.Stats()
	s.led.FeedLevel(stats.BellLevel / 1000.0)

	if detections != 0 {
		if detections&detect.Knock != 0 {
			s.led.Latch(eventsink.BlinkKnock)
		} else if detections&detect.Bell != 0 {
			s.led.Latch(eventsink.BlinkBell)
		}
		if s.uart != nil {
			if err := s.uart.SendDetections(detections); err != nil {
				log.Printf("serial relay send failed: %v", err)
			}
		}
		if s.bark != nil {
			s.bark.Trigger()
		}
		if s.OnDetections != nil {
			s.OnDetections(detections)
		}
	}
}

func (s *System) runCalibration(samples []int16) {
	s.calibrationBuffer = append(s.calibrationBuffer, samples...)

	clipLen := int(s.cfg.Calibrate.ClipDuration.Seconds() * float64(s.SampleRate))
	if len(s.calibrationBuffer) < clipLen {
		return
	}

	result, err := audiosrc.Calibrate(s.calibrationBuffer, s.cfg.Calibrate.MinFrequency, s.cfg.Calibrate.MaxFrequency)
	if err != nil {
		fmt.Print(".")
		s.calibrationBuffer = s.calibrationBuffer[:0]
		return
	}

	dcfg := detect.DefaultConfig()
	dcfg.Bell = result.Profile
	dcfg.Diag = s.logSink
	s.detector = detect.New(dcfg)

	fmt.Printf("\n[calib] locked: %.1f Hz, gain=%.2f, noise_floor=%.4f\n",
		result.Profile.FreqHz, result.Profile.Gain, result.NoiseFloor)

	s.isCalibrated = true
	s.calibrationBuffer = nil
}

func (s *System) startAudioCapture() error {
	var err error
	s.capture, err = audiosrc.NewCapture(s.cfg.Capture.DeviceName, s.SampleRate, s.cfg.Capture.PreGain, s.processAudioChunk)
	if err != nil {
		return fmt.Errorf("system: init audio capture: %w", err)
	}
	return s.capture.Start()
}

func (s *System) runReplayLoop() {
	const chunkSize = 1024
	interval := time.Second * time.Duration(chunkSize) / time.Duration(s.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Println("replay started...")
	for range ticker.C {
		samples, err := s.wavReader.ReadSamples(chunkSize)
		if err != nil {
			fmt.Println("\nend of file.")
			os.Exit(0)
		}
		s.processAudioChunk(samples)
	}
}
