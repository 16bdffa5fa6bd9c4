// Package detect implements the streaming knock/bell transient detector.
//
// The detector consumes a 16 kHz mono PCM stream in arbitrary-sized batches
// and reports KNOCK and BELL events. All state lives in a *Detector value;
// nothing here is safe to share across goroutines without external locking,
// matching the single-threaded, single-producer contract of the collaborator
// that feeds it samples.
package detect

import (
	"fmt"
	"math"
)

// Sample rate the pipeline is tuned for. The analysis interval, bell
// confirmation window and day-wrap length are derived from it; the window
// size and knock spans are fixed sample counts chosen for this rate.
const SampleRate = 16000

const (
	maxNumPeaks = 16

	knockMaxSpan = 12000 // samples; 0.75s
	knockMinSpan = 4000  // samples; 0.25s

	windowBits = 8
	windowSize = 1 << windowBits
	windowMask = windowSize - 1

	normalizationLevel = 128
	analysisInterval    = SampleRate / 10 // 1600 samples = 100ms

	dayWrapSamples = SampleRate * 3600 * 24

	highKnockMaxRatio = 1.2
	lowKnockMaxRatio  = 1.1

	highThresholdScaling = 1.25
	lowThresholdScaling  = 1.5

	highSpuriousRejectionRatio = 0.75
	lowSpuriousRejectionRatio  = 0.5

	bellConfirmWindow   = SampleRate // 1s
	bellHitsToConfirm   = 5
	bellRatio           = 2.0
	bellOffset          = 50.0

	minDecorrelatedLevel = 1.0 // hardened floor; the original relies on never reaching 0
)

// Flags controls sensitivity and which diagnostic taps Scan fills into its
// out buffer. It is a direct bitmask, mirroring the embedded original.
type Flags uint

const (
	HighSensitivity Flags = 0x01

	DispThresholds Flags = 0x02
	DispEvents     Flags = 0x04
	DispPeaks      Flags = 0x08

	OutpDecorrAudio Flags = 0x10
	OutpDecorrLevel Flags = 0x20
	OutpNormalAudio Flags = 0x40
	OutpWindowLevel Flags = 0x80
	OutpFilterAudio Flags = 0x100
	OutpFilterLevel Flags = 0x200
)

// outpFlags lists the OUTP_* bits in tap-append order.
var outpFlags = [...]Flags{
	OutpDecorrAudio,
	OutpDecorrLevel,
	OutpNormalAudio,
	OutpWindowLevel,
	OutpFilterAudio,
	OutpFilterLevel,
}

// NumTaps returns how many int16 values Scan will append to out per input
// sample, given the OUTP_* bits set in flags.
func NumTaps(flags Flags) int {
	n := 0
	for _, f := range outpFlags {
		if flags&f != 0 {
			n++
		}
	}
	return n
}

// Detections is the bitmask of events observed during a Scan call.
type Detections uint

const (
	Knock Detections = 0x1
	Bell  Detections = 0x2
)

// BellProfile configures the narrow bandpass that the bell-level tracker
// watches. Frequency and Q are resolved into biquad coefficients at New.
type BellProfile struct {
	FreqHz float64
	Q      float64
	Gain   float64
}

// BellProfileDefault matches the fundamental of the doorbell the original
// algorithm was tuned against, measured at 770 Hz with Q = 100.
var BellProfileDefault = BellProfile{FreqHz: 770, Q: 100, Gain: 4.0}

// BellProfilePreset785 matches a second doorbell the original author
// measured, which only produced a single "ding" near 785 Hz.
var BellProfilePreset785 = BellProfile{FreqHz: 785, Q: 100, Gain: 4.0}

// Config seeds a Detector. The zero value is not usable; use
// DefaultConfig and override fields as needed.
type Config struct {
	Bell BellProfile

	// Diag receives diagnostic events and peak records when the
	// corresponding DISP_* flags are passed to Scan. May be nil, which is
	// equivalent to NoOpDiagSink.
	Diag DiagSink
}

// DefaultConfig returns a Config with the 770 Hz bell profile and no
// diagnostic sink.
func DefaultConfig() Config {
	return Config{Bell: BellProfileDefault}
}

// Detector holds all pipeline state for one stream. Zero value is invalid;
// construct with New.
type Detector struct {
	cfg Config

	// decorrelator
	lastSample int16
	weight     int16

	// level tracker / normalizer
	decorrelatedLevel float64

	// window summer
	sampleWindow [windowSize]int16
	windowIndex  int
	windowSum    int

	// peak extractor
	peakStarted  bool
	currentPeak  PeakRecord
	peaks        peakBuffer
	threshold    thresholdController

	// bell pipeline
	bellFilter *biquadState
	bellLevel  float64

	sampleIndex int64
}

// New constructs a Detector from cfg. This is the pipeline's "init": it
// configures the bell biquad for cfg.Bell and zeroes every buffer.
func New(cfg Config) *Detector {
	if cfg.Bell.FreqHz == 0 {
		cfg.Bell = BellProfileDefault
	}
	if cfg.Diag == nil {
		cfg.Diag = NoOpDiagSink{}
	}

	d := &Detector{cfg: cfg, peaks: peakBuffer{peaks: make([]PeakRecord, 0, maxNumPeaks)}}
	d.initState()
	return d
}

func (d *Detector) initState() {
	d.lastSample = 0
	d.weight = 0
	d.decorrelatedLevel = 32760.0
	d.sampleWindow = [windowSize]int16{}
	d.windowIndex = 0
	d.windowSum = 0
	d.peakStarted = false
	d.currentPeak = PeakRecord{}
	d.peaks.clear()
	d.threshold.reset()
	coeffs := newBandpassBiquad(SampleRate, d.cfg.Bell.FreqHz, d.cfg.Bell.Q, gainOrDefault(d.cfg.Bell.Gain))
	d.bellFilter = newBiquadState(coeffs)
	d.bellLevel = 0
	d.sampleIndex = 0
}

func gainOrDefault(g float64) float64 {
	if g == 0 {
		return BellProfileDefault.Gain
	}
	return g
}

// Reset returns the detector to the state a fresh New(cfg) would produce,
// using the same configuration.
func (d *Detector) Reset() {
	d.initState()
}

// SetDiag swaps the diagnostic sink Scan reports to, without touching any
// other pipeline state. A caller can use this to tag each Scan call's
// diagnostics with a fresh identity, e.g. a per-batch correlation ID.
func (d *Detector) SetDiag(sink DiagSink) {
	if sink == nil {
		sink = NoOpDiagSink{}
	}
	d.cfg.Diag = sink
}

// Stats is a read-only snapshot of internal state, useful for tests and
// diagnostics without exposing mutable pipeline internals.
type Stats struct {
	SampleIndex   int64
	NumPeaks      int
	PeakThreshold float64
	BellLevel     float64
	WindowSum     int
}

// Stats returns a snapshot of the detector's current state.
func (d *Detector) Stats() Stats {
	return Stats{
		SampleIndex:   d.sampleIndex,
		NumPeaks:      d.peaks.len(),
		PeakThreshold: d.threshold.peakThreshold,
		BellLevel:     d.bellLevel,
		WindowSum:     d.windowSum,
	}
}

// Scan processes in, appending diagnostic taps selected by flags to out (out
// must have length len(in)*NumTaps(flags); pass nil or a zero-length slice
// if no taps are enabled), and returns the OR of every KNOCK/BELL event
// observed during the call.
func (d *Detector) Scan(in []int16, out []int16, flags Flags) Detections {
	var detections Detections
	outIdx := 0

	scaling := lowThresholdScaling
	knockMaxRatio := lowKnockMaxRatio
	rejectRatio := lowSpuriousRejectionRatio
	if flags&HighSensitivity != 0 {
		scaling = highThresholdScaling
		knockMaxRatio = highKnockMaxRatio
		rejectRatio = highSpuriousRejectionRatio
	}

	for _, rawSample := range in {
		sample := rawSample

		// 1. Decorrelator.
		sample -= int16((int32(d.weight)*int32(d.lastSample) + 512) >> 10)

		if sample != 0 && d.lastSample != 0 {
			d.weight += int16((((sample ^ d.lastSample) >> 15) | 1) << 1)
		}
		d.lastSample = rawSample

		if len(out) > 0 && flags&OutpDecorrAudio != 0 {
			out[outIdx] = sample
			outIdx++
		}

		// 2. Level tracker.
		d.decorrelatedLevel = d.decorrelatedLevel*(255.0/256.0) + absInt16(sample)*(1.0/256.0)
		if d.decorrelatedLevel < minDecorrelatedLevel {
			d.decorrelatedLevel = minDecorrelatedLevel
		}

		if len(out) > 0 && flags&OutpDecorrLevel != 0 {
			out[outIdx] = clampInt16(d.decorrelatedLevel)
			outIdx++
		}

		// 3. Normalizer.
		normalizedSample := float64(sample) / d.decorrelatedLevel * normalizationLevel
		if normalizedSample > 32760.0 {
			normalizedSample = 32760.0
		} else if normalizedSample < -32760.0 {
			normalizedSample = -32760.0
		}

		if len(out) > 0 && flags&OutpNormalAudio != 0 {
			out[outIdx] = int16(normalizedSample)
			outIdx++
		}

		// 4. Window summer.
		d.windowSum -= int(d.sampleWindow[d.windowIndex])
		d.sampleWindow[d.windowIndex] = int16(math.Abs(normalizedSample))
		d.windowSum += int(d.sampleWindow[d.windowIndex])
		d.windowIndex = (d.windowIndex + 1) & windowMask
		windowLevel := ((d.windowSum + windowSize/2) >> windowBits) - normalizationLevel

		if len(out) > 0 && flags&OutpWindowLevel != 0 {
			out[outIdx] = int16(windowLevel)
			outIdx++
		}

		// Bell bandpass, applied to the normalized stream independent of
		// the window/peak pipeline above.
		filteredSample := d.bellFilter.process(normalizedSample)

		if len(out) > 0 && flags&OutpFilterAudio != 0 {
			out[outIdx] = clampInt16(filteredSample)
			outIdx++
		}

		d.bellLevel = d.bellLevel*(255.0/256.0) + math.Abs(filteredSample)*(1.0/256.0)

		if len(out) > 0 && flags&OutpFilterLevel != 0 {
			out[outIdx] = clampInt16(d.bellLevel)
			outIdx++
		}

		// 5. Peak extractor + threshold acceptance.
		if d.peakStarted || windowLevel > 0 {
			switch {
			case !d.peakStarted:
				d.currentPeak = PeakRecord{
					Time:                 d.sampleIndex,
					Height:               windowLevel,
					Area:                 windowLevel,
					FilteredLevelAtStart: d.bellLevel,
				}
				d.peakStarted = true
			case windowLevel > d.currentPeak.Height:
				d.currentPeak.Time = d.sampleIndex
				d.currentPeak.Height = windowLevel
			case windowLevel <= 0:
				d.peakStarted = false
				d.closePeak(flags, scaling)
			default:
				d.currentPeak.Area += windowLevel
			}
		}

		// 6. Classifier tick.
		d.sampleIndex++
		if d.sampleIndex%analysisInterval == 0 {
			detections |= d.checkPeaks(flags, knockMaxRatio, rejectRatio)
			d.threshold.decay()
		}

		if flags&DispThresholds != 0 && d.sampleIndex%(SampleRate*10) == 0 {
			d.cfg.Diag.Thresholds(d.threshold.peakThreshold, d.threshold.peakThreshold*scaling, d.sampleIndex)
		}

		if d.sampleIndex > dayWrapSamples && d.peaks.len() == 0 && !d.peakStarted {
			d.sampleIndex %= dayWrapSamples
		}
	}

	return detections
}

func (d *Detector) closePeak(flags Flags, scaling float64) {
	if !d.threshold.accept(d.currentPeak.Height, scaling) {
		return
	}

	d.currentPeak.Width = d.currentPeak.Area / d.currentPeak.Height

	if flags&DispPeaks != 0 {
		d.cfg.Diag.Peak(d.currentPeak)
	}

	evictedHeight, evicted, dropped := d.peaks.add(d.currentPeak)
	if flags&DispEvents != 0 {
		if dropped {
			d.cfg.Diag.Event("add_peak: discarded newest peak, buffer full")
		} else if evicted {
			d.cfg.Diag.Event(fmt.Sprintf("add_peak: discarded smallest peak, buffer full (height=%d)", evictedHeight))
		}
	}
}

func absInt16(v int16) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

func clampInt16(v float64) int16 {
	if v > 32760.0 {
		return 32760
	}
	if v < -32760.0 {
		return -32760
	}
	return int16(v)
}
