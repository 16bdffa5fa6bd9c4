package audiosrc

import (
	"fmt"

	"knockbell/detect"
	"knockbell/filters"
)

// CalibrationResult is the outcome of analyzing a recorded clip that is
// expected to contain at least one ring of the target bell.
type CalibrationResult struct {
	Profile        detect.BellProfile
	SuggestedGain  float64
	NoiseFloor     float64
	SignalPeak     float64
	GoertzelLocked bool
}

// Calibrate analyzes samples (mono int16 at detect.SampleRate) and returns a
// BellProfile tuned to whatever narrow-band tone dominates the clip between
// minFreq and maxFreq. It runs a coarse FFT search (PitchDetector) to find a
// candidate frequency, then confirms it with a single-bin Goertzel pass, and
// uses a LevelHistory over the clip's envelope to size a suggested gain.
func Calibrate(samples []int16, minFreq, maxFreq float64) (CalibrationResult, error) {
	if len(samples) == 0 {
		return CalibrationResult{}, fmt.Errorf("audiosrc: calibration clip is empty")
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s) / 32768.0
	}

	const fftSize = 4096
	pd := NewPitchDetector(PitchDetectorConfig{
		SampleRate:     detect.SampleRate,
		FFTSize:        fftSize,
		MinFreq:        minFreq,
		MaxFreq:        maxFreq,
		NoiseThreshold: rmsMagnitudeFloor(floats),
	})

	tail := floats
	if len(tail) > fftSize {
		tail = tail[len(tail)-fftSize:]
	}
	freq, _, found := pd.Detect(floats)
	if !found {
		return CalibrationResult{}, fmt.Errorf("audiosrc: no dominant tone found in [%.0f,%.0f] Hz", minFreq, maxFreq)
	}

	g := NewGoertzel(detect.SampleRate, freq)
	g.ProcessBlock(tail)
	goertzelMag := g.Magnitude()
	locked := goertzelMag > 0

	history := filters.NewLevelHistory(float64(len(floats))/detect.SampleRate, detect.SampleRate)
	agc := filters.NewEnvelopeAGC(0.999, 0.001)
	for _, v := range floats {
		history.Push(agc.Update(v))
	}
	_, signalPeak, noiseFloor := history.Suggest()

	gain := detect.BellProfileDefault.Gain
	if signalPeak > 0 {
		gain = 4.0 * (signalPeak / (noiseFloor + 0.01))
		if gain < 1 {
			gain = 1
		}
		if gain > 16 {
			gain = 16
		}
	}

	return CalibrationResult{
		Profile:        detect.BellProfile{FreqHz: freq, Q: 100, Gain: gain},
		SuggestedGain:  gain,
		NoiseFloor:     noiseFloor,
		SignalPeak:     signalPeak,
		GoertzelLocked: locked,
	}, nil
}
