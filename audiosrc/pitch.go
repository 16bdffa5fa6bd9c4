package audiosrc

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// PitchDetectorConfig bounds and tunes a PitchDetector's search.
type PitchDetectorConfig struct {
	SampleRate     float64
	FFTSize        int
	MinFreq        float64
	MaxFreq        float64
	NoiseThreshold float64
}

// PitchDetector finds the dominant frequency within [MinFreq, MaxFreq] of a
// buffered clip, via a windowed FFT and parabolic bin interpolation. It is
// used only by the offline calibration path (cmd/edogscan -calibrate) to
// suggest a BellProfile from a recorded ring — never on the detector's live
// audio path, which stays purely time-domain per its own design.
type PitchDetector struct {
	config PitchDetectorConfig
	win    []float64
}

// NewPitchDetector creates a detector with a cached Blackman window of
// cfg.FFTSize samples.
func NewPitchDetector(cfg PitchDetectorConfig) *PitchDetector {
	return &PitchDetector{config: cfg, win: window.Blackman(cfg.FFTSize)}
}

// Detect returns the estimated dominant frequency in the search band and
// its raw FFT magnitude. found is false if samples is too short or the
// peak magnitude falls below NoiseThreshold.
func (pd *PitchDetector) Detect(samples []float64) (freq, magnitude float64, found bool) {
	if len(samples) < pd.config.FFTSize {
		return 0, 0, false
	}

	spectrum := pd.computeFFT(samples)
	freq, magnitude = pd.findPeak(spectrum)

	if magnitude < pd.config.NoiseThreshold {
		return freq, magnitude, false
	}
	return freq, magnitude, true
}

func (pd *PitchDetector) computeFFT(samples []float64) []complex128 {
	input := samples[len(samples)-pd.config.FFTSize:]
	windowed := make([]float64, len(input))
	for i, v := range input {
		windowed[i] = v * pd.win[i]
	}
	return fft.FFTReal(windowed)
}

func (pd *PitchDetector) findPeak(spectrum []complex128) (freq, mag float64) {
	binRes := pd.config.SampleRate / float64(pd.config.FFTSize)
	minBin := int(pd.config.MinFreq / binRes)
	maxBin := int(pd.config.MaxFreq / binRes)

	maxMag := -1.0
	maxIndex := -1

	for i := minBin; i < maxBin && i < len(spectrum)/2; i++ {
		m := cmplx.Abs(spectrum[i])
		if m > maxMag {
			maxMag = m
			maxIndex = i
		}
	}

	if maxIndex == -1 {
		return 0, 0
	}

	if maxIndex <= 0 || maxIndex >= len(spectrum)-1 {
		return float64(maxIndex) * binRes, maxMag
	}

	y1 := cmplx.Abs(spectrum[maxIndex-1])
	y2 := maxMag
	y3 := cmplx.Abs(spectrum[maxIndex+1])

	delta := 0.0
	denominator := 2 * (2*y2 - y1 - y3)
	if denominator != 0 {
		delta = (y3 - y1) / denominator
	}

	return (float64(maxIndex) + delta) * binRes, maxMag
}

// rmsMagnitudeFloor derives a reasonable noise threshold from a clip's RMS,
// used when the caller has no fixed NoiseThreshold in mind.
func rmsMagnitudeFloor(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(sum/float64(len(samples))) * float64(len(samples)) * 0.05
}
