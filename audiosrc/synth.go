package audiosrc

import "math"

// Synth builds synthetic int16 streams at detect.SampleRate, used by tests
// and the benchmark harness to exercise the detector without real audio
// hardware.
type Synth struct {
	SampleRate int
}

// NewSynth creates a generator at the given sample rate.
func NewSynth(sampleRate int) *Synth {
	return &Synth{SampleRate: sampleRate}
}

// Silence returns n zero samples.
func (s *Synth) Silence(n int) []int16 {
	return make([]int16, n)
}

// Pulse returns a short unit-ish amplitude transient: a half-cosine
// envelope over durationMs milliseconds, at the given peak amplitude.
func (s *Synth) Pulse(durationMs float64, amplitude int16) []int16 {
	n := int(durationMs / 1000.0 * float64(s.SampleRate))
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
		out[i] = int16(envelope * float64(amplitude))
	}
	return out
}

// Tone returns a pure sine wave at freqHz for durationMs milliseconds.
func (s *Synth) Tone(freqHz float64, durationMs float64, amplitude int16) []int16 {
	n := int(durationMs / 1000.0 * float64(s.SampleRate))
	out := make([]int16, n)
	omega := 2 * math.Pi * freqHz / float64(s.SampleRate)
	for i := 0; i < n; i++ {
		out[i] = int16(float64(amplitude) * math.Sin(omega*float64(i)))
	}
	return out
}

// WhiteNoise returns n samples of uniform white noise with the given RMS
// amplitude, deterministic given seed (no math/rand global state, so tests
// stay reproducible across runs).
func (s *Synth) WhiteNoise(n int, rms float64, seed uint64) []int16 {
	out := make([]int16, n)
	state := seed | 1

	for i := 0; i < n; i++ {
		// xorshift64star: fast, deterministic, good enough for test fixtures.
		state ^= state >> 12
		state ^= state << 25
		state ^= state >> 27
		r := state * 2685821657736338717

		u := float64(r>>11) / (1 << 53) // uniform in [0,1)
		v := (u*2 - 1) * rms * math.Sqrt(3) // approximate uniform with matching RMS
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}

	return out
}

// Concat concatenates any number of sample slices.
func Concat(slices ...[]int16) []int16 {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	out := make([]int16, 0, total)
	for _, s := range slices {
		out = append(out, s...)
	}
	return out
}
