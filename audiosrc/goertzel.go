package audiosrc

import "math"

// Goertzel measures the energy of one exact target frequency within a
// block of samples — far cheaper than a full FFT when only a single bin is
// of interest. Used as the fine-grained confirmation step after PitchDetector
// has found a coarse candidate frequency, mirroring a classic two-stage
// coarse-FFT/fine-Goertzel frequency lock.
type Goertzel struct {
	coeff  float64
	q1, q2 float64
}

// NewGoertzel initializes the algorithm for targetFreq at sampleRate.
func NewGoertzel(sampleRate, targetFreq float64) *Goertzel {
	normalizedFreq := targetFreq / sampleRate
	return &Goertzel{coeff: 2.0 * math.Cos(2.0*math.Pi*normalizedFreq)}
}

// Reset clears accumulated state between blocks.
func (g *Goertzel) Reset() {
	g.q1, g.q2 = 0, 0
}

// ProcessBlock feeds an entire block of samples.
func (g *Goertzel) ProcessBlock(samples []float64) {
	for _, s := range samples {
		q0 := g.coeff*g.q1 - g.q2 + s
		g.q2 = g.q1
		g.q1 = q0
	}
}

// Magnitude returns the accumulated energy magnitude at the target
// frequency for the block processed so far.
func (g *Goertzel) Magnitude() float64 {
	magSq := g.q1*g.q1 + g.q2*g.q2 - g.q1*g.q2*g.coeff
	if magSq < 0 {
		return 0
	}
	return math.Sqrt(magSq)
}
