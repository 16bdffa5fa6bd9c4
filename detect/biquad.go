package detect

import "math"

// biquadCoeffs holds a direct-form-I biquad section. Naming follows the
// source this is ported from: a0/a1/a2 are the (gain-scaled) feedforward
// coefficients, b1/b2 the feedback coefficients.
type biquadCoeffs struct {
	a0, a1, a2 float64
	b1, b2     float64
}

// newBandpassBiquad derives a constant-peak-gain bandpass biquad (RBJ
// cookbook form) centered at freqHz with quality factor q, then scales the
// feedforward coefficients by gain so the filter's passband output sits at
// gain times unity instead of 0 dB.
func newBandpassBiquad(sampleRate, freqHz, q, gain float64) biquadCoeffs {
	w0 := 2 * math.Pi * freqHz / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	b0 := alpha
	b1raw := 0.0
	b2raw := -alpha
	a0raw := 1 + alpha
	a1raw := -2 * cosW0
	a2raw := 1 - alpha

	return biquadCoeffs{
		a0: gain * b0 / a0raw,
		a1: gain * b1raw / a0raw,
		a2: gain * b2raw / a0raw,
		b1: a1raw / a0raw,
		b2: a2raw / a0raw,
	}
}

// biquadState is the mutable delay-line state for one biquadCoeffs.
type biquadState struct {
	c            biquadCoeffs
	inD1, inD2   float64
	outD1, outD2 float64
}

func newBiquadState(c biquadCoeffs) *biquadState {
	return &biquadState{c: c}
}

// process applies the filter to one input sample, direct-form-I.
func (f *biquadState) process(in float64) float64 {
	out := in*f.c.a0 + f.inD1*f.c.a1 + f.inD2*f.c.a2 - f.c.b1*f.outD1 - f.c.b2*f.outD2
	f.inD2 = f.inD1
	f.inD1 = in
	f.outD2 = f.outD1
	f.outD1 = out
	return out
}
