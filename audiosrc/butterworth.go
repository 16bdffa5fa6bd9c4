package audiosrc

import "math"

// biquadSection is one cascaded second-order IIR stage, transposed
// direct-form-II.
type biquadSection struct {
	a0, a1, a2, b1, b2 float64
	z1, z2             float64
}

func (f *biquadSection) process(in float64) float64 {
	out := in*f.a0 + f.z1
	f.z1 = in*f.a1 - out*f.b1 + f.z2
	f.z2 = in*f.a2 - out*f.b2
	return out
}

// ButterworthLowpass is a cascade of biquad sections approximating an
// N-order Butterworth lowpass, used ahead of decimation to avoid aliasing
// when the capture device's native rate exceeds the detector's target
// rate.
type ButterworthLowpass struct {
	sections []*biquadSection
}

// NewButterworthLowpass builds an order-th Butterworth lowpass (order must
// be even) with the given cutoff, via the bilinear transform of the analog
// prototype's poles.
func NewButterworthLowpass(order int, sampleRate, cutoffFreq float64) *ButterworthLowpass {
	if order%2 != 0 {
		panic("audiosrc: butterworth order must be even")
	}
	if cutoffFreq >= sampleRate*0.499 {
		cutoffFreq = sampleRate * 0.499
	}

	sections := make([]*biquadSection, order/2)
	w := 2.0 * sampleRate * math.Tan(math.Pi*cutoffFreq/sampleRate)

	for i := 0; i < order/2; i++ {
		poleIdx := (order/2 - 1) - i
		theta := math.Pi * (2.0*float64(poleIdx) + 1.0) / (2.0 * float64(order))

		pRe := -w * math.Sin(theta)
		pIm := w * math.Cos(theta)

		alpha := 4.0*sampleRate*sampleRate - 4.0*sampleRate*pRe + pRe*pRe + pIm*pIm
		b1 := (-8.0*sampleRate*sampleRate + 2.0*(pRe*pRe+pIm*pIm)) / alpha
		b2 := (4.0*sampleRate*sampleRate + 4.0*sampleRate*pRe + pRe*pRe + pIm*pIm) / alpha
		a0 := (w * w) / alpha
		a1 := (2.0 * w * w) / alpha
		a2 := (w * w) / alpha

		sections[i] = &biquadSection{a0: a0, a1: a1, a2: a2, b1: b1, b2: b2}
	}

	return &ButterworthLowpass{sections: sections}
}

// Process filters one sample through every cascaded section.
func (f *ButterworthLowpass) Process(in float64) float64 {
	out := in
	for _, s := range f.sections {
		out = s.process(out)
	}
	return out
}
