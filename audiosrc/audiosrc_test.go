package audiosrc

import (
	"os"
	"testing"
)

func TestWavRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/round_trip.wav"

	synth := NewSynth(16000)
	samples := synth.Tone(770, 50, 8000)

	w, err := NewWavWriter(path, 16000)
	if err != nil {
		t.Fatalf("NewWavWriter: %v", err)
	}
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewWavReader(path)
	if err != nil {
		t.Fatalf("NewWavReader: %v", err)
	}
	defer r.Close()

	if r.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", r.SampleRate)
	}
	if r.Channels != 1 {
		t.Fatalf("expected mono, got %d channels", r.Channels)
	}

	got, err := r.ReadSamples(len(samples))
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples back, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d mismatch: want %d got %d", i, samples[i], got[i])
		}
	}

	os.Remove(path)
}

func TestSynthPulseShape(t *testing.T) {
	synth := NewSynth(16000)
	p := synth.Pulse(5, 1000)

	if len(p) == 0 {
		t.Fatal("expected nonempty pulse")
	}
	if p[0] != 0 {
		t.Fatalf("expected pulse to start near zero, got %d", p[0])
	}
	mid := len(p) / 2
	if p[mid] < 500 {
		t.Fatalf("expected pulse to peak near its midpoint, got %d at index %d", p[mid], mid)
	}
}

func TestSynthWhiteNoiseDeterministic(t *testing.T) {
	synth := NewSynth(16000)
	a := synth.WhiteNoise(1000, 2000, 42)
	b := synth.WhiteNoise(1000, 2000, 42)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic noise for a fixed seed, differed at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestGoertzelLocksOntoToneFrequency(t *testing.T) {
	synth := NewSynth(16000)
	tone := synth.Tone(770, 100, 8000)

	floats := make([]float64, len(tone))
	for i, s := range tone {
		floats[i] = float64(s)
	}

	onTarget := NewGoertzel(16000, 770)
	onTarget.ProcessBlock(floats)

	offTarget := NewGoertzel(16000, 1200)
	offTarget.ProcessBlock(floats)

	if onTarget.Magnitude() <= offTarget.Magnitude() {
		t.Fatalf("expected on-target magnitude (%v) to exceed off-target (%v)", onTarget.Magnitude(), offTarget.Magnitude())
	}
}
