package detect

import "testing"

func TestWindowSumMatchesRingBufferContents(t *testing.T) {
	d := New(DefaultConfig())

	in := whiteNoiseFixture(500, 3000, 42)
	d.Scan(in, nil, 0)

	var recomputed int
	for _, v := range d.sampleWindow {
		recomputed += int(v)
	}

	if recomputed != d.windowSum {
		t.Fatalf("windowSum invariant broken: tracked=%d recomputed=%d", d.windowSum, recomputed)
	}
}

func TestPeakBufferNeverExceedsCapacity(t *testing.T) {
	b := &peakBuffer{}

	for i := 0; i < 40; i++ {
		b.add(PeakRecord{Time: int64(i * 100), Height: i + 1})
		if b.len() > maxNumPeaks {
			t.Fatalf("peak buffer exceeded capacity after %d inserts: len=%d", i+1, b.len())
		}
	}

	if b.len() != maxNumPeaks {
		t.Fatalf("expected buffer to saturate at %d, got %d", maxNumPeaks, b.len())
	}
}

func TestPeakBufferSaturationKeepsTallestPeaks(t *testing.T) {
	b := &peakBuffer{}

	// 20 equal-height transients within KNOCK_MAX_SPAN, except the last
	// four are taller - eviction must prefer to keep the 16 tallest.
	for i := 0; i < 20; i++ {
		height := 10
		if i >= 16 {
			height = 100
		}
		b.add(PeakRecord{Time: int64(i * 200), Height: height})
	}

	if b.len() != maxNumPeaks {
		t.Fatalf("expected saturated buffer of %d, got %d", maxNumPeaks, b.len())
	}

	for i := 0; i < b.len(); i++ {
		p := b.at(i)
		if p.Height == 100 {
			continue
		}
		if p.Height != 10 {
			t.Fatalf("unexpected peak height in buffer: %d", p.Height)
		}
	}

	var tallCount int
	for i := 0; i < b.len(); i++ {
		if b.at(i).Height == 100 {
			tallCount++
		}
	}
	if tallCount != 4 {
		t.Fatalf("expected all 4 tall peaks to survive eviction, got %d", tallCount)
	}
}

func TestPeakBufferStaysTimeOrdered(t *testing.T) {
	b := &peakBuffer{}

	for i := 0; i < 30; i++ {
		b.add(PeakRecord{Time: int64(i * 50), Height: (i % 7) + 1})
	}

	for i := 1; i < b.len(); i++ {
		if b.at(i).Time <= b.at(i-1).Time {
			t.Fatalf("peak buffer lost time ordering at index %d: %d <= %d", i, b.at(i).Time, b.at(i-1).Time)
		}
	}
}

func TestPeakBufferExpiresStalePeaks(t *testing.T) {
	b := &peakBuffer{}
	b.add(PeakRecord{Time: 0, Height: 5})
	b.add(PeakRecord{Time: knockMaxSpan, Height: 5})

	b.expireBefore(3*knockMaxSpan + 1)

	if b.len() != 0 {
		t.Fatalf("expected both peaks to expire, got %d remaining", b.len())
	}
}

func TestThresholdDecayIsMonotonicallyDecreasing(t *testing.T) {
	var c thresholdController
	c.reset()

	prev := c.peakThreshold
	for i := 0; i < 100; i++ {
		c.decay()
		if c.peakThreshold >= prev {
			t.Fatalf("threshold did not decay at step %d: %v >= %v", i, c.peakThreshold, prev)
		}
		prev = c.peakThreshold
	}
}

func TestThresholdAcceptRaisesBaselineOnAcceptance(t *testing.T) {
	var c thresholdController
	c.reset()

	before := c.peakThreshold
	c.accept(int(before)+1000, lowThresholdScaling)

	if c.peakThreshold <= before {
		t.Fatalf("expected baseline to rise after an acceptance, before=%v after=%v", before, c.peakThreshold)
	}
}

func TestSampleIndexWrapsAfterOneDayWhenIdle(t *testing.T) {
	d := New(DefaultConfig())
	d.sampleIndex = dayWrapSamples + 1

	d.Scan(make([]int16, 1), nil, 0)

	if d.sampleIndex >= dayWrapSamples {
		t.Fatalf("expected sampleIndex to wrap once past the day boundary while idle, got %d", d.sampleIndex)
	}
}

func TestSampleIndexDoesNotWrapWithPendingPeaks(t *testing.T) {
	d := New(DefaultConfig())
	d.peaks.add(PeakRecord{Time: 0, Height: 100})
	d.sampleIndex = dayWrapSamples + 1

	d.Scan(make([]int16, 1), nil, 0)

	if d.sampleIndex < dayWrapSamples {
		t.Fatalf("did not expect a wrap with a peak still pending in the buffer, got %d", d.sampleIndex)
	}
}

func whiteNoiseFixture(n int, rms float64, seed uint64) []int16 {
	out := make([]int16, n)
	state := seed | 1
	for i := 0; i < n; i++ {
		state ^= state >> 12
		state ^= state << 25
		state ^= state >> 27
		r := state * 2685821657736338717
		u := float64(r>>11) / (1 << 53)
		v := (u*2 - 1) * rms
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
