package filters

import "sort"

// LevelHistory keeps a downsampled rolling window of an envelope signal and
// suggests a noise-floor/signal-peak split from its distribution. It backs
// the offline bell-profile calibration helper: fed a clip of ambient audio
// plus a bell ring, it tells the caller where the quiet and loud bands sit.
type LevelHistory struct {
	buffer     []float64
	head       int
	full       bool
	downSample int
	counter    int
}

// NewLevelHistory creates a history covering historyDuration seconds of
// input sampled at sampleRate, internally downsampled to roughly 100
// points/sec (10ms resolution is plenty for envelope statistics).
func NewLevelHistory(historyDuration, sampleRate float64) *LevelHistory {
	const targetRate = 100.0

	downSample := int(sampleRate / targetRate)
	if downSample < 1 {
		downSample = 1
	}

	return &LevelHistory{
		buffer:     make([]float64, int(historyDuration*targetRate)),
		downSample: downSample,
	}
}

// Push records one envelope sample, downsampling internally.
func (h *LevelHistory) Push(value float64) {
	h.counter++
	if h.counter < h.downSample {
		return
	}
	h.counter = 0

	h.buffer[h.head] = value
	h.head = (h.head + 1) % len(h.buffer)
	if h.head == 0 {
		h.full = true
	}
}

// Suggest returns a suggested threshold between the estimated noise floor
// and signal peak, plus the two bounds themselves.
func (h *LevelHistory) Suggest() (threshold, signalPeak, noiseFloor float64) {
	var data []float64
	if h.full {
		data = make([]float64, len(h.buffer))
		copy(data, h.buffer)
	} else if h.head == 0 {
		return 0.05, 0.1, 0.0
	} else {
		data = make([]float64, h.head)
		copy(data, h.buffer[:h.head])
	}

	sort.Float64s(data)
	count := len(data)

	noiseFloor = data[int(float64(count)*0.10)]
	signalPeak = data[int(float64(count)*0.95)]

	if signalPeak < noiseFloor*1.5 {
		return noiseFloor * 3.0, signalPeak, noiseFloor
	}

	threshold = noiseFloor + (signalPeak-noiseFloor)*0.3
	return threshold, signalPeak, noiseFloor
}
