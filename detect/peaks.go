package detect

// PeakRecord is the in-memory fingerprint of one closed transient.
type PeakRecord struct {
	Time                 int64
	Height               int
	Area                 int
	Width                int
	FilteredLevelAtStart float64
	FilterHits           int
}

// peakBuffer is an ordered-by-time, capacity-bounded peak history.
type peakBuffer struct {
	peaks []PeakRecord
}

func (b *peakBuffer) len() int { return len(b.peaks) }

func (b *peakBuffer) clear() { b.peaks = b.peaks[:0] }

func (b *peakBuffer) at(i int) PeakRecord { return b.peaks[i] }

func (b *peakBuffer) set(i int, p PeakRecord) { b.peaks[i] = p }

// add inserts newPeak. If the buffer is already at maxNumPeaks, the smallest
// incumbent by Height is evicted to make room; if newPeak is itself the
// smallest, it is dropped instead and the buffer is left unchanged.
func (b *peakBuffer) add(newPeak PeakRecord) (evictedHeight int, evicted, dropped bool) {
	if len(b.peaks) == maxNumPeaks {
		smallestHeight := newPeak.Height
		smallestIndex := -1

		for i, p := range b.peaks {
			if p.Height < smallestHeight {
				smallestHeight = p.Height
				smallestIndex = i
			}
		}

		if smallestIndex == -1 {
			return newPeak.Height, false, true
		}

		evictedHeight = b.peaks[smallestIndex].Height
		b.peaks = append(b.peaks[:smallestIndex], b.peaks[smallestIndex+1:]...)
		evicted = true
	}

	b.peaks = append(b.peaks, newPeak)
	return evictedHeight, evicted, dropped
}

// expireBefore drops peaks whose time has fully exited the knock analysis
// window relative to sampleIndex.
func (b *peakBuffer) expireBefore(sampleIndex int64) {
	i := 0
	for i < len(b.peaks) && b.peaks[i].Time+2*knockMaxSpan < sampleIndex {
		i++
	}
	if i > 0 {
		b.peaks = append(b.peaks[:0], b.peaks[i:]...)
	}
}

// remove deletes peaks[i] and shifts the tail down by one.
func (b *peakBuffer) remove(i int) {
	b.peaks = append(b.peaks[:i], b.peaks[i+1:]...)
}
