package detect

import "fmt"

// checkPeaks runs one analysis tick: expires stale peaks, searches for a
// knock triple, and advances bell confirmation on any peak still within its
// confirmation window. A detection clears the whole buffer and returns
// immediately — knock is always checked before bell, per the original
// ordering, so the two events are mutually exclusive within one tick.
func (d *Detector) checkPeaks(flags Flags, knockMaxRatio, rejectRatio float64) Detections {
	d.peaks.expireBefore(d.sampleIndex)

	if det := d.searchKnock(flags, knockMaxRatio, rejectRatio); det != 0 {
		return det
	}

	return d.searchBell(flags)
}

func (d *Detector) searchKnock(flags Flags, knockMaxRatio, rejectRatio float64) Detections {
	n := d.peaks.len()

	for p1 := 0; p1 < n-2; p1++ {
		for p2 := p1 + 1; p2 < n-1; p2++ {
			for p3 := p2 + 1; p3 < n; p3++ {
				peak1 := d.peaks.at(p1)
				peak2 := d.peaks.at(p2)
				peak3 := d.peaks.at(p3)

				span := peak3.Time - peak1.Time
				if span <= knockMinSpan || span >= knockMaxSpan {
					continue
				}
				if peak1.Width >= 512 || peak2.Width >= 512 || peak3.Width >= 512 {
					continue
				}
				if peak3.Time+span/2 >= d.sampleIndex {
					continue
				}

				d1 := peak2.Time - peak1.Time
				d2 := peak3.Time - peak2.Time
				ratio := float64(d1) / float64(d2)
				if d1 < d2 {
					ratio = float64(d2) / float64(d1)
				}
				if ratio >= knockMaxRatio {
					continue
				}

				minHeight := peak1.Height
				if peak2.Height < minHeight {
					minHeight = peak2.Height
				}
				if peak3.Height < minHeight {
					minHeight = peak3.Height
				}
				rejectThreshold := float64(minHeight) * rejectRatio

				blocked := false
				for i := 0; i < n; i++ {
					if i == p1 || i == p2 || i == p3 {
						continue
					}
					other := d.peaks.at(i)
					if other.Time > peak1.Time-span/3 && other.Time < peak3.Time+span/3 && float64(other.Height) > rejectThreshold {
						blocked = true
						break
					}
				}
				if blocked {
					continue
				}

				if flags&DispEvents != 0 {
					d.cfg.Diag.Event(fmt.Sprintf(
						"knock detected, time = %s, span = %d, ratio = %.3f, heights = %d %d %d",
						formatSampleTime(peak1.Time), d1+d2, ratio, peak1.Height, peak2.Height, peak3.Height))
				}

				d.peaks.clear()
				return Knock
			}
		}
	}

	return 0
}

func (d *Detector) searchBell(flags Flags) Detections {
	n := d.peaks.len()

	for i := 0; i < n; i++ {
		p := d.peaks.at(i)
		if p.Time+bellConfirmWindow <= d.sampleIndex {
			continue
		}
		if d.bellLevel <= p.FilteredLevelAtStart*bellRatio+bellOffset {
			continue
		}

		p.FilterHits++
		d.peaks.set(i, p)

		if p.FilterHits == bellHitsToConfirm {
			if flags&DispEvents != 0 {
				d.cfg.Diag.Event(fmt.Sprintf(
					"bell detected, time = %s, pre level = %.2f, post level = %.2f",
					formatSampleTime(p.Time), p.FilteredLevelAtStart, d.bellLevel))
			}

			d.peaks.clear()
			return Bell
		}
	}

	return 0
}

// formatSampleTime renders a sample index at SampleRate samples/sec as
// hh:mm:ss.sss, matching the original's debug log format.
func formatSampleTime(timeInSamples int64) string {
	hours := timeInSamples / (SampleRate * 3600)
	minutes := (timeInSamples / (SampleRate * 60)) - hours*60
	seconds := float64(timeInSamples%(SampleRate*60)) / float64(SampleRate)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, seconds)
}
