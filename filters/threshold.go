package filters

// AdaptiveThresholder tracks a signal's top and bottom envelope online and
// derives a pair of hysteresis bounds from the gap between them. Unlike
// LevelHistory, which needs a recorded clip, this runs sample-by-sample and
// adapts continuously — useful for status indicators that must track slow
// drift in ambient level without a calibration pass.
type AdaptiveThresholder struct {
	maxLevel, minLevel float64
	decayRate          float64
	minRange           float64
}

// NewAdaptiveThresholder creates a tracker. decayRate close to 1 makes both
// bounds drift slowly; minRange below which the tracker reports "squelched"
// (no usable dynamic range, so hysteresis bounds the input can never cross).
func NewAdaptiveThresholder(decayRate, minRange float64) *AdaptiveThresholder {
	return &AdaptiveThresholder{decayRate: decayRate, minRange: minRange}
}

// Update feeds one sample and returns the current (high, low) hysteresis
// bounds.
func (at *AdaptiveThresholder) Update(sample float64) (high, low float64) {
	if sample > at.maxLevel {
		at.maxLevel = sample
	} else {
		at.maxLevel *= at.decayRate
	}

	if sample < at.minLevel {
		at.minLevel = sample
	} else {
		at.minLevel += (at.maxLevel - at.minLevel) * (1.0 - at.decayRate)
	}

	if at.minLevel > at.maxLevel {
		at.minLevel = at.maxLevel
	}

	dynRange := at.maxLevel - at.minLevel
	if dynRange < at.minRange {
		return 10.0, 9.0
	}

	center := at.minLevel + dynRange*0.5
	hysteresis := dynRange * 0.05

	return center + hysteresis, center - hysteresis
}
