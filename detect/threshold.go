package detect

// thresholdController tracks the self-tuning baseline that governs which
// closed peaks are accepted into the peak buffer. It targets roughly one
// accepted peak per second: the baseline is bumped 1% on every acceptance
// and decays 0.1% on every 100ms analysis tick.
type thresholdController struct {
	peakThreshold float64
}

func (t *thresholdController) reset() {
	t.peakThreshold = 30.0
}

// accept reports whether height clears both the baseline and the scaled
// effective gate. The baseline is bumped as soon as it alone is cleared,
// regardless of whether the scaled gate is also cleared.
func (t *thresholdController) accept(height int, scaling float64) bool {
	if float64(height) <= t.peakThreshold {
		return false
	}

	t.peakThreshold *= 1.01

	return float64(height) > t.peakThreshold*scaling
}

// decay runs the slow per-analysis-tick decay of the baseline.
func (t *thresholdController) decay() {
	t.peakThreshold *= 0.999
}
