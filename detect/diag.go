package detect

// DiagSink receives diagnostic output from a Detector when the matching
// DISP_* flag is set on a Scan call. The detector depends only on this
// interface, never on a concrete logging or storage implementation.
type DiagSink interface {
	// Thresholds reports the adaptive baseline and scaled acceptance gate,
	// emitted once every 10s of sample time under DispThresholds.
	Thresholds(base, effective float64, sampleIndex int64)

	// Event reports an accepted detection or a buffer-full eviction,
	// emitted under DispEvents.
	Event(msg string)

	// Peak reports an accepted peak before it is inserted into the buffer,
	// emitted under DispPeaks.
	Peak(p PeakRecord)
}

// NoOpDiagSink discards everything. It is the default when Config.Diag is
// left nil, so the detector's hot path never needs a nil check.
type NoOpDiagSink struct{}

func (NoOpDiagSink) Thresholds(base, effective float64, sampleIndex int64) {}
func (NoOpDiagSink) Event(msg string)                                     {}
func (NoOpDiagSink) Peak(p PeakRecord)                                    {}
