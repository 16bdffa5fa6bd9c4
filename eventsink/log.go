// Package eventsink implements the sample-sink / event-consumer
// collaborators: structured logging of detector diagnostics, a serial
// relay for forwarding detections to an external controller, and an LED
// status indicator. None of it is reachable from the detector's hot
// path except through the detect.DiagSink interface it implements.
package eventsink

import (
	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"

	"knockbell/detect"
)

// LogDiagSink implements detect.DiagSink on top of logrus, tagging every
// line emitted during one Scan call with a short correlation ID so a
// collaborator log can be grepped for a single batch's worth of output.
type LogDiagSink struct {
	log logrus.FieldLogger
}

// NewLogDiagSink wraps log (nil selects logrus.StandardLogger()).
func NewLogDiagSink(log *logrus.Logger) *LogDiagSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogDiagSink{log: log}
}

// WithCorrelationID returns a sink whose log lines all carry corrID, for
// tying one batch's diagnostics together in a shared log stream.
func (s *LogDiagSink) WithCorrelationID(corrID string) *LogDiagSink {
	return &LogDiagSink{log: s.log.WithField("corr_id", corrID)}
}

// NewBatchCorrelationID generates a short, log-friendly ID for tagging one
// Scan call's worth of diagnostic output.
func NewBatchCorrelationID() string {
	return shortuuid.New()
}

func (s *LogDiagSink) Thresholds(base, effective float64, sampleIndex int64) {
	s.log.WithFields(logrus.Fields{
		"base_threshold":      base,
		"effective_threshold": effective,
		"sample_index":        sampleIndex,
	}).Debug("peak threshold")
}

func (s *LogDiagSink) Event(msg string) {
	s.log.WithField("component", "classifier").Info(msg)
}

func (s *LogDiagSink) Peak(p detect.PeakRecord) {
	s.log.WithFields(logrus.Fields{
		"time":   p.Time,
		"height": p.Height,
		"width":  p.Width,
		"area":   p.Area,
	}).Debug("peak accepted")
}
