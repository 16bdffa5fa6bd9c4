package eventsink

import "knockbell/filters"

// BlinkPattern is a status code for an external LED indicator, following
// the blink-counter convention used by embedded status LEDs: the consumer
// maps each code to a distinct blink cadence rather than receiving raw
// detection flags.
type BlinkPattern int

const (
	BlinkIdle  BlinkPattern = 0 // solid off / slow heartbeat: listening, nothing detected
	BlinkLevel BlinkPattern = 1 // steady-on: ambient sound currently above the listening threshold
	BlinkKnock BlinkPattern = 2 // fast triple-blink: KNOCK detected
	BlinkBell  BlinkPattern = 3 // fast double-blink: BELL detected
	BlinkBark  BlinkPattern = 4 // solid orange-equivalent: playing the audio response clip
)

// LEDStatus derives a BlinkPattern from ambient envelope level plus
// detection events. An AdaptiveThresholder tracks the envelope's own
// recent high/low bounds and continuously retunes the SchmittTrigger's
// hysteresis from them, so the "currently loud" state stays meaningful as
// ambient level drifts instead of chattering around a fixed threshold
// pair picked once at startup.
type LEDStatus struct {
	trigger    *filters.SchmittTrigger
	thresholds *filters.AdaptiveThresholder
	onSet      func(BlinkPattern)

	latched BlinkPattern
}

// NewLEDStatus creates a status driver. onSet is called whenever the
// pattern changes; high/low seed the initial hysteresis bounds, which the
// adaptive thresholder then retunes as FeedLevel observes real ambient
// levels.
func NewLEDStatus(sampleRate, high, low, debounceMs float64, onSet func(BlinkPattern)) *LEDStatus {
	return &LEDStatus{
		trigger:    filters.NewSchmittTrigger(sampleRate, high, low, debounceMs),
		thresholds: filters.NewAdaptiveThresholder(0.999, (high-low)*0.1),
		onSet:      onSet,
	}
}

// FeedLevel reports one ambient envelope sample (e.g. the detector's
// decorrelated level tap, normalized to roughly 0..1 upstream).
func (s *LEDStatus) FeedLevel(level float64) {
	high, low := s.thresholds.Update(level)
	s.trigger.SetThresholds(high, low)
	s.trigger.Feed(level)

	pattern := BlinkIdle
	if s.trigger.State() {
		pattern = BlinkLevel
	}
	s.set(pattern)
}

// Latch forces the pattern to reflect a just-raised detection event,
// overriding the ambient-level pattern until the next FeedLevel call.
func (s *LEDStatus) Latch(pattern BlinkPattern) {
	s.set(pattern)
}

func (s *LEDStatus) set(pattern BlinkPattern) {
	if pattern == s.latched {
		return
	}
	s.latched = pattern
	if s.onSet != nil {
		s.onSet(pattern)
	}
}
