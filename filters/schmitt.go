package filters

// StateTransition describes a completed state change, with how long the
// state that just ended had lasted.
type StateTransition struct {
	FinishedState bool // true = active/loud, false = quiet
	DurationMs    float64
}

// SchmittTrigger turns a slowly-varying envelope into a debounced boolean
// state, used to drive ambient indicators (e.g. an LED) without chattering
// on every small fluctuation near the threshold.
type SchmittTrigger struct {
	thresholdHigh, thresholdLow float64
	sampleRate                  float64
	debounceCount               int64

	currentState     bool
	totalSamples     int64
	stateStartSample int64

	pendingChange     bool
	changeStartSample int64
}

// NewSchmittTrigger creates a trigger with fixed hysteresis bounds and a
// debounce window (in milliseconds) that a candidate transition must
// persist through before it is reported.
func NewSchmittTrigger(sampleRate, high, low, debounceMs float64) *SchmittTrigger {
	return &SchmittTrigger{
		sampleRate:    sampleRate,
		thresholdHigh: high,
		thresholdLow:  low,
		debounceCount: int64(debounceMs * sampleRate / 1000.0),
	}
}

// Feed processes one envelope sample and returns the completed transition,
// or nil if the state is stable or still within its debounce window.
func (st *SchmittTrigger) Feed(envelope float64) *StateTransition {
	st.totalSamples++

	rawSignal := st.currentState
	if st.currentState {
		if envelope < st.thresholdLow {
			rawSignal = false
		}
	} else if envelope > st.thresholdHigh {
		rawSignal = true
	}

	if rawSignal == st.currentState {
		st.pendingChange = false
		return nil
	}

	if !st.pendingChange {
		st.pendingChange = true
		st.changeStartSample = st.totalSamples
		return nil
	}

	if st.totalSamples-st.changeStartSample <= st.debounceCount {
		return nil
	}

	prevDurationSamples := st.changeStartSample - st.stateStartSample
	durationMs := (float64(prevDurationSamples) / st.sampleRate) * 1000.0
	finishedState := st.currentState

	st.currentState = rawSignal
	st.stateStartSample = st.changeStartSample
	st.pendingChange = false

	return &StateTransition{FinishedState: finishedState, DurationMs: durationMs}
}

// State reports the current debounced state.
func (st *SchmittTrigger) State() bool { return st.currentState }

// SetThresholds adjusts the hysteresis bounds in place.
func (st *SchmittTrigger) SetThresholds(high, low float64) {
	st.thresholdHigh = high
	st.thresholdLow = low
}
