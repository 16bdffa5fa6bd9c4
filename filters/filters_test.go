package filters

import "testing"

func TestEnvelopeAGCTracksRisingPeak(t *testing.T) {
	agc := NewEnvelopeAGC(0.999, 0.01)

	for i := 0; i < 100; i++ {
		agc.Update(1.0)
	}

	got := agc.Update(1.0)
	if got < 0.99 || got > 1.01 {
		t.Fatalf("expected normalized output near 1.0 once locked, got %v", got)
	}
}

func TestEnvelopeAGCFloorPreventsDivideByZero(t *testing.T) {
	agc := NewEnvelopeAGC(0.9, 0.01)

	for i := 0; i < 1000; i++ {
		agc.Update(0)
	}

	if agc.peak < 0.01 {
		t.Fatalf("peak fell below configured floor: %v", agc.peak)
	}
}

func TestMedianAGCRejectsSingleSampleSpike(t *testing.T) {
	m := NewMedianAGC()

	var baseline float64
	for i := 0; i < 20; i++ {
		baseline = m.Update(0.1)
	}

	spiked := m.Update(5.0)
	settled := m.Update(0.1)

	if spiked < baseline*0.99 || spiked > baseline*1.01 {
		t.Fatalf("expected the median pre-filter to suppress an isolated spike, got %v (baseline %v)", spiked, baseline)
	}
	if settled < baseline*0.99 || settled > baseline*1.01 {
		t.Fatalf("expected output to stay at baseline right after the spike, got %v (baseline %v)", settled, baseline)
	}
}

func TestLevelHistorySuggestWithNoData(t *testing.T) {
	h := NewLevelHistory(1, 100)

	threshold, peak, floor := h.Suggest()
	if threshold <= 0 || peak <= 0 {
		t.Fatalf("expected nonzero defaults before any data, got threshold=%v peak=%v floor=%v", threshold, peak, floor)
	}
}

func TestLevelHistorySuggestSeparatesBands(t *testing.T) {
	h := NewLevelHistory(1, 100)

	for i := 0; i < 200; i++ {
		h.Push(0.01)
	}
	for i := 0; i < 50; i++ {
		h.Push(1.0)
	}

	threshold, peak, floor := h.Suggest()
	if !(floor < threshold && threshold < peak) {
		t.Fatalf("expected floor < threshold < peak, got floor=%v threshold=%v peak=%v", floor, threshold, peak)
	}
}

func TestSchmittTriggerDebouncesShortBlips(t *testing.T) {
	st := NewSchmittTrigger(1000, 0.5, 0.2, 50)

	if tr := st.Feed(0.9); tr != nil {
		t.Fatalf("expected no transition on first high sample, got %+v", tr)
	}

	for i := 0; i < 10; i++ {
		if tr := st.Feed(0.1); tr != nil {
			t.Fatalf("blip shorter than debounce window should not transition, got %+v", tr)
		}
	}
}

func TestSchmittTriggerReportsSustainedTransition(t *testing.T) {
	st := NewSchmittTrigger(1000, 0.5, 0.2, 10)

	var transition *StateTransition
	for i := 0; i < 100; i++ {
		if tr := st.Feed(0.9); tr != nil {
			transition = tr
			break
		}
	}

	if transition == nil {
		t.Fatal("expected a transition once the high state persists past the debounce window")
	}
	if transition.FinishedState != false {
		t.Fatalf("expected the finished state to be the prior (quiet) state, got %+v", transition)
	}
	if !st.State() {
		t.Fatalf("expected trigger to now report the active state")
	}
}

func TestAdaptiveThresholderSquelchesFlatSignal(t *testing.T) {
	at := NewAdaptiveThresholder(0.999, 0.2)

	var high, low float64
	for i := 0; i < 1000; i++ {
		high, low = at.Update(0.3)
	}

	if high <= 1.0 {
		t.Fatalf("expected squelched (unreachable) bounds for a flat signal, got high=%v low=%v", high, low)
	}
}
