// Command edogbench runs the detector against synthetic knock and bell
// streams at a range of noise levels and reports, per scenario, the events
// expected, the events detected, the run time and a pass/fail status, the
// same kind of pass/fail scorecard the
// teacher harness produced for CW decoding, adapted to binary events
// instead of character error rate.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"knockbell/audiosrc"
	"knockbell/detect"
)

// scenario describes one synthetic stream and the detection it expects.
type scenario struct {
	Name      string
	Build     func(s *audiosrc.Synth) []int16
	Want      detect.Detections
	HighSens  bool
}

func knockTriplet(s *audiosrc.Synth, noiseRMS float64) []int16 {
	return audiosrc.Concat(
		s.WhiteNoise(s.SampleRate*2, noiseRMS, 1),
		s.Pulse(15, 28000),
		s.WhiteNoise(int(0.15*float64(s.SampleRate)), noiseRMS, 2),
		s.Pulse(15, 28000),
		s.WhiteNoise(int(0.15*float64(s.SampleRate)), noiseRMS, 3),
		s.Pulse(15, 28000),
		s.WhiteNoise(s.SampleRate, noiseRMS, 4),
	)
}

func bellRing(s *audiosrc.Synth, noiseRMS float64) []int16 {
	return audiosrc.Concat(
		s.WhiteNoise(s.SampleRate/2, noiseRMS, 10),
		s.Tone(770, 1000, 12000),
		s.WhiteNoise(s.SampleRate/2, noiseRMS, 11),
	)
}

func main() {
	sampleRate := detect.SampleRate
	s := audiosrc.NewSynth(sampleRate)

	scenarios := []scenario{
		{Name: "knock, quiet room", Build: func(s *audiosrc.Synth) []int16 { return knockTriplet(s, 200) }, Want: detect.Knock},
		{Name: "knock, noisy room", Build: func(s *audiosrc.Synth) []int16 { return knockTriplet(s, 1200) }, Want: detect.Knock},
		{Name: "knock, noisy room, high sensitivity", Build: func(s *audiosrc.Synth) []int16 { return knockTriplet(s, 1200) }, Want: detect.Knock, HighSens: true},
		{Name: "bell, quiet room", Build: func(s *audiosrc.Synth) []int16 { return bellRing(s, 200) }, Want: detect.Bell},
		{Name: "bell, noisy room", Build: func(s *audiosrc.Synth) []int16 { return bellRing(s, 1200) }, Want: detect.Bell},
		{Name: "white noise only, RMS 2000", Build: func(s *audiosrc.Synth) []int16 { return s.WhiteNoise(60*sampleRate, 2000, 99) }, Want: 0},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tEXPECT\tGOT\tTIME(ms)\tSTATUS")
	fmt.Fprintln(w, "--------\t------\t---\t--------\t------")

	failures := 0
	for _, sc := range scenarios {
		stream := sc.Build(s)

		det := detect.New(detect.DefaultConfig())
		var flags detect.Flags
		if sc.HighSens {
			flags |= detect.HighSensitivity
		}

		start := time.Now()
		const chunkSize = 1024
		var got detect.Detections
		for i := 0; i < len(stream); i += chunkSize {
			end := i + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			got |= det.Scan(stream[i:end], nil, flags)
		}
		elapsed := time.Since(start)

		status := "PASS"
		if sc.Want == 0 {
			if got != 0 {
				status = "FAIL"
			}
		} else if got&sc.Want == 0 {
			status = "FAIL"
		}
		if status == "FAIL" {
			failures++
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", sc.Name, describe(sc.Want), describe(got), elapsed.Milliseconds(), status)
	}

	w.Flush()

	if failures > 0 {
		fmt.Printf("\n%d scenario(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall scenarios passed")
}

func describe(d detect.Detections) string {
	if d == 0 {
		return "none"
	}
	s := ""
	if d&detect.Knock != 0 {
		s += "KNOCK"
	}
	if d&detect.Bell != 0 {
		if s != "" {
			s += "+"
		}
		s += "BELL"
	}
	return s
}
