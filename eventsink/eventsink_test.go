package eventsink

import (
	"bytes"
	"io"
	"testing"

	"knockbell/detect"
)

// memPort is a minimal in-memory SerialPort for tests: writes accumulate in
// a buffer that reads then drain from.
type memPort struct {
	buf bytes.Buffer
}

func (m *memPort) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memPort) Read(p []byte) (int, error)   { return m.buf.Read(p) }
func (m *memPort) Close() error                 { return nil }

func TestUARTSinkFramesDetections(t *testing.T) {
	port := &memPort{}
	sink := &UARTSink{conn: port}

	if err := sink.SendDetections(detect.Knock); err != nil {
		t.Fatalf("SendDetections: %v", err)
	}

	ok, err := sink.ReadAck(detect.Knock)
	if err != nil {
		t.Fatalf("ReadAck: %v", err)
	}
	if !ok {
		t.Fatal("expected the frame just written to match the expected ack")
	}
}

func TestUARTSinkRequiresOpenConnection(t *testing.T) {
	sink := NewUARTSink("/dev/null", 9600)
	if err := sink.SendDetections(detect.Bell); err == nil {
		t.Fatal("expected an error sending on an unopened sink")
	}
}

func TestLEDStatusLatchesDetectionOverLevel(t *testing.T) {
	var got []BlinkPattern
	status := NewLEDStatus(1000, 0.5, 0.2, 5, func(p BlinkPattern) {
		got = append(got, p)
	})

	status.Latch(BlinkKnock)
	status.Latch(BlinkKnock) // no-op, same pattern
	status.FeedLevel(0.01)

	if len(got) != 2 {
		t.Fatalf("expected exactly 2 pattern changes, got %v", got)
	}
	if got[0] != BlinkKnock {
		t.Fatalf("expected first pattern to be BlinkKnock, got %v", got[0])
	}
	if got[1] != BlinkIdle {
		t.Fatalf("expected FeedLevel at low level to fall back to BlinkIdle, got %v", got[1])
	}
}

func TestBarkPlayerRotatesClipsAndReportsState(t *testing.T) {
	clips := [][]int16{{1, 2}, {3, 4, 5}}

	var states []bool
	b := &BarkPlayer{clips: clips, onStateChange: func(playing bool) {
		states = append(states, playing)
	}}

	b.Trigger()
	if b.current == nil {
		t.Fatal("expected Trigger to arm the first clip")
	}

	out := make([]byte, 4*2)
	b.render(out, 4) // plays clip 0 (2 samples) then falls idle for 2 more

	if b.current != nil {
		t.Fatal("expected the first clip to finish within 4 rendered frames")
	}
	if len(states) != 2 || states[0] != true || states[1] != false {
		t.Fatalf("expected [true, false] state transitions, got %v", states)
	}

	b.Trigger()
	if b.cursor != 0 {
		t.Fatalf("expected rotation back to clip 0 after both clips play, got cursor=%d", b.cursor)
	}
}

func TestBarkPlayerIgnoresTriggerWhilePlaying(t *testing.T) {
	clips := [][]int16{{1, 2, 3, 4}, {5, 6}}
	b := &BarkPlayer{clips: clips}

	b.Trigger()
	firstCursor := b.cursor

	b.Trigger() // should be a no-op: clip 0 is still playing
	if b.cursor != firstCursor {
		t.Fatalf("expected Trigger to be ignored mid-clip, cursor moved from %d to %d", firstCursor, b.cursor)
	}
}

func TestBarkPlayerRewindsToFirstClipAfterIdle(t *testing.T) {
	clips := [][]int16{{1}, {2}, {3}}
	b := &BarkPlayer{clips: clips, cursor: 2}

	out := make([]byte, 2)
	for i := int64(0); i < idleRewindSamples+2; i++ {
		b.render(out, 1)
	}

	if b.cursor != 0 {
		t.Fatalf("expected idle rewind to reset cursor to 0, got %d", b.cursor)
	}
}

var _ io.ReadWriteCloser = &memPort{}
