package audiosrc

import "github.com/golang-design/lockfree"

// SampleRing is the lock-free single-producer/single-consumer queue that
// carries PCM frames from a capture callback (the producer, running on
// whatever thread the audio backend uses) to the detector's consumer loop.
// The detector core never touches this directly — it is purely a
// collaborator contract, matching the interrupt-context producer / stream
// consumer split described for the real microphone path.
type SampleRing struct {
	q *lockfree.Queue
}

// NewSampleRing creates an empty ring.
func NewSampleRing() *SampleRing {
	return &SampleRing{q: lockfree.NewQueue()}
}

// Push enqueues one frame of samples. Safe to call from the capture
// callback concurrently with Pop running on the consumer goroutine.
func (r *SampleRing) Push(frame []int16) {
	r.q.Enqueue(frame)
}

// Pop dequeues the next frame, or returns nil, false if the ring is empty.
func (r *SampleRing) Pop() ([]int16, bool) {
	v := r.q.Dequeue()
	if v == nil {
		return nil, false
	}
	return v.([]int16), true
}

// Len reports the number of frames currently queued.
func (r *SampleRing) Len() int {
	return int(r.q.Length())
}

// Drain pops every currently queued frame into a single flattened slice,
// for a caller that wants a contiguous batch rather than one frame at a
// time.
func (r *SampleRing) Drain() []int16 {
	var out []int16
	for {
		frame, ok := r.Pop()
		if !ok {
			break
		}
		out = append(out, frame...)
	}
	return out
}
