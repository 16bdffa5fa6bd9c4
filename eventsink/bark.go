package eventsink

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"knockbell/audiosrc"
)

// idleRewindSamples is how long the player waits with no new trigger
// before resetting the rotation to the first clip, so a fresh burst of
// triggers after a quiet stretch always opens on the same clip rather than
// wherever the rotation last left off.
const idleRewindSamples = 16000 * 60

// LoadClips reads each named WAV file in full for use as a BarkPlayer
// playlist. Files are expected to already be mono 16-bit PCM at the
// player's sample rate; no resampling is done.
func LoadClips(filenames []string) ([][]int16, error) {
	clips := make([][]int16, 0, len(filenames))

	for _, name := range filenames {
		r, err := audiosrc.NewWavReader(name)
		if err != nil {
			return nil, fmt.Errorf("eventsink: load clip %s: %w", name, err)
		}

		var clip []int16
		for {
			chunk, err := r.ReadSamples(4096)
			clip = append(clip, chunk...)
			if err != nil {
				break
			}
		}
		r.Close()

		clips = append(clips, clip)
	}

	return clips, nil
}

// BarkPlayer plays one clip per detection from a fixed playlist, rotating
// through it in order and rewinding to the first clip after a minute of
// silence. It is the audio-response analog of LEDStatus and UARTSink: a
// third sink that reacts to a detection batch instead of just reporting
// one, grounded on the original's canned-bark playback ("the dog sounds a
// little surprised" in its first clip, which is why the rotation rewinds
// to it after idling).
type BarkPlayer struct {
	mu sync.Mutex

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	clips  [][]int16
	cursor int

	current []int16
	pos     int

	idleSamples int64

	// onStateChange, if set, is called with true when a clip starts and
	// false when it finishes, so a caller can mirror the LED toggling
	// the original did between "listening" and "responding".
	onStateChange func(playing bool)
}

// NewBarkPlayer opens a playback device at sampleRate armed with clips.
// clips must be non-empty; LoadClips or a synthetic fixture can supply
// them.
func NewBarkPlayer(sampleRate int, clips [][]int16, onStateChange func(playing bool)) (*BarkPlayer, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("eventsink: bark player needs at least one clip")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("eventsink: init malgo context: %w", err)
	}

	b := &BarkPlayer{ctx: ctx, clips: clips, onStateChange: onStateChange}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	onSendFrames := func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		b.render(pOutputSamples, int(framecount))
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("eventsink: init playback device: %w", err)
	}
	b.device = device

	return b, nil
}

// Start begins the playback device. It renders silence until the first
// Trigger call.
func (b *BarkPlayer) Start() error {
	return b.device.Start()
}

// Stop halts playback and releases the device/context.
func (b *BarkPlayer) Stop() {
	if b.device != nil {
		b.device.Uninit()
		b.device = nil
	}
	if b.ctx != nil {
		_ = b.ctx.Uninit()
		b.ctx.Free()
		b.ctx = nil
	}
}

// Trigger starts the next clip in the rotation, unless a clip is already
// playing — a detection arriving mid-bark doesn't interrupt or queue, it's
// simply absorbed, matching the original's "don't restart over an
// in-progress bark" rule.
func (b *BarkPlayer) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		return
	}

	b.current = b.clips[b.cursor]
	b.pos = 0
	b.cursor = (b.cursor + 1) % len(b.clips)
	b.idleSamples = 0

	if b.onStateChange != nil {
		b.onStateChange(true)
	}
}

// render fills one playback buffer from the active clip, or silence when
// idle, and tracks idle time for the rewind-to-first-clip rule. It runs on
// the audio backend's own callback thread.
func (b *BarkPlayer) render(out []byte, framecount int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := 0; i < framecount; i++ {
		var sample int16
		if b.current != nil {
			sample = b.current[b.pos]
			b.pos++
			if b.pos >= len(b.current) {
				b.current = nil
				b.pos = 0
				if b.onStateChange != nil {
					b.onStateChange(false)
				}
			}
		} else {
			b.idleSamples++
			if b.idleSamples > idleRewindSamples {
				b.cursor = 0
			}
		}

		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
}
