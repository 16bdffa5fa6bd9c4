package audiosrc

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"

	"knockbell/filters"
)

// FrameCallback receives one batch of mono int16 samples at detect.SampleRate.
type FrameCallback func(samples []int16)

// Capture manages a live microphone capture device and adapts it down to
// the detector's fixed 16 kHz mono int16 stream, regardless of the native
// device rate. The malgo data callback runs on the audio backend's own
// thread (effectively interrupt context); it never calls the consumer
// directly. Instead it pushes decimated frames onto a SampleRing, and a
// separate goroutine drains that ring into the callback, matching the
// interrupt-producer / stream-consumer split of the real microphone path.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	deviceRate int
	targetRate int

	antiAlias *ButterworthLowpass
	agc       *filters.MedianAGC
	useAGC    bool

	decimAccum  float64
	decimCursor float64

	ring     *SampleRing
	stopping chan struct{}
	stopped  chan struct{}

	callback FrameCallback
}

// NewCapture opens the named capture device (substring match against the
// system's device list; empty string picks the default) and prepares it to
// deliver targetRate mono int16 frames to callback once Start is called.
// preGain enables a
// median-prefiltered AGC ahead of quantization for hardware with very low
// input gain or a noisy front end.
func NewCapture(targetDeviceName string, targetRate int, preGain bool, callback FrameCallback) (*Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: init malgo context: %w", err)
	}

	c := &Capture{
		ctx:        ctx,
		targetRate: targetRate,
		callback:   callback,
		useAGC:     preGain,
		ring:       NewSampleRing(),
		stopping:   make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	if preGain {
		c.agc = filters.NewMedianAGC()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = 48000 // native rate; decimated to targetRate below
	deviceConfig.Alsa.NoMMap = 1

	if targetDeviceName != "" {
		if infos, err := ctx.Devices(malgo.Capture); err == nil {
			for _, info := range infos {
				if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(targetDeviceName)) {
					deviceConfig.Capture.DeviceID = info.ID.Pointer()
					break
				}
			}
		}
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if len(pInputSamples) == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		c.ingest(samples)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("audiosrc: init device: %w", err)
	}

	c.device = device
	c.deviceRate = int(device.SampleRate())
	c.antiAlias = NewButterworthLowpass(4, float64(c.deviceRate), float64(targetRate)/2)

	return c, nil
}

// ingest runs the native-rate float32 frames through the anti-alias
// lowpass, decimates to targetRate, optionally applies the pre-gain AGC,
// and pushes the result onto the ring as int16. This runs on the audio
// backend's callback thread and must never block.
func (c *Capture) ingest(samples []float32) {
	ratio := float64(c.deviceRate) / float64(c.targetRate)
	out := make([]int16, 0, len(samples))

	for _, s := range samples {
		filtered := c.antiAlias.Process(float64(s))

		c.decimCursor++
		if c.decimCursor < ratio {
			continue
		}
		c.decimCursor -= ratio

		v := filtered
		if c.useAGC {
			v = c.agc.Update(filtered) * sign(filtered)
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
		}

		out = append(out, float32ToInt16(v))
	}

	if len(out) > 0 {
		c.ring.Push(out)
	}
}

// consumeLoop drains the ring into the callback on its own goroutine,
// decoupled from the audio backend's callback thread. It polls with a
// short backoff when the ring is empty rather than busy-spinning.
func (c *Capture) consumeLoop() {
	defer close(c.stopped)

	for {
		select {
		case <-c.stopping:
			for {
				frame, ok := c.ring.Pop()
				if !ok {
					return
				}
				if c.callback != nil {
					c.callback(frame)
				}
			}
		default:
		}

		frame, ok := c.ring.Pop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		if c.callback != nil {
			c.callback(frame)
		}
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func float32ToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// Start begins delivering audio to the callback, via the ring-buffered
// consumer goroutine.
func (c *Capture) Start() error {
	if c.device == nil {
		return fmt.Errorf("audiosrc: device not initialized")
	}
	go c.consumeLoop()
	return c.device.Start()
}

// Stop halts capture, drains any frames still queued in the ring, and
// releases the device/context.
func (c *Capture) Stop() {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	close(c.stopping)
	<-c.stopped

	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}
