// ABOUTME: Frame-counting device clock
// ABOUTME: Advanced by the audio callback, read from any goroutine
package sync

import "sync/atomic"

// DeviceClock counts frames rendered by the audio device
type DeviceClock struct {
	frames atomic.Uint64
	rate   atomic.Int64
}

// NewDeviceClock creates a clock for a device running at rate
func NewDeviceClock(rate int) *DeviceClock {
	c := &DeviceClock{}
	c.rate.Store(int64(rate))
	return c
}

// Advance adds rendered frames
func (c *DeviceClock) Advance(frames int) {
	if frames > 0 {
		c.frames.Add(uint64(frames))
	}
}

// Frames returns the total frames rendered
func (c *DeviceClock) Frames() uint64 {
	return c.frames.Load()
}

// Rate returns the device sample rate
func (c *DeviceClock) Rate() int {
	return int(c.rate.Load())
}

// Seconds returns device time since the clock was created
func (c *DeviceClock) Seconds() float64 {
	r := c.rate.Load()
	if r <= 0 {
		return 0
	}
	return float64(c.frames.Load()) / float64(r)
}

// SecondsAt converts a frame count to seconds at the clock's rate
func (c *DeviceClock) SecondsAt(frames uint64) float64 {
	r := c.rate.Load()
	if r <= 0 {
		return 0
	}
	return float64(frames) / float64(r)
}
