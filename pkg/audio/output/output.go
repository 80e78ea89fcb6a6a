// ABOUTME: Audio output interface definition
// ABOUTME: Common interface and master volume for all playback backends
package output

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/notreaper/nrplayback/pkg/audio"
)

// RenderFunc mixes interleaved frames into a zeroed buffer. It runs on the
// device's audio thread.
type RenderFunc func(out []float32, channels int)

// Output represents an audio output device
type Output interface {
	// Open initializes the device and starts pulling from render
	Open(sampleRate, channels int, render RenderFunc) error

	// Close stops the device and releases resources
	Close() error

	// SetVolume sets the master volume (0-100)
	SetVolume(volume int)

	// SetMuted sets the master mute
	SetMuted(muted bool)

	// GetVolume returns the master volume
	GetVolume() int

	// IsMuted returns the master mute
	IsMuted() bool
}

// Backends lists the names accepted by New
var Backends = []string{"oto", "malgo", "portaudio", "headless"}

// New returns the named backend
func New(backend string) (Output, error) {
	switch strings.ToLower(backend) {
	case "", "oto":
		return NewOto(), nil
	case "malgo", "miniaudio":
		return NewMalgo(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "headless", "none":
		return NewHeadless(), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q (supported: %s)", backend, strings.Join(Backends, ", "))
}

// master is the software volume stage shared by every backend
type master struct {
	volume atomic.Int32
	muted  atomic.Bool
}

func (m *master) init() {
	m.volume.Store(100)
}

// SetVolume sets the volume (0-100)
func (m *master) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	m.volume.Store(int32(volume))
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (m *master) SetMuted(muted bool) {
	m.muted.Store(muted)
	log.Printf("Muted: %v", muted)
}

// GetVolume returns current volume
func (m *master) GetVolume() int {
	return int(m.volume.Load())
}

// IsMuted returns mute state
func (m *master) IsMuted() bool {
	return m.muted.Load()
}

// multiplier calculates the volume multiplier
func (m *master) multiplier() float32 {
	if m.muted.Load() {
		return 0
	}
	return float32(m.volume.Load()) / 100
}

// render zeroes buf, mixes into it and applies volume with clipping
func (m *master) render(render RenderFunc, buf []float32, channels int) {
	clear(buf)
	if render != nil {
		render(buf, channels)
	}
	mult := m.multiplier()
	for i, v := range buf {
		buf[i] = audio.Clamp(v * mult)
	}
}
