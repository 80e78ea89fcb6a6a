//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct {
	master
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	p := &PortAudio{}
	p.master.init()
	return p
}

// Open reports that PortAudio is unavailable
func (p *PortAudio) Open(sampleRate, channels int, render RenderFunc) error {
	return errPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
