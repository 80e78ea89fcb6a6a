//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using a PortAudio float32 stream callback
package output

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	master
	stream *portaudio.Stream
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	p := &PortAudio{}
	p.master.init()
	return p
}

// Open initializes PortAudio
func (p *PortAudio) Open(sampleRate, channels int, render RenderFunc) error {
	if p.stream != nil {
		return fmt.Errorf("output already open")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), 0, func(out []float32) {
		p.master.render(render, out, channels)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	log.Printf("Audio output initialized: %dHz, %d channels (portaudio/f32)", sampleRate, channels)
	return nil
}

// Close releases PortAudio resources
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		log.Printf("Warning: portaudio stop error: %v", err)
	}
	if err := p.stream.Close(); err != nil {
		log.Printf("Warning: portaudio close error: %v", err)
	}
	p.stream = nil
	return portaudio.Terminate()
}
