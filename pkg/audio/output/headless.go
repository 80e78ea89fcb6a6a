// ABOUTME: Headless audio output without a device
// ABOUTME: Renders on demand for tests and offline tools, or paced by a ticker
package output

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Headless drives a RenderFunc without an audio device
type Headless struct {
	master
	mu         sync.Mutex
	render     RenderFunc
	sampleRate int
	channels   int
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHeadless creates a headless output
func NewHeadless() *Headless {
	h := &Headless{}
	h.master.init()
	return h
}

// Open stores the render callback
func (h *Headless) Open(sampleRate, channels int, render RenderFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format: %dHz, %d channels", sampleRate, channels)
	}
	h.render = render
	h.sampleRate = sampleRate
	h.channels = channels

	log.Printf("Audio output initialized: %dHz, %d channels (headless)", sampleRate, channels)
	return nil
}

// Render pulls frames synchronously and returns the interleaved result
func (h *Headless) Render(frames int) []float32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := make([]float32, frames*h.channels)
	h.master.render(h.render, buf, h.channels)
	return buf
}

// Start pulls one block every period of wall-clock time until ctx is
// cancelled or Close is called, standing in for a device callback
func (h *Headless) Start(ctx context.Context, period time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.render == nil {
		return fmt.Errorf("output not opened")
	}
	if h.cancel != nil {
		return fmt.Errorf("output already started")
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})

	frames := int(period.Seconds() * float64(h.sampleRate))
	buf := make([]float32, frames*h.channels)
	render, channels := h.render, h.channels
	done := h.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.master.render(render, buf, channels)
			}
		}
	}()
	return nil
}

// Close stops a started output
func (h *Headless) Close() error {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
