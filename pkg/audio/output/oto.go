// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from a pull reader that renders float32 frames
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	otoBufferSize = 20 * time.Millisecond
	// largest block rendered per reader call; bigger reads are split
	maxBlockFrames = 4096
)

// Oto output implementation using oto library
type Oto struct {
	master
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	reader     *renderReader
	sampleRate int
	channels   int
	ready      bool
}

// NewOto creates a new Oto output
func NewOto() Output {
	o := &Oto{}
	o.master.init()
	return o
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int, render RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		return fmt.Errorf("output already open")
	}

	// oto allows one context per process, so a reopened output reuses it
	if o.otoCtx != nil && (o.sampleRate != sampleRate || o.channels != channels) {
		log.Printf("Warning: format change detected (%dHz %dch -> %dHz %dch) but oto doesn't support reinitialization. Continuing with existing context.",
			o.sampleRate, o.channels, sampleRate, channels)
		sampleRate, channels = o.sampleRate, o.channels
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   otoBufferSize,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = sampleRate
		o.channels = channels
	} else if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	o.reader = newRenderReader(&o.master, render, channels)
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.player.SetBufferSize(int(otoBufferSize.Seconds()*float64(sampleRate)) * channels * 4)
	o.player.Play()
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (oto/f32)", sampleRate, channels)
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil && o.ready {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	o.ready = false
	return nil
}

// renderReader is the io.Reader oto pulls from. Its scratch buffer is
// allocated once so reads never allocate.
type renderReader struct {
	master   *master
	render   RenderFunc
	channels int
	scratch  []float32
}

func newRenderReader(m *master, render RenderFunc, channels int) *renderReader {
	return &renderReader{
		master:   m,
		render:   render,
		channels: channels,
		scratch:  make([]float32, maxBlockFrames*channels),
	}
}

// Read fills p with whole float32 frames
func (r *renderReader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	n := 0

	for frames > 0 {
		block := min(frames, maxBlockFrames)
		buf := r.scratch[:block*r.channels]
		r.master.render(r.render, buf, r.channels)
		for i, v := range buf {
			binary.LittleEndian.PutUint32(p[n+i*4:], math.Float32bits(v))
		}
		n += block * frameBytes
		frames -= block
	}
	return n, nil
}
