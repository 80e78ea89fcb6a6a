// ABOUTME: Metronome generator configuration and per-frame synthesis
// ABOUTME: Chooses a high pitch on downbeats and a low pitch on other ticks
package metronome

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/timing"
)

// Config holds the tick sound and grid
type Config struct {
	TickLength          time.Duration
	Gain                float32
	HighFrequency       float64 // downbeat pitch in Hz
	LowFrequency        float64 // pitch of every other tick
	TickSubdivision     uint    // ticks per whole note
	DownbeatSubdivision uint    // downbeats per whole note
}

// DefaultConfig returns the stock click: 10ms quarter-note ticks at 0.33
// gain, 1024Hz on whole notes and 817Hz otherwise
func DefaultConfig() Config {
	return Config{
		TickLength:          10 * time.Millisecond,
		Gain:                0.33,
		HighFrequency:       1024,
		LowFrequency:        817,
		TickSubdivision:     4,
		DownbeatSubdivision: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickLength <= 0 {
		c.TickLength = d.TickLength
	}
	if c.Gain <= 0 {
		c.Gain = d.Gain
	}
	if c.HighFrequency <= 0 {
		c.HighFrequency = d.HighFrequency
	}
	if c.LowFrequency <= 0 {
		c.LowFrequency = d.LowFrequency
	}
	if c.TickSubdivision == 0 {
		c.TickSubdivision = d.TickSubdivision
	}
	if c.DownbeatSubdivision == 0 {
		c.DownbeatSubdivision = d.DownbeatSubdivision
	}
	return c
}

// Generator synthesises metronome ticks
type Generator struct {
	cfg         Config
	sampleRate  int
	tickSamples int
	enabled     atomic.Bool

	// owned by the audio goroutine
	active    bool
	armed     bool
	remaining int
	frequency float64
	hasNext   bool
	nextTick  timing.Timestamp
	nextTime  float64
}

// New creates a disabled generator for output at sampleRate.
// Zero config fields take their DefaultConfig values.
func New(cfg Config, sampleRate int) *Generator {
	cfg = cfg.withDefaults()
	n := int(math.Round(cfg.TickLength.Seconds() * float64(sampleRate)))
	if n < 1 {
		n = 1
	}
	return &Generator{
		cfg:         cfg,
		sampleRate:  sampleRate,
		tickSamples: n,
	}
}

// Config returns the effective configuration
func (g *Generator) Config() Config { return g.cfg }

// SetEnabled sets the user preference; safe from any goroutine
func (g *Generator) SetEnabled(enabled bool) { g.enabled.Store(enabled) }

// Enabled returns the user preference
func (g *Generator) Enabled() bool { return g.enabled.Load() }

// Latch snapshots the enabled preference for the coming callback. Process
// only sees preference changes made before the latest Latch.
func (g *Generator) Latch() { g.active = g.enabled.Load() }

// Reset disarms any sounding tick and forgets the next tick position
func (g *Generator) Reset() {
	g.armed = false
	g.remaining = 0
	g.hasNext = false
}

// Armed reports whether a tick is sounding
func (g *Generator) Armed() bool { return g.armed }

// Frequency returns the pitch of the sounding or last tick
func (g *Generator) Frequency() float64 { return g.frequency }

// Process mixes the metronome into one output frame at song time songTime.
// The tick is added to every channel and each sample clamped to [-1, 1].
func (g *Generator) Process(out []float32, frame, channels int, songTime float64, tl timing.Timeline) {
	if !g.active {
		if g.armed || g.hasNext {
			g.Reset()
		}
		return
	}
	if tl == nil {
		return
	}

	if !g.hasNext {
		g.schedule(songTime, tl)
	}

	if !g.armed && songTime >= g.nextTime {
		g.arm(tl)
		g.advance(songTime, tl)
	}

	if !g.armed {
		return
	}

	elapsed := float64(g.tickSamples-g.remaining) / float64(g.sampleRate)
	v := float32(math.Sin(2*math.Pi*g.frequency*elapsed)) * g.cfg.Gain

	base := frame * channels
	if base >= 0 && base+channels <= len(out) {
		for c := 0; c < channels; c++ {
			out[base+c] = audio.Clamp(out[base+c] + v)
		}
	}

	g.remaining--
	if g.remaining <= 0 {
		g.armed = false
	}
}

// schedule picks the first tick at or after songTime
func (g *Generator) schedule(songTime float64, tl timing.Timeline) {
	grid := timing.GridTicks(g.cfg.TickSubdivision)
	now := tl.ShiftTick(0, songTime)
	next := tl.ClosestBeatSnapped(now, g.cfg.TickSubdivision)
	if tl.TimestampToSeconds(next) < songTime {
		next = tl.ClosestBeatSnapped(next+grid, g.cfg.TickSubdivision)
	}
	g.nextTick = next
	g.nextTime = tl.TimestampToSeconds(next)
	g.hasNext = true
}

func (g *Generator) arm(tl timing.Timeline) {
	g.armed = true
	g.remaining = g.tickSamples
	if tl.ClosestBeatSnapped(g.nextTick, g.cfg.DownbeatSubdivision) == g.nextTick {
		g.frequency = g.cfg.HighFrequency
	} else {
		g.frequency = g.cfg.LowFrequency
	}
}

// advance moves the schedule one grid step past the tick just armed. If
// the song has already passed that step the next frame reschedules.
func (g *Generator) advance(songTime float64, tl timing.Timeline) {
	grid := timing.GridTicks(g.cfg.TickSubdivision)
	g.nextTick = tl.ClosestBeatSnapped(g.nextTick+grid, g.cfg.TickSubdivision)
	g.nextTime = tl.TimestampToSeconds(g.nextTick)
	if g.nextTime <= songTime {
		g.hasNext = false
	}
}
