// ABOUTME: Clip type holding immutable samples plus cursor, gain and pan
// ABOUTME: MixInto adds one resampled output frame into a caller buffer
package clip

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/audio/resample"
)

var (
	ErrInvalidFrequency = errors.New("clip: sample rate must be between 1 and 4294967295")
	ErrInvalidChannels  = errors.New("clip: channel count must be positive")
	ErrEmptyBuffer      = errors.New("clip: sample buffer is empty")
	ErrRaggedBuffer     = errors.New("clip: sample count is not a multiple of the channel count")
)

// Clip is a decoded buffer with its own playback cursor
type Clip struct {
	samples   []float32
	channels  int
	frequency int
	frames    uint64

	// gain and pan are float32 bits so the control goroutine may retune a
	// clip that the audio goroutine is mixing
	gain atomic.Uint32
	pan  atomic.Uint32

	// cursor state belongs to the goroutine calling MixInto
	cursor   resample.Position
	step     uint64
	stepRate int
}

// New validates pcm and wraps it in a clip positioned at zero
func New(pcm audio.PCM) (*Clip, error) {
	return FromSamples(pcm.Samples, pcm.Channels, pcm.SampleRate)
}

// FromSamples validates an interleaved buffer and wraps it in a clip.
// The slice is retained, not copied.
func FromSamples(samples []float32, channels, frequency int) (*Clip, error) {
	// the cursor step shifts the rate into the high 32 bits
	if frequency <= 0 || uint64(frequency) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrequency, frequency)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyBuffer
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels", ErrRaggedBuffer, len(samples), channels)
	}

	c := &Clip{
		samples:   samples,
		channels:  channels,
		frequency: frequency,
		frames:    uint64(len(samples) / channels),
	}
	c.gain.Store(math.Float32bits(1))
	return c, nil
}

// NewShared returns a clip over the same buffer with a fresh cursor and
// neutral gain and pan
func NewShared(c *Clip) *Clip {
	s := &Clip{
		samples:   c.samples,
		channels:  c.channels,
		frequency: c.frequency,
		frames:    c.frames,
	}
	s.gain.Store(math.Float32bits(1))
	return s
}

// Channels returns the source channel count
func (c *Clip) Channels() int { return c.channels }

// Frequency returns the native sample rate
func (c *Clip) Frequency() int { return c.frequency }

// Frames returns the number of sample frames in the buffer
func (c *Clip) Frames() uint64 { return c.frames }

// Length returns the clip duration in seconds
func (c *Clip) Length() float64 {
	return float64(c.frames) / float64(c.frequency)
}

// sharesBuffer reports whether both clips read the same samples
func (c *Clip) sharesBuffer(other *Clip) bool {
	if other == nil || len(c.samples) != len(other.samples) {
		return false
	}
	return &c.samples[0] == &other.samples[0]
}

// SetPositionFromTime moves the cursor to round(t*frequency)
func (c *Clip) SetPositionFromTime(t float64) {
	c.cursor = resample.FromSeconds(t, c.frequency)
}

// SetPosition moves the cursor to an exact fixed-point position
func (c *Clip) SetPosition(p resample.Position) {
	c.cursor = p
}

// Position returns the fixed-point cursor
func (c *Clip) Position() resample.Position {
	return c.cursor
}

// Time returns the cursor in seconds, fraction included
func (c *Clip) Time() float64 {
	return c.cursor.Seconds(c.frequency)
}

// Exhausted reports whether the cursor is at or past the last frame
func (c *Clip) Exhausted() bool {
	return c.cursor.Index() >= c.frames
}

// SetGain sets the clip gain. Negative and NaN values read back as silence.
func (c *Clip) SetGain(g float32) {
	c.gain.Store(math.Float32bits(g))
}

// Gain returns the clip gain as stored
func (c *Clip) Gain() float32 {
	return math.Float32frombits(c.gain.Load())
}

// SetPan sets the stereo balance; values are clamped to [-1, 1] when mixed
func (c *Clip) SetPan(p float32) {
	c.pan.Store(math.Float32bits(p))
}

// Pan returns the pan as stored
func (c *Clip) Pan() float32 {
	return math.Float32frombits(c.pan.Load())
}

// MixInto adds the clip's contribution for one output frame into out and
// advances the cursor by one output step. Output channel ch reads source
// channel ch % Channels(). Pan only applies to outputs with at least two
// channels. An exhausted clip adds nothing, keeps its cursor and returns
// false.
func (c *Clip) MixInto(out []float32, frame, outChannels, outRate int, volume float32) bool {
	if c.cursor.Index() >= c.frames {
		return false
	}
	if outRate != c.stepRate {
		c.step = resample.Step(c.frequency, outRate)
		c.stepRate = outRate
	}

	amp := nonNegative(volume) * nonNegative(c.Gain())
	left, right := float32(1), float32(1)
	if outChannels >= 2 {
		left, right = PanWeights(c.Pan())
	}

	base := int(c.cursor.Index()) * c.channels
	dst := frame * outChannels
	if dst < 0 || dst+outChannels > len(out) {
		return false
	}

	for ch := 0; ch < outChannels; ch++ {
		w := float32(1)
		switch ch {
		case 0:
			w = left
		case 1:
			w = right
		}
		out[dst+ch] += c.samples[base+ch%c.channels] * amp * w
	}

	c.cursor = c.cursor.Advance(c.step)
	return true
}

// PanWeights returns the left and right weights for a pan value using a
// linear balance law: centre is unity on both sides and each side fades
// to zero as the pan moves away from it
func PanWeights(pan float32) (left, right float32) {
	if pan != pan {
		pan = 0
	}
	if pan > 1 {
		pan = 1
	} else if pan < -1 {
		pan = -1
	}
	return min(1, 1-pan), min(1, 1+pan)
}

func nonNegative(v float32) float32 {
	if v > 0 {
		return v
	}
	return 0
}
