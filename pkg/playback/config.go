// ABOUTME: Session configuration and defaults
// ABOUTME: Passed to NewSession instead of process-wide settings
package playback

import (
	"time"

	"github.com/notreaper/nrplayback/pkg/metronome"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultPreviewCap = 100 * time.Millisecond
)

// Config holds session settings
type Config struct {
	SampleRate int
	Channels   int

	// PreviewCap bounds the length of a scrub preview window
	PreviewCap time.Duration

	Metronome metronome.Config

	// SustainVolume is applied to a sustain layer each time one is loaded
	SustainVolume float32
	SongVolume    float32
	PreviewVolume float32

	// DisableMetronomeOnStop clears the metronome preference on Stop.
	// By default Stop only silences the sounding tick.
	DisableMetronomeOnStop bool

	Debug bool
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	if c.PreviewCap <= 0 {
		c.PreviewCap = DefaultPreviewCap
	}
	if c.SongVolume == 0 {
		c.SongVolume = 1
	}
	if c.PreviewVolume == 0 {
		c.PreviewVolume = 1
	}
	return c
}
