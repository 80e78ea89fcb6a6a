// ABOUTME: YAML configuration file for the nrplayback tools
// ABOUTME: Loads engine, metronome, remote and tempo settings with defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/notreaper/nrplayback/pkg/metronome"
	"github.com/notreaper/nrplayback/pkg/playback"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBackend = "oto"
	DefaultPort    = 8937
	DefaultBPM     = 120
	DefaultName    = "NR Playback"
)

// File mirrors the YAML configuration file
type File struct {
	Audio     Audio     `yaml:"audio"`
	Playback  Playback  `yaml:"playback"`
	Metronome Metronome `yaml:"metronome"`
	Remote    Remote    `yaml:"remote"`
	Tempo     Tempo     `yaml:"tempo"`
	LogFile   string    `yaml:"log_file"`
	Debug     bool      `yaml:"debug"`
}

// Audio selects the host output
type Audio struct {
	Backend    string `yaml:"backend"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

// Playback holds session settings. Durations use time.ParseDuration syntax.
type Playback struct {
	PreviewCap             string  `yaml:"preview_cap"`
	SustainVolume          float32 `yaml:"sustain_volume"`
	SongVolume             float32 `yaml:"song_volume"`
	PreviewVolume          float32 `yaml:"preview_volume"`
	DisableMetronomeOnStop bool    `yaml:"disable_metronome_on_stop"`
}

// Metronome holds the click sound
type Metronome struct {
	Enabled             bool    `yaml:"enabled"`
	TickLength          string  `yaml:"tick_length"`
	Gain                float32 `yaml:"gain"`
	HighFrequency       float64 `yaml:"high_frequency"`
	LowFrequency        float64 `yaml:"low_frequency"`
	TickSubdivision     uint    `yaml:"tick_subdivision"`
	DownbeatSubdivision uint    `yaml:"downbeat_subdivision"`
}

// Remote configures the control server
type Remote struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	MDNS    bool   `yaml:"mdns"`
}

// Tempo locates the tempo map
type Tempo struct {
	Map   string  `yaml:"map"` // song.mid
	BPM   float64 `yaml:"bpm"` // used when there is no map
	Watch bool    `yaml:"watch"`
}

// Default returns the built-in configuration
func Default() File {
	m := metronome.DefaultConfig()
	return File{
		Audio: Audio{
			Backend:    DefaultBackend,
			SampleRate: playback.DefaultSampleRate,
			Channels:   playback.DefaultChannels,
		},
		Playback: Playback{
			PreviewCap:    playback.DefaultPreviewCap.String(),
			SongVolume:    1,
			PreviewVolume: 1,
		},
		Metronome: Metronome{
			TickLength:          m.TickLength.String(),
			Gain:                m.Gain,
			HighFrequency:       m.HighFrequency,
			LowFrequency:        m.LowFrequency,
			TickSubdivision:     m.TickSubdivision,
			DownbeatSubdivision: m.DownbeatSubdivision,
		},
		Remote: Remote{
			Port: DefaultPort,
			Name: DefaultName,
		},
		Tempo: Tempo{
			BPM:   DefaultBPM,
			Watch: true,
		},
	}
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	f := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads a config file. A missing file yields the defaults.
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return File{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks values that cannot be defaulted
func (f File) Validate() error {
	if f.Audio.SampleRate < 0 {
		return fmt.Errorf("invalid sample_rate: %d", f.Audio.SampleRate)
	}
	if f.Audio.Channels < 0 {
		return fmt.Errorf("invalid channels: %d", f.Audio.Channels)
	}
	if f.Remote.Port < 0 || f.Remote.Port > 65535 {
		return fmt.Errorf("invalid remote port: %d", f.Remote.Port)
	}
	if f.Tempo.BPM < 0 {
		return fmt.Errorf("invalid bpm: %v", f.Tempo.BPM)
	}
	if _, err := parseDuration("preview_cap", f.Playback.PreviewCap); err != nil {
		return err
	}
	if _, err := parseDuration("tick_length", f.Metronome.TickLength); err != nil {
		return err
	}
	return nil
}

// PlaybackConfig converts the file into session settings
func (f File) PlaybackConfig() (playback.Config, error) {
	previewCap, err := parseDuration("preview_cap", f.Playback.PreviewCap)
	if err != nil {
		return playback.Config{}, err
	}
	tickLength, err := parseDuration("tick_length", f.Metronome.TickLength)
	if err != nil {
		return playback.Config{}, err
	}

	return playback.Config{
		SampleRate: f.Audio.SampleRate,
		Channels:   f.Audio.Channels,
		PreviewCap: previewCap,
		Metronome: metronome.Config{
			TickLength:          tickLength,
			Gain:                f.Metronome.Gain,
			HighFrequency:       f.Metronome.HighFrequency,
			LowFrequency:        f.Metronome.LowFrequency,
			TickSubdivision:     f.Metronome.TickSubdivision,
			DownbeatSubdivision: f.Metronome.DownbeatSubdivision,
		},
		SustainVolume:          f.Playback.SustainVolume,
		SongVolume:             f.Playback.SongVolume,
		PreviewVolume:          f.Playback.PreviewVolume,
		DisableMetronomeOnStop: f.Playback.DisableMetronomeOnStop,
		Debug:                  f.Debug,
	}, nil
}

// parseDuration treats an empty value as zero so the session default applies
func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative", name, value)
	}
	return d, nil
}
