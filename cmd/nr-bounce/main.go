// ABOUTME: Offline mixdown of a playback session
// ABOUTME: Renders song, sustain layers and metronome to WAV or raw PCM without an audio device
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/notreaper/nrplayback/internal/config"
	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/audio/decode"
	"github.com/notreaper/nrplayback/pkg/audio/encode"
	"github.com/notreaper/nrplayback/pkg/playback"
	"github.com/notreaper/nrplayback/pkg/timing"
)

var (
	songFile      = flag.String("song", "", "Main song audio file")
	leftFile      = flag.String("left", "", "Left sustain layer audio file")
	rightFile     = flag.String("right", "", "Right sustain layer audio file")
	tempoMap      = flag.String("tempo-map", "", "Chart song.mid providing tempo changes")
	bpm           = flag.Float64("bpm", config.DefaultBPM, "Constant tempo when no tempo map is given")
	configPath    = flag.String("config", "", "YAML config file")
	fromTick      = flag.Int64("from-tick", 0, "Start position in ticks")
	seconds       = flag.Float64("seconds", 0, "Length to render (default: rest of the song)")
	metronome     = flag.Bool("metronome", false, "Include metronome ticks")
	sustainVolume = flag.Float64("sustain-volume", -1, "Volume for both sustain layers (default from config)")
	outFile       = flag.String("out", "mix.wav", "Output file; .pcm or .raw writes headerless PCM")
	outFormat     = flag.String("format", "", "Output format: wav or raw (default from the -out extension)")
	bitDepth      = flag.Int("bit-depth", 24, "Output bit depth: 16 or 24")
)

func main() {
	flag.Parse()

	if *songFile == "" {
		log.Fatalf("-song is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Config error: %v", err)
		}
	}
	pcfg, err := cfg.PlaybackConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var tl timing.Timeline = timing.ConstantTempo(*bpm)
	if *tempoMap != "" {
		if tl, err = timing.LoadTempoMapFile(*tempoMap); err != nil {
			log.Fatalf("Tempo map error: %v", err)
		}
	}

	session, err := playback.NewSession(pcfg, tl)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	for _, t := range []struct {
		path string
		kind playback.TrackKind
	}{
		{*songFile, playback.Song},
		{*leftFile, playback.LeftSustain},
		{*rightFile, playback.RightSustain},
	} {
		if t.path == "" {
			continue
		}
		pcm, err := decode.File(t.path)
		if err != nil {
			log.Fatalf("Failed to decode %s: %v", t.path, err)
		}
		if err := session.LoadPCM(pcm, t.kind); err != nil {
			log.Fatalf("Failed to load %v: %v", t.kind, err)
		}
		if t.kind != playback.Song && *sustainVolume >= 0 {
			session.SetTrackVolume(t.kind, float32(*sustainVolume))
		}
	}
	session.SetMetronomeEnabled(*metronome)

	length := *seconds
	if length <= 0 {
		length = session.SongLength() - tl.TimestampToSeconds(timing.Timestamp(*fromTick))
	}

	samples, err := session.Bounce(timing.Timestamp(*fromTick), length)
	if err != nil {
		log.Fatalf("Bounce failed: %v", err)
	}

	format := *outFormat
	if format == "" {
		format = formatForPath(*outFile)
	}

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *outFile, err)
	}
	defer f.Close()

	sc := session.Config()
	af := audio.Format{SampleRate: sc.SampleRate, Channels: sc.Channels, BitDepth: *bitDepth}
	frames, err := writeMix(f, samples, af, format)
	if err != nil {
		log.Fatalf("Failed to write %s: %v", *outFile, err)
	}

	log.Printf("Wrote %s (%s): %d frames, %dHz, %d-bit", *outFile, format, frames, sc.SampleRate, *bitDepth)
}

// formatForPath picks raw for .pcm and .raw files and wav otherwise
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".raw":
		return "raw"
	default:
		return "wav"
	}
}

// writeMix writes interleaved samples to w as a WAV file or headerless
// little-endian PCM and returns the number of frames written
func writeMix(w io.WriteSeeker, samples []float32, format audio.Format, kind string) (int, error) {
	switch kind {
	case "wav":
		ww, err := encode.NewWAV(w, format)
		if err != nil {
			return 0, err
		}
		if err := ww.Write(samples); err != nil {
			return 0, err
		}
		if err := ww.Close(); err != nil {
			return 0, err
		}
		return ww.Frames(), nil

	case "raw":
		if format.Channels <= 0 {
			return 0, fmt.Errorf("invalid channel count: %d", format.Channels)
		}
		enc, err := encode.NewPCM(format)
		if err != nil {
			return 0, err
		}
		defer enc.Close()

		samples = samples[:len(samples)-len(samples)%format.Channels]
		data, err := enc.Encode(samples)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(data); err != nil {
			return 0, fmt.Errorf("failed to write pcm: %w", err)
		}
		return len(samples) / format.Channels, nil
	}
	return 0, fmt.Errorf("unknown output format %q (supported: wav, raw)", kind)
}
