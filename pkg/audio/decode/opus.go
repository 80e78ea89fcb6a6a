// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg Opus files to 48kHz float samples via libopusfile
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/notreaper/nrplayback/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusSampleRate is the rate libopusfile always decodes at
const OpusSampleRate = 48000

// maxOpusFrame is 120ms at 48kHz, the longest Opus packet
const maxOpusFrame = 5760

// Opus decodes an Ogg Opus stream with the given channel layout
func Opus(r io.Reader, channels int) (audio.PCM, error) {
	if channels <= 0 {
		return audio.PCM{}, fmt.Errorf("invalid channel count: %d", channels)
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	buf := make([]float32, maxOpusFrame*channels)
	var samples []float32
	for {
		n, err := stream.ReadFloat32(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.PCM{}, fmt.Errorf("opus decode failed: %w", err)
		}
		samples = append(samples, buf[:n*channels]...)
	}

	return audio.PCM{Samples: samples, Channels: channels, SampleRate: OpusSampleRate}, nil
}
