// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames to interleaved float samples via mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/notreaper/nrplayback/pkg/audio"
)

// FLAC decodes a whole FLAC stream
func FLAC(r io.Reader) (audio.PCM, error) {
	stream, err := flac.New(r)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	samples := make([]float32, 0, int(stream.Info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.PCM{}, fmt.Errorf("flac decode error: %w", err)
		}
		if len(frame.Subframes) != channels {
			return audio.PCM{}, fmt.Errorf("flac frame has %d channels, stream has %d", len(frame.Subframes), channels)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for _, sub := range frame.Subframes {
				samples = append(samples, audio.SampleFromInt(sub.Samples[i], bitDepth))
			}
		}
	}

	return audio.PCM{Samples: samples, Channels: channels, SampleRate: int(stream.Info.SampleRate)}, nil
}
