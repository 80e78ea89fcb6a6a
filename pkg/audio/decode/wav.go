// ABOUTME: WAV audio decoder
// ABOUTME: Reads integer PCM WAV files through go-audio/wav
package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/notreaper/nrplayback/pkg/audio"
)

const wavFormatPCM = 1

// WAV decodes an integer PCM WAV file
func WAV(r io.ReadSeeker) (audio.PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return audio.PCM{}, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return audio.PCM{}, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to read wav data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	frames := len(buf.Data) / max(channels, 1)
	samples := make([]float32, frames*channels)
	for i := range samples {
		v := buf.Data[i]
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.SampleFromInt(int32(v), bitDepth)
	}

	return audio.PCM{Samples: samples, Channels: channels, SampleRate: int(dec.SampleRate)}, nil
}
