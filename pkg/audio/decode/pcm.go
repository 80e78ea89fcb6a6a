// ABOUTME: Raw PCM audio decoder
// ABOUTME: Decodes little-endian 16-bit and 24-bit PCM bytes to float samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/notreaper/nrplayback/pkg/audio"
)

// RawPCM decodes interleaved little-endian integer PCM. Trailing bytes
// that do not form a whole frame are dropped.
func RawPCM(data []byte, format audio.Format) (audio.PCM, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return audio.PCM{}, fmt.Errorf("%w: %d-bit PCM (supported: 16, 24)", ErrUnsupportedFormat, format.BitDepth)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return audio.PCM{}, fmt.Errorf("invalid PCM format: %dHz, %d channels", format.SampleRate, format.Channels)
	}

	width := format.BitDepth / 8
	frames := len(data) / (width * format.Channels)
	samples := make([]float32, frames*format.Channels)

	if format.BitDepth == 24 {
		for i := range samples {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
	} else {
		for i := range samples {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}

	return audio.PCM{Samples: samples, Channels: format.Channels, SampleRate: format.SampleRate}, nil
}
