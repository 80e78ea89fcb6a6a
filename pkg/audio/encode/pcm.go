// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float samples to 16-bit or 24-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/notreaper/nrplayback/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Encode converts float samples to little-endian PCM bytes
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	if e.bitDepth == 24 {
		return PCM24(samples), nil
	}
	return PCM16(samples), nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// PCM16 packs samples as 16-bit little-endian
func PCM16(samples []float32) []byte {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output
}

// PCM24 packs samples as 24-bit little-endian, 3 bytes per sample
func PCM24(samples []float32) []byte {
	output := make([]byte, len(samples)*3)
	for i, sample := range samples {
		b := audio.SampleTo24Bit(sample)
		copy(output[i*3:], b[:])
	}
	return output
}
