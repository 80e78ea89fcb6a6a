// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, decoded sample buffers and sample conversions
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int // only meaningful for integer PCM on disk or on the wire
}

// PCM is a fully decoded, interleaved float buffer in the range [-1, 1]
type PCM struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the buffer
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Seconds returns the buffer duration
func (p PCM) Seconds() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// String implements fmt.Stringer for log lines
func (p PCM) String() string {
	return fmt.Sprintf("%dHz %dch %.2fs", p.SampleRate, p.Channels, p.Seconds())
}

// Clamp limits a sample to [-1, 1]
func Clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// SampleToInt16 converts a float sample to int16 with clipping
func SampleToInt16(sample float32) int16 {
	return int16(Clamp(sample) * 32767)
}

// SampleFromInt16 converts an int16 sample to float
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768
}

// SampleTo24Bit converts a float sample to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample float32) [3]byte {
	v := int32(Clamp(sample) * Max24Bit)
	return [3]byte{
		byte(v),
		byte(v >> 8),
		byte(v >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to float
func SampleFrom24Bit(b [3]byte) float32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / -Min24Bit
}

// SampleFromInt scales an integer sample of the given bit depth to float
func SampleFromInt(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}
