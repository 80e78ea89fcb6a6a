// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, PCM types and sample conversion functions
// Package audio provides the PCM value types shared by the playback engine.
//
// Decoded audio is always carried as interleaved float32 samples in the
// range [-1, 1]:
//   - Format: describes a stream (sample rate, channels, bit depth)
//   - PCM: a fully decoded buffer with its native rate and channel count
//
// Conversions to and from 16-bit and 24-bit integer PCM are provided for
// the decoders, the offline encoder and the host output adapters.
//
// Example:
//
//	pcm := audio.PCM{Samples: samples, Channels: 2, SampleRate: 44100}
//	log.Printf("Loaded song: %v", pcm)
package audio
