// ABOUTME: Audio encoder package for writing float PCM to disk formats
// ABOUTME: Provides the Encoder interface, raw PCM encoding and a WAV writer
// Package encode converts float samples back to integer PCM.
//
// Supports: raw PCM (16-bit and 24-bit little-endian), WAV files.
//
// Example:
//
//	w, err := encode.NewWAV(f, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24})
//	err = w.Write(samples)
//	err = w.Close()
package encode
