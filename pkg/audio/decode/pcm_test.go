// ABOUTME: Tests for raw PCM decoding
// ABOUTME: Tests 16-bit and 24-bit PCM decoding and validation
package decode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/notreaper/nrplayback/pkg/audio"
)

func TestRawPCM16Bit(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], uint16(16384))
	v := int16(-32768)
	binary.LittleEndian.PutUint16(data[2:], uint16(v))

	pcm, err := RawPCM(data, audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if pcm.Frames() != 2 {
		t.Fatalf("expected 2 frames, got %d", pcm.Frames())
	}
	if pcm.Samples[0] != 0.5 {
		t.Errorf("expected 0.5, got %v", pcm.Samples[0])
	}
	if pcm.Samples[1] != -1 {
		t.Errorf("expected -1, got %v", pcm.Samples[1])
	}
}

func TestRawPCM24Bit(t *testing.T) {
	half := audio.SampleTo24Bit(0.5)
	data := []byte{half[0], half[1], half[2], 0, 0, 0, 0xFF}

	pcm, err := RawPCM(data, audio.Format{SampleRate: 96000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(pcm.Samples) != 2 {
		t.Fatalf("expected partial trailing frame to be dropped, got %d samples", len(pcm.Samples))
	}
	if d := pcm.Samples[0] - 0.5; d > 1e-6 || d < -1e-6 {
		t.Errorf("expected ~0.5, got %v", pcm.Samples[0])
	}
}

func TestRawPCMValidation(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr error
	}{
		{"8-bit", audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 8}, ErrUnsupportedFormat},
		{"32-bit", audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 32}, ErrUnsupportedFormat},
		{"no channels", audio.Format{SampleRate: 44100, Channels: 0, BitDepth: 16}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RawPCM(make([]byte, 16), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
