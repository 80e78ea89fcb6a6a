// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit and 24-bit PCM encoding
package encode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/notreaper/nrplayback/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		wantErr  bool
	}{
		{"valid 16-bit PCM", 16, false},
		{"valid 24-bit PCM", 24, false},
		{"8-bit", 8, true},
		{"32-bit", 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 2, BitDepth: tt.bitDepth})
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedBitDepth) {
					t.Errorf("expected ErrUnsupportedBitDepth, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := enc.Close(); err != nil {
				t.Errorf("close failed: %v", err)
			}
		})
	}
}

func TestPCM16(t *testing.T) {
	data := PCM16([]float32{0, 1, -1, 0.5})

	if len(data) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(data))
	}

	expected := []int16{0, 32767, -32767, 16383}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestPCM24(t *testing.T) {
	input := []float32{0.25, -0.25}
	data := PCM24(input)

	if len(data) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(data))
	}

	for i, want := range input {
		got := audio.SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		if d := got - want; d > 1e-6 || d < -1e-6 {
			t.Errorf("sample %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestEncodeDispatchesOnBitDepth(t *testing.T) {
	enc, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := enc.Encode(make([]float32, 10))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(data) != 30 {
		t.Errorf("expected 30 bytes, got %d", len(data))
	}
}
