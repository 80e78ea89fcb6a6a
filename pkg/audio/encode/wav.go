// ABOUTME: WAV file writer
// ABOUTME: Streams float samples to an integer PCM WAV file through go-audio/wav
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/notreaper/nrplayback/pkg/audio"
)

const wavFormatPCM = 1

// WAVWriter writes interleaved float samples to a WAV file
type WAVWriter struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	format audio.Format
	frames int
}

// NewWAV starts a WAV file on w. The header is finalised by Close.
func NewWAV(w io.WriteSeeker, format audio.Format) (*WAVWriter, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, format.BitDepth)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav format: %dHz %dch", format.SampleRate, format.Channels)
	}

	return &WAVWriter{
		enc: wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: format.BitDepth,
		},
		format: format,
	}, nil
}

// Write appends samples; a trailing partial frame is dropped
func (w *WAVWriter) Write(samples []float32) error {
	n := len(samples) - len(samples)%w.format.Channels
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]

	for i := 0; i < n; i++ {
		if w.format.BitDepth == 24 {
			w.buf.Data[i] = int(audio.Clamp(samples[i]) * audio.Max24Bit)
		} else {
			w.buf.Data[i] = int(audio.SampleToInt16(samples[i]))
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	w.frames += n / w.format.Channels
	return nil
}

// Frames returns the number of frames written so far
func (w *WAVWriter) Frames() int {
	return w.frames
}

// Close finalises the header. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	if w.frames == 0 {
		// the encoder only writes its header on the first Write
		if err := w.Write(nil); err != nil {
			return err
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise wav: %w", err)
	}
	return nil
}
