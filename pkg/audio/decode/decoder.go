// ABOUTME: Decoder interface definition and file dispatch
// ABOUTME: Picks a decoder from the file extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/notreaper/nrplayback/pkg/audio"
)

// ErrUnsupportedFormat is returned for files no decoder handles
var ErrUnsupportedFormat = errors.New("decode: unsupported format")

// Decoder decodes a complete encoded stream to PCM
type Decoder interface {
	Decode(r io.ReadSeeker) (audio.PCM, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(r io.ReadSeeker) (audio.PCM, error)

// Decode calls f(r)
func (f DecoderFunc) Decode(r io.ReadSeeker) (audio.PCM, error) {
	return f(r)
}

var decoders = map[string]Decoder{
	".wav":  DecoderFunc(WAV),
	".wave": DecoderFunc(WAV),
	".mp3":  DecoderFunc(func(r io.ReadSeeker) (audio.PCM, error) { return MP3(r) }),
	".flac": DecoderFunc(func(r io.ReadSeeker) (audio.PCM, error) { return FLAC(r) }),
	".opus": DecoderFunc(func(r io.ReadSeeker) (audio.PCM, error) { return Opus(r, 2) }),
}

// ForExtension returns the decoder for a file extension such as ".flac"
func ForExtension(ext string) (Decoder, error) {
	d, ok := decoders[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return d, nil
}

// File decodes the file at path, choosing a decoder by extension
func File(path string) (audio.PCM, error) {
	d, err := ForExtension(filepath.Ext(path))
	if err != nil {
		return audio.PCM{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	pcm, err := d.Decode(f)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	log.Printf("Decoded %s: %v in %v", filepath.Base(path), pcm, time.Since(start).Round(time.Millisecond))
	return pcm, nil
}
