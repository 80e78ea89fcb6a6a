// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 to float samples via go-mp3's 16-bit stereo stream
package decode

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/notreaper/nrplayback/pkg/audio"
)

// MP3 decodes a whole MP3 stream. go-mp3 always produces 16-bit stereo.
func MP3(r io.Reader) (audio.PCM, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	return RawPCM(data, audio.Format{
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	})
}
