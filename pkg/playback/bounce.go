// ABOUTME: Offline rendering of a session
// ABOUTME: Drives Process synchronously to produce a mixdown buffer
package playback

import (
	"fmt"
	"log"
	"time"

	"github.com/notreaper/nrplayback/pkg/timing"
)

// BounceBlock is the callback size used for offline renders
const BounceBlock = 480

// Bounce renders seconds of the mix starting at from and returns
// interleaved samples at the session rate and channel count. It drives
// Process itself, so the session must not be attached to a device.
func (s *Session) Bounce(from timing.Timestamp, seconds float64) ([]float32, error) {
	if !s.Loaded(Song) {
		return nil, ErrNoSong
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("bounce length must be positive: %v", seconds)
	}

	channels := s.cfg.Channels
	frames := int(seconds * float64(s.cfg.SampleRate))
	out := make([]float32, frames*channels)

	start := time.Now()
	s.Play(from)
	for off := 0; off < frames; off += BounceBlock {
		end := min(off+BounceBlock, frames)
		s.Process(out[off*channels:end*channels], channels)
	}
	s.Stop()
	s.Process(nil, channels)

	log.Printf("Bounced %.2fs in %v", seconds, time.Since(start).Round(time.Millisecond))
	return out, nil
}
