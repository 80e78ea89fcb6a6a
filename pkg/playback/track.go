// ABOUTME: Track kinds held by a session
// ABOUTME: Song, sustain layers and the song-derived preview
package playback

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTrack is returned for track kinds that cannot be loaded
var ErrUnknownTrack = errors.New("playback: unknown track kind")

// TrackKind identifies one of the session's clips
type TrackKind int

const (
	Song TrackKind = iota
	LeftSustain
	RightSustain
	// Preview plays the song's samples; it is created when the song loads
	Preview

	numTracks
)

// String returns the track name used in logs and the control protocol
func (k TrackKind) String() string {
	switch k {
	case Song:
		return "song"
	case LeftSustain:
		return "left"
	case RightSustain:
		return "right"
	case Preview:
		return "preview"
	default:
		return fmt.Sprintf("track(%d)", int(k))
	}
}

// ParseTrackKind parses a track name as printed by String
func ParseTrackKind(name string) (TrackKind, error) {
	switch strings.ToLower(name) {
	case "song", "main":
		return Song, nil
	case "left", "leftsustain", "left_sustain":
		return LeftSustain, nil
	case "right", "rightsustain", "right_sustain":
		return RightSustain, nil
	case "preview":
		return Preview, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTrack, name)
}

func (k TrackKind) valid() bool {
	return k >= Song && k < numTracks
}

func (k TrackKind) loadable() bool {
	return k == Song || k == LeftSustain || k == RightSustain
}
