// ABOUTME: Session status snapshot
// ABOUTME: Read by the TUI and the remote control server
package playback

import (
	nrsync "github.com/notreaper/nrplayback/pkg/sync"
)

// Status is a point-in-time view of a session
type Status struct {
	ID               string
	Playing          bool
	PreviewArmed     bool
	MetronomeEnabled bool
	LogicalTime      float64
	ClockTime        float64
	SongLength       float64
	BPM              float64
	SongVolume       float32
	LeftVolume       float32
	RightVolume      float32
	PreviewVolume    float32
	LeftLoaded       bool
	RightLoaded      bool
	Quality          nrsync.Quality
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	logical, clock := s.times()
	tl := s.Timeline()
	return Status{
		ID:               s.id,
		Playing:          s.Playing(),
		PreviewArmed:     s.PreviewArmed(),
		MetronomeEnabled: s.MetronomeEnabled(),
		LogicalTime:      logical,
		ClockTime:        clock,
		SongLength:       s.SongLength(),
		BPM:              tl.TempoForTime(tl.ShiftTick(0, logical)).BPM(),
		SongVolume:       s.TrackVolume(Song),
		LeftVolume:       s.TrackVolume(LeftSustain),
		RightVolume:      s.TrackVolume(RightSustain),
		PreviewVolume:    s.TrackVolume(Preview),
		LeftLoaded:       s.Loaded(LeftSustain),
		RightLoaded:      s.Loaded(RightSustain),
		Quality:          s.Divergence().Quality,
	}
}
