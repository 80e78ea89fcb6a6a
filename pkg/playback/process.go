// ABOUTME: Real-time audio callback for a playback session
// ABOUTME: Applies pending requests then mixes preview, tracks and metronome per frame
package playback

import (
	"github.com/notreaper/nrplayback/pkg/audio/clip"
	"github.com/notreaper/nrplayback/pkg/audio/resample"
)

// rtState is owned by the goroutine calling Process
type rtState struct {
	playing      bool
	previewArmed bool
	previewEnd   resample.Position
	logical      float64
	anchor       float64
	anchorFrames uint64
	seen         [numTracks]*clip.Clip
}

// Process mixes one device buffer of interleaved frames into out. It adds
// to whatever out already holds. Requests posted since the previous call
// take effect before the first frame.
func (s *Session) Process(out []float32, channels int) {
	if channels <= 0 {
		return
	}
	frames := len(out) / channels
	rate := s.cfg.SampleRate
	rt := &s.rt
	tl := s.timeline.Load().tl

	song := s.tracks[Song].Load()
	left := s.tracks[LeftSustain].Load()
	right := s.tracks[RightSustain].Load()
	preview := s.tracks[Preview].Load()

	s.syncClips(song, left, right, preview)
	s.applyRequests(song, left, right, preview)
	s.metronome.Latch()

	songVol := s.volume(Song)
	leftVol := s.volume(LeftSustain)
	rightVol := s.volume(RightSustain)
	previewVol := s.volume(Preview)
	startFrames := s.clock.Frames()

	for f := 0; f < frames; f++ {
		if rt.previewArmed {
			if preview != nil && preview.Position() < rt.previewEnd {
				preview.MixInto(out, f, channels, rate, previewVol)
			}
			if preview == nil || preview.Position() >= rt.previewEnd || preview.Exhausted() {
				rt.previewArmed = false
			}
		}

		if !rt.playing {
			continue
		}

		var now float64
		if song != nil {
			now = song.Time()
			song.MixInto(out, f, channels, rate, songVol)
		} else {
			now = rt.anchor + float64(startFrames+uint64(f)-rt.anchorFrames)/float64(rate)
		}
		if left != nil {
			left.MixInto(out, f, channels, rate, leftVol)
		}
		if right != nil {
			right.MixInto(out, f, channels, rate, rightVol)
		}
		s.metronome.Process(out, f, channels, now, tl)
	}

	s.clock.Advance(frames)

	clockTime := rt.logical
	if rt.playing {
		clockTime = rt.anchor + s.clock.SecondsAt(s.clock.Frames()-rt.anchorFrames)
		if song != nil {
			rt.logical = song.Time()
		} else {
			rt.logical = clockTime
		}
	}
	s.publishTimes(rt.logical, clockTime)
	s.playing.Store(rt.playing)
	s.previewArmed.Store(rt.previewArmed)
}

// syncClips notices clips swapped in by the control goroutine. A track
// replaced mid-play joins at the current song position; a new preview
// clip starts disarmed.
func (s *Session) syncClips(song, left, right, preview *clip.Clip) {
	rt := &s.rt
	for k, c := range [...]*clip.Clip{Song: song, LeftSustain: left, RightSustain: right} {
		if c == rt.seen[k] {
			continue
		}
		rt.seen[k] = c
		if c != nil && rt.playing {
			c.SetPositionFromTime(rt.logical)
		}
	}
	if preview != rt.seen[Preview] {
		rt.seen[Preview] = preview
		rt.previewArmed = false
	}
}

// applyRequests takes the pending transport and preview requests. Cursor
// positions are only set here.
func (s *Session) applyRequests(song, left, right, preview *clip.Clip) {
	rt := &s.rt

	if req := s.transportReq.Swap(nil); req != nil {
		if req.play {
			for _, c := range [...]*clip.Clip{song, left, right} {
				if c != nil {
					c.SetPositionFromTime(req.seconds)
				}
			}
			rt.playing = true
			rt.anchor = req.seconds
			rt.logical = req.seconds
			if song != nil {
				rt.logical = song.Time()
			}
			rt.anchorFrames = s.clock.Frames()
		} else {
			rt.playing = false
		}
		s.metronome.Reset()
	}

	if req := s.previewReq.Swap(nil); req != nil && preview != nil {
		preview.SetPositionFromTime(req.start)
		rt.previewEnd = previewEndPosition(preview, req.end)
		rt.previewArmed = true
	}
}
