// ABOUTME: Real-time multi-track playback session
// ABOUTME: Mixes song, sustain layers, scrub preview and metronome
// Package playback drives the song, its two sustain layers, the scrub
// preview and the metronome from a single audio callback.
//
// Two goroutines touch a Session. The control goroutine loads tracks and
// posts play, stop and preview requests. The audio goroutine calls Process
// once per device buffer; it applies pending requests at the start of the
// call, owns every clip cursor, and never allocates, locks, logs or blocks.
//
// Example:
//
//	s, err := playback.NewSession(playback.Config{SampleRate: 48000, Channels: 2}, timing.ConstantTempo(120))
//	if err != nil {
//	    return err
//	}
//	if err := s.LoadPCM(song, playback.Song); err != nil {
//	    return err
//	}
//	out.Open(48000, 2, s.Process)
//	s.Play(0)
package playback
