// ABOUTME: Musical time base for the playback engine
// ABOUTME: Converts tick timestamps to seconds and snaps them to beat grids
// Package timing converts chart timestamps (ticks, 480 per quarter note)
// into seconds and back.
//
// Playback code depends on the Timeline interface only. TempoMap is the
// stock implementation, built from a list of tempo changes or read from the
// tempo track of a chart's song.mid.
//
// Example:
//
//	tl, err := timing.LoadTempoMapFile("song.mid")
//	if err != nil {
//	    tl = timing.ConstantTempo(120)
//	}
//	secs := tl.TimestampToSeconds(timing.Timestamp(1920))
package timing
