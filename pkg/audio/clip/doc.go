// ABOUTME: Decoded audio clip with a fixed-point playback cursor
// ABOUTME: Performs nearest-neighbour resampling and additive mixing
// Package clip holds one decoded PCM buffer and the cursor that plays it.
//
// A Clip never copies or mutates its samples once built, so several clips
// may share one buffer (the song and its scrub preview do). The cursor is
// owned by whichever goroutine calls MixInto; callers on other goroutines
// build a new Clip rather than repositioning one that is in use.
//
// Example:
//
//	c, err := clip.New(pcm)
//	if err != nil {
//	    return err
//	}
//	c.SetPositionFromTime(12.5)
//	for frame := 0; frame < frames; frame++ {
//	    c.MixInto(out, frame, 2, 48000, 1.0)
//	}
package clip
