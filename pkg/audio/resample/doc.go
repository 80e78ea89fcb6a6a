// ABOUTME: Fixed-point cursor arithmetic for nearest-neighbour resampling
// ABOUTME: Converts between seconds, sample indices and 32.32 positions
// Package resample provides the fixed-point playback cursor used by clips.
//
// A Position carries a sample index in its upper bits and FracBits bits of
// fraction below it. The per-output-sample Step is derived once from the
// native and output rates, so a cursor advanced N times lands exactly where
// N*Step says it should, without floating point accumulation.
//
// Example:
//
//	step := resample.Step(44100, 48000)
//	pos := resample.FromSeconds(1.5, 44100)
//	for i := 0; i < frames; i++ {
//	    sample := buf[pos.Index()]
//	    pos = pos.Advance(step)
//	}
package resample
