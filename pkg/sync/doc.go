// ABOUTME: Device clock and time divergence tracking
// ABOUTME: Compares clock-derived song time with cursor-derived song time
// Package sync tracks the audio device clock and how far the clock-derived
// song position drifts from the position the song cursor reports.
//
// The song cursor is authoritative. The clock estimate exists as a
// diagnostic: Divergence smooths the difference between the two with an
// offset and drift estimator and grades it with a Quality.
//
// Example:
//
//	var clock sync.DeviceClock
//	clock.Advance(480)
//	d := sync.NewDivergence()
//	d.Observe(clockTime, cursorTime)
//	stats := d.Stats()
package sync
