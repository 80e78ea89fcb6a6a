// ABOUTME: Tick timestamps, durations, tempo values and the Timeline interface
// ABOUTME: Shared vocabulary between the session, metronome and tempo map
package timing

import "math"

// QuarterNote is the number of ticks in one quarter note
const QuarterNote = 480

// Timestamp is an absolute chart position in ticks
type Timestamp int64

// Duration is a length in ticks
type Duration int64

// Tempo is a tempo change taking effect at Time
type Tempo struct {
	Time                       Timestamp
	MicrosecondsPerQuarterNote uint32
}

// BPM returns the tempo in quarter notes per minute
func (t Tempo) BPM() float64 {
	if t.MicrosecondsPerQuarterNote == 0 {
		return 0
	}
	return 60e6 / float64(t.MicrosecondsPerQuarterNote)
}

// MicrosecondsFromBPM converts beats per minute to microseconds per quarter note
func MicrosecondsFromBPM(bpm float64) uint32 {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return 0
	}
	return uint32(math.Round(60e6 / bpm))
}

// DurationToSeconds converts a tick length at a fixed tempo to seconds
func DurationToSeconds(d Duration, microsecondsPerQuarterNote uint32) float64 {
	return float64(d) / QuarterNote * float64(microsecondsPerQuarterNote) / 1e6
}

// Timeline answers time queries for the engine. Implementations must be
// pure and safe to call from the audio goroutine: no allocation, no locks.
type Timeline interface {
	TimestampToSeconds(ts Timestamp) float64
	TempoForTime(ts Timestamp) Tempo
	// ClosestBeatSnapped rounds ts to the nearest multiple of a whole note
	// divided by subdivision (4 snaps to quarter notes, 1 to whole notes)
	ClosestBeatSnapped(ts Timestamp, subdivision uint) Timestamp
	// ShiftTick returns the timestamp lying seconds after base
	ShiftTick(base Timestamp, seconds float64) Timestamp
}

// GridTicks returns the snap grid size in ticks for a subdivision of a
// whole note, or 0 when subdivision is 0
func GridTicks(subdivision uint) Timestamp {
	if subdivision == 0 {
		return 0
	}
	g := Timestamp(4 * QuarterNote / int64(subdivision))
	if g < 1 {
		g = 1
	}
	return g
}
