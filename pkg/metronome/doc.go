// ABOUTME: Tempo-synchronised metronome tick generator
// ABOUTME: Synthesises short sine bursts on beat boundaries of the song
// Package metronome generates click ticks aligned to a Timeline's beat grid.
//
// A Generator has two independent states: enabled is the user's preference
// and may be toggled from any goroutine; armed means a tick is sounding and
// is only touched by the audio goroutine that calls Process.
package metronome
