// ABOUTME: Piecewise-constant tempo map implementing Timeline
// ABOUTME: Segments carry precomputed start times so lookups are a binary search
package timing

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidTempo is returned for tempo lists that cannot describe a song
var ErrInvalidTempo = errors.New("timing: invalid tempo")

type segment struct {
	Tempo
	start float64 // seconds at Tempo.Time
}

// TempoMap is an immutable list of tempo changes
type TempoMap struct {
	segments []segment
}

// NewTempoMap builds a map from tempo changes. Changes are sorted by time;
// a change at the same tick as an earlier one replaces it. If the first
// change is after tick 0 its tempo is extended back to the start.
func NewTempoMap(tempos []Tempo) (*TempoMap, error) {
	if len(tempos) == 0 {
		return nil, fmt.Errorf("%w: no tempo changes", ErrInvalidTempo)
	}

	sorted := make([]Tempo, len(tempos))
	copy(sorted, tempos)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	segs := make([]segment, 0, len(sorted))
	for _, t := range sorted {
		if t.MicrosecondsPerQuarterNote == 0 {
			return nil, fmt.Errorf("%w: zero microseconds per quarter note at tick %d", ErrInvalidTempo, t.Time)
		}
		if t.Time < 0 {
			return nil, fmt.Errorf("%w: negative tick %d", ErrInvalidTempo, t.Time)
		}
		if n := len(segs); n > 0 && segs[n-1].Time == t.Time {
			segs[n-1].Tempo = t
			continue
		}
		segs = append(segs, segment{Tempo: t})
	}
	segs[0].Time = 0

	for i := 1; i < len(segs); i++ {
		prev := segs[i-1]
		segs[i].start = prev.start + DurationToSeconds(Duration(segs[i].Time-prev.Time), prev.MicrosecondsPerQuarterNote)
	}

	return &TempoMap{segments: segs}, nil
}

// ConstantTempo returns a single-segment map. Non-positive BPM falls back to 120.
func ConstantTempo(bpm float64) *TempoMap {
	us := MicrosecondsFromBPM(bpm)
	if us == 0 {
		us = MicrosecondsFromBPM(120)
	}
	return &TempoMap{segments: []segment{{Tempo: Tempo{MicrosecondsPerQuarterNote: us}}}}
}

// Tempos returns a copy of the tempo changes
func (m *TempoMap) Tempos() []Tempo {
	out := make([]Tempo, len(m.segments))
	for i, s := range m.segments {
		out[i] = s.Tempo
	}
	return out
}

func (m *TempoMap) segmentAt(ts Timestamp) segment {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].Time > ts })
	if i == 0 {
		return m.segments[0]
	}
	return m.segments[i-1]
}

func (m *TempoMap) segmentAtSeconds(t float64) segment {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].start > t })
	if i == 0 {
		return m.segments[0]
	}
	return m.segments[i-1]
}

// TimestampToSeconds converts ticks to seconds. Negative ticks extrapolate
// the first tempo.
func (m *TempoMap) TimestampToSeconds(ts Timestamp) float64 {
	s := m.segmentAt(ts)
	return s.start + DurationToSeconds(Duration(ts-s.Time), s.MicrosecondsPerQuarterNote)
}

// SecondsToTimestamp converts seconds to the nearest tick
func (m *TempoMap) SecondsToTimestamp(t float64) Timestamp {
	s := m.segmentAtSeconds(t)
	ticks := (t - s.start) * 1e6 / float64(s.MicrosecondsPerQuarterNote) * QuarterNote
	return s.Time + Timestamp(math.Round(ticks))
}

// TempoForTime returns the tempo governing ts
func (m *TempoMap) TempoForTime(ts Timestamp) Tempo {
	return m.segmentAt(ts).Tempo
}

// ClosestBeatSnapped rounds ts to the subdivision grid anchored at the start
// of the tempo segment containing it. Ties round up.
func (m *TempoMap) ClosestBeatSnapped(ts Timestamp, subdivision uint) Timestamp {
	grid := GridTicks(subdivision)
	if grid == 0 {
		return ts
	}
	s := m.segmentAt(ts)
	rel := ts - s.Time
	q := floorDiv(rel+grid/2, grid)
	return s.Time + q*grid
}

// ShiftTick returns the timestamp seconds after base
func (m *TempoMap) ShiftTick(base Timestamp, seconds float64) Timestamp {
	return m.SecondsToTimestamp(m.TimestampToSeconds(base) + seconds)
}

func floorDiv(a, b Timestamp) Timestamp {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
