// ABOUTME: Tempo map loading from Standard MIDI Files
// ABOUTME: Reads tempo meta events from a chart's song.mid
package timing

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadTempoMapSMF reads the tempo changes of an SMF and rescales their
// positions to QuarterNote ticks. A file without tempo events plays at
// 120 BPM.
func ReadTempoMapSMF(r io.Reader) (*TempoMap, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read midi file: %w", err)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: SMPTE time format is not supported", ErrInvalidTempo)
	}
	resolution := int64(ticks.Resolution())
	if resolution == 0 {
		return nil, fmt.Errorf("%w: zero ticks per quarter note", ErrInvalidTempo)
	}

	changes := s.TempoChanges()
	if len(changes) == 0 {
		return ConstantTempo(120), nil
	}

	tempos := make([]Tempo, 0, len(changes))
	for _, c := range changes {
		tempos = append(tempos, Tempo{
			Time:                       Timestamp(math.Round(float64(c.AbsTicks) * QuarterNote / float64(resolution))),
			MicrosecondsPerQuarterNote: MicrosecondsFromBPM(c.BPM),
		})
	}
	return NewTempoMap(tempos)
}

// LoadTempoMapFile reads a tempo map from a .mid file on disk
func LoadTempoMapFile(path string) (*TempoMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tempo map: %w", err)
	}
	return ReadTempoMapSMF(bytes.NewReader(data))
}

// WriteTempoMapSMF writes the tempo changes as a single-track SMF
func WriteTempoMapSMF(w io.Writer, m *TempoMap) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(QuarterNote)

	var track smf.Track
	var last Timestamp
	for _, t := range m.Tempos() {
		track.Add(uint32(t.Time-last), smf.MetaTempo(t.BPM()))
		last = t.Time
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing midi file: %w", err)
	}
	return nil
}
