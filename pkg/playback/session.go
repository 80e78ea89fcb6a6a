// ABOUTME: Playback session control API
// ABOUTME: Loads tracks and posts transport and preview requests for the audio goroutine
package playback

import (
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/audio/clip"
	"github.com/notreaper/nrplayback/pkg/audio/resample"
	"github.com/notreaper/nrplayback/pkg/metronome"
	nrsync "github.com/notreaper/nrplayback/pkg/sync"
	"github.com/notreaper/nrplayback/pkg/timing"
)

// ErrNoSong is returned by operations that need the song loaded
var ErrNoSong = errors.New("playback: no song loaded")

type timelineRef struct {
	tl timing.Timeline
}

type transportRequest struct {
	play    bool
	seconds float64
}

type previewRequest struct {
	start float64
	end   float64
}

// Session mixes the song, sustain layers, preview and metronome
type Session struct {
	cfg Config
	id  string

	timeline atomic.Pointer[timelineRef]
	tracks   [numTracks]atomic.Pointer[clip.Clip]
	volumes  [numTracks]atomic.Uint32
	pans     [numTracks]atomic.Uint32

	transportReq atomic.Pointer[transportRequest]
	previewReq   atomic.Pointer[previewRequest]
	previewWin   atomic.Pointer[previewRequest]

	metronome  *metronome.Generator
	clock      *nrsync.DeviceClock
	divergence *nrsync.Divergence

	// published by the audio goroutine; logical and clockTime are float64
	// bits written under timeSeq
	playing      atomic.Bool
	previewArmed atomic.Bool
	timeSeq      atomic.Uint64
	logical      atomic.Uint64
	clockTime    atomic.Uint64

	rt rtState
}

// NewSession creates a stopped session. A nil timeline plays at 120 BPM.
func NewSession(cfg Config, tl timing.Timeline) (*Session, error) {
	cfg = cfg.withDefaults()
	if tl == nil {
		tl = timing.ConstantTempo(120)
	}

	s := &Session{
		cfg:        cfg,
		id:         uuid.New().String(),
		metronome:  metronome.New(cfg.Metronome, cfg.SampleRate),
		clock:      nrsync.NewDeviceClock(cfg.SampleRate),
		divergence: nrsync.NewDivergence(),
	}
	s.timeline.Store(&timelineRef{tl: tl})
	s.storeVolume(Song, cfg.SongVolume)
	s.storeVolume(Preview, cfg.PreviewVolume)
	s.storeVolume(LeftSustain, cfg.SustainVolume)
	s.storeVolume(RightSustain, cfg.SustainVolume)
	s.divergence.SetDebug(cfg.Debug)

	if cfg.Debug {
		log.Printf("Playback session %s: %dHz, %d channels, preview cap %v",
			s.id, cfg.SampleRate, cfg.Channels, cfg.PreviewCap)
	}
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Config returns the effective configuration
func (s *Session) Config() Config { return s.cfg }

// SetTimeline replaces the tempo map used for conversions and the metronome
func (s *Session) SetTimeline(tl timing.Timeline) {
	if tl == nil {
		return
	}
	s.timeline.Store(&timelineRef{tl: tl})
	log.Printf("Timeline updated")
}

// Timeline returns the current tempo map
func (s *Session) Timeline() timing.Timeline {
	return s.timeline.Load().tl
}

// LoadTrack validates an interleaved buffer and swaps it in as kind.
// Loading the song also replaces the preview, which shares its samples.
// Loading a sustain layer resets that layer's volume to Config.SustainVolume.
func (s *Session) LoadTrack(samples []float32, channels, frequency int, kind TrackKind) error {
	if !kind.loadable() {
		return fmt.Errorf("%w: cannot load %v", ErrUnknownTrack, kind)
	}

	c, err := clip.FromSamples(samples, channels, frequency)
	if err != nil {
		return fmt.Errorf("failed to load %v track: %w", kind, err)
	}
	c.SetPan(s.pan(kind))

	switch kind {
	case Song:
		p := clip.NewShared(c)
		p.SetPan(s.pan(Preview))
		s.tracks[Preview].Store(p)
	case LeftSustain, RightSustain:
		s.storeVolume(kind, s.cfg.SustainVolume)
	}
	s.tracks[kind].Store(c)

	log.Printf("Loaded %v track: %dHz, %d channels, %.2fs", kind, frequency, channels, c.Length())
	return nil
}

// LoadPCM loads a decoded buffer as kind
func (s *Session) LoadPCM(pcm audio.PCM, kind TrackKind) error {
	return s.LoadTrack(pcm.Samples, pcm.Channels, pcm.SampleRate, kind)
}

// Unload removes a sustain layer. Unloading the song also removes the preview.
func (s *Session) Unload(kind TrackKind) error {
	if !kind.loadable() {
		return fmt.Errorf("%w: cannot unload %v", ErrUnknownTrack, kind)
	}
	s.tracks[kind].Store(nil)
	if kind == Song {
		s.tracks[Preview].Store(nil)
	}
	log.Printf("Unloaded %v track", kind)
	return nil
}

// Loaded reports whether kind currently has a clip
func (s *Session) Loaded(kind TrackKind) bool {
	return kind.valid() && s.tracks[kind].Load() != nil
}

// Play starts the transport at ts on the next callback
func (s *Session) Play(ts timing.Timestamp) {
	secs := s.Timeline().TimestampToSeconds(ts)
	log.Printf("Play from tick %d (%.3fs)", ts, secs)
	s.PlaySeconds(secs)
}

// PlaySeconds starts the transport at a song time in seconds
func (s *Session) PlaySeconds(secs float64) {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	s.divergence.Reset()
	s.transportReq.Store(&transportRequest{play: true, seconds: secs})
}

// Stop halts the song and sustain layers on the next callback. The sounding
// metronome tick is dropped; the metronome preference survives unless
// Config.DisableMetronomeOnStop is set. An armed preview keeps playing.
func (s *Session) Stop() {
	if s.cfg.DisableMetronomeOnStop {
		s.metronome.SetEnabled(false)
	}
	s.transportReq.Store(&transportRequest{play: false})
	log.Printf("Stop at %.3fs", s.GetLogicalTime())
}

// PlayPreview plays a short window of the song centred on ts. The
// requested length is converted with the tempo at ts and capped at
// Config.PreviewCap.
func (s *Session) PlayPreview(ts timing.Timestamp, d timing.Duration) {
	tl := s.Timeline()
	center := tl.TimestampToSeconds(ts)
	length := timing.DurationToSeconds(d, tl.TempoForTime(ts).MicrosecondsPerQuarterNote)
	s.PlayPreviewSeconds(center, length)
}

// PlayPreviewSeconds plays min(length, PreviewCap) seconds of the song
// centred on center
func (s *Session) PlayPreviewSeconds(center, length float64) {
	if length < 0 || math.IsNaN(length) {
		length = 0
	}
	length = min(length, s.cfg.PreviewCap.Seconds())

	req := &previewRequest{start: center - length/2, end: center + length/2}
	s.previewWin.Store(req)
	s.previewReq.Store(req)

	if s.cfg.Debug {
		log.Printf("Preview [%.3fs, %.3fs]", req.start, req.end)
	}
}

// PreviewWindow returns the window of the latest preview request
func (s *Session) PreviewWindow() (start, end float64) {
	w := s.previewWin.Load()
	if w == nil {
		return 0, 0
	}
	return w.start, w.end
}

// SetTrackVolume sets a track's volume. Values are clamped to [0, 1] when mixed.
func (s *Session) SetTrackVolume(kind TrackKind, volume float32) error {
	if !kind.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownTrack, kind)
	}
	s.storeVolume(kind, volume)
	return nil
}

// TrackVolume returns the effective volume of a track
func (s *Session) TrackVolume(kind TrackKind) float32 {
	if !kind.valid() {
		return 0
	}
	return s.volume(kind)
}

// SetTrackPan sets a track's pan, kept across reloads of that track
func (s *Session) SetTrackPan(kind TrackKind, pan float32) error {
	if !kind.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownTrack, kind)
	}
	s.pans[kind].Store(math.Float32bits(pan))
	if c := s.tracks[kind].Load(); c != nil {
		c.SetPan(pan)
	}
	return nil
}

// SetMetronomeEnabled sets the metronome preference
func (s *Session) SetMetronomeEnabled(enabled bool) {
	s.metronome.SetEnabled(enabled)
	log.Printf("Metronome enabled: %v", enabled)
}

// MetronomeEnabled returns the metronome preference
func (s *Session) MetronomeEnabled() bool {
	return s.metronome.Enabled()
}

// Playing reports the transport state as of the last callback
func (s *Session) Playing() bool { return s.playing.Load() }

// PreviewArmed reports whether a preview was sounding at the last callback
func (s *Session) PreviewArmed() bool { return s.previewArmed.Load() }

// GetLogicalTime returns the song position in seconds. It is read from the
// song cursor after each callback; without a song it follows the device
// clock from the last Play.
func (s *Session) GetLogicalTime() float64 {
	logical, _ := s.times()
	return logical
}

// ClockTime returns the device-clock estimate of the song position:
// the Play anchor plus frames rendered since. Diagnostic only.
func (s *Session) ClockTime() float64 {
	_, clock := s.times()
	return clock
}

// publishTimes stores the cursor and clock estimates of one callback.
// Only the goroutine calling Process writes them.
func (s *Session) publishTimes(logical, clock float64) {
	s.timeSeq.Add(1)
	s.logical.Store(math.Float64bits(logical))
	s.clockTime.Store(math.Float64bits(clock))
	s.timeSeq.Add(1)
}

// times returns the cursor and clock estimates published by the same
// callback. An odd sequence means a publish is in progress.
func (s *Session) times() (logical, clock float64) {
	for {
		seq := s.timeSeq.Load()
		if seq&1 == 0 {
			logical = math.Float64frombits(s.logical.Load())
			clock = math.Float64frombits(s.clockTime.Load())
			if s.timeSeq.Load() == seq {
				return logical, clock
			}
		}
		runtime.Gosched()
	}
}

// DivergenceReport summarises clock against cursor time
type DivergenceReport struct {
	nrsync.Stats
	Quality nrsync.Quality
}

// Divergence samples both time accessors and returns the running report
func (s *Session) Divergence() DivergenceReport {
	if s.playing.Load() && s.Loaded(Song) {
		logical, clock := s.times()
		s.divergence.Observe(clock, logical)
	}
	return DivergenceReport{
		Stats:   s.divergence.Stats(),
		Quality: s.divergence.Quality(s.cfg.SampleRate),
	}
}

// SongLength returns the song duration in seconds, or 0 without a song
func (s *Session) SongLength() float64 {
	if c := s.tracks[Song].Load(); c != nil {
		return c.Length()
	}
	return 0
}

func (s *Session) storeVolume(kind TrackKind, v float32) {
	s.volumes[kind].Store(math.Float32bits(v))
}

func (s *Session) volume(kind TrackKind) float32 {
	v := math.Float32frombits(s.volumes[kind].Load())
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Session) pan(kind TrackKind) float32 {
	return math.Float32frombits(s.pans[kind].Load())
}

// previewEndPosition converts a window end to a cursor position on c
func previewEndPosition(c *clip.Clip, end float64) resample.Position {
	return resample.FromSeconds(end, c.Frequency())
}
