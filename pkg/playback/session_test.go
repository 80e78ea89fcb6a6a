// ABOUTME: Tests for the playback session
// ABOUTME: Tests transport, preview, sustain layers, time accessors and the callback
package playback

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/notreaper/nrplayback/pkg/audio/clip"
	"github.com/notreaper/nrplayback/pkg/audio/resample"
	"github.com/notreaper/nrplayback/pkg/timing"
)

const rate = 48000

func constant(v float32, seconds float64, channels, frequency int) []float32 {
	s := make([]float32, int(seconds*float64(frequency))*channels)
	for i := range s {
		s[i] = v
	}
	return s
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = rate
	}
	s, err := NewSession(cfg, timing.ConstantTempo(120))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

func loadSong(t *testing.T, s *Session, v float32, seconds float64) {
	t.Helper()
	if err := s.LoadTrack(constant(v, seconds, 2, rate), 2, rate, Song); err != nil {
		t.Fatalf("failed to load song: %v", err)
	}
}

func render(s *Session, frames int) []float32 {
	out := make([]float32, frames*2)
	s.Process(out, 2)
	return out
}

func allZero(buf []float32) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestLoadTrackValidation(t *testing.T) {
	s := newSession(t, Config{})

	tests := []struct {
		name      string
		samples   []float32
		channels  int
		frequency int
		kind      TrackKind
		wantErr   error
	}{
		{"zero frequency", constant(0.1, 0.01, 2, rate), 2, 0, Song, clip.ErrInvalidFrequency},
		{"negative frequency", constant(0.1, 0.01, 2, rate), 2, -1, LeftSustain, clip.ErrInvalidFrequency},
		{"empty buffer", nil, 2, rate, RightSustain, clip.ErrEmptyBuffer},
		{"preview is derived", constant(0.1, 0.01, 2, rate), 2, rate, Preview, ErrUnknownTrack},
		{"unknown kind", constant(0.1, 0.01, 2, rate), 2, rate, TrackKind(42), ErrUnknownTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.LoadTrack(tt.samples, tt.channels, tt.frequency, tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if s.Loaded(Song) {
		t.Error("expected failed loads to leave the session empty")
	}
}

func TestSongLoadCreatesSharedPreview(t *testing.T) {
	s := newSession(t, Config{})

	samples := make([]float32, rate)
	for i := range samples {
		samples[i] = float32(i) / rate
	}
	if err := s.LoadTrack(samples, 1, rate, Song); err != nil {
		t.Fatalf("failed to load song: %v", err)
	}

	song := s.tracks[Song].Load()
	preview := s.tracks[Preview].Load()
	if preview == nil || preview == song {
		t.Fatal("expected a separate preview clip")
	}

	// window [0.45, 0.55] starts at song frame 21600
	s.PlayPreviewSeconds(0.5, 0.1)
	out := render(s, 2)

	for f := 0; f < 2; f++ {
		expected := samples[21600+f]
		if out[f*2] != expected || out[f*2+1] != expected {
			t.Errorf("frame %d: expected song sample %v, got %v", f, expected, out[f*2:f*2+2])
		}
	}
	if song.Position() != 0 {
		t.Errorf("expected the song cursor untouched, got %v", song.Position())
	}
}

func TestCursorAfterOneCallback(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0, 1)

	s.Play(0)
	render(s, 480)

	if got := s.tracks[Song].Load().Position().Index(); got != 480 {
		t.Errorf("expected cursor index 480, got %d", got)
	}
	if !s.Playing() {
		t.Error("expected transport to be playing")
	}
}

func TestPlayTakesEffectAtCallbackBoundary(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 1)

	s.Play(0)
	if s.Playing() {
		t.Error("expected Play to wait for the next callback")
	}
	out := render(s, 4)
	if out[0] != 0.5 {
		t.Errorf("expected the first frame of the callback to play, got %v", out[0])
	}
}

func TestPreviewWindow(t *testing.T) {
	s := newSession(t, Config{})

	// 120 BPM: tick 1920 is 2.0s, 480 ticks is 0.5s
	s.PlayPreview(1920, 480)

	start, end := s.PreviewWindow()
	if math.Abs(start-1.95) > 1e-9 || math.Abs(end-2.05) > 1e-9 {
		t.Errorf("expected window [1.95, 2.05], got [%v, %v]", start, end)
	}
}

func TestPreviewDurationCap(t *testing.T) {
	tests := []struct {
		name     string
		duration timing.Duration
		expected float64
	}{
		{"below cap", 48, 0.05},
		{"at cap", 96, 0.1},
		{"above cap", 480, 0.1},
		{"far above cap", 48000, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, Config{})
			s.PlayPreview(3840, tt.duration)
			start, end := s.PreviewWindow()
			if math.Abs((end-start)-tt.expected) > 1e-9 {
				t.Errorf("expected window length %v, got %v", tt.expected, end-start)
			}
		})
	}
}

func TestPreviewPlaysWhileStoppedAndDisarms(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 3)

	s.PlayPreview(1920, 480)
	out := render(s, rate/5)

	// 0.1s window at 48kHz
	for f := 0; f < 4800; f++ {
		if out[f*2] != 0.5 || out[f*2+1] != 0.5 {
			t.Fatalf("frame %d: expected preview audio, got %v", f, out[f*2:f*2+2])
		}
	}
	if !allZero(out[4800*2:]) {
		t.Error("expected silence after the preview window")
	}
	if s.PreviewArmed() {
		t.Error("expected preview to disarm at the window end")
	}
	if s.Playing() {
		t.Error("expected preview not to start the transport")
	}
}

func TestPreviewDisarmsWhenExhausted(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 1)

	// window [0.95, 1.05] runs 2400 frames past the 1s song
	s.PlayPreviewSeconds(1, 0.1)
	out := render(s, 4800)

	if out[0] != 0.5 || out[2399*2] != 0.5 {
		t.Error("expected preview audio before the song ends")
	}
	if !allZero(out[2400*2:]) {
		t.Error("expected silence once the song is exhausted")
	}
	if s.PreviewArmed() {
		t.Error("expected exhausted preview to disarm")
	}
}

func TestPostStopSilence(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 2)
	if err := s.LoadTrack(constant(0.25, 2, 1, rate), 1, rate, LeftSustain); err != nil {
		t.Fatalf("failed to load sustain: %v", err)
	}
	s.SetTrackVolume(LeftSustain, 1)

	s.Play(0)
	if allZero(render(s, 480)) {
		t.Fatal("expected audio while playing")
	}

	s.Stop()
	if !allZero(render(s, 480)) {
		t.Error("expected silence after stop")
	}

	s.PlayPreviewSeconds(1, 0.1)
	if allZero(render(s, 480)) {
		t.Error("expected preview to sound while stopped")
	}
}

func TestPreviewIndependentOfTransport(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.25, 3)

	s.Play(0)
	s.PlayPreviewSeconds(2, 0.1)
	out := render(s, 480)

	// song and preview both contribute
	if out[0] != 0.5 {
		t.Errorf("expected additive song and preview, got %v", out[0])
	}
	if got := s.tracks[Song].Load().Position().Index(); got != 480 {
		t.Errorf("expected preview to leave the song cursor alone, got %d", got)
	}
}

func TestSustainLayers(t *testing.T) {
	s := newSession(t, Config{SustainVolume: 0.5})
	loadSong(t, s, 0, 1)

	if err := s.LoadTrack(constant(0.5, 1, 2, rate), 2, rate, LeftSustain); err != nil {
		t.Fatalf("failed to load left sustain: %v", err)
	}
	if err := s.LoadTrack(constant(0.25, 1, 2, rate), 2, rate, RightSustain); err != nil {
		t.Fatalf("failed to load right sustain: %v", err)
	}
	s.SetTrackVolume(RightSustain, 1)

	s.Play(0)
	out := render(s, 2)

	// 0.5*0.5 + 0.25*1
	if out[0] != 0.5 {
		t.Errorf("expected 0.5, got %v", out[0])
	}
}

func TestSustainLoadResetsVolume(t *testing.T) {
	s := newSession(t, Config{})
	s.SetTrackVolume(LeftSustain, 0.8)

	if err := s.LoadTrack(constant(0.5, 0.1, 1, rate), 1, rate, LeftSustain); err != nil {
		t.Fatalf("failed to load sustain: %v", err)
	}
	if got := s.TrackVolume(LeftSustain); got != 0 {
		t.Errorf("expected sustain volume reset to 0, got %v", got)
	}
}

func TestVolumeClampedAtUse(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 1)

	s.SetTrackVolume(Song, 4)
	if got := s.TrackVolume(Song); got != 1 {
		t.Errorf("expected volume clamped to 1, got %v", got)
	}
	s.SetTrackVolume(Song, -2)
	s.Play(0)
	if !allZero(render(s, 10)) {
		t.Error("expected negative volume to mix silence")
	}
	if err := s.SetTrackVolume(TrackKind(-1), 1); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
}

func TestMissingSustainIsSkipped(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.5, 1)
	s.Play(0)

	out := render(s, 1)
	if out[0] != 0.5 {
		t.Errorf("expected only the song, got %v", out[0])
	}
}

func TestTimeAccessorsAgree(t *testing.T) {
	s := newSession(t, Config{})
	if err := s.LoadTrack(constant(0, 10, 2, 44100), 2, 44100, Song); err != nil {
		t.Fatalf("failed to load song: %v", err)
	}

	s.Play(1000)
	for i := 0; i < 500; i++ {
		render(s, 480)
		diff := math.Abs(s.GetLogicalTime() - s.ClockTime())
		if diff > 1.0/rate {
			t.Fatalf("callback %d: accessors diverged by %vs", i, diff)
		}
	}

	report := s.Divergence()
	if report.Samples == 0 {
		t.Error("expected divergence observation while playing")
	}
	if report.Quality.String() != "good" {
		t.Errorf("expected good quality, got %v", report.Quality)
	}
}

func TestCursorFollowsFixedPointPath(t *testing.T) {
	s := newSession(t, Config{})
	if err := s.LoadTrack(constant(0, 2, 2, 44100), 2, 44100, Song); err != nil {
		t.Fatalf("failed to load song: %v", err)
	}

	s.Play(0)
	for i := 0; i < 100; i++ {
		render(s, 480)
	}

	expected := resample.Position(0).AdvanceN(resample.Step(44100, rate), 48000).Seconds(44100)
	if got := s.GetLogicalTime(); got != expected {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestDivergenceReadsOneCallback(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0, 5)
	s.Play(0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		out := make([]float32, 960)
		// 4s of 480-frame callbacks, inside the song
		for i := 0; i < 400; i++ {
			clear(out)
			s.Process(out, 2)
		}
	}()

	for {
		report := s.Divergence()
		if report.Max > 1.0/rate {
			t.Fatalf("expected cursor and clock to agree, got max divergence %vs", report.Max)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	tm, err := timing.NewTempoMap([]timing.Tempo{
		{Time: 0, MicrosecondsPerQuarterNote: 500000},
		{Time: 1920, MicrosecondsPerQuarterNote: 400000},
	})
	if err != nil {
		t.Fatalf("failed to build tempo map: %v", err)
	}
	s, err := NewSession(Config{SampleRate: rate, SustainVolume: 1}, tm)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	loadSong(t, s, 0.1, 5)
	if err := s.LoadTrack(constant(0.1, 5, 1, 44100), 1, 44100, LeftSustain); err != nil {
		t.Fatalf("failed to load left sustain: %v", err)
	}
	if err := s.LoadTrack(constant(0.1, 5, 2, 44100), 2, 44100, RightSustain); err != nil {
		t.Fatalf("failed to load right sustain: %v", err)
	}
	s.SetMetronomeEnabled(true)
	s.Play(0)
	s.PlayPreview(1920, 480)

	out := make([]float32, 480*2)
	s.Process(out, 2)
	if !s.Playing() || !s.PreviewArmed() {
		t.Fatal("expected transport playing and preview armed")
	}

	allocs := testing.AllocsPerRun(200, func() {
		clear(out)
		s.Process(out, 2)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations per callback, got %v", allocs)
	}
}

func TestLogicalTimeWithoutSong(t *testing.T) {
	s := newSession(t, Config{})
	s.PlaySeconds(1)
	render(s, 4800)

	if got := s.GetLogicalTime(); math.Abs(got-1.1) > 1e-9 {
		t.Errorf("expected 1.1s from the device clock, got %v", got)
	}
}

func TestLogicalTimeFreezesOnStop(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0, 2)

	s.Play(0)
	render(s, 4800)
	s.Stop()
	render(s, 4800)

	if got := s.GetLogicalTime(); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("expected 0.1s after stop, got %v", got)
	}
}

func TestTrackSwappedMidPlayJoinsAtSongTime(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0, 2)
	s.Play(0)
	render(s, 4800)

	if err := s.LoadTrack(constant(0.5, 2, 2, rate), 2, rate, RightSustain); err != nil {
		t.Fatalf("failed to load sustain: %v", err)
	}
	render(s, 480)

	got := s.tracks[RightSustain].Load().Position().Index()
	if got != 4800+480 {
		t.Errorf("expected sustain cursor at 5280, got %d", got)
	}
}

func TestMetronomeStopKeepsPreference(t *testing.T) {
	tests := []struct {
		name    string
		disable bool
		want    bool
	}{
		{"default keeps preference", false, true},
		{"explicit disable", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, Config{DisableMetronomeOnStop: tt.disable})
			loadSong(t, s, 0, 1)
			s.SetMetronomeEnabled(true)

			s.Play(0)
			render(s, 48)
			if !s.metronome.Armed() {
				t.Fatal("expected tick armed at the song start")
			}

			s.Stop()
			render(s, 48)
			if s.metronome.Armed() {
				t.Error("expected stop to disarm the tick")
			}
			if s.MetronomeEnabled() != tt.want {
				t.Errorf("expected preference %v, got %v", tt.want, s.MetronomeEnabled())
			}
		})
	}
}

func TestMetronomeOnlyWhilePlaying(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0, 1)
	s.SetMetronomeEnabled(true)

	if !allZero(render(s, 480)) {
		t.Error("expected no ticks while stopped")
	}

	s.Play(0)
	if allZero(render(s, 480)) {
		t.Error("expected a tick at the song start")
	}
}

func TestBounce(t *testing.T) {
	s := newSession(t, Config{})
	if _, err := s.Bounce(0, 1); !errors.Is(err, ErrNoSong) {
		t.Errorf("expected ErrNoSong, got %v", err)
	}

	loadSong(t, s, 0.5, 1)
	out, err := s.Bounce(0, 0.5)
	if err != nil {
		t.Fatalf("bounce failed: %v", err)
	}
	if len(out) != rate/2*2 {
		t.Errorf("expected %d samples, got %d", rate, len(out))
	}
	if out[len(out)-1] != 0.5 {
		t.Errorf("expected song audio at the end, got %v", out[len(out)-1])
	}
	if s.Playing() {
		t.Error("expected bounce to stop the transport")
	}
}

func TestConcurrentControl(t *testing.T) {
	s := newSession(t, Config{})
	loadSong(t, s, 0.1, 5)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]float32, 960)
		for {
			select {
			case <-done:
				return
			default:
				clear(out)
				s.Process(out, 2)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		s.Play(timing.Timestamp(i * 10))
		s.PlayPreview(timing.Timestamp(i*20), 240)
		s.SetTrackVolume(Song, float32(i%10)/10)
		s.SetMetronomeEnabled(i%2 == 0)
		if i%50 == 0 {
			loadSong(t, s, 0.2, 1)
		}
		_ = s.Status()
		s.Stop()
	}
	close(done)
	wg.Wait()
}

func TestParseTrackKind(t *testing.T) {
	tests := []struct {
		input    string
		expected TrackKind
	}{
		{"song", Song},
		{"LEFT", LeftSustain},
		{"right_sustain", RightSustain},
		{"preview", Preview},
	}
	for _, tt := range tests {
		got, err := ParseTrackKind(tt.input)
		if err != nil || got != tt.expected {
			t.Errorf("%q: expected %v, got %v (%v)", tt.input, tt.expected, got, err)
		}
		if got.String() == "" {
			t.Errorf("%q: expected a name", tt.input)
		}
	}
	if _, err := ParseTrackKind("drums"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
}
