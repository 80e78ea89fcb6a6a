// ABOUTME: Entry point for the nrplayback engine
// ABOUTME: Loads stems and a tempo map, opens the audio device and runs the TUI or remote control
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/notreaper/nrplayback/internal/config"
	"github.com/notreaper/nrplayback/internal/discovery"
	"github.com/notreaper/nrplayback/internal/remote"
	"github.com/notreaper/nrplayback/internal/ui"
	"github.com/notreaper/nrplayback/internal/version"
	"github.com/notreaper/nrplayback/internal/watch"
	"github.com/notreaper/nrplayback/pkg/audio/decode"
	"github.com/notreaper/nrplayback/pkg/audio/output"
	"github.com/notreaper/nrplayback/pkg/playback"
	"github.com/notreaper/nrplayback/pkg/timing"
)

var (
	songFile   = flag.String("song", "", "Main song audio file (wav, mp3, flac, opus)")
	leftFile   = flag.String("left", "", "Left sustain layer audio file")
	rightFile  = flag.String("right", "", "Right sustain layer audio file")
	tempoMap   = flag.String("tempo-map", "", "Chart song.mid providing tempo changes")
	bpm        = flag.Float64("bpm", 0, "Constant tempo when no tempo map is given")
	configPath = flag.String("config", "nrplayback.yaml", "YAML config file")
	backend    = flag.String("backend", "", "Audio backend: oto, malgo, portaudio, headless")
	listen     = flag.String("listen", "", "Remote control address, e.g. :8937 (enables the control server)")
	mdnsFlag   = flag.Bool("mdns", false, "Advertise the control server via mDNS")
	discover   = flag.Bool("discover", false, "List engines advertised on the network and exit")
	metronome  = flag.Bool("metronome", false, "Enable the metronome at startup")
	playFrom   = flag.Int64("play", -1, "Start playing at this tick")
	logFile    = flag.String("log-file", "nrplayback.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI && !*discover

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if *discover {
		runDiscover()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	log.Printf("Starting %s", version.String())

	tl, err := loadTimeline(cfg)
	if err != nil {
		log.Fatalf("Tempo map error: %v", err)
	}

	pcfg, err := cfg.PlaybackConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	session, err := playback.NewSession(pcfg, tl)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	tracks := []struct {
		path string
		kind playback.TrackKind
	}{
		{*songFile, playback.Song},
		{*leftFile, playback.LeftSustain},
		{*rightFile, playback.RightSustain},
	}
	for _, t := range tracks {
		if t.path == "" {
			continue
		}
		if err := loadTrack(session, t.path, t.kind); err != nil {
			log.Fatalf("Failed to load %v: %v", t.kind, err)
		}
	}
	if !session.Loaded(playback.Song) && !cfg.Remote.Enabled {
		log.Fatalf("No song given: use -song, or -listen to load tracks remotely")
	}

	out, err := output.New(cfg.Audio.Backend)
	if err != nil {
		log.Fatalf("Output error: %v", err)
	}
	sc := session.Config()
	if err := out.Open(sc.SampleRate, sc.Channels, session.Process); err != nil {
		log.Fatalf("Failed to open audio output: %v", err)
	}
	if h, ok := out.(*output.Headless); ok {
		if err := h.Start(context.Background(), 10*time.Millisecond); err != nil {
			log.Fatalf("Failed to start headless output: %v", err)
		}
	}

	if cfg.Tempo.Map != "" && cfg.Tempo.Watch {
		w, err := watch.NewTempoMapWatcher(cfg.Tempo.Map, session)
		if err != nil {
			log.Printf("Tempo map watch disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	var srv *remote.Server
	var mdnsMgr *discovery.Manager
	if cfg.Remote.Enabled {
		srv = remote.New(remote.Config{
			Port:  cfg.Remote.Port,
			Name:  cfg.Remote.Name,
			Debug: cfg.Debug,
		}, session)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("Remote control failed: %v", err)
			}
		}()

		if cfg.Remote.MDNS {
			mdnsMgr = discovery.NewManager(discovery.Config{
				ServiceName: cfg.Remote.Name,
				Port:        cfg.Remote.Port,
				Path:        remote.Path,
				SessionID:   session.ID(),
			})
			if err := mdnsMgr.Advertise(); err != nil {
				log.Printf("Failed to start mDNS advertisement: %v", err)
			}
		}
	}

	if cfg.Metronome.Enabled {
		session.SetMetronomeEnabled(true)
	}
	if *playFrom >= 0 {
		session.Play(timing.Timestamp(*playFrom))
	}

	var controls *ui.Controls
	if useTUI {
		controls = ui.NewControls()
		prog := ui.Run(controls, filepath.Base(*songFile))
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			select {
			case controls.Quit <- struct{}{}:
			default:
			}
		}()
		go handleControls(session, out, controls)
		go statusLoop(session, out, prog.Send)
	} else {
		go logLoop(session)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit chan struct{}
	if controls != nil {
		quit = controls.Quit
	}
	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	session.Stop()
	if srv != nil {
		srv.Stop()
	}
	if mdnsMgr != nil {
		mdnsMgr.Stop()
	}
	if err := out.Close(); err != nil {
		log.Printf("Error closing output: %v", err)
	}

	report := session.Divergence()
	log.Printf("Stopped: max divergence %.3fms over %d samples (%v)", report.Max*1000, report.Samples, report.Quality)
}

// loadConfig reads the config file and applies flags that were set explicitly
func loadConfig() (config.File, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Audio.Backend = *backend
		case "tempo-map":
			cfg.Tempo.Map = *tempoMap
		case "bpm":
			cfg.Tempo.BPM = *bpm
		case "mdns":
			cfg.Remote.MDNS = *mdnsFlag
		case "metronome":
			cfg.Metronome.Enabled = *metronome
		case "debug":
			cfg.Debug = *debug
		}
	})

	if *listen != "" {
		port, err := parsePort(*listen)
		if err != nil {
			return cfg, err
		}
		cfg.Remote.Enabled = true
		cfg.Remote.Port = port
	}
	return cfg, cfg.Validate()
}

func parsePort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("invalid listen port %q: %w", p, err)
	}
	return port, nil
}

func loadTimeline(cfg config.File) (timing.Timeline, error) {
	if cfg.Tempo.Map == "" {
		log.Printf("Constant tempo: %.2f BPM", cfg.Tempo.BPM)
		return timing.ConstantTempo(cfg.Tempo.BPM), nil
	}
	tm, err := timing.LoadTempoMapFile(cfg.Tempo.Map)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded tempo map %s: %d tempo changes", cfg.Tempo.Map, len(tm.Tempos()))
	return tm, nil
}

func loadTrack(session *playback.Session, path string, kind playback.TrackKind) error {
	pcm, err := decode.File(path)
	if err != nil {
		return err
	}
	return session.LoadPCM(pcm, kind)
}

func runDiscover() {
	engines, err := discovery.Browse(3 * time.Second)
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
	if len(engines) == 0 {
		fmt.Println("No engines found")
		return
	}
	for _, e := range engines {
		fmt.Printf("%s\tws://%s:%d%s\n", e.Name, e.Host, e.Port, e.Path)
	}
}

// handleControls applies TUI commands on the control goroutine
func handleControls(session *playback.Session, out output.Output, controls *ui.Controls) {
	for cmd := range controls.Commands {
		cmd.Apply(session, out)
	}
}

// statusLoop periodically updates the TUI with session status
func statusLoop(session *playback.Session, out output.Output, send func(msg tea.Msg)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// runtime stats are sampled less often to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var lastGoroutines int
	var lastMemAlloc, lastMemSys uint64

	for {
		select {
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			lastGoroutines = runtime.NumGoroutine()
			lastMemAlloc = m.Alloc
			lastMemSys = m.Sys

		case <-ticker.C:
			status := session.Status()
			report := session.Divergence()
			volume := out.GetVolume()
			send(ui.StatusMsg{
				Status:     &status,
				Divergence: &report,
				Volume:     &volume,
				Goroutines: lastGoroutines,
				MemAlloc:   lastMemAlloc,
				MemSys:     lastMemSys,
			})
		}
	}
}

// logLoop reports position and sync quality while playing without a TUI
func logLoop(session *playback.Session) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if !session.Playing() {
			continue
		}
		st := session.Status()
		log.Printf("Position %.3fs / %.3fs, %.2f BPM, sync %v", st.LogicalTime, st.SongLength, st.BPM, st.Quality)
	}
}
