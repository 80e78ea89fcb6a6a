// ABOUTME: Bubbletea model for the transport TUI
// ABOUTME: Renders session status and turns key presses into control commands
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/notreaper/nrplayback/pkg/playback"
	nrsync "github.com/notreaper/nrplayback/pkg/sync"
)

const (
	seekStep     = 5.0 // seconds
	mixerStep    = 0.1
	outputStep   = 5
	defaultTempo = 120.0
)

// Model represents the TUI state
type Model struct {
	title string

	// Session
	status     playback.Status
	divergence playback.DivergenceReport
	cursor     float64 // start position used when stopped

	// Output
	volume int
	muted  bool

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	controls *Controls
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderTransport()
	s += m.renderMixer()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the song title and sync status
func (m Model) renderHeader() string {
	syncIcon := "✗"
	switch m.divergence.Quality {
	case nrsync.QualityGood:
		syncIcon = "✓"
	case nrsync.QualityDegraded:
		syncIcon = "⚠"
	}
	syncText := fmt.Sprintf("%s (max %.3fms)", m.divergence.Quality, m.divergence.Max*1000)

	return fmt.Sprintf(`┌─ NR Playback ────────────────────────────────────────┐
│ Song:   %-45s │
│ Sync:   %s %-42s │
├──────────────────────────────────────────────────────┤
`, truncate(m.title, 45), syncIcon, syncText)
}

// renderTransport renders position, tempo and flags
func (m Model) renderTransport() string {
	state := "Stopped"
	pos := m.cursor
	if m.status.Playing {
		state = "Playing"
		pos = m.status.LogicalTime
	}

	preview := ""
	if m.status.PreviewArmed {
		preview = " [preview]"
	}
	metronome := "off"
	if m.status.MetronomeEnabled {
		metronome = "on"
	}

	return fmt.Sprintf("│ %-7s %s / %s%-24s │\n"+
		"│ Tempo:  %6.2f BPM   Metronome: %-3s%-14s │\n",
		state, formatTime(pos), formatTime(m.status.SongLength), preview,
		m.tempo(), metronome, "")
}

// renderMixer renders per-track and output volumes
func (m Model) renderMixer() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	s := "├──────────────────────────────────────────────────────┤\n"
	s += mixerLine("Song", m.status.SongVolume, true)
	s += mixerLine("Left", m.status.LeftVolume, m.status.LeftLoaded)
	s += mixerLine("Right", m.status.RightVolume, m.status.RightLoaded)
	s += mixerLine("Preview", m.status.PreviewVolume, true)
	s += fmt.Sprintf("│ Output:  [%s] %3d%%%s%-22s │\n",
		renderBar(m.volume, 100, 10), m.volume, muteIcon, "")
	return s
}

func mixerLine(name string, volume float32, loaded bool) string {
	if !loaded {
		return fmt.Sprintf("│ %-8s (not loaded)%-32s │\n", name+":", "")
	}
	pct := int(volume*100 + 0.5)
	return fmt.Sprintf("│ %-8s [%s] %3d%%%-22s │\n", name+":", renderBar(pct, 100, 10), pct, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Stop  ←/→:Seek  k:Metronome  home:Start  │
│ a/z:Left  s/x:Right  ↑/↓:Volume  m:Mute  d:Debug  q │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session:    %-38s │
│   Clock time: %-38s │
│   Divergence: last %+.3fms drift %+.2fppm%-13s │
│   Goroutines: %-5d Mem: %d/%d KB%-16s │
`, truncate(m.status.ID, 38), formatTime(m.status.ClockTime),
		m.divergence.Last*1000, m.divergence.Drift*1e6, "",
		m.goroutines, m.memAlloc/1024, m.memSys/1024, "")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ":
		if m.status.Playing {
			m.cursor = m.status.LogicalTime
			m.status.Playing = false
			m.controls.send(Command{Kind: CmdStop})
		} else {
			m.status.Playing = true
			m.controls.send(Command{Kind: CmdPlay, Seconds: m.cursor})
		}
	case "home":
		m.cursor = 0
		if m.status.Playing {
			m.controls.send(Command{Kind: CmdPlay})
		}
	case "left":
		m.seek(-1)
	case "right":
		m.seek(1)
	case "k":
		m.status.MetronomeEnabled = !m.status.MetronomeEnabled
		m.controls.send(Command{Kind: CmdMetronome, Enabled: m.status.MetronomeEnabled})
	case "a":
		m.status.LeftVolume = m.adjustTrack(playback.LeftSustain, m.status.LeftVolume, mixerStep)
	case "z":
		m.status.LeftVolume = m.adjustTrack(playback.LeftSustain, m.status.LeftVolume, -mixerStep)
	case "s":
		m.status.RightVolume = m.adjustTrack(playback.RightSustain, m.status.RightVolume, mixerStep)
	case "x":
		m.status.RightVolume = m.adjustTrack(playback.RightSustain, m.status.RightVolume, -mixerStep)
	case "up":
		m.volume = min(m.volume+outputStep, 100)
		m.controls.send(Command{Kind: CmdOutputVolume, Level: m.volume})
	case "down":
		m.volume = max(m.volume-outputStep, 0)
		m.controls.send(Command{Kind: CmdOutputVolume, Level: m.volume})
	case "m":
		m.muted = !m.muted
		m.controls.send(Command{Kind: CmdMute, Enabled: m.muted})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// seek moves playback by seekStep while playing; while stopped it moves
// the start cursor by one beat and previews the new position
func (m *Model) seek(dir float64) {
	if m.status.Playing {
		target := max(m.status.LogicalTime+dir*seekStep, 0)
		m.status.LogicalTime = target
		m.controls.send(Command{Kind: CmdPlay, Seconds: target})
		return
	}

	beat := 60 / m.tempo()
	m.cursor = max(m.cursor+dir*beat, 0)
	if m.status.SongLength > 0 {
		m.cursor = min(m.cursor, m.status.SongLength)
	}
	m.controls.send(Command{Kind: CmdPreview, Seconds: m.cursor, Length: beat})
}

func (m Model) adjustTrack(kind playback.TrackKind, current, delta float32) float32 {
	v := min(max(current+delta, 0), 1)
	m.controls.send(Command{Kind: CmdTrackVolume, Track: kind, Volume: v})
	return v
}

func (m Model) tempo() float64 {
	if m.status.BPM > 0 {
		return m.status.BPM
	}
	return defaultTempo
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Status != nil {
		if m.status.Playing && !msg.Status.Playing {
			m.cursor = msg.Status.LogicalTime
		}
		m.status = *msg.Status
	}
	if msg.Divergence != nil {
		m.divergence = *msg.Divergence
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Title      string
	Status     *playback.Status
	Divergence *playback.DivergenceReport
	Volume     *int
	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteString("█")
		} else {
			b.WriteString("░")
		}
	}
	return b.String()
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatTime(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	ms := int64(secs*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
