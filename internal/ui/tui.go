// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the command channel it feeds
package ui

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/notreaper/nrplayback/pkg/audio/output"
	"github.com/notreaper/nrplayback/pkg/playback"
)

// CommandKind identifies a user action
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdStop
	CmdPreview
	CmdMetronome
	CmdTrackVolume
	CmdOutputVolume
	CmdMute
)

// Command is a user action queued for the control goroutine
type Command struct {
	Kind    CommandKind
	Seconds float64
	Length  float64
	Track   playback.TrackKind
	Volume  float32
	Level   int
	Enabled bool
}

// Apply performs the command against a session and its output
func (c Command) Apply(s *playback.Session, out output.Output) {
	switch c.Kind {
	case CmdPlay:
		s.PlaySeconds(c.Seconds)
	case CmdStop:
		s.Stop()
	case CmdPreview:
		if s.Loaded(playback.Song) {
			s.PlayPreviewSeconds(c.Seconds, c.Length)
		}
	case CmdMetronome:
		s.SetMetronomeEnabled(c.Enabled)
	case CmdTrackVolume:
		if err := s.SetTrackVolume(c.Track, c.Volume); err != nil {
			log.Printf("Volume change failed: %v", err)
		}
	case CmdOutputVolume:
		if out != nil {
			out.SetVolume(c.Level)
		}
	case CmdMute:
		if out != nil {
			out.SetMuted(c.Enabled)
		}
	}
}

// Controls carries commands from the TUI to the control goroutine
type Controls struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControls creates a command channel pair
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 16),
		Quit:     make(chan struct{}, 1),
	}
}

func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
		log.Printf("TUI command dropped: %v", cmd.Kind)
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, title string) Model {
	return Model{
		title:    title,
		volume:   100,
		controls: controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(controls *Controls, title string) *tea.Program {
	return tea.NewProgram(NewModel(controls, title), tea.WithAltScreen())
}
