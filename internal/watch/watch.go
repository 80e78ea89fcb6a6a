// ABOUTME: Tempo map hot reload
// ABOUTME: Watches a chart's song.mid and swaps the session timeline when it changes
package watch

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/notreaper/nrplayback/pkg/timing"
)

// Debounce is how long the file must stay quiet before it is reloaded
const Debounce = 100 * time.Millisecond

// TimelineSetter receives reloaded tempo maps
type TimelineSetter interface {
	SetTimeline(tl timing.Timeline)
}

// TempoMapWatcher reloads a tempo map file on change
type TempoMapWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	target  TimelineSetter

	// Reloaded receives the path after each successful reload
	Reloaded chan string
	// Errors receives watcher and parse failures
	Errors chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewTempoMapWatcher watches path. The parent directory is watched so
// editors that save by renaming a temp file are picked up.
func NewTempoMapWatcher(path string, target TimelineSetter) (*TempoMapWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	watcher := &TempoMapWatcher{
		watcher:  w,
		path:     abs,
		target:   target,
		Reloaded: make(chan string, 4),
		Errors:   make(chan error, 4),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go watcher.run()

	log.Printf("Watching tempo map %s", abs)
	return watcher, nil
}

// Close stops watching
func (w *TempoMapWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *TempoMapWatcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(Debounce)
			} else {
				timer.Reset(Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *TempoMapWatcher) reload() {
	tm, err := timing.LoadTempoMapFile(w.path)
	if err != nil {
		log.Printf("Tempo map reload failed: %v", err)
		w.report(err)
		return
	}

	w.target.SetTimeline(tm)
	log.Printf("Reloaded tempo map %s (%d tempo changes)", w.path, len(tm.Tempos()))

	select {
	case w.Reloaded <- w.path:
	default:
	}
}

func (w *TempoMapWatcher) report(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}
