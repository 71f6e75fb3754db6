package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"appupdater/internal/update"

	"github.com/dustin/go-humanize"
)

const (
	defaultReporterInterval = 120 * time.Millisecond
	drainTimeout            = time.Second
)

// progressReporter prints download progress from an updater's state
// stream. On a terminal it redraws a single spinner line; elsewhere it
// prints one line per quarter of the transfer.
type progressReporter struct {
	writer        io.Writer
	name          string
	tty           bool
	frameInterval time.Duration
	frames        []rune

	events <-chan update.State
	cancel func()
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	frameIdx  int
	milestone int
	drawn     bool
	finished  bool
}

type subscriber interface {
	Subscribe() (<-chan update.State, func())
}

func newProgressReporter(w io.Writer, src subscriber, name string, tty bool) *progressReporter {
	return newCustomProgressReporter(w, src, name, tty, defaultReporterInterval)
}

func newCustomProgressReporter(w io.Writer, src subscriber, name string, tty bool, frameInterval time.Duration) *progressReporter {
	if w == nil {
		w = io.Discard
	}
	events, cancel := src.Subscribe()
	r := &progressReporter{
		writer:        w,
		name:          name,
		tty:           tty,
		frameInterval: frameInterval,
		frames:        []rune{'|', '/', '-', '\\'},
		events:        events,
		cancel:        cancel,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go r.loop()
	return r
}

// Stop ends the subscription and waits for the last line to be written.
func (r *progressReporter) Stop() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		close(r.stopCh)
		<-r.doneCh
		r.cancel()
	})
}

func (r *progressReporter) loop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.frameInterval)
	defer ticker.Stop()

	var current update.Downloading
	active := false

	for {
		select {
		case <-r.stopCh:
			r.drain()
			if r.drawn {
				r.clearLine()
			}
			return
		case s, ok := <-r.events:
			if !ok {
				r.events = nil
				continue
			}
			switch st := s.(type) {
			case update.Downloading:
				current, active = st, true
				r.render(current)
			case update.UpdateAvailable:
			default:
				r.finished, active = true, false
			}
		case <-ticker.C:
			if r.tty && active {
				r.render(current)
			}
		}
	}
}

// drain renders states still queued when Stop was called, up to the first
// state past the download.
func (r *progressReporter) drain() {
	if r.finished {
		return
	}
	timeout := time.NewTimer(drainTimeout)
	defer timeout.Stop()
	for r.events != nil {
		select {
		case s, ok := <-r.events:
			if !ok {
				return
			}
			switch s := s.(type) {
			case update.Downloading:
				r.render(s)
			case update.UpdateAvailable:
			default:
				return
			}
		case <-timeout.C:
			return
		}
	}
}

func (r *progressReporter) render(dl update.Downloading) {
	if r.tty {
		r.drawn = true
		_, _ = fmt.Fprintf(r.writer, "\r\033[2K%c %s", r.nextFrame(), formatProgress(r.name, dl))
		return
	}
	if dl.BytesTotal <= 0 {
		return
	}
	// Quarter milestones: 25, 50, 75, 100.
	reached := int(dl.Progress * 4)
	if reached > 4 {
		reached = 4
	}
	if reached > r.milestone {
		r.milestone = reached
		_, _ = fmt.Fprintln(r.writer, formatProgress(r.name, dl))
	}
}

func (r *progressReporter) clearLine() {
	_, _ = fmt.Fprint(r.writer, "\r\033[2K")
}

func (r *progressReporter) nextFrame() rune {
	frame := r.frames[r.frameIdx%len(r.frames)]
	r.frameIdx++
	return frame
}

func formatProgress(name string, dl update.Downloading) string {
	done := humanize.IBytes(uint64(max(dl.BytesDone, 0)))
	if dl.BytesTotal <= 0 {
		return fmt.Sprintf("Downloading %s  %s", name, done)
	}
	pct := int(dl.Progress * 100)
	return fmt.Sprintf("Downloading %s  %3d%%  %s / %s", name, pct, done, humanize.IBytes(uint64(dl.BytesTotal)))
}
