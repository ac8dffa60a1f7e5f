// Package spinner shows a one-line progress indicator on stderr while a pipeline
// step runs.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

// Spinner redraws "<frame> <status> (<elapsed>)" on a single line.
type Spinner struct {
	delay   time.Duration
	writer  io.Writer
	active  bool
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	status  string
	started time.Time
	wg      sync.WaitGroup
}

// New creates a stopped spinner. Cancelling ctx stops the animation.
func New(ctx context.Context, writer io.Writer, status string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		delay:  100 * time.Millisecond,
		writer: writer,
		status: status,
		ctx:    spinnerCtx,
		cancel: cancel,
	}
}

// Enabled reports whether a spinner should be drawn on w: only terminals get one,
// redirected output would fill up with frames.
func Enabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// Start begins the animation. Calling it twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}
	s.active = true
	s.started = time.Now()

	s.wg.Add(1)
	go s.run()
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	if Enabled(s.writer) {
		fmt.Fprint(s.writer, "\r\033[2K")
	} else {
		fmt.Fprint(s.writer, "\r")
	}
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Update replaces the status text.
func (s *Spinner) Update(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Updatef formats and replaces the status text.
func (s *Spinner) Updatef(format string, args ...any) {
	s.Update(fmt.Sprintf(format, args...))
}

// Status returns the current status text.
func (s *Spinner) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Spinner) run() {
	defer s.wg.Done()

	frameIndex := 0
	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			frame := frames[frameIndex%len(frames)]
			status := s.status
			elapsed := time.Since(s.started).Truncate(time.Second)
			s.mu.RUnlock()

			// erase the tail of a longer previous status
			fmt.Fprintf(s.writer, "\r%s %s (%s)\033[K", frame, status, elapsed)
			frameIndex++
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
