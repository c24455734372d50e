package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

// Spinner shows an indeterminate activity indicator while a blocking
// operation (host probing, release listing) runs. Without a terminal it
// prints the message once.
type Spinner struct {
	mu      sync.Mutex
	output  io.Writer
	bar     *progressbar.ProgressBar
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
	isTTY   bool
}

// NewSpinner creates a spinner writing to output, or os.Stderr when nil.
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{output: output, isTTY: ShouldShowProgress()}
}

// Start begins the animation with message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	if !s.isTTY {
		fmt.Fprintln(s.output, message)
		return
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.output),
		progressbar.OptionSetDescription(message),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionClearOnFinish(),
	)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.bar, s.done)
}

func (s *Spinner) animate(bar *progressbar.ProgressBar, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			_ = bar.Add(1)
			s.mu.Unlock()
		}
	}
}

// SetMessage updates the message of a running spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		s.bar.Describe(message)
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.stop()
}

// StopWithMessage halts the spinner and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	if s.stop() {
		fmt.Fprintln(s.output, message)
	}
}

// stop reports whether the spinner was running.
func (s *Spinner) stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	done, bar := s.done, s.bar
	s.done, s.bar = nil, nil
	s.mu.Unlock()

	if done != nil {
		close(done)
		s.wg.Wait()
		_ = bar.Finish()
	}
	return true
}
