// Package progress renders download bars, spinners and build step status
// lines on the terminal.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// ShouldShowProgress returns true if progress should be displayed.
// Progress is shown when stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}

// Writer copies to an underlying writer while advancing a byte progress bar.
type Writer struct {
	dst io.Writer
	bar *progressbar.ProgressBar
}

// NewWriter creates a progress writer that displays download progress on output.
// If total is <= 0 the bar runs as a spinner with a byte counter.
func NewWriter(w io.Writer, total int64, description string, output io.Writer) *Writer {
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(output),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Writer{dst: w, bar: bar}
}

// Write implements io.Writer.
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.dst.Write(p)
	if n > 0 {
		_ = pw.bar.Add(n)
	}
	return n, err
}

// Written returns the number of bytes copied so far.
func (pw *Writer) Written() int64 {
	return int64(pw.bar.State().CurrentNum)
}

// Finish completes and clears the bar.
func (pw *Writer) Finish() {
	_ = pw.bar.Finish()
}
