package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrNoInput is returned when input ends before a required answer.
var ErrNoInput = errors.New("input ended before a required answer")

type readResult struct {
	line string
	err  error
}

// Prompter reads one answer per line. In direct action mode the input is
// the scripted answers from the command line.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	start sync.Once
	lines chan readResult
}

// NewPrompter returns a prompter reading from in and printing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, lines: make(chan readResult)}
}

// readLines feeds p.lines until the input fails, then closes it.
// A line read before a cancellation is kept for the next Ask.
func (p *Prompter) readLines() {
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- readResult{line: line, err: err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// Ask prints prompt and returns the trimmed answer. It returns ErrNoInput
// once the input is exhausted and ctx.Err() when ctx is cancelled while
// waiting.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	p.start.Do(func() { go p.readLines() })

	var r readResult
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case res, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return "", ErrNoInput
		}
		r = res
	}

	if r.err != nil {
		fmt.Fprintln(p.out)
		if r.err == io.EOF {
			if r.line != "" {
				return strings.TrimSpace(r.line), nil
			}
			return "", ErrNoInput
		}
		return "", r.err
	}
	return strings.TrimSpace(r.line), nil
}

// AskInt asks until the answer is a number.
func (p *Prompter) AskInt(ctx context.Context, prompt string) (int, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			return n, nil
		}
		fmt.Fprintln(p.out, "Not a number! Please try again.")
	}
}

// Confirm asks a yes/no question. An empty answer takes def.
func (p *Prompter) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	suffix := " [y/N] "
	if def {
		suffix = " [Y/n] "
	}
	for {
		answer, err := p.Ask(ctx, prompt+suffix)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer 'y' or 'n'.")
	}
}
