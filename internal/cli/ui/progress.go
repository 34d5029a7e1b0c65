package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner animates a single-line indicator for steps without
// measurable progress, like the validator pass over the binaries.
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	mu     sync.Mutex
	active bool
	done   chan struct{}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		message:  message,
		interval: 100 * time.Millisecond,
		noColor:  noColor,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.done = make(chan struct{})
	go s.animate(s.done)
}

// Stop halts the animation and clears the line. Safe to call more
// than once, or without Start.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and prints a green check line.
func (s *Spinner) Success(message string) {
	s.Stop()
	green := color.New(color.FgGreen, color.Bold)
	if s.noColor {
		green.DisableColor()
	}
	green.Fprintf(s.writer, "✓ %s\n", message)
}

// Error stops the spinner and prints a red failure line.
func (s *Spinner) Error(message string) {
	s.Stop()
	red := color.New(color.FgRed, color.Bold)
	if s.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.writer, "✗ %s\n", message)
}

func (s *Spinner) animate(done <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	frame := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// ProgressBar tracks a fixed number of steps, usually one per weight,
// as a single updating line with the current step's label beside it.
type ProgressBar struct {
	writer  io.Writer
	total   int
	current int
	width   int
	label   string
	noColor bool
}

// NewProgressBar creates a bar for total steps writing to w.
func NewProgressBar(w io.Writer, total int, noColor bool) *ProgressBar {
	return &ProgressBar{writer: w, total: total, width: 30, noColor: noColor}
}

// Step advances the bar by one and shows label beside it.
func (p *ProgressBar) Step(label string) {
	if p.current < p.total {
		p.current++
	}
	p.label = label
	p.render()
}

// Finish fills the bar and moves to a fresh line.
func (p *ProgressBar) Finish() {
	p.current = p.total
	p.label = ""
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *ProgressBar) render() {
	if p.total == 0 {
		return
	}
	filled := p.width * p.current / p.total

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if p.noColor {
		cyan.DisableColor()
		gray.DisableColor()
	}

	var bar strings.Builder
	bar.WriteString("[")
	cyan.Fprint(&bar, strings.Repeat("█", filled))
	gray.Fprint(&bar, strings.Repeat("░", p.width-filled))
	bar.WriteString("]")

	label := ""
	if p.label != "" {
		label = " " + p.label
	}
	// Trailing clear wipes residue from a longer previous label.
	fmt.Fprintf(p.writer, "\r%s %d/%d%s\033[K", bar.String(), p.current, p.total, label)
}

// WithSpinner runs fn behind a spinner and reports its outcome.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	s := NewSpinner(w, message, noColor)
	s.Start()
	defer s.Stop()

	if err := fn(); err != nil {
		s.Error(fmt.Sprintf("%s failed", message))
		return err
	}
	s.Success(message)
	return nil
}

// WithProgress runs fn with a step-per-item bar. On error the bar is
// abandoned where it stands, leaving the failing step's label visible.
func WithProgress(w io.Writer, total int, noColor bool, fn func(*ProgressBar) error) error {
	bar := NewProgressBar(w, total, noColor)
	if err := fn(bar); err != nil {
		fmt.Fprintln(w)
		return err
	}
	bar.Finish()
	return nil
}
