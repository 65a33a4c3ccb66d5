// Package ui provides terminal presentation for the pdf-blackout CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// ProgressBar wraps a progressbar instance for per-document page progress.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(w io.Writer, total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the progress bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Abandon stops the progress bar where it is.
func (p *ProgressBar) Abandon() {
	_ = p.bar.Exit()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(w io.Writer, message string) *Spinner {
	opt := spinner.WithWriter(w)
	if f, ok := w.(*os.File); ok {
		// Lets the spinner stay quiet when f is not a terminal.
		opt = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, opt)
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// Reporter renders batch progress: one bar per document and a spinner while
// an output document is written. Failures are always printed, even with
// progress disabled.
type Reporter struct {
	w       io.Writer
	enabled bool

	mu      sync.Mutex
	bar     *ProgressBar
	spinner *Spinner
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, enabled bool) *Reporter {
	return &Reporter{w: w, enabled: enabled}
}

// Report implements domain.ProgressReporter.
func (r *Reporter) Report(event domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case domain.EventDocumentStart:
		r.stopSpinner()
		r.finishBar()
		if r.enabled {
			r.bar = NewProgressBar(r.w, int64(event.Pages), event.Path)
		}

	case domain.EventPageComplete:
		if r.bar != nil {
			r.bar.Set(int64(event.Page + 1))
		}

	case domain.EventDocumentSaving:
		r.finishBar()
		if r.enabled {
			r.spinner = NewSpinner(r.w, "Writing "+event.Path)
			r.spinner.Start()
		}

	case domain.EventDocumentComplete:
		r.stopSpinner()
		r.finishBar()

	case domain.EventDocumentFailed:
		r.stopSpinner()
		if r.bar != nil {
			r.bar.Abandon()
			r.bar = nil
			fmt.Fprintln(r.w)
		}
		Errorf(r.w, "%s: %v", event.Path, event.Err)

	case domain.EventBatchComplete:
		r.stopSpinner()
		r.finishBar()
	}
}

func (r *Reporter) finishBar() {
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
}

func (r *Reporter) stopSpinner() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}
