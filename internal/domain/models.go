package domain

import (
	"image"
	"time"

	"github.com/hashicorp/go-multierror"
)

// PDFExtension is the supported input document extension (compared case-insensitively).
const PDFExtension = ".pdf"

// PageRaster is a rendered page: 8 bits per channel, alpha always opaque.
type PageRaster = image.RGBA

// InputSpec is the ordered set of documents a batch works on.
type InputSpec struct {
	// Root is the path given by the user, a file or a directory.
	Root string
	// IsDir reports whether Root is a directory.
	IsDir bool
	// FilterPrefix is the filename prefix applied during discovery, if any.
	FilterPrefix string
	// Paths are the discovered documents, lexicographically sorted.
	Paths []string
}

// OutputMode selects how input documents map to output artifacts.
type OutputMode int

const (
	// ModePerInput writes one output document per input into a directory.
	ModePerInput OutputMode = iota
	// ModeConcatenated writes all pages of all inputs into a single document.
	ModeConcatenated
	// ModeImageExport writes every page as a JPEG file into a directory.
	ModeImageExport
)

func (m OutputMode) String() string {
	switch m {
	case ModePerInput:
		return "per-input"
	case ModeConcatenated:
		return "concatenated"
	case ModeImageExport:
		return "image-export"
	default:
		return "unknown"
	}
}

// OutputTarget is a resolved destination.
type OutputTarget struct {
	Mode OutputMode
	// Path is the output directory (per-input, image export) or the
	// output file (concatenated).
	Path string
}

// IsDir reports whether the target is a directory.
func (t OutputTarget) IsDir() bool {
	return t.Mode != ModeConcatenated
}

// InputStatus is the outcome of one input document.
type InputStatus string

const (
	StatusSucceeded InputStatus = "succeeded"
	StatusFailed    InputStatus = "failed"
	// StatusAborted marks an input that was processed, but whose pages were
	// discarded because the shared concatenated output was abandoned.
	StatusAborted InputStatus = "aborted"
	// StatusSkipped marks an input that was never attempted.
	StatusSkipped InputStatus = "skipped"
)

// InputResult is the per-input record of a batch.
type InputResult struct {
	Path    string
	Outputs []string
	Pages   int
	Status  InputStatus
	Err     error
}

// BatchResult collects the outcome of a batch run.
type BatchResult struct {
	Mode   OutputMode
	Target OutputTarget
	Inputs []InputResult
	// OutputErr is set when the shared concatenated output could not be
	// finalized after every input was processed.
	OutputErr error
	Duration  time.Duration
}

// Failed returns the inputs that failed.
func (r *BatchResult) Failed() []InputResult {
	var failed []InputResult
	for _, in := range r.Inputs {
		if in.Status == StatusFailed {
			failed = append(failed, in)
		}
	}
	return failed
}

// Succeeded returns the number of inputs whose artifacts were kept.
func (r *BatchResult) Succeeded() int {
	n := 0
	for _, in := range r.Inputs {
		if in.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Outputs returns every artifact written by the batch, in processing order.
func (r *BatchResult) Outputs() []string {
	var out []string
	for _, in := range r.Inputs {
		if in.Status == StatusSucceeded || in.Status == StatusFailed {
			out = append(out, in.Outputs...)
		}
	}
	return out
}

// Err combines all per-input failures, or returns nil.
func (r *BatchResult) Err() error {
	var result *multierror.Error
	for _, in := range r.Inputs {
		if in.Status == StatusFailed && in.Err != nil {
			result = multierror.Append(result, in.Err)
		}
	}
	if r.OutputErr != nil {
		result = multierror.Append(result, r.OutputErr)
	}
	return result.ErrorOrNil()
}

// ExitCode is 0 when no input failed and 1 otherwise.
func (r *BatchResult) ExitCode() int {
	if len(r.Failed()) > 0 || r.OutputErr != nil {
		return 1
	}
	return 0
}

// EventType represents the type of progress event
type EventType string

const (
	EventDocumentStart    EventType = "document_start"
	EventPageComplete     EventType = "page_complete"
	EventDocumentSaving   EventType = "document_saving"
	EventDocumentComplete EventType = "document_complete"
	EventDocumentFailed   EventType = "document_failed"
	EventBatchComplete    EventType = "batch_complete"
)

// ProgressEvent represents an event emitted during processing.
// Page is zero-based; Pages is the page count of the document.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	Path      string    `json:"path,omitempty"`
	Page      int       `json:"page,omitempty"`
	Pages     int       `json:"pages,omitempty"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}
