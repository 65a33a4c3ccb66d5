package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/spherical/pdf-blackout/internal/domain"
	"github.com/spherical/pdf-blackout/internal/threshold"
)

// Request describes one batch run.
type Request struct {
	InputPath    string
	OutputPath   string
	Password     string
	FilterPrefix string
	ExportImages bool
}

// Service orchestrates the blackout pipeline
type Service struct {
	renderer  domain.Renderer
	documents domain.DocumentFactory
	exporter  domain.PageExporter
	reporter  domain.ProgressReporter
	transform func(*domain.PageRaster) *domain.PageRaster
	logger    *domain.Logger
}

// Option configures a Service
type Option func(*Service)

// WithReporter sets the progress reporter
func WithReporter(r domain.ProgressReporter) Option {
	return func(s *Service) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *domain.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.WithPrefix("batch")
		}
	}
}

// NewService creates a new batch service. The renderer is created once by
// the caller and shared by every document of every run.
func NewService(renderer domain.Renderer, documents domain.DocumentFactory, exporter domain.PageExporter, opts ...Option) *Service {
	s := &Service{
		renderer:  renderer,
		documents: documents,
		exporter:  exporter,
		reporter:  nopReporter{},
		transform: threshold.Apply,
		logger:    domain.DefaultLogger.WithPrefix("batch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run discovers the inputs of req, resolves its output and processes every
// document. The returned error is non-nil only when the run could not start
// (validation or output preparation); per-document failures are recorded in
// the result.
func (s *Service) Run(ctx context.Context, req Request) (*domain.BatchResult, error) {
	startTime := time.Now()

	spec, err := Discover(req.InputPath, req.FilterPrefix, s.logger)
	if err != nil {
		return nil, err
	}

	target, err := ResolveOutput(req.OutputPath, req.ExportImages, spec)
	if err != nil {
		return nil, err
	}

	result := &domain.BatchResult{
		Mode:   target.Mode,
		Target: target,
	}

	if len(spec.Paths) == 0 {
		s.logger.Warn("No PDF documents found in %s", spec.Root)
		s.finish(result, startTime)
		return result, nil
	}

	if err := PrepareOutput(target); err != nil {
		return nil, err
	}

	s.logger.Info("Processing %d document(s) in %s mode into %s", len(spec.Paths), target.Mode, target.Path)

	switch target.Mode {
	case domain.ModeConcatenated:
		s.runConcatenated(ctx, spec.Paths, req.Password, result)
	case domain.ModeImageExport:
		s.runImageExport(ctx, spec.Paths, req.Password, result)
	default:
		s.runPerInput(ctx, spec.Paths, req.Password, result)
	}

	s.finish(result, startTime)
	return result, nil
}

// runPerInput writes one output document per input. A failing input is
// recorded and the batch moves on.
func (s *Service) runPerInput(ctx context.Context, paths []string, password string, result *domain.BatchResult) {
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			s.skipRemaining(result, paths[i:], err)
			return
		}

		in := domain.InputResult{Path: path}
		doc := s.documents.NewDocument()

		pages, err := s.processDocument(ctx, path, password, func(_ int, img *domain.PageRaster) error {
			return doc.AppendPage(img)
		})
		in.Pages = pages

		if err == nil {
			outputPath := filepath.Join(result.Target.Path, filepath.Base(path))
			s.report(domain.ProgressEvent{Type: domain.EventDocumentSaving, Path: outputPath, Pages: doc.PageCount()})
			if err = doc.Save(outputPath); err == nil {
				in.Outputs = []string{outputPath}
			}
		}

		s.record(result, in, err)
	}
}

// runImageExport writes every page of every input as its own JPEG file. A
// page that cannot be written fails its input but not the remaining pages.
func (s *Service) runImageExport(ctx context.Context, paths []string, password string, result *domain.BatchResult) {
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			s.skipRemaining(result, paths[i:], err)
			return
		}

		in := domain.InputResult{Path: path}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		var pageErrs *multierror.Error
		pages, err := s.processDocument(ctx, path, password, func(index int, img *domain.PageRaster) error {
			written, err := s.exporter.ExportPage(img, result.Target.Path, stem, index)
			if err != nil {
				s.logger.WithPath(path).Error("Failed to export page %d: %v", index, err)
				pageErrs = multierror.Append(pageErrs, err)
				return nil
			}
			in.Outputs = append(in.Outputs, written)
			return nil
		})
		in.Pages = pages

		if err == nil {
			err = pageErrs.ErrorOrNil()
		} else if pageErrs != nil {
			err = multierror.Append(pageErrs, err)
		}

		s.record(result, in, err)
	}
}

// runConcatenated appends the pages of every input, in order, to one shared
// document that is saved only when all inputs succeeded. Any failure
// abandons the shared document.
func (s *Service) runConcatenated(ctx context.Context, paths []string, password string, result *domain.BatchResult) {
	doc := s.documents.NewDocument()

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			s.abortConcatenated(result, paths[i+1:], domain.InputResult{Path: path}, canceled(err, path))
			return
		}

		pages, err := s.processDocument(ctx, path, password, func(_ int, img *domain.PageRaster) error {
			return doc.AppendPage(img)
		})
		if err != nil {
			s.abortConcatenated(result, paths[i+1:], domain.InputResult{Path: path, Pages: pages}, err)
			return
		}

		result.Inputs = append(result.Inputs, domain.InputResult{
			Path:   path,
			Pages:  pages,
			Status: domain.StatusSucceeded,
		})
		s.report(domain.ProgressEvent{Type: domain.EventDocumentComplete, Path: path, Pages: pages})
	}

	s.report(domain.ProgressEvent{Type: domain.EventDocumentSaving, Path: result.Target.Path, Pages: doc.PageCount()})
	if err := doc.Save(result.Target.Path); err != nil {
		s.logger.Error("Failed to save %s: %v", result.Target.Path, err)
		result.OutputErr = err
		s.report(domain.ProgressEvent{Type: domain.EventDocumentFailed, Path: result.Target.Path, Err: err})
		for i := range result.Inputs {
			result.Inputs[i].Status = domain.StatusAborted
		}
		return
	}

	// The single artifact belongs to the whole run; it is listed once, on
	// the last input.
	last := len(result.Inputs) - 1
	result.Inputs[last].Outputs = []string{result.Target.Path}
}

// abortConcatenated marks the already processed inputs as aborted, failed as
// failed and the rest as skipped.
func (s *Service) abortConcatenated(result *domain.BatchResult, rest []string, failed domain.InputResult, err error) {
	for i := range result.Inputs {
		result.Inputs[i].Status = domain.StatusAborted
	}

	failed.Status = domain.StatusFailed
	failed.Err = err
	result.Inputs = append(result.Inputs, failed)
	s.logger.Error("Aborting concatenated output %s: %v", result.Target.Path, err)
	s.report(domain.ProgressEvent{Type: domain.EventDocumentFailed, Path: failed.Path, Err: err})

	for _, path := range rest {
		result.Inputs = append(result.Inputs, domain.InputResult{Path: path, Status: domain.StatusSkipped})
	}
}

// skipRemaining marks paths as skipped after a cancellation. The first one
// carries the cancellation unless the input before it already does.
func (s *Service) skipRemaining(result *domain.BatchResult, paths []string, cause error) {
	for i, path := range paths {
		if i == 0 && !lastCanceled(result) {
			s.record(result, domain.InputResult{Path: path}, canceled(cause, path))
			continue
		}
		result.Inputs = append(result.Inputs, domain.InputResult{Path: path, Status: domain.StatusSkipped})
	}
}

func lastCanceled(result *domain.BatchResult) bool {
	if len(result.Inputs) == 0 {
		return false
	}
	return domain.IsErrorType(result.Inputs[len(result.Inputs)-1].Err, domain.ErrorTypeCanceled)
}

// record appends in with a status derived from err and reports it.
func (s *Service) record(result *domain.BatchResult, in domain.InputResult, err error) {
	if err != nil {
		in.Status = domain.StatusFailed
		in.Err = err
		s.logger.WithPath(in.Path).Error("Failed to process document: %v", err)
		s.report(domain.ProgressEvent{Type: domain.EventDocumentFailed, Path: in.Path, Pages: in.Pages, Err: err})
	} else {
		in.Status = domain.StatusSucceeded
		s.logger.WithPath(in.Path).Info("Processed %d pages", in.Pages)
		s.report(domain.ProgressEvent{Type: domain.EventDocumentComplete, Path: in.Path, Pages: in.Pages})
	}
	result.Inputs = append(result.Inputs, in)
}

// processDocument opens path and hands every thresholded page to sink, in
// page order. It returns the number of pages handed over.
func (s *Service) processDocument(ctx context.Context, path, password string, sink func(index int, img *domain.PageRaster) error) (int, error) {
	logger := s.logger.WithPath(path)

	doc, err := s.renderer.Open(ctx, path, password)
	if err != nil {
		return 0, withPath(err, path)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("Failed to close document: %v", cerr)
		}
	}()

	total := doc.NumPages()
	s.report(domain.ProgressEvent{Type: domain.EventDocumentStart, Path: path, Pages: total})
	logger.Debug("Opened document with %d pages", total)

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return i, canceled(ctx.Err(), path)
		default:
		}

		raster, err := doc.RenderPage(ctx, i)
		if err != nil {
			return i, withPath(err, path)
		}

		if err := sink(i, s.transform(raster)); err != nil {
			return i, withPath(err, path)
		}

		s.report(domain.ProgressEvent{Type: domain.EventPageComplete, Path: path, Page: i, Pages: total})
	}

	return total, nil
}

func (s *Service) finish(result *domain.BatchResult, startTime time.Time) {
	result.Duration = time.Since(startTime)
	s.logger.Info("Batch complete: %d succeeded, %d failed in %v",
		result.Succeeded(), len(result.Failed()), result.Duration)
	s.report(domain.ProgressEvent{Type: domain.EventBatchComplete, Err: result.Err()})
}

func (s *Service) report(event domain.ProgressEvent) {
	event.Timestamp = time.Now()
	s.reporter.Report(event)
}

// withPath makes sure err names the input it belongs to.
func withPath(err error, path string) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Path == "" {
			de.Path = path
		}
		return err
	}
	return domain.NewError(domain.ErrorTypeRender, fmt.Sprintf("failed to process %s", filepath.Base(path)), err).WithPath(path)
}

func canceled(cause error, path string) error {
	return domain.CanceledError("processing canceled", cause).WithPath(path)
}

type nopReporter struct{}

func (nopReporter) Report(domain.ProgressEvent) {}
