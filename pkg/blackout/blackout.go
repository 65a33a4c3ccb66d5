// Package blackout is the library entry point for pdf-blackout: it turns
// every non-white pixel of a PDF's pages black and writes the result as PDF
// documents or page images.
package blackout

import (
	"context"
	"time"

	"github.com/spherical/pdf-blackout/internal/assemble"
	"github.com/spherical/pdf-blackout/internal/batch"
	"github.com/spherical/pdf-blackout/internal/config"
	"github.com/spherical/pdf-blackout/internal/domain"
	"github.com/spherical/pdf-blackout/internal/pdf"
)

// Re-export types for the public API
type (
	Config      = config.Config
	Request     = batch.Request
	Result      = domain.BatchResult
	InputResult = domain.InputResult
	InputStatus = domain.InputStatus
	OutputMode  = domain.OutputMode
	Event       = domain.ProgressEvent
	EventType   = domain.EventType
	Reporter    = domain.ProgressReporter
	Logger      = domain.Logger
)

// Output modes
const (
	ModePerInput     = domain.ModePerInput
	ModeConcatenated = domain.ModeConcatenated
	ModeImageExport  = domain.ModeImageExport
)

// Input statuses
const (
	StatusSucceeded = domain.StatusSucceeded
	StatusFailed    = domain.StatusFailed
	StatusAborted   = domain.StatusAborted
	StatusSkipped   = domain.StatusSkipped
)

// Event type constants
const (
	EventDocumentStart    = domain.EventDocumentStart
	EventPageComplete     = domain.EventPageComplete
	EventDocumentSaving   = domain.EventDocumentSaving
	EventDocumentComplete = domain.EventDocumentComplete
	EventDocumentFailed   = domain.EventDocumentFailed
	EventBatchComplete    = domain.EventBatchComplete
)

// DefaultConfig returns the A4/300dpi configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig loads configuration from .env, the YAML file at path (if any)
// and BLACKOUT_* environment variables.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewLogger creates a console logger at the named level (debug, info, warn, error).
func NewLogger(level string) *Logger {
	return domain.NewLogger(domain.ParseLogLevel(level))
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(event).
func (f ReporterFunc) Report(event Event) {
	f(event)
}

// Option configures a Client
type Option func(*Client)

// WithReporter sets the progress reporter used by Run
func WithReporter(r Reporter) Option {
	return func(c *Client) {
		c.reporter = r
	}
}

// WithLogger sets the logger
func WithLogger(l *Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is the main entry point for the blackout library
type Client struct {
	cfg       *Config
	renderer  *pdf.Renderer
	documents *assemble.PDFFactory
	exporter  *assemble.JPEGExporter
	reporter  Reporter
	logger    *Logger
}

// NewClient creates a client configured from the environment
func NewClient(opts ...Option) (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg, opts...)
}

// NewClientWithConfig creates a client with explicit configuration
func NewClientWithConfig(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		logger: domain.NewLoggerWithConfig(domain.LogConfig{Level: domain.ParseLogLevel(cfg.Log.Level), Format: cfg.Log.Format}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.renderer = pdf.NewRenderer(pdf.RenderConfig{
		TargetWidth:     cfg.Render.TargetWidth,
		MaxHeight:       cfg.Render.MaxHeight,
		RotateLandscape: cfg.Render.RotateLandscape,
	}, c.logger)
	c.documents = assemble.NewPDFFactory(assemble.PDFOptions{
		PageSize:     config.NormalizePageSize(cfg.Output.PageSize),
		CreationDate: cfg.Output.CreationDate(),
	})
	c.exporter = assemble.NewJPEGExporter(cfg.Output.JPEGQuality)

	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *Config {
	return c.cfg
}

// Run processes req synchronously. The error is non-nil only when the batch
// could not start; per-document failures are in the result, see Result.Err
// and Result.ExitCode. An empty req.Password falls back to the configured one.
func (c *Client) Run(ctx context.Context, req Request) (*Result, error) {
	return c.service(c.reporter).Run(ctx, c.withPassword(req))
}

// Process runs req in the background and streams its progress events. The
// channel is closed after the final EventBatchComplete event, whose Err
// carries the combined failures. A batch that cannot start yields a single
// EventBatchComplete with the error.
func (c *Client) Process(ctx context.Context, req Request) <-chan Event {
	eventCh := make(chan Event, 100)

	forward := ReporterFunc(func(event Event) {
		select {
		case eventCh <- event:
		case <-ctx.Done():
		}
	})

	go func() {
		defer close(eventCh)
		_, err := c.service(forward).Run(ctx, c.withPassword(req))
		if err != nil {
			forward(Event{Type: EventBatchComplete, Err: err, Timestamp: time.Now()})
		}
	}()

	return eventCh
}

func (c *Client) service(reporter Reporter) *batch.Service {
	return batch.NewService(c.renderer, c.documents, c.exporter,
		batch.WithReporter(reporter),
		batch.WithLogger(c.logger),
	)
}

func (c *Client) withPassword(req Request) Request {
	if req.Password == "" {
		req.Password = c.cfg.Password
	}
	return req
}
