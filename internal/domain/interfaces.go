package domain

import "context"

// Renderer opens documents for rasterization
type Renderer interface {
	// Open opens the document at path, decrypting it with password if needed
	Open(ctx context.Context, path, password string) (SourceDocument, error)
}

// SourceDocument is an opened input document
type SourceDocument interface {
	// NumPages returns the page count
	NumPages() int

	// RenderPage rasterizes the zero-based page index
	RenderPage(ctx context.Context, index int) (*PageRaster, error)

	// Close releases the document
	Close() error
}

// OutputDocument accumulates thresholded pages and is persisted once
type OutputDocument interface {
	// AppendPage adds image as the new last page
	AppendPage(image *PageRaster) error

	// PageCount returns the number of pages appended so far
	PageCount() int

	// Save writes the document to path
	Save(path string) error
}

// DocumentFactory creates empty output documents
type DocumentFactory interface {
	NewDocument() OutputDocument
}

// PageExporter persists single pages as standalone image files
type PageExporter interface {
	// ExportPage writes image below dir and returns the written file path
	ExportPage(image *PageRaster, dir, baseName string, index int) (string, error)
}

// ProgressReporter observes batch progress
type ProgressReporter interface {
	Report(event ProgressEvent)
}
