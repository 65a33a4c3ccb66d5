package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// Renderer implements page rasterization using go-fitz. One Renderer is
// created per invocation and handed to the orchestrator.
type Renderer struct {
	cfg    RenderConfig
	logger *domain.Logger
}

// NewRenderer creates a renderer with a fixed rasterization configuration
func NewRenderer(cfg RenderConfig, logger *domain.Logger) *Renderer {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &Renderer{
		cfg:    cfg,
		logger: logger.WithPrefix("render"),
	}
}

// Open opens a PDF document. Encrypted documents are decrypted in memory
// with password first.
func (r *Renderer) Open(ctx context.Context, path, password string) (domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.CanceledError("open canceled", err).WithPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.OpenError("failed to read document", err).WithPath(path)
	}

	doc, err := fitz.NewFromMemory(data)
	if errors.Is(err, fitz.ErrNeedsPassword) {
		closeQuietly(doc)
		doc, err = r.openEncrypted(data, path, password)
	}
	if err != nil {
		closeQuietly(doc)
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.OpenError("failed to open PDF", err).WithPath(path)
	}

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		closeQuietly(doc)
		return nil, domain.OpenError("PDF has no pages", nil).WithPath(path)
	}

	r.logger.Debug("Opened %s (%d pages)", path, pageCount)

	return &Document{
		doc:   doc,
		path:  path,
		pages: pageCount,
		cfg:   r.cfg,
	}, nil
}

func (r *Renderer) openEncrypted(data []byte, path, password string) (*fitz.Document, error) {
	if password == "" {
		return nil, domain.OpenError("document is encrypted, a password is required (-p)", nil).WithPath(path)
	}

	r.logger.Debug("Decrypting %s", path)
	plain, err := decrypt(data, password)
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return nil, domain.OpenError("wrong password for encrypted document (-p)", err).WithPath(path)
	}
	if err != nil {
		return nil, domain.OpenError("failed to decrypt document, its structure could not be read", err).WithPath(path)
	}

	doc, err := fitz.NewFromMemory(plain)
	if err != nil {
		closeQuietly(doc)
		return nil, domain.OpenError("failed to open decrypted PDF", err).WithPath(path)
	}
	return doc, nil
}

// Document is an opened PDF ready for page rasterization
type Document struct {
	doc   *fitz.Document
	path  string
	pages int
	cfg   RenderConfig
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	return d.pages
}

// RenderPage rasterizes one page at the configured target size, turning
// landscape pages to portrait. The page is rendered once, and the final size
// is planned from the rendered box so the raster is never resampled.
func (d *Document) RenderPage(ctx context.Context, index int) (*domain.PageRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.CanceledError("render canceled", err).WithPath(d.path)
	}
	if index < 0 || index >= d.pages {
		return nil, domain.RenderError(fmt.Sprintf("page %d out of range (document has %d pages)", index, d.pages), nil).WithPath(d.path)
	}

	bounds, err := d.doc.Bound(index)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to read bounds of page %d", index), err).WithPath(d.path)
	}

	render := planPage(float64(bounds.Dx()), float64(bounds.Dy()), d.cfg)

	img, err := d.doc.ImageDPI(index, render.DPI)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", index), err).WithPath(d.path)
	}

	raster := toRGBA(img)
	w, h := pageExtent(bounds, raster.Bounds(), render.Scale())
	plan := planPage(w, h, d.cfg)
	if plan.Rotate {
		raster = rotateClockwise(raster)
	}
	return fitCanvas(raster, plan.Width, plan.Height), nil
}

// Close releases the underlying document
func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

func closeQuietly(doc *fitz.Document) {
	if doc != nil {
		_ = doc.Close()
	}
}
