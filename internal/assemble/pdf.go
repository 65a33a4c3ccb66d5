// Package assemble turns thresholded page rasters into output artifacts:
// a reassembled PDF with one full-width image per page, or one JPEG file
// per page.
package assemble

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// PDFOptions controls the layout of reassembled documents.
type PDFOptions struct {
	// PageSize is a standard format name understood by fpdf, e.g. "A4".
	PageSize string
	// CreationDate is recorded in the document info. Zero means now.
	CreationDate time.Time
}

// DefaultPDFOptions returns A4 portrait output.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{PageSize: "A4"}
}

// PDFFactory creates empty PDF output documents.
type PDFFactory struct {
	Options PDFOptions
}

// NewPDFFactory creates a factory for documents with the given options
func NewPDFFactory(opts PDFOptions) *PDFFactory {
	return &PDFFactory{Options: opts}
}

// NewDocument implements domain.DocumentFactory.
func (f *PDFFactory) NewDocument() domain.OutputDocument {
	return NewPDFDocument(f.Options)
}

// PDFDocument accumulates page images in memory and writes them once.
type PDFDocument struct {
	pdf   *fpdf.Fpdf
	pageW float64
	pageH float64
	pages int
}

// NewPDFDocument creates an empty output document.
func NewPDFDocument(opts PDFOptions) *PDFDocument {
	if opts.PageSize == "" {
		opts.PageSize = "A4"
	}

	doc := fpdf.New("P", "mm", opts.PageSize, "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(true)
	doc.SetCatalogSort(true)
	doc.SetCreator("pdf-blackout", false)
	if !opts.CreationDate.IsZero() {
		doc.SetCreationDate(opts.CreationDate)
		doc.SetModificationDate(opts.CreationDate)
	}

	w, h := doc.GetPageSize()
	return &PDFDocument{
		pdf:   doc,
		pageW: w,
		pageH: h,
	}
}

// AppendPage adds a new last page holding image scaled to the page width.
// The image sits on the bottom-left corner of the page; its height follows
// the raster's aspect ratio.
func (d *PDFDocument) AppendPage(image *domain.PageRaster) error {
	b := image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return domain.EncodingError(fmt.Sprintf("page %d has an empty raster", d.pages), nil)
	}

	// PNG keeps the thresholded pixels exact.
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, image); err != nil {
		return domain.EncodingError(fmt.Sprintf("failed to encode page %d", d.pages), err)
	}

	name := fmt.Sprintf("page-%d", d.pages)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pageW, pageH := d.pageSize()
	height := pageW * float64(b.Dy()) / float64(b.Dx())

	d.pdf.AddPage()
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	d.pdf.ImageOptions(name, 0, pageH-height, pageW, height, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return domain.WriteError(fmt.Sprintf("failed to add page %d to output document", d.pages), err)
	}

	d.pages++
	return nil
}

// PageCount returns the number of pages appended so far
func (d *PDFDocument) PageCount() int {
	return d.pages
}

// pageSize returns the page width and height in millimetres.
func (d *PDFDocument) pageSize() (float64, float64) {
	return d.pageW, d.pageH
}

// Save writes the document to path. The bytes go to a temporary file in the
// destination directory first, which is renamed over path on success, so a
// failed save never leaves a partial file under the final name.
func (d *PDFDocument) Save(path string) error {
	if d.pages == 0 {
		return domain.WriteError("output document has no pages", nil).WithPath(path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.WriteError("failed to create output file", err).WithPath(path)
	}
	tmpName := tmp.Name()

	err = d.pdf.Output(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return domain.WriteError("failed to save document", err).WithPath(path)
	}

	return nil
}
