package assemble

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// JPEGExporter writes each page as an independent JPEG file
type JPEGExporter struct {
	Quality int
}

// NewJPEGExporter creates an exporter with the given JPEG quality (1-100)
func NewJPEGExporter(quality int) *JPEGExporter {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &JPEGExporter{Quality: quality}
}

// PageFileName names the file of a page: {base}-page-{index}.jpg, index zero-based.
func PageFileName(baseName string, index int) string {
	return fmt.Sprintf("%s-page-%d.jpg", baseName, index)
}

// ExportPage encodes image and writes it below dir. The page is encoded in
// memory first so an encoding failure leaves no file behind.
func (e *JPEGExporter) ExportPage(image *domain.PageRaster, dir, baseName string, index int) (string, error) {
	outputPath := filepath.Join(dir, PageFileName(baseName, index))

	b := image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", domain.EncodingError(fmt.Sprintf("page %d has an empty raster", index), nil).WithPath(outputPath)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image, &jpeg.Options{Quality: e.Quality}); err != nil {
		return "", domain.EncodingError(fmt.Sprintf("failed to encode page %d as JPG", index), err).WithPath(outputPath)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return "", domain.WriteError(fmt.Sprintf("failed to write page %d", index), err).WithPath(outputPath)
	}

	return outputPath, nil
}
