package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// fakeRenderer serves documents from a page-count table keyed by file name.
// Every rendered page is a white raster whose width identifies the document
// and page: width = doc*100 + page + 1, so ordering survives thresholding.
type fakeRenderer struct {
	pages   map[string]int
	corrupt map[string]bool
	// failPage makes RenderPage fail for name at the given page.
	failPage map[string]int
	// cancelAfter cancels the run once this many pages were rendered.
	cancelAfter int
	cancel      context.CancelFunc

	mu       sync.Mutex
	ids      map[string]int
	opened   []string
	rendered int
}

func newFakeRenderer(pages map[string]int) *fakeRenderer {
	return &fakeRenderer{
		pages:    pages,
		corrupt:  map[string]bool{},
		failPage: map[string]int{},
		ids:      map[string]int{},
	}
}

func (r *fakeRenderer) Open(ctx context.Context, path, password string) (domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.CanceledError("open canceled", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := filepath.Base(path)
	r.opened = append(r.opened, name)
	if r.corrupt[name] {
		return nil, domain.OpenError("failed to open PDF", errors.New("xref table not found"))
	}

	id, ok := r.ids[name]
	if !ok {
		id = len(r.ids) + 1
		r.ids[name] = id
	}

	n, ok := r.pages[name]
	if !ok {
		n = 2
	}

	fail := -1
	if p, ok := r.failPage[name]; ok {
		fail = p
	}

	return &fakeSource{renderer: r, id: id, pages: n, failAt: fail}, nil
}

func (r *fakeRenderer) docID(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[name]
}

type fakeSource struct {
	renderer *fakeRenderer
	id       int
	pages    int
	failAt   int
	closed   bool
}

func (d *fakeSource) NumPages() int { return d.pages }

func (d *fakeSource) RenderPage(ctx context.Context, index int) (*domain.PageRaster, error) {
	if index == d.failAt {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", index), errors.New("bad stream"))
	}

	r := d.renderer
	r.mu.Lock()
	r.rendered++
	if r.cancel != nil && r.rendered == r.cancelAfter {
		r.cancel()
	}
	r.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, d.id*100+index+1, 1))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img, nil
}

func (d *fakeSource) Close() error {
	d.closed = true
	return nil
}

// fakeFactory hands out in-memory documents that write their page widths on save.
type fakeFactory struct {
	docs    []*fakeDocument
	saveErr error
}

func (f *fakeFactory) NewDocument() domain.OutputDocument {
	doc := &fakeDocument{saveErr: f.saveErr}
	f.docs = append(f.docs, doc)
	return doc
}

type fakeDocument struct {
	widths  []int
	saved   []string
	saveErr error
}

func (d *fakeDocument) AppendPage(img *domain.PageRaster) error {
	d.widths = append(d.widths, img.Bounds().Dx())
	return nil
}

func (d *fakeDocument) PageCount() int { return len(d.widths) }

func (d *fakeDocument) Save(path string) error {
	if d.saveErr != nil {
		return domain.WriteError("failed to save document", d.saveErr).WithPath(path)
	}
	d.saved = append(d.saved, path)
	return os.WriteFile(path, []byte(fmt.Sprint(d.widths)), 0644)
}

// fakeExporter records exported pages, failing for the configured indexes.
type fakeExporter struct {
	failIndex map[int]bool
	written   []string
}

func (e *fakeExporter) ExportPage(img *domain.PageRaster, dir, baseName string, index int) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s-page-%d.jpg", baseName, index))
	if e.failIndex[index] {
		return "", domain.EncodingError(fmt.Sprintf("failed to encode page %d as JPG", index), nil).WithPath(path)
	}
	if err := os.WriteFile(path, []byte("jpg"), 0644); err != nil {
		return "", err
	}
	e.written = append(e.written, path)
	return path, nil
}

// recordingReporter keeps every event.
type recordingReporter struct {
	events []domain.ProgressEvent
}

func (r *recordingReporter) Report(event domain.ProgressEvent) {
	r.events = append(r.events, event)
}

func (r *recordingReporter) types() []domain.EventType {
	types := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// writeInputs creates placeholder files named names in a new input directory.
func writeInputs(t *testing.T, names ...string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "in")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		content := "%PDF-1.4\n"
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}
