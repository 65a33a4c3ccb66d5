package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-blackout/internal/domain"
)

func newTestService(r *fakeRenderer, f *fakeFactory, e *fakeExporter, rep *recordingReporter) *Service {
	opts := []Option{WithLogger(domain.NopLogger())}
	if rep != nil {
		opts = append(opts, WithReporter(rep))
	}
	return NewService(r, f, e, opts...)
}

func statuses(result *domain.BatchResult) []domain.InputStatus {
	out := make([]domain.InputStatus, 0, len(result.Inputs))
	for _, in := range result.Inputs {
		out = append(out, in.Status)
	}
	return out
}

func TestService_PerInput(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf")
	out := filepath.Join(t.TempDir(), "out")

	renderer := newFakeRenderer(map[string]int{"a.pdf": 3, "b.pdf": 1})
	factory := &fakeFactory{}
	svc := newTestService(renderer, factory, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, domain.ModePerInput, result.Mode)
	assert.Equal(t, 0, result.ExitCode())
	assert.NoError(t, result.Err())
	assert.Equal(t, []string{filepath.Join(out, "a.pdf"), filepath.Join(out, "b.pdf")}, result.Outputs())

	require.Len(t, factory.docs, 2)
	assert.Equal(t, []int{101, 102, 103}, factory.docs[0].widths, "one output page per source page, in order")
	assert.Equal(t, []int{201}, factory.docs[1].widths)
	assert.Equal(t, 3, result.Inputs[0].Pages)

	assert.FileExists(t, filepath.Join(out, "a.pdf"))
	assert.FileExists(t, filepath.Join(out, "b.pdf"))
}

func TestService_PerInput_PartialFailure(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf", "c.pdf", "corrupt.pdf")
	out := filepath.Join(t.TempDir(), "out")

	renderer := newFakeRenderer(nil)
	renderer.corrupt["corrupt.pdf"] = true
	factory := &fakeFactory{}
	svc := newTestService(renderer, factory, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Succeeded())
	require.Len(t, result.Failed(), 1)
	assert.Equal(t, filepath.Join(in, "corrupt.pdf"), result.Failed()[0].Path)
	assert.Equal(t, 1, result.ExitCode())
	assert.Len(t, result.Outputs(), 3)

	err = result.Err()
	require.Error(t, err)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeOpen))
	assert.Contains(t, err.Error(), filepath.Join(in, "corrupt.pdf"))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestService_PerInput_RenderFailureKeepsOtherOutputs(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf")
	out := filepath.Join(t.TempDir(), "out")

	renderer := newFakeRenderer(map[string]int{"a.pdf": 3})
	renderer.failPage["a.pdf"] = 1
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, []domain.InputStatus{domain.StatusFailed, domain.StatusSucceeded}, statuses(result))
	assert.True(t, domain.IsErrorType(result.Inputs[0].Err, domain.ErrorTypeRender))
	assert.Equal(t, 1, result.Inputs[0].Pages)
	assert.NoFileExists(t, filepath.Join(out, "a.pdf"))
	assert.FileExists(t, filepath.Join(out, "b.pdf"))
}

func TestService_PerInput_SaveFailure(t *testing.T) {
	in := writeInputs(t, "a.pdf")
	out := filepath.Join(t.TempDir(), "out")

	svc := newTestService(newFakeRenderer(nil), &fakeFactory{saveErr: errors.New("disk full")}, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode())
	assert.True(t, domain.IsErrorType(result.Err(), domain.ErrorTypeWrite))
	assert.Empty(t, result.Outputs())
}

func TestService_Concatenated_Order(t *testing.T) {
	in := writeInputs(t, "C.pdf", "A.pdf", "B.pdf")
	out := filepath.Join(t.TempDir(), "out", "merged.pdf")

	renderer := newFakeRenderer(map[string]int{"A.pdf": 2, "B.pdf": 1, "C.pdf": 3})
	factory := &fakeFactory{}
	svc := newTestService(renderer, factory, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeConcatenated, result.Mode)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, []string{"A.pdf", "B.pdf", "C.pdf"}, renderer.opened)

	require.Len(t, factory.docs, 1, "one shared document")
	a, b, c := renderer.docID("A.pdf")*100, renderer.docID("B.pdf")*100, renderer.docID("C.pdf")*100
	assert.Equal(t, []int{a + 1, a + 2, b + 1, c + 1, c + 2, c + 3}, factory.docs[0].widths)
	assert.Equal(t, []string{out}, factory.docs[0].saved)
	assert.Equal(t, []string{out}, result.Outputs())
	assert.FileExists(t, out)
}

func TestService_Concatenated_FailureWritesNothing(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf", "c.pdf", "corrupt.pdf")
	outDir := t.TempDir()
	out := filepath.Join(outDir, "merged.pdf")

	renderer := newFakeRenderer(nil)
	renderer.corrupt["b.pdf"] = true
	factory := &fakeFactory{}
	svc := newTestService(renderer, factory, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ExitCode())
	assert.Empty(t, result.Outputs())
	assert.NoFileExists(t, out)
	require.Len(t, factory.docs, 1)
	assert.Empty(t, factory.docs[0].saved)

	assert.Equal(t, []domain.InputStatus{
		domain.StatusAborted,
		domain.StatusFailed,
		domain.StatusSkipped,
		domain.StatusSkipped,
	}, statuses(result))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, renderer.opened, "processing stops at the first failure")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_Concatenated_SaveFailure(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf")
	out := filepath.Join(t.TempDir(), "merged.pdf")

	svc := newTestService(newFakeRenderer(nil), &fakeFactory{saveErr: errors.New("disk full")}, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ExitCode())
	assert.True(t, domain.IsErrorType(result.OutputErr, domain.ErrorTypeWrite))
	assert.Equal(t, []domain.InputStatus{domain.StatusAborted, domain.StatusAborted}, statuses(result))
	assert.Empty(t, result.Outputs())
}

func TestService_ImageExport(t *testing.T) {
	in := writeInputs(t, "scan.pdf")
	out := filepath.Join(t.TempDir(), "pages")

	exporter := &fakeExporter{}
	svc := newTestService(newFakeRenderer(map[string]int{"scan.pdf": 3}), &fakeFactory{}, exporter, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out, ExportImages: true})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeImageExport, result.Mode)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, []string{
		filepath.Join(out, "scan-page-0.jpg"),
		filepath.Join(out, "scan-page-1.jpg"),
		filepath.Join(out, "scan-page-2.jpg"),
	}, result.Outputs())
}

func TestService_ImageExport_PageFailureIsScopedToThePage(t *testing.T) {
	in := writeInputs(t, "scan.pdf", "other.pdf")
	out := filepath.Join(t.TempDir(), "pages")

	exporter := &fakeExporter{failIndex: map[int]bool{1: true}}
	renderer := newFakeRenderer(map[string]int{"scan.pdf": 3, "other.pdf": 1})
	svc := newTestService(renderer, &fakeFactory{}, exporter, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out, ExportImages: true})
	require.NoError(t, err)

	assert.Equal(t, []domain.InputStatus{domain.StatusSucceeded, domain.StatusFailed}, statuses(result))
	scan := result.Inputs[1]
	assert.Equal(t, 3, scan.Pages)
	assert.Equal(t, []string{
		filepath.Join(out, "scan-page-0.jpg"),
		filepath.Join(out, "scan-page-2.jpg"),
	}, scan.Outputs)
	assert.True(t, domain.IsErrorType(scan.Err, domain.ErrorTypeEncoding))
	assert.Equal(t, 1, result.ExitCode())
	assert.Len(t, result.Outputs(), 3)
}

func TestService_SingleFileInput(t *testing.T) {
	in := writeInputs(t, "one.pdf")
	out := filepath.Join(t.TempDir(), "out")

	svc := newTestService(newFakeRenderer(nil), &fakeFactory{}, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{
		InputPath:    filepath.Join(in, "one.pdf"),
		OutputPath:   out,
		FilterPrefix: "does-not-match",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "one.pdf")}, result.Outputs())
}

func TestService_EmptyDiscoveryIsSuccess(t *testing.T) {
	in := writeInputs(t, "summary.pdf")
	out := filepath.Join(t.TempDir(), "out")

	renderer := newFakeRenderer(nil)
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, nil)

	result, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out, FilterPrefix: "report_"})
	require.NoError(t, err)

	assert.Empty(t, result.Inputs)
	assert.Equal(t, 0, result.ExitCode())
	assert.Empty(t, renderer.opened)
	assert.NoDirExists(t, out)
}

func TestService_ValidationStopsBeforeProcessing(t *testing.T) {
	in := writeInputs(t, "a.pdf")

	renderer := newFakeRenderer(nil)
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, nil)

	_, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: in})
	require.Error(t, err)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeValidation))

	_, err = svc.Run(context.Background(), Request{InputPath: filepath.Join(in, "nope.pdf"), OutputPath: "out"})
	require.Error(t, err)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeValidation))

	assert.Empty(t, renderer.opened)
}

func TestService_CancelPerInputKeepsWrittenOutputs(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf", "c.pdf")
	out := filepath.Join(t.TempDir(), "out")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := newFakeRenderer(map[string]int{"a.pdf": 1, "b.pdf": 2, "c.pdf": 1})
	renderer.cancelAfter = 2
	renderer.cancel = cancel
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, nil)

	result, err := svc.Run(ctx, Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, []domain.InputStatus{
		domain.StatusSucceeded,
		domain.StatusFailed,
		domain.StatusSkipped,
	}, statuses(result))
	assert.True(t, domain.IsErrorType(result.Inputs[1].Err, domain.ErrorTypeCanceled))
	assert.Equal(t, 1, result.ExitCode())
	assert.FileExists(t, filepath.Join(out, "a.pdf"))
	assert.NoFileExists(t, filepath.Join(out, "b.pdf"))
}

func TestService_CancelConcatenatedWritesNothing(t *testing.T) {
	in := writeInputs(t, "a.pdf", "b.pdf")
	out := filepath.Join(t.TempDir(), "merged.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := newFakeRenderer(map[string]int{"a.pdf": 1, "b.pdf": 1})
	renderer.cancelAfter = 1
	renderer.cancel = cancel
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, nil)

	result, err := svc.Run(ctx, Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, []domain.InputStatus{domain.StatusAborted, domain.StatusFailed}, statuses(result))
	assert.True(t, domain.IsErrorType(result.Err(), domain.ErrorTypeCanceled))
	assert.NoFileExists(t, out)
}

func TestService_ProgressEvents(t *testing.T) {
	in := writeInputs(t, "a.pdf", "bad.pdf")
	out := filepath.Join(t.TempDir(), "out")

	renderer := newFakeRenderer(map[string]int{"a.pdf": 2})
	renderer.corrupt["bad.pdf"] = true
	rep := &recordingReporter{}
	svc := newTestService(renderer, &fakeFactory{}, &fakeExporter{}, rep)

	_, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventDocumentStart,
		domain.EventPageComplete,
		domain.EventPageComplete,
		domain.EventDocumentSaving,
		domain.EventDocumentComplete,
		domain.EventDocumentFailed,
		domain.EventBatchComplete,
	}, rep.types())

	start := rep.events[0]
	assert.Equal(t, filepath.Join(in, "a.pdf"), start.Path)
	assert.Equal(t, 2, start.Pages)
	assert.Equal(t, 1, rep.events[2].Page)
	assert.Equal(t, filepath.Join(out, "a.pdf"), rep.events[3].Path)
	assert.Error(t, rep.events[5].Err)
	assert.Error(t, rep.events[6].Err)
	for _, e := range rep.events {
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestService_ThresholdsEveryPage(t *testing.T) {
	in := writeInputs(t, "a.pdf")
	out := filepath.Join(t.TempDir(), "out")

	var seen []*domain.PageRaster
	svc := newTestService(newFakeRenderer(map[string]int{"a.pdf": 2}), &fakeFactory{}, &fakeExporter{}, nil)
	svc.transform = func(img *domain.PageRaster) *domain.PageRaster {
		seen = append(seen, img)
		return img
	}

	_, err := svc.Run(context.Background(), Request{InputPath: in, OutputPath: out})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}
