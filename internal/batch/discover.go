// Package batch drives the blackout pipeline over a set of input documents:
// discovery, output resolution, per-document processing and aggregation of
// failures.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spherical/pdf-blackout/internal/domain"
	"github.com/spherical/pdf-blackout/internal/pdf"
)

// Discover builds the input set for inputPath. A file yields itself; a
// directory yields its direct PDF entries sorted by path and narrowed to
// names starting with prefix. The prefix is case-sensitive and ignored for
// single-file inputs.
func Discover(inputPath, prefix string, logger *domain.Logger) (*domain.InputSpec, error) {
	if logger == nil {
		logger = domain.DefaultLogger
	}

	if strings.TrimSpace(inputPath) == "" {
		return nil, domain.ValidationError("input path (-i) is required", nil)
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ValidationError(fmt.Sprintf("input path (-i) does not exist: %s", inputPath), err)
		}
		return nil, domain.ValidationError(fmt.Sprintf("cannot access input path: %s", inputPath), err)
	}

	spec := &domain.InputSpec{
		Root:         inputPath,
		IsDir:        info.IsDir(),
		FilterPrefix: prefix,
	}

	if !info.IsDir() {
		if err := pdf.NewValidator().ValidatePDFPath(inputPath); err != nil {
			return nil, err
		}
		if prefix != "" {
			logger.Debug("Filter prefix %q ignored for single-file input %s", prefix, inputPath)
		}
		spec.Paths = []string{inputPath}
		return spec, nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("cannot read input directory: %s", inputPath), err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !pdf.HasPDFExtension(name) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}

		path := filepath.Join(inputPath, name)

		// Stat follows symlinks, so links to regular files are kept.
		fi, err := os.Stat(path)
		if err != nil {
			logger.Warn("Skipping unreadable entry %s: %v", path, err)
			continue
		}
		if !fi.Mode().IsRegular() {
			continue
		}

		spec.Paths = append(spec.Paths, path)
	}

	sort.Strings(spec.Paths)

	logger.Debug("Discovered %d document(s) in %s", len(spec.Paths), inputPath)
	return spec, nil
}
