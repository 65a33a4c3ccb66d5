package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-blackout/internal/domain"
)

// ResolveOutput decides the output mode for outputPath and checks it against
// the discovered inputs. A path with a file extension names a single
// concatenated document; anything else, or a path ending in a separator, is
// a directory. Nothing is created here, see PrepareOutput.
func ResolveOutput(outputPath string, exportImages bool, input *domain.InputSpec) (domain.OutputTarget, error) {
	if strings.TrimSpace(outputPath) == "" {
		return domain.OutputTarget{}, domain.ValidationError("output path (-o) is required", nil)
	}

	target := domain.OutputTarget{
		Mode: modeFor(outputPath, exportImages),
		Path: filepath.Clean(outputPath),
	}

	if exportImages && target.Mode != domain.ModeImageExport {
		return domain.OutputTarget{}, domain.ValidationError(
			fmt.Sprintf("output path (-o) must be a directory when exporting images: %s", outputPath), nil)
	}

	info, statErr := os.Stat(target.Path)
	exists := statErr == nil

	if target.IsDir() {
		if exists && !info.IsDir() {
			return domain.OutputTarget{}, domain.ValidationError(
				fmt.Sprintf("output path (-o) is an existing file, expected a directory: %s", outputPath), nil)
		}
		for _, in := range input.Paths {
			if samePath(filepath.Dir(in), target.Path) {
				return domain.OutputTarget{}, domain.ValidationError(
					fmt.Sprintf("output directory (-o) must differ from the input directory: %s", outputPath), nil)
			}
		}
		return target, nil
	}

	if exists && info.IsDir() {
		return domain.OutputTarget{}, domain.ValidationError(
			fmt.Sprintf("output path (-o) is an existing directory, expected a file: %s", outputPath), nil)
	}
	for _, in := range input.Paths {
		if samePath(in, target.Path) {
			return domain.OutputTarget{}, domain.ValidationError(
				fmt.Sprintf("output file (-o) would overwrite input: %s", in), nil)
		}
	}

	return target, nil
}

// PrepareOutput creates the target directory, or the parent directory of a
// concatenated output file.
func PrepareOutput(target domain.OutputTarget) error {
	dir := target.Path
	if !target.IsDir() {
		dir = filepath.Dir(target.Path)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.WriteError("failed to create output directory", err).WithPath(dir)
	}
	return nil
}

func modeFor(outputPath string, exportImages bool) domain.OutputMode {
	isDir := strings.HasSuffix(outputPath, string(filepath.Separator)) ||
		strings.HasSuffix(outputPath, "/") ||
		!hasExtension(outputPath)

	switch {
	case !isDir:
		return domain.ModeConcatenated
	case exportImages:
		return domain.ModeImageExport
	default:
		return domain.ModePerInput
	}
}

// hasExtension reports whether the last element of path has an extension.
// Leading dots mark hidden names, not extensions, so ".out" and "." have none.
func hasExtension(path string) bool {
	name := strings.TrimLeft(filepath.Base(filepath.Clean(path)), ".")
	return strings.Contains(name, ".")
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
